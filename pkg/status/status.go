// pkg/status/status.go

package status

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies the cause of a Status.
type Kind int

const (
	// OK is not used as a Status (healthy() paths never construct one), it
	// only exists so the zero value of Kind is not mistaken for a real kind.
	OK Kind = iota
	InvalidArgument
	FailedPrecondition
	DataLoss
	OutOfRange
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case FailedPrecondition:
		return "FailedPrecondition"
	case DataLoss:
		return "DataLoss"
	case OutOfRange:
		return "OutOfRange"
	case Internal:
		return "Internal"
	default:
		return "OK"
	}
}

// Status is the failure carried by an unhealthy Reader or ChunkReader: a
// Kind, the operation that failed, a human-readable message and, where
// applicable, the syscall or lower-layer error that caused it.
type Status struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error

	// trace carries a stack trace captured at the point the Status was
	// built, printed only when a caller formats the Status with %+v.
	trace error
}

func (s *Status) Error() string {
	if s == nil {
		return "<nil status>"
	}
	if s.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", s.Kind, s.Op, s.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", s.Kind, s.Op, s.Message)
}

func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return s.Cause
}

// Format implements fmt.Formatter so that logging a Status with "%+v"
// includes the stack trace captured when it was built.
func (s *Status) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('+') && s.trace != nil {
		fmt.Fprintf(f, "%s\n%+v", s.Error(), s.trace)
		return
	}
	fmt.Fprint(f, s.Error())
}

// New builds a Status with no underlying cause.
func New(kind Kind, op, message string) *Status {
	return &Status{Kind: kind, Op: op, Message: message, trace: pkgerrors.New(message)}
}

// Wrap builds a Status around a lower-layer error (typically a syscall
// failure), keeping it reachable via errors.Unwrap/errors.Is.
func Wrap(kind Kind, op string, cause error) *Status {
	return &Status{Kind: kind, Op: op, Message: cause.Error(), Cause: cause, trace: pkgerrors.WithStack(cause)}
}

// Is reports whether err is a *Status of the given Kind.
func Is(err error, kind Kind) bool {
	var s *Status
	if errors.As(err, &s) {
		return s.Kind == kind
	}
	return false
}
