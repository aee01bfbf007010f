// pkg/ioreader/fdhandle.go

package ioreader

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// fdHandle is the owned-or-borrowed file descriptor wrapper referenced by
// the spec as the "dependency holder" external collaborator. Rather than
// a generic Dependency[T] type, it is the sum type the design notes
// suggest: a plain struct with an ownership bit, since Go has no need for
// a templated holder here.
type fdHandle struct {
	fd    int
	owned bool
}

func newOwnedFd(fd int) fdHandle    { return fdHandle{fd: fd, owned: true} }
func newBorrowedFd(fd int) fdHandle { return fdHandle{fd: fd, owned: false} }

func (h fdHandle) get() int      { return h.fd }
func (h fdHandle) isOwning() bool { return h.owned }

// release detaches the fd from the handle without closing it, returning
// it to the caller. After release the handle reports fd -1.
func (h *fdHandle) release() int {
	fd := h.fd
	h.fd = -1
	return fd
}

// close closes the fd exactly once if owned, leaving it untouched if
// borrowed. Returns the syscall error, if any.
func (h *fdHandle) close() error {
	if !h.owned || h.fd < 0 {
		h.fd = -1
		return nil
	}
	fd := h.release()
	return closeFd(fd)
}

func closeFd(fd int) error {
	for {
		err := unix.Close(fd)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// diagnosticFilename returns the placeholder name recorded for a reader
// constructed from a raw fd, matching riegeli's FdReaderCommon::SetFilename.
func diagnosticFilename(fd int) string {
	if fd == 0 {
		return "stdin alias"
	}
	return fmt.Sprintf("self-fd/%d", fd)
}
