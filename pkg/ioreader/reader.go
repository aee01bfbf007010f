// pkg/ioreader/reader.go

// Package ioreader provides the pull-based byte Reader contract used by
// the record-oriented file format's chunk layer, plus the concrete
// descriptor-backed readers that implement it: a random-access buffered
// reader (FdReader), a sequential reader over a descriptor that need not
// support seeking (FdStreamReader), and a reader that maps the whole file
// into memory (FdMMapReader).
package ioreader

import "chunkio/pkg/status"

const DefaultBufferSize = 64 << 10

// Reader is the uniform pull-based contract every source in this package
// implements. Operations follow the bufio.Scanner idiom: a bool result
// reports success; on false, callers distinguish end-of-source from
// failure via Healthy().
//
// No method on a single Reader may be called concurrently with any other
// method on the same Reader.
type Reader interface {
	// Pull ensures at least minLength bytes are available in the current
	// window without necessarily consuming them. minLength <= 0 is treated
	// as 1. Returns true if the window holds at least minLength bytes,
	// false at end of source (Healthy() remains true) or on failure.
	Pull(minLength int) bool

	// Read copies up to len(dest) bytes into dest, advancing Position() by
	// the number of bytes copied. It returns the number of bytes copied and
	// whether the full length was obtained. A short read (n < len(dest))
	// happens only at end of source, in which case Healthy() is still true
	// afterwards. Read of a zero-length dest always succeeds without
	// moving Position().
	Read(dest []byte) (n int, ok bool)

	// ReadToChain appends length bytes to chain without necessarily
	// copying them: backing stores that already hold their data in memory
	// (FdMMapReader) append a slice view directly. It has the same
	// success/EOF/failure contract as Read.
	ReadToChain(chain *Chain, length int) bool

	// Skip advances Position() by length bytes without copying them. Same
	// contract as Read regarding EOF vs failure.
	Skip(length uint64) bool

	// Position returns the current read offset.
	Position() uint64

	// Seek moves to newPos. Only valid if SupportsRandomAccess(). Fails if
	// newPos is past the end of the source, except that seeking exactly to
	// the end always succeeds.
	Seek(newPos uint64) bool

	// Size returns the total size of the source. Only valid if
	// SupportsRandomAccess().
	Size() (uint64, bool)

	// SupportsRandomAccess reports whether Seek and Size are usable.
	SupportsRandomAccess() bool

	// Close finalizes the Reader. Idempotent: calling Close twice has the
	// same observable effect as calling it once, and Position() is
	// unchanged by Close.
	Close() bool

	// Healthy reports whether further operations may succeed. A Reader
	// that failed to Close (e.g. after an earlier failure, or a close(2)
	// error) is Closed but not Healthy.
	Healthy() bool

	// LastStatus describes the most recent failure, or nil if Healthy().
	LastStatus() *status.Status
}
