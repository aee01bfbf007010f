// pkg/ioreader/fd_reader.go

package ioreader

import (
	"github.com/google/uuid"
	"github.com/juju/ratelimit"
	"golang.org/x/sys/unix"

	"chunkio/pkg/status"
	"chunkio/pkg/utils"
)

var fdLog = utils.GetLogger("chunkio")

// FdOptions configures FdReader, FdStreamReader and FdMMapReader.
type FdOptions struct {
	// BufferSize tunes how much data FdReader/FdStreamReader buffer after
	// reading from the file. Zero means DefaultBufferSize. Unused by
	// FdMMapReader, which maps the whole file up front.
	BufferSize int

	// InitialPos/AssumedPos, if set, is used instead of querying or
	// setting the descriptor's kernel position; this allows several
	// readers to share one descriptor concurrently. If nil for FdReader or
	// FdMMapReader, the current descriptor position is adopted at
	// construction and written back at Close. FdStreamReader requires a
	// non-nil AssumedPos when constructed from a raw fd (it cannot
	// discover the position without seeking, which it does not support).
	InitialPos *uint64
	AssumedPos *uint64

	// RateLimit, if set, throttles the underlying pread/read syscalls.
	RateLimit *ratelimit.Bucket
}

// FdReader reads from a file descriptor using positional reads (pread),
// so it supports random access and places no constraint on the
// descriptor's kernel-side seek position once InitialPos is set.
type FdReader struct {
	BufferedReader
	fd       fdHandle
	filename string
	syncPos  bool
	id       uuid.UUID
	rate     *ratelimit.Bucket
}

// NewFdReader reads from fd, which is owned by the FdReader iff owned is
// true. If opts.InitialPos is nil, the current descriptor position is
// queried via lseek and adopted, and written back on Close.
func NewFdReader(fd int, owned bool, opts FdOptions) (*FdReader, error) {
	r := &FdReader{id: uuid.New()}
	if owned {
		r.fd = newOwnedFd(fd)
	} else {
		r.fd = newBorrowedFd(fd)
	}
	r.filename = diagnosticFilename(fd)
	r.rate = opts.RateLimit
	r.BufferedReader.Init(opts.BufferSize)
	r.ReadInternal = r.readInternal
	if !r.initialize(opts.InitialPos, fd) {
		return r, r.LastStatus()
	}
	return r, nil
}

// OpenFdReader opens filename with flags (which must include O_RDONLY or
// O_RDWR) and reads from the resulting, owned, descriptor.
func OpenFdReader(filename string, flags int, opts FdOptions) (*FdReader, error) {
	fd, err := openFd(filename, flags)
	if err != nil {
		r := &FdReader{id: uuid.New(), filename: filename}
		r.BufferedReader.Init(opts.BufferSize)
		r.Fail(status.Wrap(status.Internal, "open", err))
		return r, err
	}
	r, err := NewFdReader(fd, true, opts)
	r.filename = filename
	return r, err
}

func (r *FdReader) initialize(initialPos *uint64, fd int) bool {
	if initialPos != nil {
		r.SetLimitPos(*initialPos)
		r.syncPos = false
		return true
	}
	off, err := unix.Seek(fd, 0, unix.SEEK_CUR)
	if err != nil {
		return r.Fail(status.Wrap(status.Internal, "lseek", err))
	}
	r.SetLimitPos(uint64(off))
	r.syncPos = true
	return true
}

func (r *FdReader) Filename() string       { return r.filename }
func (r *FdReader) SrcFD() int              { return r.fd.get() }
func (r *FdReader) SupportsRandomAccess() bool { return true }

func (r *FdReader) readInternal(dest []byte, minLength, maxLength int) (int, bool) {
	n := 0
	for n < minLength {
		got, err := preadRetry(r.fd.get(), dest[n:maxLength], int64(r.limitPos)+int64(n))
		if err != nil {
			r.Fail(status.Wrap(status.Internal, "pread", err))
			return n, false
		}
		if got == 0 {
			return n, true
		}
		if r.rate != nil {
			r.rate.Wait(int64(got))
		}
		n += got
	}
	return n, false
}

func (r *FdReader) Size() (uint64, bool) {
	if !r.Healthy() {
		return 0, false
	}
	var st unix.Stat_t
	if err := unix.Fstat(r.fd.get(), &st); err != nil {
		r.Fail(status.Wrap(status.Internal, "fstat", err))
		return 0, false
	}
	return uint64(st.Size), true
}

func (r *FdReader) Seek(newPos uint64) bool {
	if !r.Healthy() {
		return false
	}
	size, ok := r.Size()
	if !ok {
		return false
	}
	if newPos > size {
		return r.Fail(status.New(status.OutOfRange, "Seek", "seek position is past end of source"))
	}
	r.discardWindow()
	r.SetLimitPos(newPos)
	return true
}

func (r *FdReader) Close() bool {
	if r.Closed() {
		return r.Healthy()
	}
	priorFailure := r.LastStatus()
	if priorFailure == nil && r.syncPos {
		if _, err := unix.Seek(r.fd.get(), int64(r.Position()), unix.SEEK_SET); err != nil {
			priorFailure = status.Wrap(status.Internal, "lseek", err)
		}
	}
	var closeErr error
	if r.fd.isOwning() {
		closeErr = r.fd.close()
	} else {
		r.fd.release()
	}
	final := priorFailure
	if final == nil && closeErr != nil {
		final = status.Wrap(status.Internal, "close", closeErr)
	}
	if final != nil {
		fdLog.Debugf("FdReader %s close: %v", r.id, final)
	}
	return r.MarkClosed(final)
}

func openFd(filename string, flags int) (int, error) {
	for {
		fd, err := unix.Open(filename, flags, 0)
		if err == unix.EINTR {
			continue
		}
		return fd, err
	}
}

func preadRetry(fd int, dest []byte, off int64) (int, error) {
	for {
		n, err := unix.Pread(fd, dest, off)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}
