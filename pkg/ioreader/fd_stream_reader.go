// pkg/ioreader/fd_stream_reader.go

package ioreader

import (
	"github.com/google/uuid"
	"github.com/juju/ratelimit"
	"golang.org/x/sys/unix"

	"chunkio/pkg/status"
)

// FdStreamReader reads sequentially from a file descriptor that need not
// support seeking: it uses read(), never pread(), and exposes no Seek or
// Size. A descriptor passed in raw (owned == false path included) must
// come with an assumed starting position, since FdStreamReader has no way
// to discover it without seeking.
//
// Warning: if the descriptor is borrowed, buffering may have consumed
// more bytes from it than Position() reports; callers must not resume
// reading on that descriptor directly after this reader is done with it.
type FdStreamReader struct {
	BufferedReader
	fd       fdHandle
	filename string
	id       uuid.UUID
	rate     *ratelimit.Bucket
}

// NewFdStreamReader reads from fd starting at opts.AssumedPos, which must
// be set: FdStreamReader cannot discover the fd's position itself.
func NewFdStreamReader(fd int, owned bool, opts FdOptions) (*FdStreamReader, error) {
	r := &FdStreamReader{id: uuid.New()}
	if owned {
		r.fd = newOwnedFd(fd)
	} else {
		r.fd = newBorrowedFd(fd)
	}
	r.filename = diagnosticFilename(fd)
	r.rate = opts.RateLimit
	r.BufferedReader.Init(opts.BufferSize)
	r.ReadInternal = r.readInternal
	if opts.AssumedPos == nil {
		r.Fail(status.New(status.InvalidArgument, "NewFdStreamReader",
			"assumed position must be specified when constructing from a raw descriptor"))
		return r, r.LastStatus()
	}
	r.SetLimitPos(*opts.AssumedPos)
	return r, nil
}

// OpenFdStreamReader opens filename with flags (O_RDONLY or O_RDWR) and
// reads sequentially from the resulting, owned, descriptor. The assumed
// position defaults to zero when opts.AssumedPos is nil.
func OpenFdStreamReader(filename string, flags int, opts FdOptions) (*FdStreamReader, error) {
	fd, err := openFd(filename, flags)
	if err != nil {
		r := &FdStreamReader{id: uuid.New(), filename: filename}
		r.BufferedReader.Init(opts.BufferSize)
		r.Fail(status.Wrap(status.Internal, "open", err))
		return r, err
	}
	r := &FdStreamReader{id: uuid.New(), filename: filename, fd: newOwnedFd(fd)}
	r.rate = opts.RateLimit
	r.BufferedReader.Init(opts.BufferSize)
	r.ReadInternal = r.readInternal
	if opts.AssumedPos != nil {
		r.SetLimitPos(*opts.AssumedPos)
	}
	return r, nil
}

func (r *FdStreamReader) Filename() string { return r.filename }
func (r *FdStreamReader) SrcFD() int       { return r.fd.get() }

func (r *FdStreamReader) SupportsRandomAccess() bool { return false }
func (r *FdStreamReader) Seek(uint64) bool {
	return r.Fail(status.New(status.FailedPrecondition, "Seek", "FdStreamReader does not support random access"))
}
func (r *FdStreamReader) Size() (uint64, bool) {
	r.Fail(status.New(status.FailedPrecondition, "Size", "FdStreamReader does not support random access"))
	return 0, false
}

func (r *FdStreamReader) readInternal(dest []byte, minLength, maxLength int) (int, bool) {
	n := 0
	for n < minLength {
		got, err := readRetry(r.fd.get(), dest[n:maxLength])
		if err != nil {
			r.Fail(status.Wrap(status.Internal, "read", err))
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

func (r *FdStreamReader) Close() bool {
	if r.Closed() {
		return r.Healthy()
	}
	priorFailure := r.LastStatus()
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
	return r.MarkClosed(final)
}

func readRetry(fd int, dest []byte) (int, error) {
	for {
		n, err := unix.Read(fd, dest)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}
