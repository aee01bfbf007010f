// pkg/ioreader/fd_mmap_reader.go

package ioreader

import (
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"chunkio/pkg/status"
)

// FdMMapReader maps the whole file into memory and presents it as a
// chainReader, so after construction all reads are zero-copy views into
// mapped memory. The file must not be mutated while any such view is
// still reachable (ReadToChain's blocks, or anything copied out of them
// by the caller before the reader closes).
type FdMMapReader struct {
	chainReader
	fd       fdHandle
	filename string
	syncPos  bool
	mapped   []byte
	id       uuid.UUID
}

// NewFdMMapReader maps the file behind fd, which is owned by the
// FdMMapReader iff owned is true.
func NewFdMMapReader(fd int, owned bool, opts FdOptions) (*FdMMapReader, error) {
	r := &FdMMapReader{id: uuid.New()}
	if owned {
		r.fd = newOwnedFd(fd)
	} else {
		r.fd = newBorrowedFd(fd)
	}
	r.filename = diagnosticFilename(fd)
	if !r.initialize(opts.InitialPos, fd) {
		return r, r.LastStatus()
	}
	return r, nil
}

// OpenFdMMapReader opens filename with flags (O_RDONLY or O_RDWR) and maps
// the resulting, owned, descriptor.
func OpenFdMMapReader(filename string, flags int, opts FdOptions) (*FdMMapReader, error) {
	fd, err := openFd(filename, flags)
	if err != nil {
		r := &FdMMapReader{id: uuid.New(), filename: filename}
		r.Fail(status.Wrap(status.Internal, "open", err))
		return r, err
	}
	r, err := NewFdMMapReader(fd, true, opts)
	r.filename = filename
	return r, err
}

func (r *FdMMapReader) initialize(initialPos *uint64, fd int) bool {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return r.Fail(status.Wrap(status.Internal, "fstat", err))
	}
	if st.Size > 0 {
		mapped, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			return r.Fail(status.Wrap(status.Internal, "mmap", err))
		}
		r.mapped = mapped
		r.chainReader.data = mapped
	}
	if initialPos != nil {
		r.syncPos = false
		return r.chainReader.Seek(*initialPos)
	}
	off, err := unix.Seek(fd, 0, unix.SEEK_CUR)
	if err != nil {
		return r.Fail(status.Wrap(status.Internal, "lseek", err))
	}
	r.syncPos = true
	return r.chainReader.Seek(uint64(off))
}

func (r *FdMMapReader) Filename() string { return r.filename }
func (r *FdMMapReader) SrcFD() int       { return r.fd.get() }

func (r *FdMMapReader) Close() bool {
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
	if r.mapped != nil {
		if err := unix.Munmap(r.mapped); err != nil {
			closeErr = err
		}
		r.mapped = nil
		r.chainReader.data = nil
	}
	if r.fd.isOwning() {
		if err := r.fd.close(); err != nil && closeErr == nil {
			closeErr = err
		}
	} else {
		r.fd.release()
	}
	final := priorFailure
	if final == nil && closeErr != nil {
		final = status.Wrap(status.Internal, "munmap/close", closeErr)
	}
	return r.MarkClosed(final)
}
