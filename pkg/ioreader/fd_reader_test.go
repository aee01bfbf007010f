// pkg/ioreader/fd_reader_test.go

package ioreader

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func tempFileWithContent(t *testing.T, content []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "chunkio-fdreader-*")
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestFdReaderRoundtrip(t *testing.T) {
	content := []byte("0123456789abcdefghij")
	path := tempFileWithContent(t, content)

	r, err := OpenFdReader(path, unix.O_RDONLY, FdOptions{BufferSize: 4})
	require.NoError(t, err)

	dest := make([]byte, 5)
	n, ok := r.Read(dest)
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, content[:5], dest)
	assert.Equal(t, uint64(5), r.Position())

	size, ok := r.Size()
	assert.True(t, ok)
	assert.Equal(t, uint64(len(content)), size)

	rest := make([]byte, len(content)-5)
	n, ok = r.Read(rest)
	assert.True(t, ok)
	assert.Equal(t, len(rest), n)
	assert.Equal(t, content[5:], rest)

	// end of source: short read, still healthy
	n, ok = r.Read(make([]byte, 1))
	assert.False(t, ok)
	assert.Equal(t, 0, n)
	assert.True(t, r.Healthy())

	assert.True(t, r.Close())
	assert.True(t, r.Close()) // idempotent
}

func TestFdReaderSeek(t *testing.T) {
	content := []byte("0123456789")
	path := tempFileWithContent(t, content)

	r, err := OpenFdReader(path, unix.O_RDONLY, FdOptions{BufferSize: 64})
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Seek(5))
	dest := make([]byte, 3)
	n, ok := r.Read(dest)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("567"), dest)

	// seeking exactly to end succeeds; a read thereafter is a clean EOF.
	assert.True(t, r.Seek(uint64(len(content))))
	n, ok = r.Read(dest)
	assert.False(t, ok)
	assert.Equal(t, 0, n)
	assert.True(t, r.Healthy())

	assert.False(t, r.Seek(uint64(len(content))+1))
	assert.False(t, r.Healthy())
}

func TestTwoPositionalFdReadersDoNotCorruptEachOther(t *testing.T) {
	content := make([]byte, 2048)
	for i := range content {
		content[i] = byte(i)
	}
	path := tempFileWithContent(t, content)

	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	require.NoError(t, err)
	defer unix.Close(fd)

	startA, startB := uint64(0), uint64(1024)
	a, err := NewFdReader(fd, false, FdOptions{BufferSize: 64, InitialPos: &startA})
	require.NoError(t, err)
	b, err := NewFdReader(fd, false, FdOptions{BufferSize: 64, InitialPos: &startB})
	require.NoError(t, err)

	bufA := make([]byte, 512)
	bufB := make([]byte, 512)
	for i := 0; i < 1024; i += 512 {
		n, ok := a.Read(bufA)
		assert.True(t, ok)
		assert.Equal(t, content[i:i+512], bufA[:n])
		assert.Equal(t, uint64(i+512), a.Position())

		n, ok = b.Read(bufB)
		assert.True(t, ok)
		assert.Equal(t, content[1024+i:1024+i+512], bufB[:n])
		assert.Equal(t, uint64(1024+i+512), b.Position())
	}

	assert.True(t, a.Close())
	assert.True(t, b.Close())

	off, err := unix.Seek(fd, 0, unix.SEEK_CUR)
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)
}

func TestFdStreamReaderRequiresAssumedPosFromRawFd(t *testing.T) {
	path := tempFileWithContent(t, []byte("hello"))
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	require.NoError(t, err)
	defer unix.Close(fd)

	r, err := NewFdStreamReader(fd, false, FdOptions{BufferSize: 64})
	assert.Error(t, err)
	assert.False(t, r.Healthy())
}

func TestFdStreamReaderSequentialRead(t *testing.T) {
	content := []byte("abcdefghijklmnopqrstuvwxyz")
	path := tempFileWithContent(t, content)

	r, err := OpenFdStreamReader(path, unix.O_RDONLY, FdOptions{BufferSize: 8})
	require.NoError(t, err)
	defer r.Close()

	assert.False(t, r.SupportsRandomAccess())

	dest := make([]byte, len(content))
	n, ok := r.Read(dest)
	assert.True(t, ok)
	assert.Equal(t, len(content), n)
	assert.Equal(t, content, dest)
	assert.Equal(t, uint64(len(content)), r.Position())

	// Seek is unsupported and fails the reader, so it is checked last.
	assert.False(t, r.Seek(0))
}

func TestFdMMapReaderOverEmptyFile(t *testing.T) {
	path := tempFileWithContent(t, nil)

	r, err := OpenFdMMapReader(path, unix.O_RDONLY, FdOptions{})
	require.NoError(t, err)
	defer r.Close()

	size, ok := r.Size()
	assert.True(t, ok)
	assert.Equal(t, uint64(0), size)

	assert.False(t, r.Pull(1))
	assert.True(t, r.Healthy())

	assert.True(t, r.Close())
}

func TestFdMMapReaderZeroCopy(t *testing.T) {
	content := []byte("zero-copy view over mapped memory")
	path := tempFileWithContent(t, content)

	r, err := OpenFdMMapReader(path, unix.O_RDONLY, FdOptions{})
	require.NoError(t, err)
	defer r.Close()

	var chain Chain
	assert.True(t, r.ReadToChain(&chain, len(content)))
	assert.Equal(t, content, chain.Bytes())
}
