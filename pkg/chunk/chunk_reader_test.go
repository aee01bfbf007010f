// pkg/chunk/chunk_reader_test.go

package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"chunkio/pkg/ioreader"
)

func openChunkReader(t *testing.T, path string, opts Options) *ChunkReader {
	t.Helper()
	r, err := ioreader.OpenFdReader(path, unix.O_RDONLY, ioreader.FdOptions{})
	require.NoError(t, err)
	return NewChunkReader(r, true, opts)
}

// buildS2File lays out the file shared by S2 and S3: block header at 0,
// a chunk starting at 24 whose 32-byte payload crosses the block boundary
// at 64, a second block header at 128 usable as a resync target, and
// filler between the payload's end (120) and that second header.
func buildS2File() (content []byte, payload []byte) {
	payload = make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i)
	}

	buf := make([]byte, 152)
	copy(buf[0:24], buildBlockHeader(0, 24))
	copy(buf[24:64], buildChunkHeader(payload, 1))
	copy(buf[64:88], buildBlockHeader(40, 80)) // previous_chunk=40, next_chunk=80 => 144
	copy(buf[88:120], payload)
	// buf[120:128] filler, left zero: never read by ReadChunk or Recover.
	copy(buf[128:152], buildBlockHeader(104, 16)) // next_chunk=16 => 128+16=144
	return buf, payload
}

func TestReadChunkRoundtripSingleChunk(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	buf := make([]byte, 24+HeaderSize+len(payload))
	copy(buf[0:24], buildBlockHeader(0, 24))
	copy(buf[24:24+HeaderSize], buildChunkHeader(payload, 1))
	copy(buf[24+HeaderSize:], payload)

	path := writeTempFile(t, buf)
	cr := openChunkReader(t, path, Options{})
	defer cr.Close()

	var ck Chunk
	require.True(t, cr.ReadChunk(&ck))
	assert.Equal(t, uint64(3), ck.Header.DataSize)
	assert.Equal(t, payload, ck.Payload)

	assert.False(t, cr.ReadChunk(&ck))
	assert.True(t, cr.Healthy())

	assert.True(t, cr.Close())
}

func TestReadChunkCrossesBlockBoundary(t *testing.T) {
	content, payload := buildS2File()
	path := writeTempFile(t, content)
	cr := openChunkReader(t, path, Options{BlockSize: 64})
	defer cr.Close()

	var ck Chunk
	require.True(t, cr.ReadChunk(&ck))
	assert.Equal(t, uint64(32), ck.Header.DataSize)
	assert.Equal(t, payload, ck.Payload)
	assert.Equal(t, uint64(120), cr.Pos())
}

func TestRecoverAfterCorruptedBlockHeader(t *testing.T) {
	content, _ := buildS2File()
	// Corrupt the trailing hash byte of the block header at offset 64,
	// leaving its previous_chunk/next_chunk fields intact but its
	// checksum invalid.
	content[87] ^= 0xFF

	path := writeTempFile(t, content)
	cr := openChunkReader(t, path, Options{BlockSize: 64})
	defer cr.Close()

	var ck Chunk
	assert.False(t, cr.ReadChunk(&ck))
	assert.False(t, cr.Healthy())

	var region SkippedRegion
	require.True(t, cr.Recover(&region))
	assert.Equal(t, uint64(24), region.Begin)
	assert.Equal(t, uint64(144), region.End)
	assert.True(t, cr.Healthy())
	assert.Equal(t, uint64(144), cr.Pos())
}

func TestTruncationMidPayloadStaysHealthyUntilClose(t *testing.T) {
	content, _ := buildS2File()
	truncated := content[:100]

	path := writeTempFile(t, truncated)
	cr := openChunkReader(t, path, Options{BlockSize: 64})

	var ck Chunk
	assert.False(t, cr.ReadChunk(&ck))
	assert.True(t, cr.Healthy())

	assert.False(t, cr.Close())
}

func TestRecoverAfterTruncationReportsEmptyRegion(t *testing.T) {
	content, _ := buildS2File()
	truncated := content[:100]

	path := writeTempFile(t, truncated)
	cr := openChunkReader(t, path, Options{BlockSize: 64})
	defer cr.Close()

	var ck Chunk
	assert.False(t, cr.ReadChunk(&ck))

	var region SkippedRegion
	require.True(t, cr.Recover(&region))
	assert.Equal(t, uint64(0), region.Length())
	assert.True(t, cr.Healthy())
}

func TestCheckFileFormatOnEmptyFile(t *testing.T) {
	path := writeTempFile(t, nil)
	cr := openChunkReader(t, path, Options{})
	defer cr.Close()

	assert.True(t, cr.CheckFileFormat())
	var ck Chunk
	assert.False(t, cr.ReadChunk(&ck))
	assert.True(t, cr.Healthy())
}

func TestSeekToChunkContainingFamily(t *testing.T) {
	// chunkA has 1 record, so its index prefix is the first payload byte;
	// the remaining 2 payload bytes are plain record data.
	payloadA := []byte{0xAA, 0xAA, 0xAA}
	payloadB := []byte{0xBB, 0xBB, 0xBB}

	chunkA := append(buildChunkHeader(payloadA, 1), payloadA...)
	chunkB := append(buildChunkHeader(payloadB, 0), payloadB...)

	buf := make([]byte, 0, 24+len(chunkA)+len(chunkB))
	buf = append(buf, buildBlockHeader(0, 24)...)
	buf = append(buf, chunkA...)
	buf = append(buf, chunkB...)

	path := writeTempFile(t, buf)
	cr := openChunkReader(t, path, Options{})
	defer cr.Close()

	chunkAStart := uint64(24)
	chunkAEnd := chunkAStart + uint64(len(chunkA)) // == chunkB's start
	indexEnd := chunkAStart + HeaderSize + 1

	// p within chunkA's index prefix: Contains snaps to chunkA's start.
	require.True(t, cr.SeekToChunkContaining(indexEnd-1))
	assert.Equal(t, chunkAStart, cr.Pos())

	// p within chunkA's record-data region (past the index prefix):
	// Contains snaps forward to the next chunk.
	require.True(t, cr.SeekToChunkContaining(indexEnd))
	assert.Equal(t, chunkAEnd, cr.Pos())

	// p strictly inside chunkA (not at any boundary): Before/After both
	// resolve relative to chunkA.
	mid := chunkAStart + 10
	require.True(t, cr.SeekToChunkBefore(mid))
	assert.Equal(t, chunkAStart, cr.Pos())
	require.True(t, cr.SeekToChunkAfter(mid))
	assert.Equal(t, chunkAEnd, cr.Pos())

	// p exactly at a chunk boundary (chunkB's start, == chunkA's end):
	// Before/Contains select that chunk (chunkB). At chunkA's start
	// boundary, After selects the next chunk (chunkB).
	require.True(t, cr.SeekToChunkBefore(chunkAEnd))
	assert.Equal(t, chunkAEnd, cr.Pos())
	require.True(t, cr.SeekToChunkContaining(chunkAEnd))
	assert.Equal(t, chunkAEnd, cr.Pos())
	require.True(t, cr.SeekToChunkAfter(chunkAStart))
	assert.Equal(t, chunkAEnd, cr.Pos())
}
