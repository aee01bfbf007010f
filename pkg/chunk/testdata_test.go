// pkg/chunk/testdata_test.go

package chunk

import (
	"os"
	"testing"

	"github.com/cespare/xxhash/v2"
)

// buildBlockHeader returns a valid 24-byte block header at the given
// offsets, purely as framing furniture: prevChunk/nextChunk are stored
// verbatim, whether or not a chunk actually sits at the referenced
// position. While reading a chunk, ChunkReader checks PreviousChunk
// against that chunk's start; Recover and the SeekToChunk family trust
// the fields once the checksum validates.
func buildBlockHeader(prevChunk, nextChunk uint64) []byte {
	buf := make([]byte, BlockHeaderSize)
	BlockHeader{PreviousChunk: prevChunk, NextChunk: nextChunk}.Encode(buf)
	return buf
}

func buildChunkHeader(payload []byte, numRecords uint64) []byte {
	buf := make([]byte, HeaderSize)
	h := Header{
		DataSize:        uint64(len(payload)),
		NumRecords:      numRecords,
		DecodedDataSize: uint64(len(payload)),
		DataHash:        xxhash.Sum64(payload),
	}
	h.Encode(buf)
	return buf
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "chunkio-chunk-*")
	if err != nil {
		panic(err)
	}
	if _, err := f.Write(content); err != nil {
		panic(err)
	}
	if err := f.Close(); err != nil {
		panic(err)
	}
	return f.Name()
}
