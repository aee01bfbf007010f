// pkg/chunk/block.go

package chunk

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// DefaultBlockSize is the fixed interval, in bytes, at which a block
// header is interleaved into the chunk stream, used unless a ChunkReader
// is constructed with a different Options.BlockSize.
const DefaultBlockSize = 64 << 10

// BlockHeaderSize is the size in bytes of a block header: two
// little-endian uint64 offsets plus a little-endian uint64 hash.
const BlockHeaderSize = 24

// BlockHeader sits at every block boundary. It records, relative to the
// start of its own block, the offset back to the chunk header preceding
// this block and the offset forward to the chunk header following it.
// Either offset may point past the block itself, since a single chunk can
// span many blocks.
type BlockHeader struct {
	PreviousChunk uint64
	NextChunk     uint64
}

// Encode writes the 24-byte wire form of h, including its hash, into buf
// (which must be at least BlockHeaderSize long).
func (h BlockHeader) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], h.PreviousChunk)
	binary.LittleEndian.PutUint64(buf[8:16], h.NextChunk)
	binary.LittleEndian.PutUint64(buf[16:24], xxhash.Sum64(buf[0:16]))
}

// DecodeBlockHeader validates and decodes a 24-byte block header. It
// returns ok=false if the trailing hash does not match the first 16
// bytes.
func DecodeBlockHeader(buf []byte) (BlockHeader, bool) {
	var h BlockHeader
	if len(buf) < BlockHeaderSize {
		return h, false
	}
	wantHash := binary.LittleEndian.Uint64(buf[16:24])
	if xxhash.Sum64(buf[0:16]) != wantHash {
		return h, false
	}
	h.PreviousChunk = binary.LittleEndian.Uint64(buf[0:8])
	h.NextChunk = binary.LittleEndian.Uint64(buf[8:16])
	return h, true
}

// RemainingInBlock returns how many bytes remain until pos reaches the
// next block boundary (blockSize if pos is itself a block boundary).
func RemainingInBlock(pos, blockSize uint64) uint64 {
	return blockSize - pos%blockSize
}

// BlockStart returns the start of the block containing pos.
func BlockStart(pos, blockSize uint64) uint64 {
	return pos - pos%blockSize
}

// NextBlockBoundary returns the smallest block boundary >= pos.
func NextBlockBoundary(pos, blockSize uint64) uint64 {
	if pos%blockSize == 0 {
		return pos
	}
	return BlockStart(pos, blockSize) + blockSize
}
