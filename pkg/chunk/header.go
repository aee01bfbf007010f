// pkg/chunk/header.go

package chunk

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HeaderSize is the size in bytes of a chunk header.
const HeaderSize = 40

// Header is the fixed 40-byte framing record at the front of every chunk.
type Header struct {
	DataSize        uint64
	NumRecords      uint64
	DecodedDataSize uint64
	DataHash        uint64
	HeaderHash      uint64
}

// Encode writes the 40-byte wire form of h, including HeaderHash computed
// over the first 32 bytes, into buf (which must be at least HeaderSize
// long). h.HeaderHash itself is ignored and recomputed.
func (h Header) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], h.DataSize)
	binary.LittleEndian.PutUint64(buf[8:16], h.NumRecords)
	binary.LittleEndian.PutUint64(buf[16:24], h.DecodedDataSize)
	binary.LittleEndian.PutUint64(buf[24:32], h.DataHash)
	binary.LittleEndian.PutUint64(buf[32:40], xxhash.Sum64(buf[0:32]))
}

// DecodeHeader validates and decodes a 40-byte chunk header, checking
// HeaderHash against the first 32 bytes.
func DecodeHeader(buf []byte) (Header, bool) {
	var h Header
	if len(buf) < HeaderSize {
		return h, false
	}
	wantHash := binary.LittleEndian.Uint64(buf[32:40])
	if xxhash.Sum64(buf[0:32]) != wantHash {
		return h, false
	}
	h.DataSize = binary.LittleEndian.Uint64(buf[0:8])
	h.NumRecords = binary.LittleEndian.Uint64(buf[8:16])
	h.DecodedDataSize = binary.LittleEndian.Uint64(buf[16:24])
	h.DataHash = binary.LittleEndian.Uint64(buf[24:32])
	h.HeaderHash = wantHash
	return h, true
}

// ValidateData reports whether data's hash matches h.DataHash.
func (h Header) ValidateData(data []byte) bool {
	return xxhash.Sum64(data) == h.DataHash
}

// indexSize is the size, in bytes, of the per-record index occupying the
// first bytes of a chunk's payload: one byte per record.
func (h Header) indexSize() uint64 { return h.NumRecords }
