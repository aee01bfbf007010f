// pkg/chunk/chunk_reader.go

package chunk

import (
	"chunkio/pkg/ioreader"
	"chunkio/pkg/status"
)

// RecoverableKind classifies how a subsequent Recover call should proceed
// after ChunkReader loses health.
type RecoverableKind int

const (
	RecoverableNone RecoverableKind = iota
	RecoverableHaveChunk
	RecoverableFindChunk
)

// Recoverable is the token a failed or truncated ChunkReader carries,
// describing where recovery should resume.
type Recoverable struct {
	Kind RecoverableKind
	Pos  uint64
}

// WhichChunk selects the member of the SeekToChunk* family.
type WhichChunk int

const (
	WhichChunkContaining WhichChunk = iota
	WhichChunkBefore
	WhichChunkAfter
)

// Options configures a ChunkReader. The zero value uses DefaultBlockSize.
type Options struct {
	BlockSize uint64
}

// maxSaneDataSize is the absolute ceiling on a chunk's claimed DataSize,
// applied regardless of source size. It guards make() against a corrupted
// header whose checksum happens to validate but whose length field is
// implausible.
const maxSaneDataSize = 1 << 32

// ChunkReader decodes a block-interleaved stream of chunks out of an
// underlying byte Reader, including resync-based recovery after
// corruption or truncation.
type ChunkReader struct {
	r         ioreader.Reader
	owned     bool
	blockSize uint64

	failed     bool
	closed     bool
	lastStatus *status.Status

	truncated   bool
	recoverable Recoverable
	skipBegin   uint64

	havePending   bool
	pendingHeader *Header
	pendingStart  uint64

	lastChunkStart *uint64
}

// NewChunkReader wraps r. If owned, Close closes r too; otherwise r is
// left open for the caller to manage.
func NewChunkReader(r ioreader.Reader, owned bool, opts Options) *ChunkReader {
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	return &ChunkReader{r: r, owned: owned, blockSize: blockSize}
}

func (cr *ChunkReader) Healthy() bool {
	if cr.failed {
		return false
	}
	if cr.closed {
		return cr.lastStatus == nil
	}
	return true
}

func (cr *ChunkReader) Closed() bool                 { return cr.closed }
func (cr *ChunkReader) LastStatus() *status.Status   { return cr.lastStatus }
func (cr *ChunkReader) Pos() uint64                  { return cr.r.Position() }
func (cr *ChunkReader) SupportsRandomAccess() bool   { return cr.r.SupportsRandomAccess() }

func (cr *ChunkReader) fail(st *status.Status) bool {
	cr.failed = true
	cr.lastStatus = st
	return false
}

func (cr *ChunkReader) markInvalid(scanFrom, begin uint64, op, msg string) bool {
	cr.recoverable = Recoverable{Kind: RecoverableFindChunk, Pos: scanFrom}
	cr.skipBegin = begin
	return cr.fail(status.New(status.DataLoss, op, msg))
}

func (cr *ChunkReader) markTruncated(chunkStart uint64) {
	cr.truncated = true
	cr.recoverable = Recoverable{Kind: RecoverableHaveChunk, Pos: chunkStart}
}

// dataSizeSane reports whether a decoded DataSize is plausible enough to
// allocate: within maxSaneDataSize, and within the source's remaining
// bytes when that's knowable.
func (cr *ChunkReader) dataSizeSane(dataSize uint64) bool {
	if dataSize > maxSaneDataSize {
		return false
	}
	if !cr.r.SupportsRandomAccess() {
		return true
	}
	if size, ok := cr.r.Size(); ok {
		if pos := cr.r.Position(); pos <= size && dataSize > size-pos {
			return false
		}
	}
	return true
}

func (cr *ChunkReader) clearFailure() {
	cr.failed = false
	cr.lastStatus = nil
	cr.recoverable = Recoverable{}
	cr.truncated = false
	cr.closed = false
	cr.havePending = false
	cr.pendingHeader = nil
}

// prepareChunkStart skips any block headers sitting at the current
// position and reports whether a chunk actually begins there, or whether
// the source has reached a clean end-of-file coinciding with a chunk
// boundary.
func (cr *ChunkReader) prepareChunkStart() (more bool, ok bool) {
	for {
		pos := cr.r.Position()
		if !cr.r.Pull(1) {
			if cr.r.Healthy() {
				return false, true
			}
			cr.fail(status.Wrap(status.Internal, "ReadChunk", cr.r.LastStatus()))
			return false, false
		}
		if pos%cr.blockSize != 0 {
			return true, true
		}
		if !cr.r.Pull(BlockHeaderSize) {
			cr.markTruncated(pos)
			return false, false
		}
		var buf [BlockHeaderSize]byte
		n, _ := cr.r.Read(buf[:])
		if n < BlockHeaderSize {
			cr.markTruncated(pos)
			return false, false
		}
		if _, valid := DecodeBlockHeader(buf[:]); !valid {
			cr.markInvalid(pos, pos, "ReadChunk", "invalid block header checksum")
			return false, false
		}
	}
}

// readLogical fills dest with len(dest) bytes of chunk content belonging
// to the chunk starting at chunkStart, transparently skipping and
// validating any block headers interleaved along the way.
func (cr *ChunkReader) readLogical(dest []byte, chunkStart uint64, op string) bool {
	remaining := dest
	for len(remaining) > 0 {
		pos := cr.r.Position()
		if pos%cr.blockSize == 0 {
			if !cr.r.Pull(BlockHeaderSize) {
				if cr.r.Healthy() {
					cr.markTruncated(chunkStart)
				} else {
					cr.fail(status.Wrap(status.Internal, op, cr.r.LastStatus()))
				}
				return false
			}
			var buf [BlockHeaderSize]byte
			n, _ := cr.r.Read(buf[:])
			if n < BlockHeaderSize {
				cr.markTruncated(chunkStart)
				return false
			}
			bh, valid := DecodeBlockHeader(buf[:])
			if !valid {
				cr.markInvalid(pos, chunkStart, op, "invalid block header checksum")
				return false
			}
			if pos-bh.PreviousChunk != chunkStart {
				cr.markInvalid(pos, chunkStart, op, "block header inconsistent with current chunk start")
				return false
			}
			continue
		}
		limit := NextBlockBoundary(pos, cr.blockSize) - pos
		n := uint64(len(remaining))
		if n > limit {
			n = limit
		}
		got, _ := cr.r.Read(remaining[:n])
		remaining = remaining[got:]
		if uint64(got) < n {
			if cr.r.Healthy() {
				cr.markTruncated(chunkStart)
			} else {
				cr.fail(status.Wrap(status.Internal, op, cr.r.LastStatus()))
			}
			return false
		}
	}
	return true
}

// CheckFileFormat ensures the first chunk header is readable, or that the
// source is cleanly empty. It does not consume a chunk.
func (cr *ChunkReader) CheckFileFormat() bool {
	if !cr.Healthy() {
		return false
	}
	if cr.r.Position() != 0 {
		if !cr.r.SupportsRandomAccess() {
			return cr.fail(status.New(status.FailedPrecondition, "CheckFileFormat",
				"reader is not positioned at start and does not support seeking back to it"))
		}
		if !cr.r.Seek(0) {
			return cr.fail(status.Wrap(status.Internal, "CheckFileFormat", cr.r.LastStatus()))
		}
	}
	more, ok := cr.prepareChunkStart()
	if !ok {
		return false
	}
	if !more {
		return true
	}
	if !cr.r.Pull(HeaderSize) {
		if cr.r.Healthy() {
			cr.markTruncated(cr.r.Position())
			return false
		}
		return cr.fail(status.Wrap(status.Internal, "CheckFileFormat", cr.r.LastStatus()))
	}
	return true
}

// PullChunkHeader advances to having the next chunk's header decoded but
// its payload unread. The returned pointer is valid only until the next
// call that mutates reader state.
func (cr *ChunkReader) PullChunkHeader(out **Header) bool {
	*out = nil
	if !cr.Healthy() {
		return false
	}
	if cr.havePending {
		*out = cr.pendingHeader
		return true
	}
	more, ok := cr.prepareChunkStart()
	if !ok {
		return false
	}
	if !more {
		return false
	}
	chunkStart := cr.r.Position()
	var hbuf [HeaderSize]byte
	if !cr.readLogical(hbuf[:], chunkStart, "PullChunkHeader") {
		return false
	}
	hdr, valid := DecodeHeader(hbuf[:])
	if !valid {
		cr.markInvalid(chunkStart, chunkStart, "PullChunkHeader", "invalid chunk header checksum")
		return false
	}
	cr.pendingHeader = &hdr
	cr.pendingStart = chunkStart
	cr.havePending = true
	*out = cr.pendingHeader
	return true
}

// ReadChunk completes the current chunk into out. It returns false at a
// clean end of stream (still healthy) and false-unhealthy on error. A
// source truncated mid-chunk also returns false with Healthy() still
// true; Close then fails, and Recover resumes at the truncated chunk's
// start.
func (cr *ChunkReader) ReadChunk(out *Chunk) bool {
	if !cr.Healthy() {
		return false
	}
	var chunkStart uint64
	var hdr Header
	if cr.havePending {
		hdr = *cr.pendingHeader
		chunkStart = cr.pendingStart
		cr.havePending = false
		cr.pendingHeader = nil
	} else {
		more, ok := cr.prepareChunkStart()
		if !ok {
			return false
		}
		if !more {
			return false
		}
		chunkStart = cr.r.Position()
		var hbuf [HeaderSize]byte
		if !cr.readLogical(hbuf[:], chunkStart, "ReadChunk") {
			return false
		}
		var valid bool
		hdr, valid = DecodeHeader(hbuf[:])
		if !valid {
			cr.markInvalid(chunkStart, chunkStart, "ReadChunk", "invalid chunk header checksum")
			return false
		}
	}
	if !cr.dataSizeSane(hdr.DataSize) {
		cr.markInvalid(chunkStart, chunkStart, "ReadChunk", "chunk data size exceeds source bounds")
		return false
	}
	payload := make([]byte, hdr.DataSize)
	if !cr.readLogical(payload, chunkStart, "ReadChunk") {
		return false
	}
	if !hdr.ValidateData(payload) {
		cr.markInvalid(chunkStart, chunkStart, "ReadChunk", "chunk payload checksum mismatch")
		return false
	}
	start := chunkStart
	cr.lastChunkStart = &start
	out.Header = hdr
	out.Payload = payload
	return true
}

// Recover consumes the current Recoverable token, if any, repositioning
// the reader to resume at the next readable chunk and reporting the
// region it skipped to get there.
func (cr *ChunkReader) Recover(out *SkippedRegion) bool {
	switch cr.recoverable.Kind {
	case RecoverableHaveChunk:
		start := cr.recoverable.Pos
		if cr.r.SupportsRandomAccess() {
			if !cr.r.Seek(start) {
				return false
			}
		}
		*out = SkippedRegion{Begin: start, End: start}
		cr.clearFailure()
		return true
	case RecoverableFindChunk:
		return cr.findChunkRecover(out)
	default:
		return false
	}
}

func (cr *ChunkReader) findChunkRecover(out *SkippedRegion) bool {
	if !cr.r.SupportsRandomAccess() {
		return false
	}
	begin := cr.skipBegin
	scanFrom := cr.recoverable.Pos
	blockPos := NextBlockBoundary(scanFrom, cr.blockSize)
	if blockPos == scanFrom {
		blockPos += cr.blockSize
	}
	size, ok := cr.r.Size()
	if !ok {
		return false
	}
	for blockPos < size {
		if !cr.r.Seek(blockPos) {
			return false
		}
		if !cr.r.Pull(BlockHeaderSize) {
			if cr.r.Healthy() {
				break
			}
			return false
		}
		var buf [BlockHeaderSize]byte
		n, _ := cr.r.Read(buf[:])
		if n == BlockHeaderSize {
			if bh, valid := DecodeBlockHeader(buf[:]); valid {
				next := blockPos + bh.NextChunk
				if !cr.r.Seek(next) {
					return false
				}
				*out = SkippedRegion{Begin: begin, End: next}
				cr.clearFailure()
				return true
			}
		}
		blockPos += cr.blockSize
	}
	if !cr.r.Seek(size) {
		return false
	}
	*out = SkippedRegion{Begin: begin, End: size}
	cr.clearFailure()
	return true
}

// Seek moves to newPos, which the caller asserts is a chunk boundary.
func (cr *ChunkReader) Seek(newPos uint64) bool {
	if !cr.Healthy() {
		return false
	}
	if !cr.r.SupportsRandomAccess() {
		return cr.fail(status.New(status.FailedPrecondition, "Seek", "underlying reader does not support random access"))
	}
	if !cr.r.Seek(newPos) {
		return cr.fail(status.Wrap(status.Internal, "Seek", cr.r.LastStatus()))
	}
	cr.havePending = false
	cr.pendingHeader = nil
	cr.lastChunkStart = nil
	return true
}

// locateChunk finds, by block-header inspection, the chunk whose range
// [start, end) contains byte position p, along with indexEnd marking
// where that chunk's per-record index prefix ends.
func (cr *ChunkReader) locateChunk(p uint64) (start, end, indexEnd uint64, ok bool) {
	if !cr.r.SupportsRandomAccess() {
		cr.fail(status.New(status.FailedPrecondition, "Seek", "underlying reader does not support random access"))
		return 0, 0, 0, false
	}
	blockPos := BlockStart(p, cr.blockSize)
	if !cr.r.Seek(blockPos) {
		cr.fail(status.Wrap(status.Internal, "Seek", cr.r.LastStatus()))
		return 0, 0, 0, false
	}
	if !cr.r.Pull(BlockHeaderSize) {
		cr.markInvalid(blockPos, blockPos, "Seek", "cannot read block header for seek")
		return 0, 0, 0, false
	}
	var buf [BlockHeaderSize]byte
	cr.r.Read(buf[:])
	bh, valid := DecodeBlockHeader(buf[:])
	if !valid {
		cr.markInvalid(blockPos, blockPos, "Seek", "invalid block header during seek")
		return 0, 0, 0, false
	}
	if blockPos == 0 {
		// The first block has no preceding chunk: PreviousChunk carries no
		// real back-pointer here, since the very first chunk in any file
		// always begins immediately after the first block header.
		start = BlockHeaderSize
	} else {
		start = blockPos - bh.PreviousChunk
	}
	for {
		if !cr.r.Seek(start) {
			cr.fail(status.Wrap(status.Internal, "Seek", cr.r.LastStatus()))
			return 0, 0, 0, false
		}
		var hbuf [HeaderSize]byte
		if !cr.readLogical(hbuf[:], start, "Seek") {
			return 0, 0, 0, false
		}
		hdr, valid := DecodeHeader(hbuf[:])
		if !valid {
			cr.markInvalid(start, start, "Seek", "invalid chunk header during seek")
			return 0, 0, 0, false
		}
		indexEnd = start + HeaderSize + hdr.indexSize()
		if !cr.dataSizeSane(hdr.DataSize) {
			cr.markInvalid(start, start, "Seek", "chunk data size exceeds source bounds")
			return 0, 0, 0, false
		}
		payload := make([]byte, hdr.DataSize)
		if !cr.readLogical(payload, start, "Seek") {
			return 0, 0, 0, false
		}
		end = cr.r.Position()
		if p < end {
			return start, end, indexEnd, true
		}
		if !cr.r.Pull(1) {
			if cr.r.Healthy() {
				return start, end, indexEnd, true
			}
			cr.fail(status.Wrap(status.Internal, "Seek", cr.r.LastStatus()))
			return 0, 0, 0, false
		}
		start = end
	}
}

func (cr *ChunkReader) seekToChunk(p uint64, which WhichChunk) bool {
	if !cr.Healthy() {
		return false
	}
	start, end, indexEnd, ok := cr.locateChunk(p)
	if !ok {
		return false
	}
	var target uint64
	switch which {
	case WhichChunkContaining:
		if p < indexEnd {
			target = start
		} else {
			target = end
		}
	case WhichChunkBefore:
		target = start
	case WhichChunkAfter:
		target = end
	}
	if !cr.r.Seek(target) {
		return cr.fail(status.Wrap(status.Internal, "Seek", cr.r.LastStatus()))
	}
	cr.havePending = false
	cr.pendingHeader = nil
	cr.lastChunkStart = nil
	return true
}

func (cr *ChunkReader) SeekToChunkContaining(p uint64) bool { return cr.seekToChunk(p, WhichChunkContaining) }
func (cr *ChunkReader) SeekToChunkBefore(p uint64) bool     { return cr.seekToChunk(p, WhichChunkBefore) }
func (cr *ChunkReader) SeekToChunkAfter(p uint64) bool      { return cr.seekToChunk(p, WhichChunkAfter) }

// Size reports the underlying source's total size.
func (cr *ChunkReader) Size(out *uint64) bool {
	size, ok := cr.r.Size()
	if !ok {
		if !cr.r.Healthy() {
			cr.fail(status.Wrap(status.Internal, "Size", cr.r.LastStatus()))
		}
		return false
	}
	*out = size
	return true
}

// Close finalizes the reader. It is idempotent: calling it again after a
// successful or failed close simply reports the same outcome.
func (cr *ChunkReader) Close() bool {
	if cr.closed {
		return cr.lastStatus == nil
	}
	final := cr.lastStatus
	if final == nil && cr.truncated {
		final = status.New(status.DataLoss, "Close", "source truncated mid-chunk")
	}
	if cr.owned {
		if !cr.r.Close() && final == nil {
			if st := cr.r.LastStatus(); st != nil {
				final = st
			} else {
				final = status.New(status.Internal, "Close", "underlying reader close failed")
			}
		}
	}
	cr.closed = true
	cr.failed = false
	cr.lastStatus = final
	return final == nil
}
