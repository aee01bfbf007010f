// pkg/ioreader/buffered.go

package ioreader

import "chunkio/pkg/status"

// ReadInternalFunc is the single primitive a concrete reader supplies to
// BufferedReader: read at least minLength and at most len(dest) bytes into
// dest, reporting eof when the source has no more data. On failure the
// implementation calls Fail on its own Tracker (which BufferedReader
// embeds via promotion) before returning; BufferedReader notices the
// resulting Healthy()==false and stops.
//
// This is the "virtual primitive" referenced by the design notes: a
// function value bound to the concrete reader's method, not a base class.
type ReadInternalFunc func(dest []byte, minLength, maxLength int) (n int, eof bool)

// BufferedReader implements Pull, Read, Skip and ReadToChain on top of a
// single owned buffer, calling ReadInternal to fill it. FdReader and
// FdStreamReader embed it and supply ReadInternal; FdMMapReader does not
// use it, since its whole file is already available without I/O.
type BufferedReader struct {
	status.Tracker

	buf        []byte
	bufPos     int // window start within buf
	bufLen     int // window end within buf
	bufferSize int
	limitPos   uint64 // file offset corresponding to bufLen

	// ReadInternal is set by the embedding reader's constructor.
	ReadInternal ReadInternalFunc
}

// Init must be called by the embedding reader's constructor before any
// other BufferedReader method.
func (b *BufferedReader) Init(bufferSize int) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	b.bufferSize = bufferSize
	b.buf = make([]byte, bufferSize)
}

// SetLimitPos seeds limit_pos (the file offset corresponding to the empty
// window) for readers that start somewhere other than offset 0.
func (b *BufferedReader) SetLimitPos(pos uint64) {
	b.limitPos = pos
}

func (b *BufferedReader) discardWindow() {
	b.bufPos, b.bufLen = 0, 0
}

// Position returns limit_pos minus the bytes still sitting unread in the
// window, i.e. the logical read offset.
func (b *BufferedReader) Position() uint64 {
	return b.limitPos - uint64(b.bufLen-b.bufPos)
}

func (b *BufferedReader) Pull(minLength int) bool {
	if minLength <= 0 {
		minLength = 1
	}
	if b.bufLen-b.bufPos >= minLength {
		return true
	}
	if !b.Healthy() {
		return false
	}
	if minLength > b.bufferSize {
		// Caller wants more than the buffer can ever hold in one window;
		// satisfy as much as possible, same as a plain refill loop below.
		b.bufferSize = minLength
		grown := make([]byte, b.bufferSize)
		copy(grown, b.buf[b.bufPos:b.bufLen])
		b.buf = grown
	} else if b.bufPos > 0 {
		copy(b.buf, b.buf[b.bufPos:b.bufLen])
	}
	b.bufLen -= b.bufPos
	b.bufPos = 0
	for b.bufLen < minLength {
		n, eof := b.ReadInternal(b.buf[b.bufLen:], minLength-b.bufLen, len(b.buf)-b.bufLen)
		if n > 0 {
			b.bufLen += n
			b.limitPos += uint64(n)
		}
		if !b.Healthy() {
			return false
		}
		if eof || n == 0 {
			break
		}
	}
	return b.bufLen-b.bufPos >= minLength
}

// directReadThreshold returns the read length above which BufferedReader
// bypasses its own buffer and reads straight into the caller's slice,
// avoiding the extra copy buffering would otherwise cost.
func (b *BufferedReader) directReadThreshold() int {
	return b.bufferSize
}

func (b *BufferedReader) Read(dest []byte) (int, bool) {
	length := len(dest)
	if length == 0 {
		return 0, true
	}
	avail := b.bufLen - b.bufPos
	if avail >= length {
		copy(dest, b.buf[b.bufPos:b.bufPos+length])
		b.bufPos += length
		return length, true
	}
	copy(dest, b.buf[b.bufPos:b.bufLen])
	n := avail
	b.discardWindow()
	remaining := length - n
	if !b.Healthy() {
		return n, false
	}
	if remaining > b.directReadThreshold() {
		for remaining > 0 {
			got, eof := b.ReadInternal(dest[n:length], 1, remaining)
			if got > 0 {
				n += got
				remaining -= got
				b.limitPos += uint64(got)
			}
			if !b.Healthy() {
				return n, false
			}
			if eof || got == 0 {
				return n, remaining == 0
			}
		}
		return n, true
	}
	for remaining > 0 {
		if !b.Pull(1) {
			return n, false
		}
		take := b.bufLen - b.bufPos
		if take > remaining {
			take = remaining
		}
		copy(dest[n:n+take], b.buf[b.bufPos:b.bufPos+take])
		b.bufPos += take
		n += take
		remaining -= take
	}
	return n, true
}

func (b *BufferedReader) ReadToChain(chain *Chain, length int) bool {
	if length <= 0 {
		return true
	}
	dest := make([]byte, length)
	n, ok := b.Read(dest)
	if n > 0 {
		chain.Append(dest[:n])
	}
	return ok
}

func (b *BufferedReader) Skip(length uint64) bool {
	avail := uint64(b.bufLen - b.bufPos)
	if avail >= length {
		b.bufPos += int(length)
		return true
	}
	length -= avail
	b.discardWindow()
	for length > 0 {
		if !b.Healthy() {
			return false
		}
		want := len(b.buf)
		if uint64(want) > length {
			want = int(length)
		}
		n, eof := b.ReadInternal(b.buf[:want], 1, want)
		length -= uint64(n)
		b.limitPos += uint64(n)
		if !b.Healthy() {
			return false
		}
		if eof || n == 0 {
			break
		}
	}
	b.discardWindow()
	return length == 0
}
