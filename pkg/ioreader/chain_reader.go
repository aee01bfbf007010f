// pkg/ioreader/chain_reader.go

package ioreader

import "chunkio/pkg/status"

// chainReader is a Reader over an already-resident byte slice: Pull, Read
// and Skip never perform I/O, and ReadToChain appends a slice view
// directly without copying. FdMMapReader embeds it over its mapped
// region, the same role riegeli's ChainReader<Chain> plays for
// FdMMapReaderBase.
type chainReader struct {
	status.Tracker
	data []byte
	pos  int
}

func (c *chainReader) Pull(minLength int) bool {
	if minLength <= 0 {
		minLength = 1
	}
	if !c.Healthy() {
		return false
	}
	return len(c.data)-c.pos >= minLength
}

func (c *chainReader) Read(dest []byte) (int, bool) {
	if !c.Healthy() {
		return 0, false
	}
	avail := len(c.data) - c.pos
	n := len(dest)
	if n > avail {
		n = avail
	}
	copy(dest[:n], c.data[c.pos:c.pos+n])
	c.pos += n
	return n, n == len(dest)
}

func (c *chainReader) ReadToChain(chain *Chain, length int) bool {
	if length <= 0 {
		return true
	}
	if !c.Healthy() {
		return false
	}
	avail := len(c.data) - c.pos
	n := length
	if n > avail {
		n = avail
	}
	if n > 0 {
		chain.Append(c.data[c.pos : c.pos+n])
		c.pos += n
	}
	return n == length
}

func (c *chainReader) Skip(length uint64) bool {
	if !c.Healthy() {
		return false
	}
	avail := uint64(len(c.data) - c.pos)
	n := length
	if n > avail {
		n = avail
	}
	c.pos += int(n)
	return n == length
}

func (c *chainReader) Position() uint64 { return uint64(c.pos) }

func (c *chainReader) Seek(newPos uint64) bool {
	if !c.Healthy() {
		return false
	}
	if newPos > uint64(len(c.data)) {
		return c.Fail(status.New(status.OutOfRange, "Seek", "seek position is past end of source"))
	}
	c.pos = int(newPos)
	return true
}

func (c *chainReader) Size() (uint64, bool) {
	if !c.Healthy() {
		return 0, false
	}
	return uint64(len(c.data)), true
}

func (c *chainReader) SupportsRandomAccess() bool { return true }
