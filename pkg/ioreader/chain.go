// pkg/ioreader/chain.go

package ioreader

// Chain is an ordered sequence of byte slices, owned by the caller of
// ReadToChain. Readers backed by memory that already holds the requested
// bytes (FdMMapReader) append a slice view directly, without copying;
// readers backed by a descriptor copy into a freshly allocated slice
// before appending. Either way the caller sees one contiguous logical
// byte sequence via Bytes().
type Chain struct {
	blocks [][]byte
	length int
}

// Append adds b as the next block of the chain. b is not copied: callers
// must not mutate it afterwards if it may be a zero-copy view into mapped
// memory (see the FdMMapReader safety contract).
func (c *Chain) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	c.blocks = append(c.blocks, b)
	c.length += len(b)
}

// Len returns the total number of bytes appended so far.
func (c *Chain) Len() int { return c.length }

// Blocks returns the chain's blocks in append order. The returned slice
// and its elements must not be retained beyond the lifetime of the
// Reader that produced them if any block may be a zero-copy mmap view.
func (c *Chain) Blocks() [][]byte { return c.blocks }

// Bytes concatenates the chain into a single owned slice. It always
// copies, even if the chain has a single block.
func (c *Chain) Bytes() []byte {
	out := make([]byte, 0, c.length)
	for _, b := range c.blocks {
		out = append(out, b...)
	}
	return out
}
