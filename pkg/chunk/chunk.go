// pkg/chunk/chunk.go

package chunk

// Chunk is a decoded framing unit: a header describing the payload that
// follows it, plus the raw payload bytes (index and record data still
// packed together, as they are on the wire).
type Chunk struct {
	Header  Header
	Payload []byte
}

// Reset clears c's header and empties its payload, keeping the payload
// slice's capacity. ReadChunk does not reuse that capacity: it allocates
// a new payload slice for every chunk it reads.
func (c *Chunk) Reset() {
	c.Header = Header{}
	c.Payload = c.Payload[:0]
}
