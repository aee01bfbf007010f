// pkg/chunk/skipped.go

package chunk

// SkippedRegion describes a span of bytes that Recover discarded while
// resynchronizing to the next readable chunk, so a caller can log or
// account for data loss precisely.
type SkippedRegion struct {
	Begin uint64
	End   uint64
}

// Length returns the number of bytes in the skipped region.
func (s SkippedRegion) Length() uint64 { return s.End - s.Begin }
