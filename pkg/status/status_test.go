// pkg/status/status_test.go

package status

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHasNoCause(t *testing.T) {
	st := New(DataLoss, "ReadChunk", "bad checksum")
	assert.Equal(t, DataLoss, st.Kind)
	assert.Equal(t, "ReadChunk", st.Op)
	assert.Nil(t, st.Unwrap())
	assert.Contains(t, st.Error(), "bad checksum")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("permission denied")
	st := Wrap(Internal, "open", cause)
	assert.Equal(t, Internal, st.Kind)
	assert.ErrorIs(t, st, cause)
	assert.Contains(t, st.Error(), "permission denied")
}

func TestIsMatchesKind(t *testing.T) {
	st := New(OutOfRange, "Seek", "past end of source")
	assert.True(t, Is(st, OutOfRange))
	assert.False(t, Is(st, DataLoss))
	assert.False(t, Is(errors.New("plain error"), DataLoss))
}

func TestNilStatusError(t *testing.T) {
	var st *Status
	assert.Equal(t, "<nil status>", st.Error())
	assert.Nil(t, st.Unwrap())
}
