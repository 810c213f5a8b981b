package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSizing(t *testing.T) {
	p := New(4, 128)
	require.Equal(t, 4, p.Len())
	require.Equal(t, 128, p.BlockSize())
	for s := 0; s < 4; s++ {
		assert.Len(t, p.Buffer(Slot(s)), 128)
	}
}

func TestClearMarksSilent(t *testing.T) {
	p := New(2, 8)
	buf := p.Buffer(0)
	for i := range buf {
		buf[i] = 1
	}
	p.SetSilent(0, false)
	p.Clear(0)
	assert.True(t, p.IsSilent(0))
	for _, v := range p.Buffer(0) {
		assert.Equal(t, float32(0), v)
	}
}

func TestCopyPropagatesSilence(t *testing.T) {
	p := New(2, 4)
	src := p.Buffer(0)
	src[0] = 0.5
	p.SetSilent(0, false)
	p.Copy(0, 1)
	assert.Equal(t, float32(0.5), p.Buffer(1)[0])
	assert.False(t, p.IsSilent(1))

	p.Clear(0)
	p.Copy(0, 1)
	assert.True(t, p.IsSilent(1))
}

func TestBuffersDoNotAlias(t *testing.T) {
	p := New(3, 4)
	p.Buffer(0)[0] = 9
	assert.Equal(t, float32(0), p.Buffer(1)[0])
}
