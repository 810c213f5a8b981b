package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventIterOrder(t *testing.T) {
	it := NewEventIter([]Event{
		{SampleOffset: 0, Payload: "a"},
		{SampleOffset: 5, Payload: "b"},
	})
	assert.Equal(t, 2, it.Len())
	e, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, "a", e.Payload)
	e, ok = it.Next()
	assert.True(t, ok)
	assert.Equal(t, "b", e.Payload)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestCapabilityHas(t *testing.T) {
	c := OutputsAlwaysSilentUntilActive | SkipIfAllInputsSilent
	assert.True(t, c.Has(OutputsAlwaysSilentUntilActive))
	assert.True(t, c.Has(SkipIfAllInputsSilent))
	assert.False(t, Capability(0).Has(SkipIfAllInputsSilent))
}

func TestProcessStatusConstructors(t *testing.T) {
	s := OutputsModified(0b101)
	assert.Equal(t, StatusOutputsModified, s.Kind)
	assert.EqualValues(t, 0b101, s.SilenceMask)

	assert.Equal(t, StatusBypass, Bypass().Kind)
	assert.Equal(t, StatusClearAllOutputs, ClearAllOutputs().Kind)
}
