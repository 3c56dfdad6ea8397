package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDragPastThresholdAdvances(t *testing.T) {
	v := New(3, 1)
	assert.Equal(t, 2, v.Drag(60))
}

func TestDragBelowThresholdStays(t *testing.T) {
	v := New(3, 1)
	assert.Equal(t, 1, v.Drag(30))
	assert.Equal(t, 1, v.Drag(-30))
	assert.Equal(t, 1, v.Drag(SwipeThreshold))
}

func TestDragClampsWithoutWraparound(t *testing.T) {
	v := New(3, 2)
	assert.Equal(t, 2, v.Drag(60))
	assert.False(t, v.HasNext())

	v = New(3, 0)
	assert.Equal(t, 0, v.Drag(-60))
	assert.False(t, v.HasPrev())
}

func TestSwipeUsesStartMinusEnd(t *testing.T) {
	v := New(3, 1)
	assert.Equal(t, 0, v.Swipe(100, 180))
	assert.Equal(t, 1, v.Swipe(180, 100))
}

func TestNewClampsIndex(t *testing.T) {
	assert.Equal(t, 2, New(3, 9).Index)
	assert.Equal(t, 0, New(3, -4).Index)
	assert.Equal(t, 0, New(0, 2).Index)
}

func TestNextPrev(t *testing.T) {
	v := New(2, 0)
	assert.Equal(t, 1, v.Next())
	assert.Equal(t, 1, v.Next())
	assert.Equal(t, 0, v.Prev())
}
