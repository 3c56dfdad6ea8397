// Package viewer implements the one-image-at-a-time swipe viewer of a
// homework record.
package viewer

// SwipeThreshold is the horizontal drag distance in pixels a gesture must
// exceed to change image.
const SwipeThreshold = 50

// Viewer tracks the visible image of a record with Count images.
type Viewer struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// New opens a viewer at index, clamped into range.
func New(count, index int) *Viewer {
	if count < 0 {
		count = 0
	}
	v := &Viewer{Count: count}
	v.Index = v.clamp(index)
	return v
}

// Drag applies a horizontal gesture where dx is start minus end, so a
// leftward drag is positive. Past the threshold it moves one image, clamped
// at both ends. It returns the resulting index.
func (v *Viewer) Drag(dx int) int {
	switch {
	case dx > SwipeThreshold:
		v.Index = v.clamp(v.Index + 1)
	case dx < -SwipeThreshold:
		v.Index = v.clamp(v.Index - 1)
	}
	return v.Index
}

// Swipe applies a gesture from its touch start and end X coordinates.
func (v *Viewer) Swipe(startX, endX int) int {
	return v.Drag(startX - endX)
}

// Next moves forward one image if possible.
func (v *Viewer) Next() int {
	v.Index = v.clamp(v.Index + 1)
	return v.Index
}

// Prev moves back one image if possible.
func (v *Viewer) Prev() int {
	v.Index = v.clamp(v.Index - 1)
	return v.Index
}

func (v *Viewer) HasNext() bool { return v.Index < v.Count-1 }

func (v *Viewer) HasPrev() bool { return v.Index > 0 }

func (v *Viewer) clamp(i int) int {
	if v.Count == 0 || i < 0 {
		return 0
	}
	if i >= v.Count {
		return v.Count - 1
	}
	return i
}
