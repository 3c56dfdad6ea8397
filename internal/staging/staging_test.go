package staging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(name string) File {
	return File{Name: name, ContentType: "image/png", Data: []byte(name)}
}

func names(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestAppendPreservesOrder(t *testing.T) {
	l := New("a", "b")
	l.Append(file("c"), file("d"))

	require.Equal(t, 4, l.Len())
	assert.Equal(t, []string{"a", "b"}, l.Existing())
	assert.Equal(t, []string{"c", "d"}, names(l.Pending()))

	items := l.Items()
	assert.Equal(t, KindExisting, items[1].Kind)
	assert.Equal(t, KindPending, items[2].Kind)
}

func TestRemoveExistingFirstMatchOnly(t *testing.T) {
	l := New("a", "b", "a")

	assert.True(t, l.RemoveExisting("a"))
	assert.Equal(t, []string{"b", "a"}, l.Existing())
	assert.False(t, l.RemoveExisting("zzz"))
}

func TestRemovePendingCountsPendingOnly(t *testing.T) {
	l := New("a")
	l.Append(file("p0"), file("p1"))
	l.AppendExisting("b")
	l.Append(file("p2"))

	items := l.Items()
	assert.Equal(t, "b", items[1].URL, "existing images stay ahead of pending ones")
	assert.Equal(t, KindPending, items[2].Kind)

	assert.True(t, l.RemovePending(1))
	assert.Equal(t, []string{"p0", "p2"}, names(l.Pending()))
	assert.Equal(t, []string{"a", "b"}, l.Existing())

	assert.False(t, l.RemovePending(5))
	assert.False(t, l.RemovePending(-1))
}

func TestMoveIsItsOwnInverse(t *testing.T) {
	l := New("a", "b", "c", "d")
	before := l.Items()

	for i := 1; i < l.Len(); i++ {
		require.True(t, l.Move(i, i-1))
		require.True(t, l.Move(i-1, i))
		assert.Equal(t, before, l.Items())
	}
}

func TestMoveOutOfRangeIsNoop(t *testing.T) {
	l := New("a", "b", "c")
	before := l.Items()

	for i := -1; i <= l.Len(); i++ {
		assert.False(t, l.Move(i, -1))
		assert.False(t, l.Move(i, l.Len()))
	}
	assert.Equal(t, before, l.Items())

	empty := &List{}
	assert.False(t, empty.Move(0, 1))
}

func TestMoveAcrossKindsIsNoop(t *testing.T) {
	l := New("a", "b")
	l.Append(file("p"), file("q"))
	before := l.Items()

	assert.False(t, l.Move(2, 1))
	assert.False(t, l.Move(1, 2))
	assert.Equal(t, before, l.Items())

	require.True(t, l.Move(3, 2))
	assert.Equal(t, []string{"q", "p"}, names(l.Pending()))
	assert.Equal(t, []string{"a", "b"}, l.Existing())
}

func TestListOrderIsMergeOrder(t *testing.T) {
	l := New("a")
	l.Append(file("p"))
	l.AppendExisting("b")
	l.Move(1, 0)
	l.Move(2, 1)

	presented := make([]string, 0, l.Len())
	for _, it := range l.Items() {
		if it.Kind == KindExisting {
			presented = append(presented, it.URL)
		} else {
			presented = append(presented, it.File.Name)
		}
	}
	assert.Equal(t, presented, Merge(l.Existing(), names(l.Pending())))
}

func TestSwapGeneric(t *testing.T) {
	s := []int{1, 2, 3}
	assert.True(t, Swap(s, 0, 2))
	assert.Equal(t, []int{3, 2, 1}, s)
	assert.False(t, Swap(s, 0, 3))
	assert.Equal(t, []int{3, 2, 1}, s)
}

func TestMergeExistingFirst(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C", "D"}, Merge([]string{"A", "B"}, []string{"C", "D"}))
	assert.Empty(t, Merge(nil, nil))
}

func TestCloneIsIndependent(t *testing.T) {
	l := New("a", "b")
	c := l.Clone()
	c.RemoveExisting("a")

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, c.Len())
}
