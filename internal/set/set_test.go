package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOperations(t *testing.T) {
	a := Of[uint](3, 1, 2, 2, 1)
	b := Of[uint](2, 3, 4)

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []uint{1, 2, 3}, a.Sorted())
	assert.Equal(t, []uint{1, 2, 3, 4}, a.Union(b).Sorted())
	assert.Equal(t, []uint{2, 3}, a.Intersect(b).Sorted())
	assert.Equal(t, []uint{1}, a.Diff(b).Sorted())
	assert.True(t, a.Contains(1))
	assert.False(t, a.Contains(4))
}

func TestAddRemoveIdempotent(t *testing.T) {
	s := Of[string]("a")
	s.Add("a", "b")
	s.Add("b")
	assert.Equal(t, []string{"a", "b"}, s.Sorted())

	s.Remove("b")
	s.Remove("b", "zzz")
	assert.Equal(t, []string{"a"}, s.Sorted())
	assert.True(t, s.Equal(Of("a")))
	assert.False(t, s.Equal(Of("a", "b")))
}
