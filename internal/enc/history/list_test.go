package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushSharesTail(t *testing.T) {
	var empty *List[string]
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Slice())

	gen1 := empty.Push("a")
	gen2 := gen1.PushAll("b", "c")
	branch := gen1.Push("x")

	assert.Equal(t, []string{"a"}, gen1.Slice())
	assert.Equal(t, []string{"a", "b", "c"}, gen2.Slice())
	assert.Equal(t, []string{"a", "x"}, branch.Slice())
	assert.Same(t, gen1, branch.tail)
}

func TestEachStopsEarly(t *testing.T) {
	l := (&List[int]{}).PushAll(1, 2, 3, 4)

	var seen []int
	l.Each(func(v int) bool {
		seen = append(seen, v)
		return v != 3
	})
	assert.Equal(t, []int{4, 3}, seen)
	assert.Equal(t, 4, l.Len())

	assert.True(t, l.Contains(func(v int) bool { return v == 1 }))
	assert.False(t, l.Contains(func(v int) bool { return v == 9 }))
}
