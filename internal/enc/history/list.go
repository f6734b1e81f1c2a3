// Package history provides the persistent list used to accumulate
// per-generation history. Pushing returns a new list sharing its tail with the
// receiver, so a baseline keeps observing exactly the history it was created
// with after later generations commit.
package history

// List is an immutable singly linked list. The zero value and the nil pointer
// are both the empty list.
type List[T any] struct {
	head T
	tail *List[T]
	size int
}

// Push returns a list with v in front of l.
func (l *List[T]) Push(v T) *List[T] {
	return &List[T]{head: v, tail: l, size: l.Len() + 1}
}

// PushAll pushes every value in order, so the last one ends up in front.
func (l *List[T]) PushAll(vs ...T) *List[T] {
	for _, v := range vs {
		l = l.Push(v)
	}
	return l
}

// Len returns the number of elements.
func (l *List[T]) Len() int {
	if l == nil {
		return 0
	}
	return l.size
}

// Each calls fn from the most recent element to the oldest until fn returns false.
func (l *List[T]) Each(fn func(T) bool) {
	for n := l; n != nil && n.size > 0; n = n.tail {
		if !fn(n.head) {
			return
		}
	}
}

// Slice returns the elements oldest first.
func (l *List[T]) Slice() []T {
	out := make([]T, l.Len())
	i := len(out)
	l.Each(func(v T) bool {
		i--
		out[i] = v
		return true
	})
	return out
}

// Contains reports whether any element satisfies match.
func (l *List[T]) Contains(match func(T) bool) bool {
	found := false
	l.Each(func(v T) bool {
		found = match(v)
		return !found
	})
	return found
}
