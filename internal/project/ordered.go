package project

import (
	"cmp"
	"slices"
)

type keyed interface {
	key() int
}

// orderedMap is a slice kept sorted by key with unique keys. Values are
// copied on clone so snapshots never alias the live store.
type orderedMap[T keyed] []T

func (m orderedMap[T]) search(k int) (int, bool) {
	return slices.BinarySearchFunc(m, k, func(e T, k int) int {
		return cmp.Compare(e.key(), k)
	})
}

func (m orderedMap[T]) get(k int) (T, bool) {
	i, ok := m.search(k)
	if !ok {
		var zero T
		return zero, false
	}
	return m[i], true
}

func (m orderedMap[T]) has(k int) bool {
	_, ok := m.search(k)
	return ok
}

// put inserts v, replacing any element with the same key.
func (m *orderedMap[T]) put(v T) {
	i, ok := m.search(v.key())
	if ok {
		(*m)[i] = v
		return
	}
	*m = slices.Insert(*m, i, v)
}

func (m *orderedMap[T]) remove(k int) bool {
	i, ok := m.search(k)
	if !ok {
		return false
	}
	*m = slices.Delete(*m, i, i+1)
	return true
}

// upperBound returns the index of the first element with key > k.
func (m orderedMap[T]) upperBound(k int) int {
	i, ok := m.search(k)
	if ok {
		i++
	}
	return i
}

// lowerBound returns the index of the first element with key >= k.
func (m orderedMap[T]) lowerBound(k int) int {
	i, _ := m.search(k)
	return i
}

// floor returns the element with the greatest key <= k.
func (m orderedMap[T]) floor(k int) (T, bool) {
	i := m.upperBound(k)
	if i == 0 {
		var zero T
		return zero, false
	}
	return m[i-1], true
}

func (m orderedMap[T]) clone() orderedMap[T] {
	if m == nil {
		return nil
	}
	return slices.Clone(m)
}

// frameSet is a sorted set of frame numbers.
type frameSet []int

func (s frameSet) has(f int) bool {
	_, ok := slices.BinarySearch(s, f)
	return ok
}

func (s *frameSet) add(f int) bool {
	i, ok := slices.BinarySearch(*s, f)
	if ok {
		return false
	}
	*s = slices.Insert(*s, i, f)
	return true
}

func (s *frameSet) remove(f int) bool {
	i, ok := slices.BinarySearch(*s, f)
	if !ok {
		return false
	}
	*s = slices.Delete(*s, i, i+1)
	return true
}

// next returns the first member > f, or f when there is none.
func (s frameSet) next(f int) int {
	i, ok := slices.BinarySearch(s, f)
	if ok {
		i++
	}
	if i == len(s) {
		return f
	}
	return s[i]
}

// previous returns the last member < f, or f when there is none.
func (s frameSet) previous(f int) int {
	i, _ := slices.BinarySearch(s, f)
	if i == 0 {
		return f
	}
	return s[i-1]
}

// overlapping returns the range that would overlap [first, last], using
// only predecessor and successor lookups.
func overlapping[T keyed](m orderedMap[T], first, last int, end func(T) int) (T, bool) {
	contains := func(f int) (T, bool) {
		if e, ok := m.floor(f); ok && f <= end(e) {
			return e, true
		}
		var zero T
		return zero, false
	}
	if e, ok := contains(first); ok {
		return e, true
	}
	if e, ok := contains(last); ok {
		return e, true
	}
	if i := m.upperBound(first); i < len(m) && m[i].key() < last {
		return m[i], true
	}
	var zero T
	return zero, false
}
