// Package set is a small unordered set used for follower/following and
// group member collections.
package set

import (
	"cmp"
	"slices"
)

type Set[T cmp.Ordered] map[T]struct{}

func Of[T cmp.Ordered](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set[T]) Add(items ...T) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

func (s Set[T]) Remove(items ...T) {
	for _, it := range items {
		delete(s, it)
	}
}

func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

func (s Set[T]) Len() int { return len(s) }

func (s Set[T]) Union(o Set[T]) Set[T] {
	out := make(Set[T], len(s)+len(o))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range o {
		out[k] = struct{}{}
	}
	return out
}

func (s Set[T]) Intersect(o Set[T]) Set[T] {
	out := Set[T]{}
	for k := range s {
		if o.Contains(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Diff returns the elements of s not in o.
func (s Set[T]) Diff(o Set[T]) Set[T] {
	out := Set[T]{}
	for k := range s {
		if !o.Contains(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

func (s Set[T]) Equal(o Set[T]) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o.Contains(k) {
			return false
		}
	}
	return true
}

// Sorted returns the elements in ascending order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
