// Package navlist provides a selectable, bounds-safe list for feed views.
package navlist

import "sort"

// List is an ordered collection with an optional selected index. The
// selection is always a valid index, and absent only when the list is empty.
type List[T any] struct {
	items    []T
	selected int // -1 when empty
}

// New returns a list over items with the first item selected.
func New[T any](items []T) *List[T] {
	l := &List[T]{items: append([]T(nil), items...), selected: -1}
	if len(l.items) > 0 {
		l.selected = 0
	}
	return l
}

// Len returns the number of items.
func (l *List[T]) Len() int { return len(l.items) }

// Items returns a copy of the items in display order.
func (l *List[T]) Items() []T { return append([]T(nil), l.items...) }

// At returns the item at i.
func (l *List[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(l.items) {
		return zero, false
	}
	return l.items[i], true
}

// Selected returns the selected index.
func (l *List[T]) Selected() (int, bool) {
	if l.selected < 0 {
		return 0, false
	}
	return l.selected, true
}

// SelectedItem returns the selected item.
func (l *List[T]) SelectedItem() (T, bool) {
	if l.selected < 0 {
		var zero T
		return zero, false
	}
	return l.items[l.selected], true
}

// Select moves the selection to i, clamped into range.
func (l *List[T]) Select(i int) {
	if len(l.items) == 0 {
		l.selected = -1
		return
	}
	l.selected = clamp(i, 0, len(l.items)-1)
}

// Next moves down one item, stopping at the last.
func (l *List[T]) Next() { l.JumpDown(1) }

// Previous moves up one item, stopping at the first.
func (l *List[T]) Previous() { l.JumpUp(1) }

// JumpDown moves the selection n items down, clamped.
func (l *List[T]) JumpDown(n int) {
	if l.selected < 0 {
		return
	}
	l.Select(l.selected + n)
}

// JumpUp moves the selection n items up, clamped.
func (l *List[T]) JumpUp(n int) {
	if l.selected < 0 {
		return
	}
	l.Select(l.selected - n)
}

// First selects the first item.
func (l *List[T]) First() { l.Select(0) }

// Last selects the last item.
func (l *List[T]) Last() { l.Select(len(l.items) - 1) }

// Append adds items at the end without moving the selection index. An empty
// list gains a selection at 0.
func (l *List[T]) Append(items ...T) {
	if len(items) == 0 {
		return
	}
	l.items = append(l.items, items...)
	if l.selected < 0 {
		l.selected = 0
	}
}

// SortStable reorders items. The selection index is kept as is, so it may now
// point at a different item; use Reselect to follow an item across a sort.
func (l *List[T]) SortStable(less func(a, b T) bool) {
	sort.SliceStable(l.items, func(i, j int) bool {
		return less(l.items[i], l.items[j])
	})
}

// Reselect selects the first item matching match. It reports false and
// leaves the selection alone when nothing matches.
func (l *List[T]) Reselect(match func(T) bool) bool {
	for i := range l.items {
		if match(l.items[i]) {
			l.selected = i
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
