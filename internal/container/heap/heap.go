// Package heap implements a binary heap ordered by a caller-supplied
// comparator and stored in a growable array.
//
// compare(a, b) < 0 means a has strictly higher priority than b and sorts
// earlier. Ties are left to the comparator and are not otherwise broken.
package heap

import "wdsched/internal/container/vector"

// Compare orders two elements; see the package comment for the sign
// convention.
type Compare[T any] func(a, b T) int

type Heap[T any] struct {
	items   *vector.Vector[T]
	compare Compare[T]
}

func New[T any](compare func(a, b T) int, opts ...vector.Option) *Heap[T] {
	if compare == nil {
		panic("heap: nil comparator")
	}
	return &Heap[T]{
		items:   vector.New[T](opts...),
		compare: compare,
	}
}

func (h *Heap[T]) Len() int { return h.items.Len() }

func (h *Heap[T]) IsEmpty() bool { return h.items.Len() == 0 }

// Push inserts item. If the backing array cannot grow the heap is left
// unchanged and the allocation error is returned.
func (h *Heap[T]) Push(item T) error {
	if err := h.items.PushBack(item); err != nil {
		return err
	}
	h.siftUp(h.items.Len() - 1)
	return nil
}

// Peek returns the highest-priority element without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	if h.IsEmpty() {
		var zero T
		return zero, false
	}
	return h.items.At(0), true
}

// Pop removes and returns the highest-priority element.
func (h *Heap[T]) Pop() (T, bool) {
	if h.IsEmpty() {
		var zero T
		return zero, false
	}
	return h.removeAt(0), true
}

// Remove deletes the first element, in storage order, for which match
// returns true.
//
// The removed slot is refilled with the tail element and only sifted
// down, the same repair Pop performs on the root. For an interior slot the
// tail element may belong above it; callers that need a guaranteed heap
// after Remove on arbitrary shapes can check Valid.
func (h *Heap[T]) Remove(match func(T) bool) (T, bool) {
	for i := 0; i < h.items.Len(); i++ {
		if match(h.items.At(i)) {
			return h.removeAt(i), true
		}
	}
	var zero T
	return zero, false
}

// Each calls fn for every element in storage order. fn must not mutate the
// heap.
func (h *Heap[T]) Each(fn func(T)) {
	for i := 0; i < h.items.Len(); i++ {
		fn(h.items.At(i))
	}
}

// Valid reports whether every parent sorts no later than its children.
func (h *Heap[T]) Valid() bool {
	n := h.items.Len()
	for i := 0; i < n; i++ {
		for _, c := range [2]int{2*i + 1, 2*i + 2} {
			if c < n && h.compare(h.items.At(i), h.items.At(c)) > 0 {
				return false
			}
		}
	}
	return true
}

func (h *Heap[T]) removeAt(i int) T {
	last := h.items.Len() - 1
	removed := h.items.At(i)
	if i != last {
		h.items.Swap(i, last)
	}
	h.items.PopBack()
	if i < last {
		h.siftDown(i)
	}
	return removed
}

func (h *Heap[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.compare(h.items.At(i), h.items.At(parent)) >= 0 {
			return
		}
		h.items.Swap(i, parent)
		i = parent
	}
}

func (h *Heap[T]) siftDown(i int) {
	n := h.items.Len()
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		child := left
		if right := left + 1; right < n && h.compare(h.items.At(left), h.items.At(right)) > 0 {
			child = right
		}
		if h.compare(h.items.At(i), h.items.At(child)) <= 0 {
			return
		}
		h.items.Swap(i, child)
		i = child
	}
}
