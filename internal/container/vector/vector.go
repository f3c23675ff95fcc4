// Package vector implements a growable array with amortized O(1) append.
//
// Capacity doubles when a push finds the array full and halves when a pop
// leaves it at most half used, never dropping below one slot. Starting from
// a capacity of one, push/pop sequences therefore keep the capacity a power
// of two.
package vector

import "errors"

const (
	growthFactor = 2
	minCapacity  = 1
)

// DefaultMaxCapacity bounds growth. Exceeding it is reported as an
// allocation failure instead of letting the runtime abort the process. It
// fits in a 32-bit int.
const DefaultMaxCapacity = 1 << 30

var ErrAllocation = errors.New("vector: allocation failed")

// Vector is a contiguous, resizable array of T. The zero value is not
// usable; call New.
type Vector[T any] struct {
	items  []T // len(items) is the capacity
	length int
	limit  int
}

type Option func(*options)

type options struct {
	maxCapacity int
}

// WithMaxCapacity sets the capacity above which growth fails with
// ErrAllocation.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		if n >= minCapacity {
			o.maxCapacity = n
		}
	}
}

func New[T any](opts ...Option) *Vector[T] {
	o := options{maxCapacity: DefaultMaxCapacity}
	for _, fn := range opts {
		fn(&o)
	}
	return &Vector[T]{
		items: make([]T, minCapacity),
		limit: o.maxCapacity,
	}
}

func (v *Vector[T]) Len() int { return v.length }

func (v *Vector[T]) Cap() int { return len(v.items) }

// At returns the element at index i. It panics if i is out of range.
func (v *Vector[T]) At(i int) T {
	v.check(i)
	return v.items[i]
}

func (v *Vector[T]) Swap(i, j int) {
	v.check(i)
	v.check(j)
	v.items[i], v.items[j] = v.items[j], v.items[i]
}

// PushBack appends item, doubling the capacity first when the array is
// full. On ErrAllocation the vector is left exactly as it was.
func (v *Vector[T]) PushBack(item T) error {
	if v.length == len(v.items) {
		if err := v.Reserve(len(v.items) * growthFactor); err != nil {
			return err
		}
	}
	v.items[v.length] = item
	v.length++
	return nil
}

// PopBack removes and returns the last element. The capacity is halved
// when the length before removal is at most half the capacity.
func (v *Vector[T]) PopBack() (T, bool) {
	var zero T
	if v.length == 0 {
		return zero, false
	}
	if v.length <= len(v.items)/growthFactor {
		v.resize(len(v.items) / growthFactor)
	}
	v.length--
	item := v.items[v.length]
	v.items[v.length] = zero
	return item, true
}

// Reserve grows the capacity to n. It is a no-op when n does not exceed the
// current capacity.
func (v *Vector[T]) Reserve(n int) error {
	if n <= len(v.items) {
		return nil
	}
	if n > v.limit || n < 0 {
		return ErrAllocation
	}
	v.resize(n)
	return nil
}

// ShrinkToFit halves the capacity while the elements still fit, stopping
// at the minimum capacity.
func (v *Vector[T]) ShrinkToFit() {
	target := len(v.items)
	for target/growthFactor >= minCapacity && target/growthFactor >= v.length {
		target /= growthFactor
	}
	if target != len(v.items) {
		v.resize(target)
	}
}

func (v *Vector[T]) resize(capacity int) {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	items := make([]T, capacity)
	copy(items, v.items[:v.length])
	v.items = items
}

func (v *Vector[T]) check(i int) {
	if i < 0 || i >= v.length {
		panic("vector: index out of range")
	}
}
