// Package pqueue is a priority queue facade over a binary heap.
package pqueue

import (
	"wdsched/internal/container/heap"
	"wdsched/internal/container/vector"
)

type Queue[T any] struct {
	h *heap.Heap[T]
}

// New returns an empty queue. compare(a, b) < 0 dequeues a before b.
func New[T any](compare func(a, b T) int, opts ...vector.Option) *Queue[T] {
	return &Queue[T]{h: heap.New(compare, opts...)}
}

// Enqueue inserts v, propagating allocation failure from the heap.
func (q *Queue[T]) Enqueue(v T) error { return q.h.Push(v) }

// Dequeue removes and returns the highest-priority element. ok is false
// when the queue is empty.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	if v, ok = q.h.Peek(); !ok {
		return v, false
	}
	q.h.Pop()
	return v, true
}

func (q *Queue[T]) Peek() (T, bool) { return q.h.Peek() }

// Erase removes the first element matching pred and returns it.
func (q *Queue[T]) Erase(pred func(T) bool) (T, bool) { return q.h.Remove(pred) }

func (q *Queue[T]) Len() int { return q.h.Len() }

func (q *Queue[T]) IsEmpty() bool { return q.h.IsEmpty() }

// Each visits elements in storage order, not priority order.
func (q *Queue[T]) Each(fn func(T)) { q.h.Each(fn) }

// Clear dequeues every element.
func (q *Queue[T]) Clear() { q.ClearFunc(nil) }

// ClearFunc dequeues every element in priority order, handing each one to
// fn when fn is non-nil.
func (q *Queue[T]) ClearFunc(fn func(T)) {
	for !q.IsEmpty() {
		v, _ := q.Dequeue()
		if fn != nil {
			fn(v)
		}
	}
}
