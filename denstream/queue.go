// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denstream

import (
	"slices"
	"sync"
)

// queue is a FIFO of pending points, safe for many producers.
type queue[T Point[T]] struct {
	mu    sync.Mutex
	items []T
}

func (q *queue[T]) push(p T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, p)
}

func (q *queue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T

	if len(q.items) == 0 {
		return zero, false
	}

	p := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]

	return p, true
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// removeID drops every queued point carrying id and returns how many.
func (q *queue[T]) removeID(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	before := len(q.items)
	q.items = slices.DeleteFunc(q.items, func(p T) bool { return p.ID() == id })

	return before - len(q.items)
}

func (q *queue[T]) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil

	return n
}
