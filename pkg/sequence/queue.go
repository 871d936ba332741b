package sequence

import "container/heap"

// Item is a queue entry handle. It stays valid until the item is dequeued and
// can be passed to Update to reorder the queue in place.
type Item[T any] struct {
	Value T
	index int
}

// orderedHeap adapts container/heap to a caller-supplied ordering.
type orderedHeap[T any] struct {
	items []*Item[T]
	less  func(a, b T) bool
}

func (h *orderedHeap[T]) Len() int { return len(h.items) }

func (h *orderedHeap[T]) Less(i, j int) bool {
	return h.less(h.items[i].Value, h.items[j].Value)
}

func (h *orderedHeap[T]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *orderedHeap[T]) Push(x any) {
	item := x.(*Item[T])
	item.index = len(h.items)
	h.items = append(h.items, item)
}

func (h *orderedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	h.items = old[0 : n-1]
	return item
}

// PriorityQueue is a heap-ordered queue. The less function decides which of
// two values dequeues first; pass an "earlier deadline first" comparison to
// get a timer queue, or "higher priority first" for classic scheduling.
type PriorityQueue[T any] struct {
	h orderedHeap[T]
}

// NewPriorityQueue creates an empty queue ordered by less.
func NewPriorityQueue[T any](less func(a, b T) bool) *PriorityQueue[T] {
	pq := &PriorityQueue[T]{h: orderedHeap[T]{less: less}}
	heap.Init(&pq.h)
	return pq
}

// Enqueue inserts a value and returns its handle.
func (pq *PriorityQueue[T]) Enqueue(value T) *Item[T] {
	item := &Item[T]{Value: value}
	heap.Push(&pq.h, item)
	return item
}

// Dequeue removes and returns the front value, or false when empty.
func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	if pq.h.Len() == 0 {
		var zero T
		return zero, false
	}
	item := heap.Pop(&pq.h).(*Item[T])
	return item.Value, true
}

// Peek returns the front value without removing it.
func (pq *PriorityQueue[T]) Peek() (T, bool) {
	if pq.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return pq.h.items[0].Value, true
}

// Update replaces an item's value and restores heap order.
func (pq *PriorityQueue[T]) Update(item *Item[T], value T) {
	item.Value = value
	heap.Fix(&pq.h, item.index)
}

// Remove deletes an item that has not yet been dequeued.
func (pq *PriorityQueue[T]) Remove(item *Item[T]) {
	if item.index >= 0 && item.index < pq.h.Len() {
		heap.Remove(&pq.h, item.index)
	}
}

func (pq *PriorityQueue[T]) Len() int { return pq.h.Len() }

func (pq *PriorityQueue[T]) IsEmpty() bool { return pq.h.Len() == 0 }
