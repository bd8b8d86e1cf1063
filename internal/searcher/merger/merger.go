// Package merger selects the best entries from one or more result sets with
// a bounded heap.
package merger

import "container/heap"

// TopK returns the limit best items across all sets, best first. better
// must be a strict ordering; items it does not order keep no particular
// relative position. limit <= 0 keeps everything.
func TopK[T any](sets [][]T, limit int, better func(a, b T) bool) []T {
	total := 0
	for _, s := range sets {
		total += len(s)
	}
	if limit <= 0 || limit > total {
		limit = total
	}
	if limit == 0 {
		return nil
	}
	h := &boundedHeap[T]{better: better, items: make([]T, 0, limit+1)}
	for _, s := range sets {
		for _, item := range s {
			if h.Len() == limit {
				if !better(item, h.items[0]) {
					continue
				}
				heap.Pop(h)
			}
			heap.Push(h, item)
		}
	}
	out := make([]T, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(T)
	}
	return out
}

// boundedHeap keeps the worst retained item at the root.
type boundedHeap[T any] struct {
	items  []T
	better func(a, b T) bool
}

func (h *boundedHeap[T]) Len() int { return len(h.items) }

func (h *boundedHeap[T]) Less(i, j int) bool {
	return h.better(h.items[j], h.items[i])
}

func (h *boundedHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *boundedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
