package ranker

import (
	"slices"

	"github.com/hupe1980/songrec/internal/queue"
)

// selectHeap feeds items into a bounded heap and returns the k best, best first.
func selectHeap(items []queue.Item, k int) []queue.Item {
	top := queue.NewTopK(k)
	for _, it := range items {
		top.Push(it)
	}
	return top.Drain()
}

// selectPartition moves the k best items to the front with quickselect and
// sorts only those. items is reordered in place.
func selectPartition(items []queue.Item, k int) []queue.Item {
	if k < len(items) {
		quickselect(items, k)
		items = items[:k]
	}
	slices.SortFunc(items, queue.Compare)
	return items
}

// quickselect reorders a so that a[:k] holds the k best items in any order.
// 0 < k < len(a).
func quickselect(a []queue.Item, k int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi)
		switch {
		case p == k-1:
			return
		case p < k-1:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition places a median-of-three pivot at its final position and returns
// it. Items ranking before the pivot end up to its left.
func partition(a []queue.Item, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if queue.Better(a[mid], a[lo]) {
		a[mid], a[lo] = a[lo], a[mid]
	}
	if queue.Better(a[hi], a[lo]) {
		a[hi], a[lo] = a[lo], a[hi]
	}
	if queue.Better(a[hi], a[mid]) {
		a[hi], a[mid] = a[mid], a[hi]
	}
	a[mid], a[hi] = a[hi], a[mid]

	pivot := a[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if queue.Better(a[j], pivot) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}
