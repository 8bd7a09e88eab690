// Package queue implements the bounded heap used for incremental top-k selection.
package queue

// Item is a scored index row.
type Item struct {
	Row   uint32  // Row is the index row the score belongs to.
	Score float32 // Score is the similarity of the row to the query.
}

// Better reports whether a ranks before b: higher score first, and on equal
// scores the lower row first. This is a strict total order over distinct rows.
func Better(a, b Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Row < b.Row
}

// Compare is Better expressed as a three-way comparison for slices.SortFunc.
func Compare(a, b Item) int {
	switch {
	case Better(a, b):
		return -1
	case Better(b, a):
		return 1
	default:
		return 0
	}
}

// TopK keeps the k best items pushed into it.
// The root of the heap is the worst kept item, so a full queue can reject a
// candidate with a single comparison.
// It does NOT implement container/heap to avoid interface overhead.
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a queue that retains at most k items.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	capacity := k
	if capacity > 1024 {
		capacity = 1024
	}
	return &TopK{
		k:     k,
		items: make([]Item, 0, capacity),
	}
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Cap returns the configured bound.
func (q *TopK) Cap() int { return q.k }

// Worst returns the worst retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Push offers an item to the queue. It reports whether the item was retained.
func (q *TopK) Push(item Item) bool {
	if q.k == 0 {
		return false
	}
	if len(q.items) < q.k {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !Better(item, q.items[0]) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Pop removes and returns the worst retained item.
func (q *TopK) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	root := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.siftDown(0)
	}
	return root, true
}

// Drain empties the queue and returns its items ordered best first.
func (q *TopK) Drain() []Item {
	out := make([]Item, len(q.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = q.Pop()
	}
	return out
}

// Reset clears the queue for reuse.
func (q *TopK) Reset() {
	q.items = q.items[:0]
}

// less orders the heap so that the worst item sits at the root.
func (q *TopK) less(i, j int) bool {
	return Better(q.items[j], q.items[i])
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
