package qmorph

import (
	"container/heap"
	"math"
)

type entry struct {
	quality float64
	index   int // global quad index.
}

// entries is a min-heap of quads ordered by quality, then index.
type entries []entry

func (h entries) Len() int { return len(h) }
func (h entries) Less(i, j int) bool {
	if h[i].quality != h[j].quality {
		return h[i].quality < h[j].quality
	}
	return h[i].index < h[j].index
}
func (h entries) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entries) Push(x any)   { *h = append(*h, x.(entry)) }
func (h *entries) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}

// queue surfaces the worst quad first. A quad has at most one live entry:
// pushing it again supersedes older entries, which are dropped when popped.
type queue struct {
	heap   entries
	queued []float64 // quality of the live entry per quad, NaN if none.
}

func newQueue(n int) *queue {
	q := &queue{queued: make([]float64, n)}
	for i := range q.queued {
		q.queued[i] = math.NaN()
	}
	return q
}

func (q *queue) push(index int, quality float64) {
	q.queued[index] = quality
	heap.Push(&q.heap, entry{quality: quality, index: index})
}

// has reports whether index has a live entry.
func (q *queue) has(index int) bool { return !math.IsNaN(q.queued[index]) }

// head returns the live entry of lowest quality, dropping superseded ones.
// The second return value counts the entries dropped.
func (q *queue) head() (e entry, stale int, ok bool) {
	for len(q.heap) > 0 {
		e = q.heap[0]
		if q.queued[e.index] == e.quality {
			return e, stale, true
		}
		heap.Pop(&q.heap)
		stale++
	}
	return entry{}, stale, false
}

// pop removes the head entry returned by the last call to head.
func (q *queue) pop() entry {
	e := heap.Pop(&q.heap).(entry)
	q.queued[e.index] = math.NaN()
	return e
}
