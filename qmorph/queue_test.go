package qmorph

import "testing"

func TestQueueOrder(t *testing.T) {
	q := newQueue(5)
	q.push(3, 0.5)
	q.push(1, 0.5)
	q.push(4, 0.2)
	q.push(0, 0.9)
	q.push(2, 0.7)
	q.push(2, 0.1) // supersedes 0.7.
	var got []int
	stale := 0
	for {
		e, s, ok := q.head()
		stale += s
		if !ok {
			break
		}
		q.pop()
		got = append(got, e.index)
	}
	want := []int{2, 4, 1, 3, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if stale != 1 {
		t.Errorf("dropped %d stale entries, want 1", stale)
	}
	if q.has(2) {
		t.Error("popped quad still queued")
	}
}
