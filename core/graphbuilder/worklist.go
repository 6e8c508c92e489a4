package graphbuilder

import (
	"container/heap"

	mapset "github.com/deckarep/golang-set/v2"
)

// blockHeap orders blocks by ascending id. Because ids are assigned in
// reverse postorder and never change, popping the minimum processes every
// forward predecessor of a block before the block itself (back edges
// excepted), which is the precondition of the merge/placeholder protocol.
type blockHeap []*Block

func (h blockHeap) Len() int            { return len(h) }
func (h blockHeap) Less(i, j int) bool  { return h[i].id < h[j].id }
func (h blockHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *blockHeap) Push(x interface{}) { *h = append(*h, x.(*Block)) }

func (h *blockHeap) Pop() interface{} {
	old := *h
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return b
}

// workList schedules blocks for translation. A block is enqueued at most
// once and translated at most once; re-adding a visited or queued block is a
// no-op.
type workList struct {
	heap    blockHeap
	queued  mapset.Set[int]
	visited mapset.Set[int]
}

func newWorkList() *workList {
	return &workList{
		queued:  mapset.NewThreadUnsafeSet[int](),
		visited: mapset.NewThreadUnsafeSet[int](),
	}
}

func (w *workList) add(b *Block) {
	if w.visited.Contains(b.id) || !w.queued.Add(b.id) {
		return
	}
	heap.Push(&w.heap, b)
}

func (w *workList) empty() bool { return w.heap.Len() == 0 }

// pop removes and returns the lowest-numbered queued block, marking it
// visited.
func (w *workList) pop() *Block {
	b := heap.Pop(&w.heap).(*Block)
	w.queued.Remove(b.id)
	w.visited.Add(b.id)
	return b
}

func (w *workList) isVisited(b *Block) bool { return w.visited.Contains(b.id) }
