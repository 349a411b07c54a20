package mutes

import (
	"container/heap"

	"github.com/deadlockdevs/warden/automod/mutestore"
)

type heapItem struct {
	entry mutestore.MuteEntry
	index int
}

// min-heap on EndsAt
type expiryHeap []*heapItem

var _ heap.Interface = (*expiryHeap)(nil)

func (h expiryHeap) Len() int { return len(h) }

func (h expiryHeap) Less(i, j int) bool {
	return h[i].entry.EndsAt < h[j].entry.EndsAt
}

func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap) Push(x any) {
	it := x.(*heapItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

func (h expiryHeap) peek() *heapItem {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
