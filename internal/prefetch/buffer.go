// Package prefetch implements the bounded, height-ordered buffer that sits
// between the prefetch workers and the Sync Engine's writer loop. It is a
// multi-producer, single-consumer queue: "priority" is always the block
// height, so draining the minimum yields strictly non-decreasing heights.
package prefetch

import (
	"container/heap"
	"sync"
	"time"

	"github.com/nyx-chain/evmsync/internal/model"
)

// Payload is the validated (block, transactions, logs) tuple produced by a
// fetch-and-validate call and held only in the buffer until the writer
// drains it.
type Payload struct {
	Block        *model.Block
	Transactions []*model.Transaction
	Logs         []*model.Log
}

type item struct {
	height  uint64
	payload Payload
}

// minHeightHeap orders items by ascending height. container/heap's
// "priority" field is the height; this is a min-heap, not a generic
// priority queue, and nothing outside this file should treat it as one.
type minHeightHeap []item

func (h minHeightHeap) Len() int            { return len(h) }
func (h minHeightHeap) Less(i, j int) bool  { return h[i].height < h[j].height }
func (h minHeightHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeightHeap) Push(x interface{}) { *h = append(*h, x.(item)) }
func (h *minHeightHeap) Pop() interface{} {
	old := *h
	n := len(old)
	popped := old[n-1]
	*h = old[:n-1]
	return popped
}

// Buffer is the bounded ordered collection of (height, payload) pairs
// described in the package doc. The zero value is not usable; use New.
type Buffer struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	heap     minHeightHeap
	inFlight map[uint64]struct{}
	capacity int
}

// New creates a Buffer with the given capacity (spec default 10).
func New(capacity int) *Buffer {
	b := &Buffer{
		heap:     make(minHeightHeap, 0, capacity),
		inFlight: make(map[uint64]struct{}),
		capacity: capacity,
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// Put inserts payload at height, blocking while the buffer is full. It is
// a no-op if height is already present (producers are expected to consult
// PeekHeights before doing the work, but this guards the race anyway).
func (b *Buffer) Put(height uint64, payload Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.inFlight[height]; exists {
		return
	}

	for len(b.heap) >= b.capacity {
		b.notFull.Wait()
	}

	heap.Push(&b.heap, item{height: height, payload: payload})
	b.inFlight[height] = struct{}{}
	b.notEmpty.Signal()
}

// TryGet pops the lowest-height entry, waiting up to timeout for one to
// appear. ok is false if the timeout elapses with the buffer empty.
func (b *Buffer) TryGet(timeout time.Duration) (height uint64, payload Payload, ok bool) {
	deadline := time.Now().Add(timeout)

	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.heap) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, Payload{}, false
		}
		if !b.waitWithTimeout(remaining) {
			return 0, Payload{}, false
		}
	}

	popped := heap.Pop(&b.heap).(item)
	delete(b.inFlight, popped.height)
	b.notFull.Signal()

	return popped.height, popped.payload, true
}

// waitWithTimeout wakes the condition or returns false once d elapses.
// sync.Cond has no native timed wait, so a timer goroutine nudges it.
func (b *Buffer) waitWithTimeout(d time.Duration) bool {
	timer := time.AfterFunc(d, func() {
		b.mu.Lock()
		b.notEmpty.Broadcast()
		b.mu.Unlock()
	})
	defer timer.Stop()

	b.notEmpty.Wait()
	return len(b.heap) > 0
}

// PeekHeights returns the set of heights currently buffered or in flight,
// so producers can skip work already done or underway.
func (b *Buffer) PeekHeights() map[uint64]struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	heights := make(map[uint64]struct{}, len(b.inFlight))
	for h := range b.inFlight {
		heights[h] = struct{}{}
	}
	return heights
}

// Clear drains every entry. Used by the Sync Engine after a reorg, between
// loop iterations — never during an in-progress drain.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.heap = b.heap[:0]
	b.inFlight = make(map[uint64]struct{})
	b.notFull.Broadcast()
}

// Len reports the number of entries currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.heap)
}
