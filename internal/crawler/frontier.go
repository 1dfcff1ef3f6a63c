package crawler

import (
	"container/heap"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// entry is one not-yet-fetched URL discovered during traversal. It lives
// entirely within a single crawl run.
type entry struct {
	url       string
	depth     int
	parentURL string
	score     float64
}

// frontier holds discovered URLs and drains them in strategy order:
// FIFO for BFS, LIFO for DFS, highest score first for best-first.
type frontier struct {
	strategy domain.CrawlStrategy

	// queue backs BFS and DFS; heap backs best-first.
	queue []*entry
	heap  scoreHeap
}

func newFrontier(strategy domain.CrawlStrategy) *frontier {
	f := &frontier{strategy: strategy}
	if strategy == domain.CrawlStrategyBestFirst {
		heap.Init(&f.heap)
	}
	return f
}

func (f *frontier) push(e *entry) {
	if f.strategy == domain.CrawlStrategyBestFirst {
		heap.Push(&f.heap, e)
		return
	}
	f.queue = append(f.queue, e)
}

func (f *frontier) pop() *entry {
	if f.strategy == domain.CrawlStrategyBestFirst {
		if f.heap.Len() == 0 {
			return nil
		}
		return heap.Pop(&f.heap).(*entry)
	}

	if len(f.queue) == 0 {
		return nil
	}

	if f.strategy == domain.CrawlStrategyDFS {
		e := f.queue[len(f.queue)-1]
		f.queue = f.queue[:len(f.queue)-1]
		return e
	}

	e := f.queue[0]
	f.queue = f.queue[1:]
	return e
}

func (f *frontier) len() int {
	if f.strategy == domain.CrawlStrategyBestFirst {
		return f.heap.Len()
	}
	return len(f.queue)
}

// scoreHeap is a max-heap of entries by score.
type scoreHeap []*entry

func (h scoreHeap) Len() int            { return len(h) }
func (h scoreHeap) Less(i, j int) bool  { return h[i].score > h[j].score }
func (h scoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x interface{}) { *h = append(*h, x.(*entry)) }
func (h *scoreHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
