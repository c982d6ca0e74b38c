package contract

import (
	"container/heap"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/atomicore/eosio-contract-indexer/db"
)

// JobQueue is a handler's per-block update queue: serial, priority ordered,
// drained only inside OnBlockComplete. Higher priority runs first; equal
// priorities keep enqueue order. The enqueue call site is recorded so a
// failing job can be traced back to where it was scheduled.
type JobQueue struct {
	jobs jobHeap
	seq  uint64
}

type job struct {
	fn       func(tx *db.ContractTx) error
	priority int
	seq      uint64
	site     string
}

func NewJobQueue() *JobQueue {
	return &JobQueue{}
}

// Add enqueues work to run at the given priority during the block's drain.
func (q *JobQueue) Add(priority int, fn func(tx *db.ContractTx) error) {
	site := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		site = fmt.Sprintf("%v:%v", filepath.Base(file), line)
	}

	q.seq++
	heap.Push(&q.jobs, &job{
		fn:       fn,
		priority: priority,
		seq:      q.seq,
		site:     site,
	})
}

// Len returns the number of queued jobs.
func (q *JobQueue) Len() int {
	return q.jobs.Len()
}

// Drain runs all queued jobs serially in priority order. The first failing
// job stops the drain; its error carries the enqueue call site.
func (q *JobQueue) Drain(tx *db.ContractTx) error {
	for q.jobs.Len() > 0 {
		entry := heap.Pop(&q.jobs).(*job)
		if err := entry.fn(tx); err != nil {
			q.Clear()
			return errors.Wrapf(err, "update job enqueued at %v failed", entry.site)
		}
	}
	return nil
}

// Clear drops all queued jobs without running them.
func (q *JobQueue) Clear() {
	q.jobs = nil
	q.seq = 0
}

type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x interface{}) {
	*h = append(*h, x.(*job))
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
