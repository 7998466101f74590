package orchestrator

import (
	"container/heap"
	"sync"

	"github.com/google/uuid"

	"github.com/bobarin/scenecast/internal/models"
)

// queueItem is one entry in the priority queue: a job id plus the
// ordering fields used to break ties.
type queueItem struct {
	jobID    uuid.UUID
	priority models.Priority
	seq      int64 // insertion order, for FIFO-within-priority
	index    int   // maintained by container/heap
}

// priorityHeap is a container/heap.Interface implementation ordering by
// priority descending, then by insertion order ascending (strict
// priority, FIFO within a priority tier), per spec.md's queue design.
type priorityHeap []*queueItem

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *priorityHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Queue is a strict-priority, FIFO-within-priority queue of pending job
// ids, guarded by a mutex and signalled via a buffered channel so
// workers can block efficiently instead of polling.
type Queue struct {
	mu     sync.Mutex
	heap   priorityHeap
	nextSeq int64
	notify chan struct{}
}

// NewQueue builds an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		heap:   priorityHeap{},
		notify: make(chan struct{}, 1),
	}
}

// Push enqueues a job id at the given priority.
func (q *Queue) Push(jobID uuid.UUID, priority models.Priority) {
	q.mu.Lock()
	q.nextSeq++
	heap.Push(&q.heap, &queueItem{jobID: jobID, priority: priority, seq: q.nextSeq})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the highest-priority, earliest-enqueued job
// id, or (uuid.Nil, false) if the queue is empty.
func (q *Queue) Pop() (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return uuid.Nil, false
	}
	item := heap.Pop(&q.heap).(*queueItem)
	return item.jobID, true
}

// Notify returns the channel a worker can select on to wake up when a
// new item is pushed.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Len reports the number of pending items, mostly for health/metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Remove drops jobID from the queue if still pending (used by Cancel),
// reporting whether it was found.
func (q *Queue) Remove(jobID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.heap {
		if item.jobID == jobID {
			heap.Remove(&q.heap, i)
			return true
		}
	}
	return false
}
