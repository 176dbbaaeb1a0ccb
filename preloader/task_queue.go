package preloader

import (
	"container/heap"

	"github.com/t2bot/feed-preloader/types"
)

type PreloadTask struct {
	Item       types.FeedItem
	Priority   int // PreloadCount minus distance from the current index
	EnqueuedTs int64
}

// taskQueue is a max-heap on Priority. Ties go to the item closer to the top
// of the feed, then to the one queued first.
type taskQueue []*PreloadTask

func (q taskQueue) Len() int {
	return len(q)
}

func (q taskQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	if q[i].Item.Position != q[j].Item.Position {
		return q[i].Item.Position < q[j].Item.Position
	}
	return q[i].EnqueuedTs < q[j].EnqueuedTs
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *taskQueue) Push(x interface{}) {
	*q = append(*q, x.(*PreloadTask))
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

func newTaskQueue(tasks []*PreloadTask) *taskQueue {
	q := make(taskQueue, len(tasks))
	copy(q, tasks)
	heap.Init(&q)
	return &q
}

func (q *taskQueue) next() *PreloadTask {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*PreloadTask)
}

func (q *taskQueue) urls() map[string]*PreloadTask {
	m := make(map[string]*PreloadTask, q.Len())
	for _, t := range *q {
		m[t.Item.Url] = t
	}
	return m
}
