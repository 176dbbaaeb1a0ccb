package preloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/t2bot/feed-preloader/types"
)

func task(pos int, priority int, ts int64) *PreloadTask {
	return &PreloadTask{
		Item:       types.FeedItem{Id: string(rune('a' + pos)), Url: "https://cdn.example.org/" + string(rune('a'+pos)) + ".mp4", Position: pos},
		Priority:   priority,
		EnqueuedTs: ts,
	}
}

func TestTaskQueueOrder(t *testing.T) {
	q := newTaskQueue([]*PreloadTask{
		task(2, 0, 1),
		task(0, 2, 3),
		task(1, 1, 2),
		task(3, 1, 1),
	})

	order := make([]int, 0)
	for tk := q.next(); tk != nil; tk = q.next() {
		order = append(order, tk.Item.Position)
	}
	assert.Equal(t, []int{0, 1, 3, 2}, order)
}

func TestTaskQueueTieBreaksOnEnqueueTime(t *testing.T) {
	first := task(1, 1, 5)
	second := task(1, 1, 9)
	q := newTaskQueue([]*PreloadTask{second, first})
	assert.Same(t, first, q.next())
	assert.Same(t, second, q.next())
	assert.Nil(t, q.next())
}

func TestTaskQueueUrls(t *testing.T) {
	q := newTaskQueue([]*PreloadTask{task(0, 2, 1), task(1, 1, 1)})
	urls := q.urls()
	assert.Len(t, urls, 2)
	assert.Contains(t, urls, "https://cdn.example.org/a.mp4")
	assert.Contains(t, urls, "https://cdn.example.org/b.mp4")
}
