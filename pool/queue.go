package pool

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/common/logging"
)

type Queue struct {
	pool *ants.Pool
	name string
}

func NewQueue(workers int, name string) (*Queue, error) {
	log := logrus.WithField("queue", name)
	p, err := ants.NewPool(workers, ants.WithOptions(ants.Options{
		ExpiryDuration:   1 * time.Minute, // worker lifespan when unused
		PreAlloc:         false,
		MaxBlockingTasks: 0, // no limit on tasks we can submit
		Nonblocking:      false,
		PanicHandler: func(err interface{}) {
			log.Errorf("Panic from internal queue %s", name)
			log.Error(err)
			//goland:noinspection GoTypeAssertionOnErrors
			if e, ok := err.(error); ok {
				sentry.CaptureException(e)
			}
		},
		Logger:       &logging.SendToDebugLogger{Entry: log},
		DisablePurge: false,
	}))
	if err != nil {
		return nil, err
	}
	return &Queue{pool: p, name: name}, nil
}

func (q *Queue) Schedule(task func()) error {
	return q.pool.Submit(task)
}

func (q *Queue) Tune(workers int) {
	if workers > 0 && workers != q.pool.Cap() {
		logrus.WithField("queue", q.name).Infof("Resizing queue to %d workers", workers)
		q.pool.Tune(workers)
	}
}

func (q *Queue) Running() int {
	return q.pool.Running()
}

// Release stops accepting work. Tasks already running are left to finish.
func (q *Queue) Release() {
	q.pool.Release()
}
