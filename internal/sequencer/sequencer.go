// internal/sequencer/sequencer.go
package sequencer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Sequencer serializes work per key. Tasks enqueued for the same key run
// strictly one after another in enqueue order; tasks for different keys run
// concurrently. A task failure is reported to its own caller and never
// blocks the tasks queued behind it.
type Sequencer struct {
	logger *zap.Logger

	mu     sync.Mutex
	queues map[string]*queue
}

type queue struct {
	tasks []*task
}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

func New(logger *zap.Logger) *Sequencer {
	return &Sequencer{
		logger: logger,
		queues: make(map[string]*queue),
	}
}

// Do runs fn after all previously enqueued tasks for key have completed and
// waits for its result. The task executes under a context detached from
// ctx's cancellation: once enqueued it runs to completion even if the caller
// disconnects, and the caller resynchronizes by re-reading afterwards. If
// ctx is done while waiting, Do returns ctx.Err() but the task still runs.
func (s *Sequencer) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	t := &task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	s.mu.Lock()
	q, ok := s.queues[key]
	if !ok {
		q = &queue{}
		s.queues[key] = q
	}
	q.tasks = append(q.tasks, t)
	if !ok {
		go s.drain(key, q)
	}
	s.mu.Unlock()

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain owns the key's queue until it is empty, then removes it. Only one
// drain goroutine exists per live key.
func (s *Sequencer) drain(key string, q *queue) {
	for {
		s.mu.Lock()
		if len(q.tasks) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		t := q.tasks[0]
		q.tasks = q.tasks[1:]
		s.mu.Unlock()

		err := s.run(key, t)
		if err != nil {
			s.logger.Warn("sequenced task failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		t.done <- err
	}
}

func (s *Sequencer) run(key string, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sequenced task panicked",
				zap.String("key", key),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	// Keep request-scoped values, drop the cancellation.
	return t.fn(context.WithoutCancel(t.ctx))
}

// Pending reports the number of keys with live queues, for diagnostics.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}
