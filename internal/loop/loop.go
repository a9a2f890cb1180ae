// Package loop provides the single logical thread every store runs on.
//
// Store state is never locked: all reads and writes of it happen inside tasks
// executed one at a time by a Scheduler. Blocking work (gateway calls) runs
// off the loop through Go, and its continuation is queued back onto the loop.
package loop

import (
	"context"
	"errors"
	"sync"
)

var ErrStopped = errors.New("loop stopped")

type Scheduler interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// Go runs work off the loop and queues then(err) on the loop once work returns.
	Go(ctx context.Context, work func(ctx context.Context) error, then func(err error))
}

// Loop is the production Scheduler. Run must be called for tasks to execute.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	notify  chan struct{}
	stopped bool
	workers sync.WaitGroup
}

func New() *Loop {
	return &Loop{notify: make(chan struct{}, 1)}
}

func (l *Loop) Post(fn func()) {
	l.post(fn)
}

func (l *Loop) post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) Go(ctx context.Context, work func(ctx context.Context) error, then func(err error)) {
	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		err := work(ctx)
		l.Post(func() { then(err) })
	}()
}

// Run executes queued tasks until ctx is done. In-flight work is waited for
// before Run returns; continuations queued after that are dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			task, ok := l.next()
			if !ok {
				break
			}
			task()
		}

		select {
		case <-ctx.Done():
			l.workers.Wait()
			l.mu.Lock()
			l.stopped = true
			l.queue = nil
			l.mu.Unlock()
			return ctx.Err()
		case <-l.notify:
		}
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}
