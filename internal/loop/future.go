package loop

import (
	"context"
	"sync"
)

// Future is the outcome of an asynchronous store operation. Stores resolve
// futures on the loop, so callbacks registered with OnDone run on the loop too.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	resolved  bool
	err       error
	callbacks []func(err error)
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns an already completed Future.
func Resolved(err error) *Future {
	f := NewFuture()
	f.Resolve(err)
	return f
}

// Resolve completes the future and runs the registered callbacks in order.
// Later calls are ignored.
func (f *Future) Resolve(err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(err)
	}
}

// OnDone registers fn to run when the future resolves, or runs it now if it
// already has.
func (f *Future) OnDone(fn func(err error)) {
	f.mu.Lock()
	if f.resolved {
		err := f.err
		f.mu.Unlock()
		fn(err)
		return
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the result; it is nil until the future is done.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
