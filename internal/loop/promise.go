package loop

import "context"

// Promise is a Future that also carries a value.
type Promise[T any] struct {
	*Future
	value T
}

func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{Future: NewFuture()}
}

// Rejected returns a Promise already failed with err.
func Rejected[T any](err error) *Promise[T] {
	p := NewPromise[T]()
	var zero T
	p.Fulfill(zero, err)
	return p
}

// Fulfill sets the value and resolves the promise. Only the first call counts.
func (p *Promise[T]) Fulfill(v T, err error) {
	if p.IsDone() {
		return
	}
	p.value = v
	p.Resolve(err)
}

// Value is only meaningful once the promise is done.
func (p *Promise[T]) Value() T {
	<-p.Done()
	return p.value
}

func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	if err := p.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return p.value, nil
}
