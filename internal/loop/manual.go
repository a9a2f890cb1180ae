package loop

import "context"

type job struct {
	ctx  context.Context
	work func(ctx context.Context) error
	then func(err error)
}

// Manual is a Scheduler driven explicitly by tests: posted tasks and async
// work only run when Flush, Resolve or RunPosted is called.
type Manual struct {
	posted  []func()
	pending []job
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) {
	m.posted = append(m.posted, fn)
}

func (m *Manual) Go(ctx context.Context, work func(ctx context.Context) error, then func(err error)) {
	m.pending = append(m.pending, job{ctx: ctx, work: work, then: then})
}

// Pending reports how many async jobs are waiting to be resolved.
func (m *Manual) Pending() int {
	return len(m.pending)
}

// RunPosted runs posted tasks, including the ones they post, until none are left.
func (m *Manual) RunPosted() {
	for len(m.posted) > 0 {
		fn := m.posted[0]
		m.posted = m.posted[1:]
		fn()
	}
}

// Resolve runs the i-th pending job and its continuation.
func (m *Manual) Resolve(i int) {
	j := m.pending[i]
	m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
	err := j.work(j.ctx)
	j.then(err)
	m.RunPosted()
}

// Flush resolves jobs in FIFO order until nothing is pending or posted.
func (m *Manual) Flush() {
	m.RunPosted()
	for len(m.pending) > 0 {
		m.Resolve(0)
	}
}
