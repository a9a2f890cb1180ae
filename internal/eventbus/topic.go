// Package eventbus is the typed publish/subscribe layer the stores synchronize
// through. Delivery is synchronous, in subscription order, without buffering.
// Like the rest of the store layer it must only be used from the loop.
package eventbus

type subscriber[T any] struct {
	id   uint64
	name string
	fn   func(T)
}

// Topic broadcasts values to the subscribers present at publish time.
type Topic[T any] struct {
	nextID uint64
	subs   []subscriber[T]
}

type Subscription struct {
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// Subscribe registers fn under name; name only serves diagnostics.
func (t *Topic[T]) Subscribe(name string, fn func(T)) *Subscription {
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber[T]{id: id, name: name, fn: fn})
	return &Subscription{cancel: func() { t.remove(id) }}
}

func (t *Topic[T]) Publish(v T) {
	subs := append([]subscriber[T](nil), t.subs...)
	for _, s := range subs {
		s.fn(v)
	}
}

// Subscribers lists subscriber names in delivery order.
func (t *Topic[T]) Subscribers() []string {
	names := make([]string, 0, len(t.subs))
	for _, s := range t.subs {
		names = append(names, s.name)
	}
	return names
}

func (t *Topic[T]) remove(id uint64) {
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// Stream is the read side of a Subject.
type Stream[T any] interface {
	Subscribe(name string, fn func(T)) *Subscription
	Value() (T, bool)
}

// Subject is a Topic that remembers its latest value and replays it to new
// subscribers.
type Subject[T any] struct {
	topic Topic[T]
	value T
	set   bool
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

func (s *Subject[T]) Next(v T) {
	s.value = v
	s.set = true
	s.topic.Publish(v)
}

func (s *Subject[T]) Value() (T, bool) {
	return s.value, s.set
}

func (s *Subject[T]) Subscribe(name string, fn func(T)) *Subscription {
	sub := s.topic.Subscribe(name, fn)
	if s.set {
		fn(s.value)
	}
	return sub
}

// Clear forgets the latest value without notifying subscribers.
func (s *Subject[T]) Clear() {
	var zero T
	s.value = zero
	s.set = false
}
