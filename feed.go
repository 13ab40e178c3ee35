package datasource

import (
	"slices"
	"sync"
	"sync/atomic"

	"znkr.io/datasource/change"
)

// Feed broadcasts changes to subscribers.
//
// Changes are delivered synchronously, in the order they are published. Publish must not be
// called concurrently; data sources serialize their mutations anyway.
type Feed struct {
	mu     sync.Mutex
	subs   []*Subscription // copied on write, Publish iterates without holding mu
	closed bool
	done   chan struct{}
}

// NewFeed returns a new open feed.
func NewFeed() *Feed {
	return &Feed{done: make(chan struct{})}
}

// Subscription is the handle of a subscriber of a [Feed].
type Subscription struct {
	feed   *Feed
	fn     func(change.Change)
	active atomic.Bool // cleared on removal, a running Publish skips inactive subscriptions
}

// Subscribe registers fn. It's called with every change published after Subscribe returns, but
// never with earlier ones. Subscribing to a closed feed returns a subscription that receives
// nothing.
func (f *Feed) Subscribe(fn func(change.Change)) *Subscription {
	s := &Subscription{feed: f, fn: fn}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return s
	}
	s.active.Store(true)
	subs := slices.Clone(f.subs)
	f.subs = append(subs, s)
	return s
}

// Publish delivers c to all current subscribers. Subscriptions removed while c is delivered
// don't receive it anymore, subscriptions added while c is delivered don't receive it at all.
func (f *Feed) Publish(c change.Change) {
	f.mu.Lock()
	subs := f.subs
	f.mu.Unlock()

	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		s.fn(c)
	}
}

// Close completes the feed: All subscriptions are released and their Done channels are closed.
// Further changes are dropped. Closing a closed feed does nothing.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, s := range f.subs {
		s.active.Store(false)
	}
	f.subs = nil
	close(f.done)
}

func (f *Feed) remove(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s.active.Store(false)
	i := slices.Index(f.subs, s)
	if i < 0 {
		return
	}
	subs := slices.Clone(f.subs)
	f.subs = slices.Delete(subs, i, i+1)
}

// Unsubscribe stops the delivery of changes to the subscriber, including the delivery of a
// change that's being published. It's safe to call Unsubscribe more than once and from within
// any subscriber.
func (s *Subscription) Unsubscribe() {
	s.feed.remove(s)
}

// Done returns a channel that's closed when the feed is closed, i.e. when the data source it
// belongs to is torn down. A closed feed is terminal and not an error.
func (s *Subscription) Done() <-chan struct{} {
	return s.feed.done
}
