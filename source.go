package datasource

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"znkr.io/datasource/change"
	"znkr.io/datasource/diff"
)

// Source is a data source holding a sequence of items. Whenever the sequence is replaced with
// [Source.SetItems], the source computes the changes between the previous and the new sequence
// and publishes them as a single [change.Batch].
//
// Mutations are serialized. A mutation is a critical section that spans computing the changes,
// replacing the items and publishing the changes to all subscribers.
//
// [Source.Len], [Source.Item], [Source.Items] and [Source.Snapshot] don't lock. They are meant
// for the goroutine that mutates the source and for subscribers, which see the new items while
// the changes are delivered. Other goroutines read through [Source.Read], which never overlaps
// a mutation.
type Source[T any] struct {
	mu   sync.RWMutex // write locked by mutations, including the publishing of their changes
	snap atomic.Pointer[Snapshot[T]]
	feed *Feed

	diff func(x, y []T, opts diff.Options[T]) change.Batch
	opts diff.Options[T]
}

// Option configures a [Source].
type Option[T any] func(*options[T])

type options[T any] struct {
	supplementary map[string]any
	diff          func(x, y []T, opts diff.Options[T]) change.Batch
	opts          diff.Options[T]
}

// WithSupplementaryItems sets the initial supplementary items by kind.
func WithSupplementaryItems[T any](items map[string]any) Option[T] {
	return func(o *options[T]) {
		o.supplementary = items
	}
}

// WithEqual sets the relation that decides whether an item needs to be reloaded. See
// [diff.Options].
func WithEqual[T any](eq func(a, b T) bool) Option[T] {
	return func(o *options[T]) {
		o.opts.Equal = eq
	}
}

// WithIdentity sets the relation that decides whether two items are the same logical entity. See
// [diff.Options].
func WithIdentity[T any](id func(a, b T) bool) Option[T] {
	return func(o *options[T]) {
		o.opts.Identity = id
	}
}

// WithKey identifies items by key. This is considerably faster than [WithIdentity] for large
// sequences.
func WithKey[T any, K comparable](key func(T) K) Option[T] {
	return func(o *options[T]) {
		o.diff = func(x, y []T, opts diff.Options[T]) change.Batch {
			return diff.Keyed(x, y, key, opts)
		}
	}
}

// WithFindMoves enables or disables move detection.
func WithFindMoves[T any](findMoves bool) Option[T] {
	return func(o *options[T]) {
		o.opts.FindMoves = findMoves
	}
}

// New returns a source holding a copy of items.
//
// Without [WithEqual], [WithIdentity] or [WithKey], no two items are considered identical and
// every update deletes and inserts everything. Use [NewComparable] for comparable items.
func New[T any](items []T, opts ...Option[T]) *Source[T] {
	o := options[T]{diff: diff.Func[T]}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}

	s := &Source[T]{
		feed: NewFeed(),
		diff: o.diff,
		opts: o.opts,
	}
	s.snap.Store(&Snapshot[T]{
		items:         slices.Clone(items),
		supplementary: maps.Clone(o.supplementary),
	})
	return s
}

// NewComparable returns a source for comparable items. Items are identified by their value.
func NewComparable[T comparable](items []T, opts ...Option[T]) *Source[T] {
	defaults := []Option[T]{
		WithKey(func(v T) T { return v }),
		WithEqual(func(a, b T) bool { return a == b }),
	}
	return New(items, append(defaults, opts...)...)
}

// SetItems replaces the items of the source with a copy of items and publishes the changes, if
// any.
//
// The new items become visible to subscribers right before the changes are published, readers
// using [Source.Read] only see them after all subscribers received the changes. Subscribers must
// not call SetItems, Read or Close on the source that notifies them.
func (s *Source[T]) SetItems(items []T) {
	items = slices.Clone(items)

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snap.Load()
	b := s.diff(old.items, items, s.opts)
	s.snap.Store(&Snapshot[T]{
		items:         items,
		supplementary: old.supplementary,
	})
	if !b.IsEmpty() {
		s.feed.Publish(b)
	}
}

// SetSupplementaryItems replaces all supplementary items. Supplementary items are not part of the
// change notifications.
func (s *Source[T]) SetSupplementaryItems(items map[string]any) {
	items = maps.Clone(items)

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snap.Load()
	s.snap.Store(&Snapshot[T]{
		items:         old.items,
		supplementary: items,
	})
}

// Read calls fn with the current state of the source. It waits for a mutation in progress to
// complete, i.e. until all subscribers received its changes. The source must not be mutated from
// within fn.
func (s *Source[T]) Read(fn func(*Snapshot[T])) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.snap.Load())
}

// Snapshot returns the current state of the source. Use it to read multiple items consistently.
func (s *Source[T]) Snapshot() *Snapshot[T] { return s.snap.Load() }

// Items returns a copy of the current items.
func (s *Source[T]) Items() []T { return s.Snapshot().Items() }

func (s *Source[T]) Len() int              { return s.Snapshot().Len() }
func (s *Source[T]) Item(i int) (T, error) { return s.Snapshot().Item(i) }

func (s *Source[T]) SupplementaryItem(kind string, section int) (any, bool) {
	return s.Snapshot().SupplementaryItem(kind, section)
}

func (s *Source[T]) Subscribe(fn func(change.Change)) *Subscription {
	return s.feed.Subscribe(fn)
}

// Close tears down the source: The change feed is completed and no further changes are
// published. The items can still be read and replaced.
func (s *Source[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed.Close()
}

// Snapshot is an immutable state of a [Source].
type Snapshot[T any] struct {
	items         []T
	supplementary map[string]any
}

func (s *Snapshot[T]) Len() int { return len(s.items) }

func (s *Snapshot[T]) Item(i int) (T, error) {
	if i < 0 || i >= len(s.items) {
		var zero T
		return zero, fmt.Errorf("item %d of %d: %w", i, len(s.items), ErrOutOfRange)
	}
	return s.items[i], nil
}

// SupplementaryItem returns the supplementary item of the given kind. Sources have a single
// section, section must be 0.
func (s *Snapshot[T]) SupplementaryItem(kind string, section int) (any, bool) {
	if section != 0 {
		return nil, false
	}
	v, ok := s.supplementary[kind]
	return v, ok
}

// Items returns a copy of all items.
func (s *Snapshot[T]) Items() []T { return slices.Clone(s.items) }
