package datasource

import (
	"sync"
	"sync/atomic"

	"znkr.io/datasource/change"
)

// Filtered is a data source that contains the items of an inner data source for which a
// predicate holds.
//
// Changes of the inner data source can't be forwarded, their indices refer to items that might
// not be part of the filtered view. Instead, the filtered items are recomputed on every change
// and diffed against the previous ones.
type Filtered[T any] struct {
	inner   DataSource[T]
	view    *Source[T]
	sub     *Subscription
	indices atomic.Pointer[[]int] // index in inner of every item of view

	mu   sync.Mutex // guards keep and serializes refreshes
	keep func(T) bool
}

// Filter returns a data source that contains all items of inner for which keep returns true.
// opts configure how changes of the filtered items are computed, see [New].
//
// Without [WithKey], [WithIdentity] or [WithEqual], no two items are identical and every change
// of inner deletes and inserts all filtered items, even if they didn't change. Use
// [FilterComparable] for comparable items.
func Filter[T any](inner DataSource[T], keep func(T) bool, opts ...Option[T]) *Filtered[T] {
	f := &Filtered[T]{
		inner: inner,
		keep:  keep,
	}
	items, indices := f.filter()
	f.indices.Store(&indices)
	f.view = New(items, opts...)
	f.sub = inner.Subscribe(func(change.Change) { f.refresh() })
	f.refresh() // catch up with changes between filtering and subscribing
	return f
}

// FilterComparable is [Filter] for comparable items. Items are identified by their value.
func FilterComparable[T comparable](inner DataSource[T], keep func(T) bool, opts ...Option[T]) *Filtered[T] {
	defaults := []Option[T]{
		WithKey(func(v T) T { return v }),
		WithEqual(func(a, b T) bool { return a == b }),
	}
	return Filter(inner, keep, append(defaults, opts...)...)
}

// SetPredicate replaces the predicate and publishes the resulting changes.
func (f *Filtered[T]) SetPredicate(keep func(T) bool) {
	f.mu.Lock()
	f.keep = keep
	f.mu.Unlock()
	f.refresh()
}

func (f *Filtered[T]) refresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, indices := f.filter()
	f.indices.Store(&indices)
	f.view.SetItems(items)
}

func (f *Filtered[T]) filter() (items []T, indices []int) {
	for i := range f.inner.Len() {
		v, err := f.inner.Item(i)
		if err != nil {
			// The inner data source shrank while reading, the next change notification will
			// trigger another refresh.
			break
		}
		if f.keep(v) {
			items = append(items, v)
			indices = append(indices, i)
		}
	}
	return items, indices
}

// Leaf returns the innermost data source of the item at index i and its index there, see [Leaf].
// Indices that are out of range resolve to f itself.
func (f *Filtered[T]) Leaf(i int) (any, int) {
	indices := *f.indices.Load()
	if i < 0 || i >= len(indices) {
		return f, i
	}
	return Leaf(f.inner, indices[i])
}

// Read calls fn with the filtered items, see [Source.Read].
func (f *Filtered[T]) Read(fn func(*Snapshot[T])) { f.view.Read(fn) }

func (f *Filtered[T]) Len() int              { return f.view.Len() }
func (f *Filtered[T]) Item(i int) (T, error) { return f.view.Item(i) }

func (f *Filtered[T]) SupplementaryItem(kind string, section int) (any, bool) {
	return f.inner.SupplementaryItem(kind, section)
}

func (f *Filtered[T]) Subscribe(fn func(change.Change)) *Subscription {
	return f.view.Subscribe(fn)
}

// Close stops observing the inner data source and completes the change feed.
func (f *Filtered[T]) Close() {
	f.sub.Unsubscribe()
	f.view.Close()
}
