package datasource

import (
	"znkr.io/datasource/change"
)

// Mapped is a data source that returns the items of an inner data source after transforming
// them. Changes of the inner data source are forwarded unmodified: Transforming items doesn't
// change their indices.
type Mapped[T, U any] struct {
	inner         DataSource[T]
	transform     func(T) U
	supplementary func(kind string, v any) any
	feed          *Feed
	sub           *Subscription
}

// MapOption configures a [Mapped] data source.
type MapOption func(*mapOptions)

type mapOptions struct {
	supplementary func(kind string, v any) any
}

// WithSupplementaryTransform sets a function that is applied to supplementary items of the inner
// data source. It's called with nil if the inner data source has no supplementary item of that
// kind and may return nil to indicate that there is none.
func WithSupplementaryTransform(fn func(kind string, v any) any) MapOption {
	return func(o *mapOptions) {
		o.supplementary = fn
	}
}

// Map returns a data source that applies transform to all items of inner. The returned data
// source subscribes to inner until it's closed.
func Map[T, U any](inner DataSource[T], transform func(T) U, opts ...MapOption) *Mapped[T, U] {
	o := mapOptions{
		supplementary: func(_ string, v any) any { return v },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}

	m := &Mapped[T, U]{
		inner:         inner,
		transform:     transform,
		supplementary: o.supplementary,
		feed:          NewFeed(),
	}
	feed := m.feed // the subscription must not keep m alive
	m.sub = inner.Subscribe(func(c change.Change) { feed.Publish(c) })
	return m
}

// Inner returns the wrapped data source.
func (m *Mapped[T, U]) Inner() DataSource[T] { return m.inner }

// Leaf returns the innermost data source of the item at index i and its index there, see [Leaf].
func (m *Mapped[T, U]) Leaf(i int) (any, int) { return Leaf(m.inner, i) }

func (m *Mapped[T, U]) Len() int { return m.inner.Len() }

func (m *Mapped[T, U]) Item(i int) (U, error) {
	v, err := m.inner.Item(i)
	if err != nil {
		var zero U
		return zero, err
	}
	return m.transform(v), nil
}

func (m *Mapped[T, U]) SupplementaryItem(kind string, section int) (any, bool) {
	v, _ := m.inner.SupplementaryItem(kind, section)
	v = m.supplementary(kind, v)
	return v, v != nil
}

func (m *Mapped[T, U]) Subscribe(fn func(change.Change)) *Subscription {
	return m.feed.Subscribe(fn)
}

// Close stops forwarding changes of the inner data source and completes the change feed.
func (m *Mapped[T, U]) Close() {
	m.sub.Unsubscribe()
	m.feed.Close()
}
