// Package datasource presents ordered collections of items to a display layer.
//
// A [DataSource] exposes the items of a collection by index and notifies subscribers about every
// structural change as a [change.Change]. A consumer mirroring a data source (e.g. a rendered list)
// applies each change it receives and then reads the inserted and reloaded items from the data
// source.
//
// [Source] is a data source that holds a sequence of items and computes the changes itself
// whenever the sequence is replaced. [Mapped] and [Filtered] wrap another data source.
package datasource

import (
	"errors"

	"znkr.io/datasource/change"
)

// ErrOutOfRange is returned when an item is requested at an index that doesn't exist.
var ErrOutOfRange = errors.New("index out of range")

// DataSource is a read-only view of an ordered collection of items.
//
// Data sources have a single section. Supplementary items (e.g. headers or footers) are looked
// up by kind and section.
type DataSource[T any] interface {
	// Len returns the number of items.
	Len() int

	// Item returns the item at index i or an error wrapping [ErrOutOfRange].
	Item(i int) (T, error)

	// SupplementaryItem returns the supplementary item of the given kind in section, if there
	// is one.
	SupplementaryItem(kind string, section int) (any, bool)

	// Subscribe registers fn to be called with every change published after Subscribe returns.
	Subscribe(fn func(change.Change)) *Subscription
}

// Leaf returns the data source the item at index i of ds originates from and the item's index
// there. Data sources wrapping another data source, like [Mapped] and [Filtered], resolve the
// index through the wrapped one. Any other data source is its own leaf.
func Leaf(ds any, i int) (any, int) {
	if w, ok := ds.(interface{ Leaf(i int) (any, int) }); ok {
		return w.Leaf(i)
	}
	return ds, i
}
