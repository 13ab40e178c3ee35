// Package change describes structural edits of an ordered collection of items.
//
// Indices of a change are interpreted against one of two frames:
//
//   - the old frame, i.e. the collection before any edit is applied ([DeleteItems] and
//     [MoveItem.From]), and
//   - the new frame, i.e. the collection after all edits are applied ([InsertItems],
//     [MoveItem.To] and [ReloadItem]).
//
// A [Batch] groups changes into one atomic update. See [Apply] for the order in which a batch is
// replayed.
package change

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a [Change].
//
//go:generate go run golang.org/x/tools/cmd/stringer -type=Kind -trimprefix=Kind
type Kind int

const (
	KindInsertItems    Kind = iota // Items inserted at new-frame indices
	KindDeleteItems                // Items deleted at old-frame indices
	KindMoveItem                   // An item moved from an old-frame to a new-frame index
	KindReloadItem                 // An item whose content changed
	KindInsertSections             // Sections inserted
	KindDeleteSections             // Sections deleted
	KindBatch                      // A group of changes
)

// Change is one of [InsertItems], [DeleteItems], [MoveItem], [ReloadItem], [InsertSections],
// [DeleteSections] or [Batch].
type Change interface {
	Kind() Kind
	fmt.Stringer
	isChange()
}

// InsertItems inserts items at the given new-frame indices. Indices are ascending.
type InsertItems struct {
	Indices []int
}

// DeleteItems deletes items at the given old-frame indices. Indices are ascending.
type DeleteItems struct {
	Indices []int
}

// MoveItem moves the item at old-frame index From to new-frame index To.
type MoveItem struct {
	From, To int
}

// ReloadItem replaces the content of the item at new-frame index Index. Old and New hold the
// previous and current item.
//
// If an item moved and changed, the batch contains a [MoveItem] and a ReloadItem whose Index is
// the move's To index.
type ReloadItem struct {
	Index    int
	Old, New any
}

// InsertSections inserts whole sections.
type InsertSections struct {
	Sections []int
}

// DeleteSections deletes whole sections.
type DeleteSections struct {
	Sections []int
}

// Batch is an ordered group of changes. Batches may be nested.
type Batch struct {
	Changes []Change
}

func (InsertItems) Kind() Kind    { return KindInsertItems }
func (DeleteItems) Kind() Kind    { return KindDeleteItems }
func (MoveItem) Kind() Kind       { return KindMoveItem }
func (ReloadItem) Kind() Kind     { return KindReloadItem }
func (InsertSections) Kind() Kind { return KindInsertSections }
func (DeleteSections) Kind() Kind { return KindDeleteSections }
func (Batch) Kind() Kind          { return KindBatch }

func (InsertItems) isChange()    {}
func (DeleteItems) isChange()    {}
func (MoveItem) isChange()       {}
func (ReloadItem) isChange()     {}
func (InsertSections) isChange() {}
func (DeleteSections) isChange() {}
func (Batch) isChange()          {}

func (c InsertItems) String() string    { return fmt.Sprintf("insert %v", c.Indices) }
func (c DeleteItems) String() string    { return fmt.Sprintf("delete %v", c.Indices) }
func (c MoveItem) String() string       { return fmt.Sprintf("move %d -> %d", c.From, c.To) }
func (c ReloadItem) String() string     { return fmt.Sprintf("reload %d", c.Index) }
func (c InsertSections) String() string { return fmt.Sprintf("insert sections %v", c.Sections) }
func (c DeleteSections) String() string { return fmt.Sprintf("delete sections %v", c.Sections) }

func (c Batch) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, ch := range c.Changes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(ch.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// IsEmpty returns true if the batch doesn't contain any leaf change.
func (c Batch) IsEmpty() bool {
	for _, ch := range c.Changes {
		if b, ok := ch.(Batch); !ok || !b.IsEmpty() {
			return false
		}
	}
	return true
}

// Leaves returns all changes of c that are not batches, in the order they were emitted. If c is
// not a batch, it's returned as the only leaf.
func Leaves(c Change) []Change {
	var ret []Change
	var walk func(c Change)
	walk = func(c Change) {
		b, ok := c.(Batch)
		if !ok {
			ret = append(ret, c)
			return
		}
		for _, c := range b.Changes {
			walk(c)
		}
	}
	walk(c)
	return ret
}
