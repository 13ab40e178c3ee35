package change

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvariantViolation is returned when a change cannot be applied to a collection because it
// refers to indices that don't exist in its frame or refers to the same index twice.
var ErrInvariantViolation = errors.New("invariant violation")

// Apply replays c against old and returns the resulting collection. old is not modified.
//
// Leaf changes are applied as a single update:
//
//  1. all deletes and the sources of all moves are removed from old,
//  2. all inserts and the destinations of all moves are placed, ascending by new-frame index,
//  3. all reloads are applied to the result.
//
// The value of an inserted item is obtained by calling item with its new-frame index. Reloads
// take their value from [ReloadItem.New], which must be of type T.
//
// Section changes can't be applied to a flat collection and result in an error.
func Apply[T any](old []T, c Change, item func(i int) T) ([]T, error) {
	var (
		deletes []int
		inserts []int
		moves   []MoveItem
		reloads []ReloadItem
	)
	for _, leaf := range Leaves(c) {
		switch leaf := leaf.(type) {
		case DeleteItems:
			deletes = append(deletes, leaf.Indices...)
		case InsertItems:
			inserts = append(inserts, leaf.Indices...)
		case MoveItem:
			moves = append(moves, leaf)
		case ReloadItem:
			reloads = append(reloads, leaf)
		default:
			return nil, fmt.Errorf("%w: %v can't be applied to a flat collection", ErrInvariantViolation, leaf.Kind())
		}
	}

	removed := make([]bool, len(old))
	remove := func(i int) error {
		if i < 0 || i >= len(old) {
			return fmt.Errorf("%w: old index %d out of range [0, %d)", ErrInvariantViolation, i, len(old))
		}
		if removed[i] {
			return fmt.Errorf("%w: old index %d referenced twice", ErrInvariantViolation, i)
		}
		removed[i] = true
		return nil
	}
	for _, i := range deletes {
		if err := remove(i); err != nil {
			return nil, err
		}
	}
	for _, m := range moves {
		if err := remove(m.From); err != nil {
			return nil, err
		}
	}

	kept := make([]T, 0, len(old))
	for i, v := range old {
		if !removed[i] {
			kept = append(kept, v)
		}
	}

	n := len(kept) + len(inserts) + len(moves)
	placed := make(map[int]T, len(inserts)+len(moves))
	place := func(i int, v func() T) error {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: new index %d out of range [0, %d)", ErrInvariantViolation, i, n)
		}
		if _, ok := placed[i]; ok {
			return fmt.Errorf("%w: new index %d referenced twice", ErrInvariantViolation, i)
		}
		placed[i] = v()
		return nil
	}
	slices.Sort(inserts)
	for _, i := range inserts {
		if item == nil {
			return nil, fmt.Errorf("%w: no item for inserted index %d", ErrInvariantViolation, i)
		}
		if err := place(i, func() T { return item(i) }); err != nil {
			return nil, err
		}
	}
	for _, m := range moves {
		if err := place(m.To, func() T { return old[m.From] }); err != nil {
			return nil, err
		}
	}

	ret := make([]T, 0, n)
	for i := range n {
		if v, ok := placed[i]; ok {
			ret = append(ret, v)
			continue
		}
		ret = append(ret, kept[0])
		kept = kept[1:]
	}

	for _, r := range reloads {
		if r.Index < 0 || r.Index >= n {
			return nil, fmt.Errorf("%w: reloaded index %d out of range [0, %d)", ErrInvariantViolation, r.Index, n)
		}
		v, ok := r.New.(T)
		if !ok {
			return nil, fmt.Errorf("%w: reloaded item at %d has type %T", ErrInvariantViolation, r.Index, r.New)
		}
		ret[r.Index] = v
	}
	return ret, nil
}
