// Package diff computes the changes necessary to turn one ordered sequence of items into another.
//
// The result of a diff is a [change.Batch] that, applied with [change.Apply] to the old sequence,
// yields the new sequence. Its children are ordered deletes, moves, inserts and then reloads:
//
//   - one [change.DeleteItems] with all old-frame indices that have no counterpart in the new
//     sequence,
//   - one [change.MoveItem] for every item that changed its position relative to the items that
//     stay in place, ascending by destination,
//   - one [change.InsertItems] with all new-frame indices that have no counterpart in the old
//     sequence,
//   - one [change.ReloadItem] for every item that has a counterpart but isn't equal to it,
//     ascending by new-frame index.
//
// Identical sequences result in an empty batch.
//
// Two relations control the diff. Identity decides whether an old and a new item are the same
// logical entity, equality decides if they have the same content. Items are matched by identity;
// duplicates are matched in order, i.e. the first unmatched old item is paired with the first
// unmatched new item of the same identity. If moves are enabled, the items that stay in place
// are the longest subsequence of matched items whose relative order is unchanged; every other
// matched item is moved. If moves are disabled, items are aligned by a longest common
// subsequence and every item that can't be aligned is deleted and inserted.
//
// With moves, [Keyed] and [Comparable] run in O(N log N) time, N being the total number of items.
// [Func] has to scan for identical items and degrades towards O(N^2) for sequences with many moved
// or duplicate items. Without moves, the alignment is computed by [znkr.io/diff] in
// O(N^1.5 log N) time.
package diff

// Implementation note: Matching with moves is a variant of Heckel's algorithm (P. Heckel, "A
// technique for isolating differences between files", 1978): Items with a unique identity anchor
// the diff, everything else is matched in order. Instead of growing anchors to neighbors, the
// items that stay in place are determined with a longest increasing subsequence over the matched
// positions, which guarantees a consistent set of moves.

import (
	"cmp"
	"slices"

	"znkr.io/datasource/change"
	myers "znkr.io/diff"
)

const debug bool = false

// Options configure a diff.
type Options[T any] struct {
	// Equal reports whether two matched items have the same content. If nil, matched items are
	// always equal and the diff never reloads an item.
	Equal func(a, b T) bool

	// Identity reports whether two items are the same logical entity. If nil, Equal is used. If
	// both are nil, no two items are identical. Identity is ignored by [Keyed].
	Identity func(a, b T) bool

	// FindMoves enables move detection. Without it, an item that changed its position is deleted
	// and inserted.
	FindMoves bool
}

func (o *Options[T]) equal() func(a, b T) bool {
	if o.Equal == nil {
		return func(a, b T) bool { return true }
	}
	return o.Equal
}

func (o *Options[T]) identity() func(a, b T) bool {
	switch {
	case o.Identity != nil:
		return o.Identity
	case o.Equal != nil:
		return o.Equal
	default:
		return func(a, b T) bool { return false }
	}
}

// Func compares the old sequence x with the new sequence y using the identity relation of opts and
// returns the changes necessary to convert from one to the other.
func Func[T any](x, y []T, opts Options[T]) change.Batch {
	same := opts.identity()
	m := newMatching(len(x), len(y))
	if opts.FindMoves {
		// next is the first position in y that might not be matched yet. Sequences with few
		// changes are matched in linear time this way.
		next := 0
		for i := range x {
			for j := next; j < len(y); j++ {
				if m.newToOld[j] < 0 && same(x[i], y[j]) {
					m.pair(i, j)
					break
				}
			}
			for next < len(y) && m.newToOld[next] >= 0 {
				next++
			}
		}
	} else {
		align(&m, myers.EditsFunc(x, y, same))
	}
	return assemble(x, y, m, opts.equal(), opts.FindMoves)
}

// Keyed compares the old sequence x with the new sequence y using key to determine the identity of
// an item and returns the changes necessary to convert from one to the other. Two items are
// identical if their keys are equal.
func Keyed[T any, K comparable](x, y []T, key func(T) K, opts Options[T]) change.Batch {
	m := newMatching(len(x), len(y))
	if opts.FindMoves {
		positions := make(map[K][]int, len(y))
		for j, v := range y {
			k := key(v)
			positions[k] = append(positions[k], j)
		}
		for i, v := range x {
			k := key(v)
			if q := positions[k]; len(q) > 0 {
				m.pair(i, q[0])
				positions[k] = q[1:]
			}
		}
	} else {
		align(&m, myers.Edits(keys(x, key), keys(y, key)))
	}
	return assemble(x, y, m, opts.equal(), opts.FindMoves)
}

// Comparable compares x and y and returns the changes necessary to convert from one to the
// other. Items are identical if they are equal and are never reloaded.
func Comparable[T comparable](x, y []T, findMoves bool) change.Batch {
	return Keyed(x, y, func(v T) T { return v }, Options[T]{FindMoves: findMoves})
}

func keys[T any, K comparable](s []T, key func(T) K) []K {
	ret := make([]K, len(s))
	for i, v := range s {
		ret[i] = key(v)
	}
	return ret
}

// matching pairs positions in x with positions in y, -1 marks an unmatched position.
type matching struct {
	oldToNew []int
	newToOld []int
}

func newMatching(n, m int) matching {
	ret := matching{
		oldToNew: make([]int, n),
		newToOld: make([]int, m),
	}
	for i := range ret.oldToNew {
		ret.oldToNew[i] = -1
	}
	for j := range ret.newToOld {
		ret.newToOld[j] = -1
	}
	return ret
}

func (m *matching) pair(i, j int) {
	if debug {
		if m.oldToNew[i] >= 0 || m.newToOld[j] >= 0 {
			panic("invariant violation")
		}
	}
	m.oldToNew[i] = j
	m.newToOld[j] = i
}

func (m *matching) unpair(i int) {
	m.newToOld[m.oldToNew[i]] = -1
	m.oldToNew[i] = -1
}

// align pairs all positions that an edit script matches.
func align[T any](m *matching, edits []myers.Edit[T]) {
	s, t := 0, 0
	for _, edit := range edits {
		switch edit.Op {
		case myers.Match:
			m.pair(s, t)
			s++
			t++
		case myers.Delete:
			s++
		case myers.Insert:
			t++
		}
	}
}

// stable returns which matched x positions keep their relative order. It's the longest
// increasing subsequence of the matched y positions (in order of their x positions), found
// by patience sorting. Among several longest subsequences, the one that ends the earliest wins.
func stable(oldToNew []int) []bool {
	var tails []int // tails[k] is the x position ending the best subsequence of length k+1
	prev := make([]int, len(oldToNew))
	for i, j := range oldToNew {
		if j < 0 {
			continue
		}
		k, _ := slices.BinarySearchFunc(tails, j, func(t, j int) int {
			return cmp.Compare(oldToNew[t], j)
		})
		prev[i] = -1
		if k > 0 {
			prev[i] = tails[k-1]
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}

	ret := make([]bool, len(oldToNew))
	if len(tails) > 0 {
		for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
			ret[i] = true
		}
	}
	return ret
}

func assemble[T any](x, y []T, m matching, equal func(a, b T) bool, findMoves bool) change.Batch {
	inPlace := stable(m.oldToNew)

	var deletes, inserts []int
	var moves []change.MoveItem
	for i, j := range m.oldToNew {
		switch {
		case j < 0:
			deletes = append(deletes, i)
		case inPlace[i]:
			// nothing to do
		case findMoves:
			moves = append(moves, change.MoveItem{From: i, To: j})
		default:
			// Without moves, a displaced item is deleted and inserted.
			m.unpair(i)
			deletes = append(deletes, i)
		}
	}
	slices.SortFunc(moves, func(a, b change.MoveItem) int { return cmp.Compare(a.To, b.To) })

	var reloads []change.Change
	for j, i := range m.newToOld {
		if i < 0 {
			inserts = append(inserts, j)
			continue
		}
		if !equal(x[i], y[j]) {
			reloads = append(reloads, change.ReloadItem{Index: j, Old: x[i], New: y[j]})
		}
	}

	if debug {
		if len(x)-len(deletes)+len(inserts) != len(y) {
			panic("invariant violation")
		}
	}

	var b change.Batch
	if len(deletes) > 0 {
		b.Changes = append(b.Changes, change.DeleteItems{Indices: deletes})
	}
	for _, mv := range moves {
		b.Changes = append(b.Changes, mv)
	}
	if len(inserts) > 0 {
		b.Changes = append(b.Changes, change.InsertItems{Indices: inserts})
	}
	b.Changes = append(b.Changes, reloads...)
	return b
}
