package diff

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"znkr.io/datasource/change"
)

func seq(from, to int) []int {
	var ret []int
	for i := from; i <= to; i++ {
		ret = append(ret, i)
	}
	return ret
}

func batch(changes ...change.Change) change.Batch { return change.Batch{Changes: changes} }

func TestComparable(t *testing.T) {
	tests := []struct {
		name      string
		x, y      []string
		findMoves bool
		want      change.Batch
	}{
		{
			name: "empty",
		},
		{
			name: "identical",
			x:    []string{"foo", "bar", "baz"},
			y:    []string{"foo", "bar", "baz"},
		},
		{
			name:      "identical-with-moves",
			x:         []string{"foo", "bar", "baz"},
			y:         []string{"foo", "bar", "baz"},
			findMoves: true,
		},
		{
			name: "x-empty",
			y:    []string{"foo", "bar", "baz"},
			want: batch(change.InsertItems{Indices: []int{0, 1, 2}}),
		},
		{
			name: "y-empty",
			x:    []string{"foo", "bar", "baz"},
			want: batch(change.DeleteItems{Indices: []int{0, 1, 2}}),
		},
		{
			name:      "disjoint",
			x:         []string{"a", "b"},
			y:         []string{"c", "d", "e"},
			findMoves: true,
			want: batch(
				change.DeleteItems{Indices: []int{0, 1}},
				change.InsertItems{Indices: []int{0, 1, 2}},
			),
		},
		{
			name:      "swap",
			x:         []string{"1", "2", "3", "4", "5"},
			y:         []string{"2", "1", "3", "4", "5"},
			findMoves: true,
			want:      batch(change.MoveItem{From: 0, To: 1}),
		},
		{
			name:      "move-to-end",
			x:         strings.Split("abcd", ""),
			y:         strings.Split("bcda", ""),
			findMoves: true,
			want:      batch(change.MoveItem{From: 0, To: 3}),
		},
		{
			name:      "move-to-front",
			x:         strings.Split("abcd", ""),
			y:         strings.Split("dabc", ""),
			findMoves: true,
			want:      batch(change.MoveItem{From: 3, To: 0}),
		},
		{
			name:      "duplicates-in-order",
			x:         strings.Split("aba", ""),
			y:         strings.Split("aab", ""),
			findMoves: true,
			want:      batch(change.MoveItem{From: 1, To: 2}),
		},
		{
			name:      "mixed",
			x:         strings.Split("abcde", ""),
			y:         strings.Split("eacxd", ""),
			findMoves: true,
			want: batch(
				change.DeleteItems{Indices: []int{1}},
				change.MoveItem{From: 4, To: 0},
				change.InsertItems{Indices: []int{3}},
			),
		},
		{
			name:      "append",
			x:         strings.Split("abc", ""),
			y:         strings.Split("abcde", ""),
			findMoves: true,
			want:      batch(change.InsertItems{Indices: []int{3, 4}}),
		},
		{
			name: "append-without-moves",
			x:    strings.Split("abc", ""),
			y:    strings.Split("abcde", ""),
			want: batch(change.InsertItems{Indices: []int{3, 4}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Comparable(tt.x, tt.y, tt.findMoves)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Comparable() result is different (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestMoveDetectionToggle(t *testing.T) {
	x := []int{1, 2, 3, 4, 5}
	y := []int{2, 1, 3, 4, 5}

	withMoves := Comparable(x, y, true)
	if diff := cmp.Diff(batch(change.MoveItem{From: 0, To: 1}), withMoves); diff != "" {
		t.Errorf("with moves (-want, +got):\n%s", diff)
	}

	withoutMoves := Comparable(x, y, false)
	kinds := make(map[change.Kind]int)
	for _, c := range change.Leaves(withoutMoves) {
		kinds[c.Kind()]++
	}
	want := map[change.Kind]int{change.KindDeleteItems: 1, change.KindInsertItems: 1}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("without moves, kinds are different (-want, +got):\n%s", diff)
	}
	checkReplay(t, x, y, withoutMoves)
}

func TestShrink(t *testing.T) {
	x := seq(6, 55)
	y := seq(51, 55)
	got := Comparable(x, y, true)
	if diff := cmp.Diff(batch(change.DeleteItems{Indices: seq(0, 44)}), got); diff != "" {
		t.Errorf("Comparable() result is different (-want, +got):\n%s", diff)
	}
}

func TestReorder(t *testing.T) {
	got := Comparable(seq(51, 55), []int{52, 51, 53, 54, 55}, true)
	if diff := cmp.Diff(batch(change.MoveItem{From: 0, To: 1}), got); diff != "" {
		t.Errorf("Comparable() result is different (-want, +got):\n%s", diff)
	}
}

type item struct {
	ID    int
	Value string
}

func itemKey(it item) int          { return it.ID }
func itemEqual(a, b item) bool     { return a == b }
func itemIdentical(a, b item) bool { return a.ID == b.ID }

// items parses items of the form "<id><value>", e.g. "1a".
func items(in ...string) (ret []item) {
	for _, s := range in {
		var it item
		fmt.Sscanf(s, "%d%s", &it.ID, &it.Value)
		ret = append(ret, it)
	}
	return ret
}

func TestKeyed(t *testing.T) {
	tests := []struct {
		name      string
		x, y      []item
		findMoves bool
		want      change.Batch
	}{
		{
			name:      "unchanged",
			x:         items("1a", "2b"),
			y:         items("1a", "2b"),
			findMoves: true,
		},
		{
			name:      "reload-in-place",
			x:         items("1a", "2b"),
			y:         items("1A", "2b"),
			findMoves: true,
			want: batch(
				change.ReloadItem{Index: 0, Old: item{1, "a"}, New: item{1, "A"}},
			),
		},
		{
			name: "reload-in-place-without-moves",
			x:    items("1a", "2b"),
			y:    items("1A", "2b"),
			want: batch(
				change.ReloadItem{Index: 0, Old: item{1, "a"}, New: item{1, "A"}},
			),
		},
		{
			name:      "reload-anchor",
			x:         items("1a", "2b", "3c"),
			y:         items("2B", "1a", "3c"),
			findMoves: true,
			want: batch(
				change.MoveItem{From: 0, To: 1},
				change.ReloadItem{Index: 0, Old: item{2, "b"}, New: item{2, "B"}},
			),
		},
		{
			name:      "move-with-reload",
			x:         items("1a", "2b"),
			y:         items("2b", "1A"),
			findMoves: true,
			want: batch(
				change.MoveItem{From: 0, To: 1},
				change.ReloadItem{Index: 1, Old: item{1, "a"}, New: item{1, "A"}},
			),
		},
		{
			name:      "delete-insert-reload",
			x:         items("1a", "2b", "3c"),
			y:         items("1a", "3C", "4d"),
			findMoves: true,
			want: batch(
				change.DeleteItems{Indices: []int{1}},
				change.InsertItems{Indices: []int{2}},
				change.ReloadItem{Index: 1, Old: item{3, "c"}, New: item{3, "C"}},
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options[item]{Equal: itemEqual, FindMoves: tt.findMoves}
			got := Keyed(tt.x, tt.y, itemKey, opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Keyed() result is different (-want, +got):\n%s", diff)
			}

			// The pairwise fallback has to come to the same result.
			opts.Identity = itemIdentical
			got = Func(tt.x, tt.y, opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Func() result is different (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestFuncDefaults(t *testing.T) {
	x := []int{1, 2}

	t.Run("identity-defaults-to-equal", func(t *testing.T) {
		got := Func(x, []int{2, 1}, Options[int]{
			Equal:     func(a, b int) bool { return a == b },
			FindMoves: true,
		})
		if diff := cmp.Diff(batch(change.MoveItem{From: 0, To: 1}), got); diff != "" {
			t.Errorf("Func() result is different (-want, +got):\n%s", diff)
		}
	})

	t.Run("nothing-is-identical", func(t *testing.T) {
		got := Func(x, x, Options[int]{FindMoves: true})
		want := batch(
			change.DeleteItems{Indices: []int{0, 1}},
			change.InsertItems{Indices: []int{0, 1}},
		)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Func() result is different (-want, +got):\n%s", diff)
		}
	})
}

func TestNonEquivalenceRelation(t *testing.T) {
	// a <= b is neither symmetric nor does it describe identity, the diff has to terminate with a
	// consistent batch anyway.
	r := rand.New(rand.NewPCG(7, 7))
	lessEq := func(a, b int) bool { return a <= b }
	for range 100 {
		x, y := randomInts(r, 12, 5), randomInts(r, 12, 5)
		for _, findMoves := range []bool{false, true} {
			b := Func(x, y, Options[int]{Identity: lessEq, FindMoves: findMoves})
			got, err := change.Apply(x, b, func(i int) int { return y[i] })
			if err != nil {
				t.Fatalf("Apply(%v, %v) failed: %v", x, b, err)
			}
			if len(got) != len(y) {
				t.Fatalf("Apply(%v, %v) has length %d, want %d", x, b, len(got), len(y))
			}
		}
	}
}

func randomInts(r *rand.Rand, maxLen, alphabet int) []int {
	ret := make([]int, r.IntN(maxLen+1))
	for i := range ret {
		ret[i] = r.IntN(alphabet)
	}
	return ret
}

func TestRandomReplay(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		// A small alphabet produces lots of duplicates.
		alphabet := 1 + r.IntN(20)
		x, y := randomInts(r, 30, alphabet), randomInts(r, 30, alphabet)
		for _, findMoves := range []bool{false, true} {
			checkReplay(t, x, y, Comparable(x, y, findMoves))
			checkReplay(t, x, y, Func(x, y, Options[int]{
				Equal:     func(a, b int) bool { return a == b },
				FindMoves: findMoves,
			}))

			b := Comparable(x, y, findMoves)
			if !findMoves {
				for _, c := range change.Leaves(b) {
					if c.Kind() == change.KindMoveItem {
						t.Fatalf("diff of %v and %v without moves contains %v", x, y, c)
					}
				}
			}
		}
	}
}

func TestRandomReplayWithReloads(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	random := func() []item {
		ret := make([]item, r.IntN(25))
		for i := range ret {
			ret[i] = item{ID: r.IntN(15), Value: string(rune('a' + r.IntN(3)))}
		}
		return ret
	}
	for range 500 {
		x, y := random(), random()
		for _, findMoves := range []bool{false, true} {
			opts := Options[item]{Equal: itemEqual, FindMoves: findMoves}
			checkReplay(t, x, y, Keyed(x, y, itemKey, opts))
			opts.Identity = itemIdentical
			checkReplay(t, x, y, Func(x, y, opts))
		}
	}
}

// checkReplay verifies that b transforms x into y and that it has the documented shape.
func checkReplay[T any](t *testing.T, x, y []T, b change.Batch) {
	t.Helper()

	got, err := change.Apply(x, b, func(i int) T { return y[i] })
	if err != nil {
		t.Fatalf("Apply(%v, %v) failed: %v", x, b, err)
	}
	if diff := cmp.Diff(y, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("Apply(%v, %v) result is different (-want, +got):\n%s", x, b, diff)
	}

	// Changes are ordered deletes, moves, inserts, reloads.
	var kinds []change.Kind
	for _, c := range b.Changes {
		kinds = append(kinds, c.Kind())
		switch c := c.(type) {
		case change.DeleteItems:
			if !slices.IsSorted(c.Indices) {
				t.Errorf("deletes %v are not sorted", c.Indices)
			}
		case change.InsertItems:
			if !slices.IsSorted(c.Indices) {
				t.Errorf("inserts %v are not sorted", c.Indices)
			}
		}
	}
	if !isOrdered(kinds) {
		t.Errorf("changes %v are not ordered deletes, moves, inserts, reloads", b)
	}
}

var order = map[change.Kind]int{
	change.KindDeleteItems: 0,
	change.KindMoveItem:    1,
	change.KindInsertItems: 2,
	change.KindReloadItem:  3,
}

func isOrdered(kinds []change.Kind) bool {
	return slices.IsSortedFunc(kinds, func(a, b change.Kind) int { return order[a] - order[b] })
}
