package datasource

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"znkr.io/datasource/change"
)

func TestMapped(t *testing.T) {
	src := NewComparable([]int{1, 2, 3}, WithFindMoves[int](true))
	m := Map(src, strconv.Itoa)

	var rec, inner recorder
	m.Subscribe(rec.record)
	src.Subscribe(inner.record)
	mv := newMirror[string](t, m)

	src.SetItems([]int{3, 1, 2, 4})
	src.SetItems([]int{3, 4})

	if diff := cmp.Diff(inner.changes, rec.changes); diff != "" {
		t.Errorf("forwarded changes are different (-inner, +mapped):\n%s", diff)
	}
	mv.check([]string{"3", "4"})

	if got := m.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	if _, err := m.Item(2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Item(2) error = %v, want %v", err, ErrOutOfRange)
	}
	if m.Inner() != DataSource[int](src) {
		t.Errorf("Inner() doesn't return the wrapped data source")
	}
}

func TestMappedSupplementaryItems(t *testing.T) {
	src := NewComparable([]int{1}, WithSupplementaryItems[int](map[string]any{
		"header": "numbers",
		"footer": 1,
	}))

	plain := Map(src, strconv.Itoa)
	if v, ok := plain.SupplementaryItem("header", 0); !ok || v != "numbers" {
		t.Errorf(`SupplementaryItem("header", 0) = %v, %v, want "numbers", true`, v, ok)
	}
	if v, ok := plain.SupplementaryItem("missing", 0); ok {
		t.Errorf(`SupplementaryItem("missing", 0) = %v, %v, want nil, false`, v, ok)
	}

	upper := Map(src, strconv.Itoa, WithSupplementaryTransform(func(kind string, v any) any {
		switch kind {
		case "header":
			return strings.ToUpper(v.(string))
		case "count":
			return src.Len()
		}
		return nil
	}))
	tests := []struct {
		kind   string
		want   any
		wantOK bool
	}{
		{"header", "NUMBERS", true},
		{"footer", nil, false},
		{"count", 1, true},
	}
	for _, tt := range tests {
		v, ok := upper.SupplementaryItem(tt.kind, 0)
		if v != tt.want || ok != tt.wantOK {
			t.Errorf("SupplementaryItem(%q, 0) = %v, %v, want %v, %v", tt.kind, v, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMappedClose(t *testing.T) {
	src := NewComparable([]int{1})
	m := Map(src, strconv.Itoa)
	var rec recorder
	sub := m.Subscribe(rec.record)

	m.Close()
	src.SetItems([]int{1, 2})

	if len(rec.changes) != 0 {
		t.Errorf("received %v after Close()", rec.changes)
	}
	select {
	case <-sub.Done():
	default:
		t.Errorf("Done() not closed after Close()")
	}
	if got, _ := m.Item(1); got != "2" {
		t.Errorf(`Item(1) = %q after Close(), want "2"`, got)
	}
}

func TestMappedChain(t *testing.T) {
	src := NewComparable([]int{1, 2})
	doubled := Map(src, func(v int) int { return 2 * v })
	labels := Map[int, string](doubled, func(v int) string { return "#" + strconv.Itoa(v) })
	mv := newMirror[string](t, labels)

	var got []change.Change
	labels.Subscribe(func(c change.Change) { got = append(got, c) })
	src.SetItems([]int{2, 3})

	if len(got) != 1 {
		t.Fatalf("received %d changes, want 1", len(got))
	}
	mv.check([]string{"#4", "#6"})
}

func TestLeaf(t *testing.T) {
	src := NewComparable(seq(1, 6))
	f := FilterComparable(src, even)
	labels := Map(f, strconv.Itoa)

	tests := []struct {
		ds        any
		i         int
		wantDS    any
		wantIndex int
	}{
		{src, 2, src, 2},
		{f, 1, src, 3},
		{labels, 2, src, 5},
		{f, 3, f, 3},
		{labels, -1, f, -1},
	}
	for _, tt := range tests {
		ds, i := Leaf(tt.ds, tt.i)
		if ds != tt.wantDS || i != tt.wantIndex {
			t.Errorf("Leaf(%T, %d) = %T, %d, want %T, %d", tt.ds, tt.i, ds, i, tt.wantDS, tt.wantIndex)
		}
	}

	src.SetItems([]int{6, 5, 4})
	if ds, i := Leaf(labels, 1); ds != any(src) || i != 2 {
		t.Errorf("Leaf(labels, 1) = %T, %d after update, want %T, 2", ds, i, src)
	}
}
