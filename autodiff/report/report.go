// Package report renders the changes between two sequences of records for humans and machines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"znkr.io/datasource/autodiff/highlight"
	"znkr.io/datasource/autodiff/records"
	"znkr.io/datasource/change"
)

// Report describes a single update of a sequence of records.
type Report struct {
	Seq      int // number of the update, starting at 1
	Title    string
	Time     time.Time
	Old, New []records.Record
	Batch    change.Batch
	Lang     string // highlighting language of reloaded values, guessed if empty
}

// Entry is a single change of a report resolved against the records it refers to.
type Entry struct {
	Change change.Change
	Record records.Record // the record after the change, or the deleted record
	Old    records.Record // the record before a reload
	Diff   []highlight.Line
}

func (e *Entry) Kind() change.Kind { return e.Change.Kind() }

// Position describes where the change happened, in the index frame of the change.
func (e *Entry) Position() string {
	switch c := e.Change.(type) {
	case change.MoveItem:
		return fmt.Sprintf("%d → %d", c.From, c.To)
	case change.ReloadItem:
		return fmt.Sprint(c.Index)
	}
	return ""
}

// Entries resolves every change of the report against its records. Item changes with multiple
// indices are split into one entry per index. Section changes are skipped, records have only
// one section.
func (r *Report) Entries() ([]Entry, error) {
	var ret []Entry
	for _, c := range change.Leaves(r.Batch) {
		switch c := c.(type) {
		case change.DeleteItems:
			for _, i := range c.Indices {
				rec, err := at(r.Old, i)
				if err != nil {
					return nil, fmt.Errorf("resolving %v: %w", c, err)
				}
				ret = append(ret, Entry{Change: change.DeleteItems{Indices: []int{i}}, Record: rec})
			}
		case change.InsertItems:
			for _, i := range c.Indices {
				rec, err := at(r.New, i)
				if err != nil {
					return nil, fmt.Errorf("resolving %v: %w", c, err)
				}
				ret = append(ret, Entry{Change: change.InsertItems{Indices: []int{i}}, Record: rec})
			}
		case change.MoveItem:
			rec, err := at(r.New, c.To)
			if err != nil {
				return nil, fmt.Errorf("resolving %v: %w", c, err)
			}
			ret = append(ret, Entry{Change: c, Record: rec})
		case change.ReloadItem:
			rec, err := at(r.New, c.Index)
			if err != nil {
				return nil, fmt.Errorf("resolving %v: %w", c, err)
			}
			old, ok := c.Old.(records.Record)
			if !ok {
				return nil, fmt.Errorf("resolving %v: unexpected item type %T", c, c.Old)
			}
			lines, err := r.diff(old.Value, rec.Value)
			if err != nil {
				return nil, fmt.Errorf("diffing %v: %w", c, err)
			}
			ret = append(ret, Entry{Change: c, Record: rec, Old: old, Diff: lines})
		}
	}
	return ret, nil
}

func at(recs []records.Record, i int) (records.Record, error) {
	if i < 0 || i >= len(recs) {
		return records.Record{}, fmt.Errorf("index %d out of range [0, %d)", i, len(recs))
	}
	return recs[i], nil
}

func (r *Report) diff(old, new string) ([]highlight.Line, error) {
	lang := r.Lang
	if lang == "" && isJSON(old) && isJSON(new) {
		lang = "json"
	}
	return highlight.Diff(pretty(old), pretty(new), highlight.Lang(lang))
}

func isJSON(s string) bool {
	return (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) && json.Valid([]byte(s))
}

// pretty indents JSON objects and arrays to get a meaningful line diff.
func pretty(s string) string {
	if !isJSON(s) {
		return s + "\n"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s + "\n"
	}
	buf.WriteByte('\n')
	return buf.String()
}

// Summary counts the changes of b by kind, e.g. "2 deleted, 1 moved".
func Summary(b change.Batch) string {
	var deleted, inserted, moved, reloaded int
	for _, c := range change.Leaves(b) {
		switch c := c.(type) {
		case change.DeleteItems:
			deleted += len(c.Indices)
		case change.InsertItems:
			inserted += len(c.Indices)
		case change.MoveItem:
			moved++
		case change.ReloadItem:
			reloaded++
		}
	}

	var parts []string
	for _, p := range []struct {
		n    int
		verb string
	}{
		{deleted, "deleted"},
		{moved, "moved"},
		{inserted, "inserted"},
		{reloaded, "reloaded"},
	} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.verb))
		}
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// Text writes one line per change to w. Reloads are followed by an indented line diff.
func Text(w io.Writer, r *Report) error {
	entries, err := r.Entries()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, e := range entries {
		switch c := e.Change.(type) {
		case change.DeleteItems:
			fmt.Fprintf(&buf, "delete %d: %s\n", c.Indices[0], e.Record)
		case change.InsertItems:
			fmt.Fprintf(&buf, "insert %d: %s\n", c.Indices[0], e.Record)
		case change.MoveItem:
			fmt.Fprintf(&buf, "move %d -> %d: %s\n", c.From, c.To, e.Record)
		case change.ReloadItem:
			fmt.Fprintf(&buf, "reload %d: %s\n", c.Index, e.Record.Key)
			for _, l := range e.Diff {
				fmt.Fprintf(&buf, "    %s%s\n", l.Prefix(), l.Text)
			}
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// Markdown renders the report as a Markdown document with one section per kind of change.
func Markdown(r *Report) ([]byte, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", r.Title)
	fmt.Fprintf(&buf, "%s", Summary(r.Batch))
	if !r.Time.IsZero() {
		fmt.Fprintf(&buf, " (%s)", r.Time.UTC().Format(time.RFC3339))
	}
	buf.WriteString("\n")

	sections := []struct {
		kind  change.Kind
		title string
	}{
		{change.KindDeleteItems, "Deleted"},
		{change.KindMoveItem, "Moved"},
		{change.KindInsertItems, "Inserted"},
	}
	for _, s := range sections {
		first := true
		for _, e := range entries {
			if e.Kind() != s.kind {
				continue
			}
			if first {
				fmt.Fprintf(&buf, "\n## %s\n\n", s.title)
				first = false
			}
			switch c := e.Change.(type) {
			case change.DeleteItems:
				fmt.Fprintf(&buf, "- %d: %s\n", c.Indices[0], code(e.Record.String()))
			case change.InsertItems:
				fmt.Fprintf(&buf, "- %d: %s\n", c.Indices[0], code(e.Record.String()))
			case change.MoveItem:
				fmt.Fprintf(&buf, "- %d → %d: %s\n", c.From, c.To, code(e.Record.String()))
			}
		}
	}

	first := true
	for _, e := range entries {
		if e.Kind() != change.KindReloadItem {
			continue
		}
		if first {
			buf.WriteString("\n## Reloaded\n")
			first = false
		}
		fmt.Fprintf(&buf, "\n### %s %s\n\n", e.Position(), code(e.Record.Key))
		fence := fence(e.Diff)
		fmt.Fprintf(&buf, "%sdiff\n%s%s\n", fence, highlight.Unified(e.Diff), fence)
	}
	return buf.Bytes(), nil
}

// code formats s as inline code.
func code(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if !strings.Contains(s, "`") {
		return "`" + s + "`"
	}
	return "`` " + s + " ``"
}

// fence returns a code fence that doesn't occur in any line.
func fence(lines []highlight.Line) string {
	f := "```"
	for _, l := range lines {
		for strings.Contains(l.Text, f) {
			f += "`"
		}
	}
	return f
}
