package report

import (
	"encoding/json"
	"fmt"
	"time"

	"znkr.io/datasource/autodiff/records"
	"znkr.io/datasource/change"
)

// Change is the JSON encoding of a leaf change.
type Change struct {
	Kind     string `json:"kind"`
	Indices  []int  `json:"indices,omitempty"`
	Sections []int  `json:"sections,omitempty"`
	From     *int   `json:"from,omitempty"`
	To       *int   `json:"to,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Old      any    `json:"old,omitempty"`
	New      any    `json:"new,omitempty"`
}

// Changes encodes all leaves of c in emission order.
func Changes(c change.Change) []Change {
	leaves := change.Leaves(c)
	ret := make([]Change, 0, len(leaves))
	for _, c := range leaves {
		enc := Change{Kind: c.Kind().String()}
		switch c := c.(type) {
		case change.InsertItems:
			enc.Indices = c.Indices
		case change.DeleteItems:
			enc.Indices = c.Indices
		case change.MoveItem:
			enc.From, enc.To = &c.From, &c.To
		case change.ReloadItem:
			enc.Index, enc.Old, enc.New = &c.Index, c.Old, c.New
		case change.InsertSections:
			enc.Sections = c.Sections
		case change.DeleteSections:
			enc.Sections = c.Sections
		}
		ret = append(ret, enc)
	}
	return ret
}

// Document is the JSON encoding of a report.
type Document struct {
	Seq     int              `json:"seq,omitempty"`
	Title   string           `json:"title"`
	Time    time.Time        `json:"time,omitzero"`
	Summary string           `json:"summary"`
	Changes []Change         `json:"changes"`
	Items   []records.Record `json:"items"`
}

// NewDocument returns the JSON document of r.
func NewDocument(r *Report) *Document {
	items := r.New
	if items == nil {
		items = []records.Record{}
	}
	return &Document{
		Seq:     r.Seq,
		Title:   r.Title,
		Time:    r.Time,
		Summary: Summary(r.Batch),
		Changes: Changes(r.Batch),
		Items:   items,
	}
}

// JSON encodes the report as an indented JSON document.
func JSON(r *Report) ([]byte, error) {
	b, err := json.MarshalIndent(NewDocument(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(b, '\n'), nil
}
