package report

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/tools/blog/atom"
)

// FeedID returns a tag URI (RFC 4151) identifying the feed of a report series on title that
// started at t.
func FeedID(title string, t time.Time) string {
	return fmt.Sprintf("tag:autodiff.znkr.io,%s:%s", t.UTC().Format(time.DateOnly), url.PathEscape(title))
}

// Feed renders the reports as an Atom feed, newest first. id identifies the feed, see [FeedID],
// entry IDs are derived from it. self is the URL of the feed.
func Feed(id, title, self string, reports []*Report) ([]byte, error) {
	feed := atom.Feed{
		Title: title,
		ID:    id,
		Link: []atom.Link{{
			Rel:  "self",
			Href: self,
		}},
	}

	var updated time.Time
	for i := len(reports) - 1; i >= 0; i-- {
		r := reports[i]
		if r.Time.After(updated) {
			updated = r.Time
		}

		md, err := Markdown(r)
		if err != nil {
			return nil, err
		}
		content, _, err := Render(md, r.Lang)
		if err != nil {
			return nil, err
		}

		feed.Entry = append(feed.Entry, &atom.Entry{
			Title:     fmt.Sprintf("#%d: %s", r.Seq, Summary(r.Batch)),
			ID:        fmt.Sprintf("%s/%d", id, r.Seq),
			Published: atom.Time(r.Time),
			Updated:   atom.Time(r.Time),
			Summary: &atom.Text{
				Type: "text",
				Body: Summary(r.Batch),
			},
			Content: &atom.Text{
				Type: "html",
				Body: string(content),
			},
			Author: &atom.Person{
				Name: "autodiff",
			},
		})
	}
	feed.Updated = atom.Time(updated)

	b, err := xml.Marshal(feed)
	if err != nil {
		return nil, fmt.Errorf("encoding feed: %w", err)
	}
	return append([]byte(xml.Header), b...), nil
}
