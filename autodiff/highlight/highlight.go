// Package highlight renders line diffs between two versions of an item as syntax highlighted
// HTML.
package highlight

import (
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"znkr.io/diff"
	"znkr.io/diff/textdiff"
)

var style = map[chroma.TokenType]string{
	chroma.Keyword:           "hl-b",
	chroma.KeywordConstant:   "hl-c",
	chroma.KeywordPseudo:     "",
	chroma.KeywordType:       "",
	chroma.NameTag:           "hl-b",
	chroma.NameBuiltin:       "hl-bl",
	chroma.LiteralString:     "hl-i",
	chroma.LiteralNumber:     "hl-c",
	chroma.Punctuation:       "hl-p",
	chroma.Comment:           "hl-ii",
	chroma.GenericDeleted:    "hl-del",
	chroma.GenericInserted:   "hl-ins",
	chroma.GenericHeading:    "hl-b",
	chroma.GenericStrong:     "hl-b",
	chroma.GenericEmph:       "hl-i",
	chroma.GenericSubheading: "hl-b",
}

type Option func(*highlighter)

// Lang selects the lexer by language name, e.g. "json" or "yaml". An empty or unknown name
// disables highlighting.
func Lang(lang string) Option {
	return func(o *highlighter) {
		if lang == "" {
			return
		}
		o.lexer = lexers.Get(lang)
	}
}

// LangFromFilename selects the lexer matching a file name.
func LangFromFilename(filename string) Option {
	return func(o *highlighter) {
		o.lexer = lexers.Match(filename)
	}
}

// Line is a single line of a diff.
type Line struct {
	Op      diff.Op
	Old     int // line number in the old text, 0 for inserted lines
	New     int // line number in the new text, 0 for deleted lines
	Text    string
	Content template.HTML // highlighted Text
}

func (l *Line) IsMatch() bool  { return l.Op == diff.Match }
func (l *Line) IsDelete() bool { return l.Op == diff.Delete }
func (l *Line) IsInsert() bool { return l.Op == diff.Insert }

// Prefix returns the prefix of the line in a unified diff.
func (l *Line) Prefix() string {
	switch l.Op {
	case diff.Delete:
		return "-"
	case diff.Insert:
		return "+"
	}
	return " "
}

// Diff computes a line diff between the old and new text and highlights every line.
func Diff(old, new string, opts ...Option) ([]Line, error) {
	hl := fromOptions(opts)

	edits := textdiff.Edits(old, new, textdiff.IndentHeuristic())

	ret := make([]Line, 0, len(edits))
	x, y := 0, 0
	for _, edit := range edits {
		text := strings.TrimSuffix(edit.Line, "\n")
		content, err := hl.highlight(text)
		if err != nil {
			return nil, err
		}
		ln := Line{Op: edit.Op, Text: text, Content: content}
		switch edit.Op {
		case diff.Match:
			x++
			y++
			ln.Old, ln.New = x, y
		case diff.Delete:
			x++
			ln.Old = x
		case diff.Insert:
			y++
			ln.New = y
		}
		ret = append(ret, ln)
	}
	return ret, nil
}

// Highlight highlights every line of text. All lines are matches.
func Highlight(text string, opts ...Option) ([]Line, error) {
	hl := fromOptions(opts)
	var ret []Line
	n := 0
	for l := range strings.Lines(text) {
		l = strings.TrimSuffix(l, "\n")
		content, err := hl.highlight(l)
		if err != nil {
			return nil, err
		}
		n++
		ret = append(ret, Line{Op: diff.Match, Old: n, New: n, Text: l, Content: content})
	}
	return ret, nil
}

// ParseDiff parses the body of a unified diff, as produced by [Unified], and highlights every
// line. Lines without a prefix are matches.
func ParseDiff(in string, opts ...Option) ([]Line, error) {
	hl := fromOptions(opts)
	var ret []Line
	x, y := 0, 0
	for l := range strings.Lines(in) {
		l = strings.TrimSuffix(l, "\n")
		var p byte
		if len(l) > 0 && (l[0] == '-' || l[0] == '+' || l[0] == ' ') {
			p, l = l[0], l[1:]
		}
		content, err := hl.highlight(l)
		if err != nil {
			return nil, err
		}
		ln := Line{Text: l, Content: content}
		switch p {
		default:
			x++
			y++
			ln.Op, ln.Old, ln.New = diff.Match, x, y
		case '-':
			x++
			ln.Op, ln.Old = diff.Delete, x
		case '+':
			y++
			ln.Op, ln.New = diff.Insert, y
		}
		ret = append(ret, ln)
	}
	return ret, nil
}

// Unified formats lines as the body of a unified diff, without hunk headers.
func Unified(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Prefix())
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

type highlighter struct {
	lexer chroma.Lexer
}

func fromOptions(opts []Option) *highlighter {
	hl := &highlighter{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(hl)
	}

	if hl.lexer == nil {
		hl.lexer = lexers.Fallback
	}
	hl.lexer = chroma.Coalesce(hl.lexer)
	return hl
}

func (hl *highlighter) highlight(line string) (template.HTML, error) {
	it, err := hl.lexer.Tokenise(nil, line)
	if err != nil {
		return "", fmt.Errorf("tokenising line: %w", err)
	}

	var sb strings.Builder
	for _, token := range it.Tokens() {
		value := strings.TrimSuffix(token.Value, "\n")
		if value == "" {
			continue
		}
		class := class(token.Type)
		if class != "" {
			fmt.Fprintf(&sb, "<span class=\"%s\">", class)
		}
		sb.WriteString(html.EscapeString(value))
		if class != "" {
			sb.WriteString("</span>")
		}
	}
	return template.HTML(sb.String()), nil
}

func class(t chroma.TokenType) string {
	if s, ok := style[t]; ok {
		return s
	}
	if s, ok := style[t.SubCategory()]; ok {
		return s
	}
	if s, ok := style[t.Category()]; ok {
		return s
	}
	return ""
}
