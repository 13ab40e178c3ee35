package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/toc"

	"znkr.io/datasource/autodiff/highlight"
)

//go:embed page.html.tmpl
var pageTemplate string

var page = template.Must(template.New("page").Parse(pageTemplate))

// Page configures the HTML page around a report.
type Page struct {
	// Live makes the page reload itself whenever the changes websocket at LiveURL publishes a
	// change.
	Live    bool
	LiveURL string
}

// HTML renders the report as a standalone HTML page.
func HTML(r *Report, p Page) ([]byte, error) {
	md, err := Markdown(r)
	if err != nil {
		return nil, err
	}
	content, nav, err := Render(md, r.Lang)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = page.Execute(&buf, struct {
		Title   string
		TOC     template.HTML
		Content template.HTML
		Page    Page
	}{
		Title:   r.Title,
		TOC:     template.HTML(nav),
		Content: template.HTML(content),
		Page:    p,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}
	return buf.Bytes(), nil
}

// Render converts Markdown to HTML. It returns the HTML content and a table of contents of all
// headings below the title. Fenced code blocks are highlighted, diff blocks line by line using
// lang for the content.
func Render(data []byte, lang string) (content, nav []byte, err error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(&codeRenderer{lang: lang}, 100)),
		),
	)

	root := md.Parser().Parse(text.NewReader(data))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, data, root); err != nil {
		return nil, nil, fmt.Errorf("rendering markdown: %w", err)
	}
	content = bytes.Clone(buf.Bytes())

	tree, err := toc.Inspect(root, data, toc.MinDepth(2))
	if err != nil {
		return nil, nil, fmt.Errorf("building table of contents: %w", err)
	}
	list := toc.RenderList(tree)
	if list == nil {
		return content, nil, nil
	}
	buf.Reset()
	if err := md.Renderer().Render(&buf, data, list); err != nil {
		return nil, nil, fmt.Errorf("rendering table of contents: %w", err)
	}
	return content, buf.Bytes(), nil
}

// codeRenderer highlights fenced code blocks.
type codeRenderer struct {
	lang string // language of diff lines
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := range lines.Len() {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lang := string(n.Language(source))
	var (
		hl  []highlight.Line
		err error
	)
	if lang == "diff" {
		hl, err = highlight.ParseDiff(code.String(), highlight.Lang(r.lang))
	} else {
		hl, err = highlight.Highlight(code.String(), highlight.Lang(lang))
	}
	if err != nil {
		return ast.WalkStop, err
	}

	fmt.Fprintf(w, "<pre class=\"code %s\"><code>", template.HTMLEscapeString(lang))
	for _, l := range hl {
		switch {
		case lang != "diff":
			fmt.Fprintf(w, "%s\n", l.Content)
		case l.IsDelete():
			fmt.Fprintf(w, "<span class=\"del\">-%s</span>\n", l.Content)
		case l.IsInsert():
			fmt.Fprintf(w, "<span class=\"ins\">+%s</span>\n", l.Content)
		default:
			fmt.Fprintf(w, " %s\n", l.Content)
		}
	}
	w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}
