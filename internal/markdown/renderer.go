// Package markdown converts lecture descriptions authored in Markdown into
// the HTML shown in the portal and the plain text YouTube accepts.
package markdown

import (
	"bytes"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Renderer handles Markdown rendering.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a new Markdown renderer with extensions.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &Renderer{
		md: md,
	}
}

// Render converts Markdown to HTML. Raw HTML in the source is omitted.
func (r *Renderer) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PlainText flattens Markdown into text suitable for a YouTube description.
func (r *Renderer) PlainText(source []byte) string {
	doc := r.md.Parser().Parse(text.NewReader(source))
	return blocksText(doc, source, "\n\n")
}
