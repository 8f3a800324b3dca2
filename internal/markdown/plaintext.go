package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// blocksText joins the text of parent's child blocks with sep. List items
// and table rows use one line each.
func blocksText(parent ast.Node, src []byte, sep string) string {
	var parts []string
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if s := blockText(n, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func blockText(n ast.Node, src []byte) string {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
		return strings.TrimRight(inlineText(n, src), "\n")
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return codeText(n, src)
	case *ast.List:
		var items []string
		for li := n.FirstChild(); li != nil; li = li.NextSibling() {
			items = append(items, "- "+listItemText(li, src))
		}
		return strings.Join(items, "\n")
	case *ast.ThematicBreak:
		return "---"
	case *ast.HTMLBlock:
		return ""
	case *east.Table:
		var rows []string
		for row := n.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, strings.TrimSpace(inlineText(cell, src)))
			}
			rows = append(rows, strings.Join(cells, " | "))
		}
		return strings.Join(rows, "\n")
	default:
		return blocksText(n, src, "\n\n")
	}
}

func listItemText(li ast.Node, src []byte) string {
	var parts []string
	for c := li.FirstChild(); c != nil; c = c.NextSibling() {
		s := blockText(c, src)
		if s == "" {
			continue
		}
		if _, nested := c.(*ast.List); nested {
			s = "  " + strings.ReplaceAll(s, "\n", "\n  ")
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

func codeText(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	writeInline(&b, n, src)
	return b.String()
}

func writeInline(b *strings.Builder, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.HardLineBreak() || c.SoftLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.Link:
			label := inlineText(c, src)
			dest := string(c.Destination)
			if label == "" || label == dest {
				b.WriteString(dest)
			} else {
				fmt.Fprintf(b, "%s (%s)", label, dest)
			}
		case *ast.AutoLink:
			b.Write(c.URL(src))
		case *ast.RawHTML:
			// dropped
		case *east.TaskCheckBox:
			if c.IsChecked {
				b.WriteString("[x] ")
			} else {
				b.WriteString("[ ] ")
			}
		default:
			writeInline(b, c, src)
		}
	}
}
