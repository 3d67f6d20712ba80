// Package markdown renders chunk markdown into short plain-text previews.
package markdown

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

const DefaultPreviewRunes = 300

// Previewer strips markdown syntax and truncates to a rune budget.
type Previewer struct {
	md    goldmark.Markdown
	limit int
}

func NewPreviewer(limit int) *Previewer {
	if limit <= 0 {
		limit = DefaultPreviewRunes
	}
	return &Previewer{md: goldmark.New(), limit: limit}
}

func (p *Previewer) Preview(markdown string) string {
	src := []byte(markdown)
	doc := p.md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			var raw bytes.Buffer
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				raw.Write(line.Value(src))
			}
			b.WriteString(htmlText(raw.Bytes()))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(src))
				b.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return truncate(strings.Join(strings.Fields(b.String()), " "), p.limit)
}

// htmlText keeps the text content of an HTML fragment, e.g. a table emitted by
// a parser, and drops script and style bodies.
func htmlText(raw []byte) string {
	z := html.NewTokenizer(bytes.NewReader(raw))
	var b strings.Builder
	skipping := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) {
				skipping++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) && skipping > 0 {
				skipping--
			}
		case html.TextToken:
			if skipping == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isHiddenTag(name []byte) bool {
	return string(name) == "script" || string(name) == "style"
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
