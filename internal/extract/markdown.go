package extract

import (
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Markdown extracts plain text from markdown using the goldmark AST.
// The whole file is one page; the first level-1 heading becomes the title.
type Markdown struct {
	parser goldmark.Markdown
}

// NewMarkdown creates a markdown extractor with table support.
func NewMarkdown() *Markdown {
	return &Markdown{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

func (m *Markdown) Extract(_ context.Context, path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, &ExtractionError{Path: path, Err: err}
	}

	title, body := m.render(content)
	doc := newDocument([]string{body})
	doc.Title = title
	return doc, nil
}

// render walks the AST, emitting block text separated by newlines.
func (m *Markdown) render(content []byte) (title, body string) {
	root := m.parser.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			newline()
			headingText := nodeText(node, content)
			if node.Level == 1 && title == "" {
				title = headingText
			}
			b.WriteString(headingText)
			b.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.List, *ast.ListItem, *ast.Blockquote:
			newline()
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			newline()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(content))
			}
			return ast.WalkSkipChildren, nil
		default:
			kindName := n.Kind().String()
			if kindName == "TableRow" || kindName == "TableHeader" {
				newline()
				b.WriteString(tableRowText(n, content))
				b.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})

	return title, strings.TrimSpace(b.String())
}

// nodeText extracts text content from a node and its children.
func nodeText(n ast.Node, content []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(content))
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// tableRowText joins cell texts with pipe separators.
func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, nodeText(c, content))
	}
	return strings.Join(cells, " | ")
}
