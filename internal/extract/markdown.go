package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New().Parser()

// extractMarkdown drops markup and code blocks. List items keep a "- " marker
// and the first level-1 heading is the title.
func extractMarkdown(content []byte) (*Document, error) {
	src := []byte(validUTF8(content))
	root := markdownParser.Parse(text.NewReader(src))

	doc := &Document{}
	var paras []string
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			line := inlineText(node, src)
			if node.Level == 1 && doc.Title == "" {
				doc.Title = line
			}
			paras = append(paras, line)
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			paras = append(paras, "- "+inlineText(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			paras = append(paras, inlineText(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	doc.Text = joinParagraphs(paras)
	return doc, nil
}

// inlineText concatenates the text leaves below n.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.TextBlock, *ast.Paragraph:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
