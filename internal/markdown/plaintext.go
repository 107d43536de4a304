// Package markdown reduces markdown-formatted model replies to plain text.
package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var blankRun = regexp.MustCompile(`\n{3,}`)

// Stripper removes markdown syntax while keeping the words, line structure
// and list numbering a reader would see.
type Stripper struct {
	parser goldmark.Markdown
}

// NewStripper creates a Stripper backed by a CommonMark goldmark parser.
func NewStripper() *Stripper {
	return &Stripper{
		parser: goldmark.New(),
	}
}

// PlainText renders source without markup. Emphasis, headings, links and
// code fences disappear; list items become "- " or "n. " lines.
func (s *Stripper) PlainText(source []byte) string {
	doc := s.parser.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				sb.Write(node.Label(source))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(source))
				}
				sb.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				sb.WriteString(listPrefix(node))
			}
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock, *ast.Blockquote, *ast.List:
			if !entering {
				sb.WriteByte('\n')
				if node.Kind() != ast.KindTextBlock && !insideList(n) {
					sb.WriteByte('\n')
				}
			}
		}
		return ast.WalkContinue, nil
	})

	out := blankRun.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out)
}

func listPrefix(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	n := list.Start
	for sib := item.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		n++
	}
	return strconv.Itoa(n) + ". "
}

func insideList(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == ast.KindListItem {
			return true
		}
	}
	return false
}
