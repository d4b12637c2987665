package utils

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n?(.*?)\\n?```$")

// StripCodeFences removes one outer markdown code fence (```json ... ```,
// ```markdown ... ```, or bare ```), returning the trimmed inner text.
func StripCodeFences(input string) string {
	cleaned := strings.TrimSpace(input)
	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Unterminated fence: the model stopped before closing it.
	if strings.HasPrefix(cleaned, "```") {
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 {
			return strings.TrimSpace(cleaned[nl+1:])
		}
	}
	return cleaned
}

// CleanMarkdown strips an outer code block so the result is plain Markdown.
func CleanMarkdown(input string) string {
	return StripCodeFences(input)
}

// PlainText renders Markdown as plain text: emphasis, headings and links are
// reduced to their text, list items keep a "• " bullet, paragraphs are
// separated by blank lines.
func PlainText(markdown string) string {
	src := []byte(CleanMarkdown(markdown))
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.ListItem:
			if entering {
				b.WriteString("• ")
			} else {
				endLine(&b)
			}
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				if _, inList := node.Parent().(*ast.ListItem); !inList {
					endLine(&b)
					b.WriteByte('\n')
				}
			}
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.URL(src))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				endLine(&b)
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})

	out := strings.TrimSpace(b.String())
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return out
}

func endLine(b *strings.Builder) {
	s := b.String()
	if len(s) > 0 && s[len(s)-1] != '\n' {
		b.WriteByte('\n')
	}
}
