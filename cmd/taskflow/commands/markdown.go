// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// renderMarkdown renders a task description for the terminal.
// Paragraphs reflow to width, lists get bullets, and fenced code is
// indented and, with color on, syntax highlighted.
func renderMarkdown(source string, lip *lipgloss.Renderer, width int, color bool) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	input := []byte(source)
	document := parser().Parser().Parse(text.NewReader(input))

	renderer := &markdownWriter{
		source: input,
		lip:    lip,
		width:  max(width, 20),
		color:  color,
	}
	ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

type markdownWriter struct {
	source []byte
	lip    *lipgloss.Renderer
	width  int
	color  bool

	output strings.Builder
	inline strings.Builder

	// indent is the prefix for continuation lines inside list items.
	indent string
	// bullet replaces indent on the next flushed line.
	bullet string
	lists  []listLevel

	bold   int
	italic int
	strike int
}

type listLevel struct {
	ordered bool
	next    int
	tight   bool
}

func (w *markdownWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			w.inline.Reset()
			return ast.WalkContinue, nil
		}
		w.flush(w.inline.String())
		if len(w.lists) == 0 || !w.lists[len(w.lists)-1].tight {
			w.blankLine()
		}

	case ast.KindHeading:
		if entering {
			w.inline.Reset()
			return ast.WalkContinue, nil
		}
		heading := w.lip.NewStyle().Bold(true)
		if node.(*ast.Heading).Level <= 2 {
			heading = heading.Underline(true)
		}
		w.flush(heading.Render(ansi.Strip(w.inline.String())))
		w.blankLine()

	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			w.code(node)
		}
		return ast.WalkSkipChildren, nil

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			w.lists = append(w.lists, listLevel{ordered: list.IsOrdered(), next: list.Start, tight: list.IsTight})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if len(w.lists) == 0 {
				w.blankLine()
			}
		}

	case ast.KindListItem:
		level := &w.lists[len(w.lists)-1]
		if entering {
			marker := "• "
			if level.ordered {
				marker = fmt.Sprintf("%d. ", level.next)
				level.next++
			}
			w.bullet = w.indent + marker
			w.indent += strings.Repeat(" ", ansi.StringWidth(marker))
		} else {
			w.indent = w.indent[:len(w.indent)-ansi.StringWidth(w.lastMarker(level))]
		}

	case ast.KindThematicBreak:
		if entering {
			w.output.WriteString(w.lip.NewStyle().Faint(true).Render(strings.Repeat("─", min(w.width, 40))))
			w.blankLine()
		}

	case ast.KindText:
		if entering {
			segment := node.(*ast.Text)
			w.inline.WriteString(w.styled(string(segment.Segment.Value(w.source))))
			if segment.SoftLineBreak() {
				w.inline.WriteString(" ")
			}
			if segment.HardLineBreak() {
				w.inline.WriteString("\n")
			}
		}

	case ast.KindString:
		if entering {
			w.inline.WriteString(w.styled(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		count := &w.italic
		if node.(*ast.Emphasis).Level >= 2 {
			count = &w.bold
		}
		if entering {
			*count++
		} else {
			*count--
		}

	case extast.KindStrikethrough:
		if entering {
			w.strike++
		} else {
			w.strike--
		}

	case ast.KindCodeSpan:
		if entering {
			var content strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				if segment, ok := child.(*ast.Text); ok {
					content.Write(segment.Segment.Value(w.source))
				}
			}
			w.inline.WriteString(w.lip.NewStyle().Foreground(lipgloss.Color("180")).Render(content.String()))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindLink:
		if !entering {
			link := node.(*ast.Link)
			w.inline.WriteString(w.lip.NewStyle().Faint(true).Render(" (" + string(link.Destination) + ")"))
		}

	case ast.KindAutoLink:
		if entering {
			w.inline.WriteString(w.lip.NewStyle().Underline(true).Render(string(node.(*ast.AutoLink).URL(w.source))))
		}
		return ast.WalkSkipChildren, nil

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				w.inline.WriteString("[x] ")
			} else {
				w.inline.WriteString("[ ] ")
			}
		}
	}
	return ast.WalkContinue, nil
}

func (w *markdownWriter) lastMarker(level *listLevel) string {
	if level.ordered {
		return fmt.Sprintf("%d. ", level.next-1)
	}
	return "• "
}

func (w *markdownWriter) styled(content string) string {
	if w.bold == 0 && w.italic == 0 && w.strike == 0 {
		return content
	}
	return w.lip.NewStyle().
		Bold(w.bold > 0).
		Italic(w.italic > 0).
		Strikethrough(w.strike > 0).
		Render(content)
}

// flush wraps content to the width left after the indent and writes it
// with the pending bullet on the first line.
func (w *markdownWriter) flush(content string) {
	w.inline.Reset()
	content = strings.TrimRight(content, " \n")
	if content == "" {
		return
	}
	wrapped := ansi.Wrap(content, max(w.width-ansi.StringWidth(w.indent), 10), " -")
	for index, line := range strings.Split(wrapped, "\n") {
		prefix := w.indent
		if index == 0 && w.bullet != "" {
			prefix = w.bullet
			w.bullet = ""
		}
		w.output.WriteString(prefix + strings.TrimRight(line, " ") + "\n")
	}
}

func (w *markdownWriter) code(node ast.Node) {
	var body strings.Builder
	lines := node.Lines()
	for i := range lines.Len() {
		segment := lines.At(i)
		body.Write(segment.Value(w.source))
	}
	source := strings.TrimRight(body.String(), "\n")

	if w.color {
		language := ""
		if fenced, ok := node.(*ast.FencedCodeBlock); ok {
			language = string(fenced.Language(w.source))
		}
		if language != "" {
			var highlighted strings.Builder
			if err := quick.Highlight(&highlighted, source, language, "terminal256", "monokai"); err == nil {
				source = strings.TrimRight(highlighted.String(), "\n")
			}
		}
	}

	for _, line := range strings.Split(source, "\n") {
		w.output.WriteString(w.indent + "    " + line + "\n")
	}
	w.blankLine()
}

func (w *markdownWriter) blankLine() {
	current := w.output.String()
	if current == "" || strings.HasSuffix(current, "\n\n") {
		return
	}
	if !strings.HasSuffix(current, "\n") {
		w.output.WriteString("\n")
	}
	w.output.WriteString("\n")
}
