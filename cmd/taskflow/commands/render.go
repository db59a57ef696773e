// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 100

func isTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

// printer writes human-readable output. Styling is dropped entirely
// when color is off, so piped output and tests see plain text.
type printer struct {
	out   io.Writer
	lip   *lipgloss.Renderer
	width int
	color bool

	bold  lipgloss.Style
	faint lipgloss.Style
	warn  lipgloss.Style
}

func (env *environment) printer() *printer {
	lip := lipgloss.NewRenderer(env.stdout)
	if env.color {
		lip.SetColorProfile(termenv.ANSI256)
	} else {
		lip.SetColorProfile(termenv.Ascii)
	}

	width := defaultWidth
	if file, ok := env.stdout.(*os.File); ok && isTerminal(file) {
		if columns, _, err := term.GetSize(int(file.Fd())); err == nil && columns > 0 {
			width = columns
		}
	}

	return &printer{
		out:   env.stdout,
		lip:   lip,
		width: width,
		color: env.color,
		bold:  lip.NewStyle().Bold(true),
		faint: lip.NewStyle().Foreground(lipgloss.Color("245")),
		warn:  lip.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) warnings(warnings []string) {
	for _, warning := range warnings {
		p.printf("%s %s\n", p.warn.Render("warning:"), warning)
	}
}

var statusColors = map[task.Status]lipgloss.Color{
	task.StatusPending:    lipgloss.Color("245"),
	task.StatusInProgress: lipgloss.Color("214"),
	task.StatusCompleted:  lipgloss.Color("42"),
	task.StatusCancelled:  lipgloss.Color("203"),
}

var priorityColors = map[task.Priority]lipgloss.Color{
	task.PriorityUrgent: lipgloss.Color("196"),
	task.PriorityHigh:   lipgloss.Color("208"),
	task.PriorityMedium: lipgloss.Color("252"),
	task.PriorityLow:    lipgloss.Color("245"),
}

func (p *printer) status(status task.Status) string {
	return p.lip.NewStyle().Foreground(statusColors[status]).Render(string(status))
}

func (p *printer) priority(priority task.Priority) string {
	style := p.lip.NewStyle().Foreground(priorityColors[priority])
	if priority == task.PriorityUrgent {
		style = style.Bold(true)
	}
	return style.Render(string(priority))
}

// taskRef renders "#12 Title" with the focus marker.
func (p *printer) taskRef(t task.Task) string {
	marker := ""
	if t.Focused() && t.Status == task.StatusInProgress {
		marker = " " + p.warn.Render("*")
	}
	return fmt.Sprintf("%s %s%s", p.bold.Render(fmt.Sprintf("#%d", t.ID)), t.Title, marker)
}

// table writes tasks as aligned columns, truncating titles to fit the
// output width.
func (p *printer) table(tasks []task.Task) {
	headers := []string{"ID", "STATUS", "PRIORITY", "MODULE", "TITLE"}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		module := t.Module
		if module == "" {
			module = "-"
		}
		title := t.Title
		if t.ExternalID != "" {
			title += p.faint.Render(" (" + t.ExternalProvider + "#" + t.ExternalID + ")")
		}
		if t.Focused() && t.Status == task.StatusInProgress {
			title += " " + p.warn.Render("*")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.ID),
			p.status(t.Status),
			p.priority(t.Priority),
			module,
			title,
		})
	}

	widths := make([]int, len(headers))
	for column, header := range headers {
		widths[column] = ansi.StringWidth(header)
	}
	for _, row := range rows {
		for column, cell := range row[:len(row)-1] {
			widths[column] = max(widths[column], ansi.StringWidth(cell))
		}
	}

	used := 0
	for _, width := range widths[:len(widths)-1] {
		used += width + 2
	}
	titleWidth := max(p.width-used, 20)

	writeRow := func(cells []string) {
		var line strings.Builder
		for column, cell := range cells {
			if column == len(cells)-1 {
				line.WriteString(ansi.Truncate(cell, titleWidth, "…"))
				break
			}
			line.WriteString(cell)
			line.WriteString(strings.Repeat(" ", widths[column]-ansi.StringWidth(cell)+2))
		}
		p.printf("%s\n", strings.TrimRight(line.String(), " "))
	}

	styled := make([]string, len(headers))
	for column, header := range headers {
		styled[column] = p.bold.Render(header)
	}
	writeRow(styled)
	for _, row := range rows {
		writeRow(row)
	}
}

// detail writes one task with its notes.
func (p *printer) detail(detail task.Detail) {
	t := detail.Task
	p.printf("%s\n", p.taskRef(t))

	field := func(name, value string) {
		if value == "" {
			return
		}
		p.printf("  %s %s\n", p.faint.Render(fmt.Sprintf("%-10s", name+":")), value)
	}
	field("Status", p.status(t.Status))
	field("Priority", p.priority(t.Priority))
	field("Module", t.Module)
	field("Branch", t.Branch)
	field("Created", formatTime(t.CreatedAt)+" by "+t.CreatedBy)
	if t.CompletedAt != nil {
		field("Completed", formatTime(*t.CompletedAt))
	}
	if t.ExternalID != "" {
		field("Issue", fmt.Sprintf("%s#%s %s", t.ExternalProvider, t.ExternalID, t.ExternalURL))
	}
	if t.LastSyncedAt != nil {
		field("Synced", formatTime(*t.LastSyncedAt))
	}
	if len(t.Files) > 0 {
		field("Files", strings.Join(t.Files, ", "))
	}

	if strings.TrimSpace(t.Description) != "" {
		p.printf("\n%s\n", renderMarkdown(t.Description, p.lip, p.width-2, p.color))
	}

	if len(detail.Notes) > 0 {
		p.printf("\n%s\n", p.bold.Render("Notes"))
		for _, note := range detail.Notes {
			p.printf("  %s %s\n", p.faint.Render(formatTime(note.CreatedAt)+" ["+note.Source+"]"), note.Content)
		}
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// padRight pads s with spaces to width visible cells.
func padRight(s string, width int) string {
	return s + strings.Repeat(" ", max(width-ansi.StringWidth(s), 0))
}
