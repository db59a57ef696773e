// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
	"github.com/bureau-foundation/taskflow/lib/lifecycle"
	"github.com/bureau-foundation/taskflow/lib/task"
)

type pickKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Quit   key.Binding
}

var pickKeys = pickKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Choose: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "start"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// pickModel is a one-screen task chooser.
type pickModel struct {
	tasks  []task.Task
	cursor int
	chosen *task.Task
	width  int
	out    *printer
}

func newPickModel(tasks []task.Task, out *printer) pickModel {
	return pickModel{tasks: tasks, width: out.width, out: out}
}

func (m pickModel) Init() tea.Cmd { return nil }

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, pickKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, pickKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, pickKeys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, pickKeys.Choose):
			if len(m.tasks) > 0 {
				chosen := m.tasks[m.cursor]
				m.chosen = &chosen
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickModel) View() string {
	var view strings.Builder
	view.WriteString(m.out.bold.Render("Pick a task to start") + "\n\n")
	cursorStyle := m.out.lip.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	for index, t := range m.tasks {
		pointer := "  "
		if index == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%s#%-4d %s %s %s", pointer, t.ID,
			padRight(m.out.status(t.Status), 11), padRight(m.out.priority(t.Priority), 6), t.Title)
		view.WriteString(ansi.Truncate(line, max(m.width, 20), "…") + "\n")
	}
	help := []string{pickKeys.Up.Help().Key + " " + pickKeys.Up.Help().Desc,
		pickKeys.Down.Help().Key + " " + pickKeys.Down.Help().Desc,
		pickKeys.Choose.Help().Key + " " + pickKeys.Choose.Help().Desc,
		pickKeys.Quit.Help().Key + " " + pickKeys.Quit.Help().Desc}
	view.WriteString("\n" + m.out.faint.Render(strings.Join(help, " • ")) + "\n")
	return view.String()
}

// pickCandidates returns in-progress tasks first, then pending tasks
// in recommendation order.
func pickCandidates(ctx context.Context, engine *lifecycle.Engine) ([]task.Task, error) {
	inProgress, err := engine.List(ctx, task.Filter{Status: task.StatusInProgress}, 0)
	if err != nil {
		return nil, err
	}
	pending, err := engine.List(ctx, task.Filter{Status: task.StatusPending}, 0)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(pending, func(a, b task.Task) int {
		return cmp.Or(cmp.Compare(a.Priority.Rank(), b.Priority.Rank()), cmp.Compare(a.ID, b.ID))
	})
	return append(inProgress, pending...), nil
}

type pickParams struct {
	sessionParams
	Print bool `flag:"print" desc:"print the chosen task ID instead of starting it"`
}

func pickCommand(env *environment) *cli.Command {
	var params pickParams

	return &cli.Command{
		Name:    "pick",
		Summary: "Choose a task interactively and start it",
		Description: `Show in-progress and pending tasks in a chooser and start the one
selected. With --print, the chosen ID is printed instead, for use in
scripts: taskflow show $(taskflow pick --print).`,
		Usage:  "taskflow pick [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if !env.interactive {
				return cli.Validation("pick needs an interactive terminal")
			}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			candidates, err := pickCandidates(ctx, s.engine)
			if err != nil {
				return err
			}
			out := env.printer()
			if len(candidates) == 0 {
				out.printf("Nothing to pick.\n")
				return nil
			}

			program := tea.NewProgram(newPickModel(candidates, out),
				tea.WithContext(ctx), tea.WithInput(env.stdin), tea.WithOutput(env.stdout))
			final, err := program.Run()
			if err != nil {
				return fmt.Errorf("running chooser: %w", err)
			}
			chosen := final.(pickModel).chosen
			if chosen == nil {
				return &cli.ExitError{Code: 1}
			}
			if params.Print {
				out.printf("%d\n", chosen.ID)
				return nil
			}

			result, err := s.engine.Start(ctx, lifecycle.StartRequest{TaskID: chosen.ID})
			if err != nil {
				return err
			}
			out.printf("Resumed %s\n", out.taskRef(result.Task))
			if result.Branch != "" {
				out.printf("  Branch: %s\n", result.Branch)
			}
			out.warnings(result.Warnings)
			return nil
		},
	}
}
