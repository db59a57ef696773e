// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
	"github.com/bureau-foundation/taskflow/lib/lifecycle"
	"github.com/bureau-foundation/taskflow/lib/task"
)

type startParams struct {
	sessionParams
	cli.JSONOutput
	ID          int64  `flag:"id" desc:"resume an existing task instead of creating one"`
	Description string `flag:"description,d" desc:"longer description (markdown)"`
	Priority    string `flag:"priority,p" desc:"low, medium, high, or urgent" default:"medium"`
	Module      string `flag:"module,m" desc:"module the task belongs to"`
	Stash       bool   `flag:"stash" desc:"stash uncommitted changes instead of refusing to start"`
	NoBranch    bool   `flag:"no-branch" desc:"stay on the current branch instead of creating a task branch"`
	By          string `flag:"by" desc:"who is starting the task" default:"user"`
}

func startCommand(env *environment) *cli.Command {
	var params startParams

	return &cli.Command{
		Name:    "start",
		Summary: "Start a new task or resume one",
		Description: `Move a task to in_progress and give it the exclusive focus. Any
previously focused task loses focus.

With a title, a new task is created and a branch named from the title
(task/<slug>) is created and checked out. With --id, the existing task
is resumed and its branch checked out. Branch problems are reported as
warnings; the task still starts.

--no-branch keeps the current branch. A dirty working tree refuses the
start unless --stash is given.`,
		Usage: "taskflow start <title> [flags]  |  taskflow start --id N",
		Examples: []cli.Example{
			{
				Description: "Start new work on a fresh branch",
				Command:     "taskflow start 'Fix bug'",
			},
			{
				Description: "Resume task 12",
				Command:     "taskflow start --id 12",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			title := strings.TrimSpace(strings.Join(args, " "))
			if params.ID != 0 && title != "" {
				return cli.Validation("give either a title or --id, not both")
			}
			if params.ID == 0 && title == "" {
				return cli.Validation("a title or --id is required\n\nUsage: taskflow start <title>")
			}
			if params.ID < 0 {
				return cli.Validation("invalid task ID %d", params.ID)
			}
			priority, err := task.ParsePriority(params.Priority)
			if err != nil {
				return err
			}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			result, err := s.engine.Start(ctx, lifecycle.StartRequest{
				TaskID:      params.ID,
				Title:       title,
				Description: params.Description,
				Priority:    priority,
				Module:      params.Module,
				CreatedBy:   params.By,
				Stash:       params.Stash,
				NoBranch:    params.NoBranch,
			})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			out := env.printer()
			verb := "Started"
			if result.Resumed {
				verb = "Resumed"
			}
			out.printf("%s %s\n", verb, out.taskRef(result.Task))
			if result.Stashed {
				out.printf("  Stashed uncommitted changes\n")
			}
			if result.Branch != "" {
				out.printf("  Branch: %s\n", result.Branch)
			}
			out.warnings(result.Warnings)
			return nil
		},
	}
}
