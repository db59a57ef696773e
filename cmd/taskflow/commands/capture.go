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

type captureParams struct {
	sessionParams
	cli.JSONOutput
	Description string `flag:"description,d" desc:"longer description (markdown)"`
	Priority    string `flag:"priority,p" desc:"low, medium, high, or urgent" default:"medium"`
	Module      string `flag:"module,m" desc:"module the task belongs to (default: derived from the branch)"`
	Context     string `flag:"context,c" desc:"context to record as the first note"`
	By          string `flag:"by" desc:"who is capturing the task" default:"user"`
}

func captureCommand(env *environment) *cli.Command {
	var params captureParams

	return &cli.Command{
		Name:    "capture",
		Summary: "Record a task for later",
		Description: `Record a pending task without starting it. The working tree and
the current focus are left alone.

When --module is not given, it is taken from the current branch name
(feature/<module>-..., task/<module>-..., fix/<module>-...).`,
		Usage: "taskflow capture <title> [flags]",
		Examples: []cli.Example{
			{
				Description: "Capture a bug noticed in passing",
				Command:     "taskflow capture 'Login form drops the redirect' -p high",
			},
			{
				Description: "Capture with context for whoever picks it up",
				Command:     "taskflow capture 'Retry flaky upload' -c 'seen twice in CI this week'",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return cli.Validation("a title is required\n\nUsage: taskflow capture <title>")
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

			captured, err := s.engine.Capture(ctx, lifecycle.CaptureRequest{
				Title:       title,
				Description: params.Description,
				Priority:    priority,
				Module:      params.Module,
				Context:     params.Context,
				CreatedBy:   params.By,
			})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(env.stdout, captured); done {
				return err
			}
			out := env.printer()
			out.printf("Captured %s [%s]\n", out.taskRef(captured), out.priority(captured.Priority))
			return nil
		},
	}
}
