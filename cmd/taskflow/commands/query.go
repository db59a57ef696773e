// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
	"github.com/bureau-foundation/taskflow/lib/task"
)

// --- next ---

type nextParams struct {
	sessionParams
	cli.JSONOutput
	Priority string `flag:"priority,p" desc:"only consider this priority"`
	Module   string `flag:"module,m" desc:"only consider this module"`
}

func nextCommand(env *environment) *cli.Command {
	var params nextParams

	return &cli.Command{
		Name:    "next",
		Summary: "Recommend the next pending task",
		Description: `Show the pending task to work on next: most urgent first, oldest
first among equal priorities.`,
		Usage:  "taskflow next [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) > 0 {
				return cli.Validation("next takes no arguments")
			}
			filter := task.Filter{Module: params.Module, Priority: task.Priority(params.Priority)}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			next, err := s.engine.NextRecommended(ctx, filter)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, next); done {
				return err
			}
			out := env.printer()
			if next == nil {
				out.printf("Nothing pending.\n")
				return nil
			}
			out.printf("Next: %s [%s]\n", out.taskRef(*next), out.priority(next.Priority))
			out.printf("  Start it with: taskflow start --id %d\n", next.ID)
			return nil
		},
	}
}

// --- list ---

type listParams struct {
	sessionParams
	cli.JSONOutput
	Status   string `flag:"status,s" desc:"pending, in_progress, completed, or cancelled"`
	Priority string `flag:"priority,p" desc:"low, medium, high, or urgent"`
	Module   string `flag:"module,m" desc:"filter by module"`
	Unsynced bool   `flag:"unsynced" desc:"only tasks without a tracker issue"`
	Limit    int    `flag:"limit,n" desc:"maximum number of tasks (0 for all)" default:"50"`
}

func listCommand(env *environment) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List tasks",
		Description: `List tasks newest first. Filters combine with AND. The focused task
is marked with *.`,
		Usage: "taskflow list [flags]",
		Examples: []cli.Example{
			{
				Description: "Pending work in one module",
				Command:     "taskflow list -s pending -m auth",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) > 0 {
				return cli.Validation("list takes no arguments")
			}
			filter := task.Filter{
				Status:   task.Status(params.Status),
				Priority: task.Priority(params.Priority),
				Module:   params.Module,
			}
			if params.Unsynced {
				filter.Synced = task.Ptr(false)
			}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			tasks, err := s.engine.List(ctx, filter, params.Limit)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, tasks); done {
				return err
			}
			if len(tasks) == 0 {
				env.printer().printf("No tasks.\n")
				return nil
			}
			env.printer().table(tasks)
			return nil
		},
	}
}

// --- show ---

type showParams struct {
	sessionParams
	cli.JSONOutput
}

func showCommand(env *environment) *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show a task with its notes",
		Usage:   "taskflow show <id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) != 1 {
				return cli.Validation("expected one task ID, got %d arguments\n\nUsage: taskflow show <id>", len(args))
			}
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			detail, err := s.engine.Show(ctx, id)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, detail); done {
				return err
			}
			env.printer().detail(detail)
			return nil
		},
	}
}

// --- summary ---

type summaryParams struct {
	sessionParams
	cli.JSONOutput
}

func summaryCommand(env *environment) *cli.Command {
	var params summaryParams

	return &cli.Command{
		Name:    "summary",
		Summary: "Show where work stands",
		Description: `Show the current task, counts of in-progress and pending work, the
next recommendations, and recently completed tasks.`,
		Usage:  "taskflow summary [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			summary, err := s.engine.Summary(ctx)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, summary); done {
				return err
			}

			out := env.printer()
			if summary.Current != nil {
				out.printf("%s %s\n", out.bold.Render("Current:"), out.taskRef(*summary.Current))
			} else {
				out.printf("%s none\n", out.bold.Render("Current:"))
			}
			out.printf("%s %d in progress, %d pending\n", out.bold.Render("Tasks:"), summary.InProgress, summary.Pending)

			section := func(title string, tasks []task.Task) {
				if len(tasks) == 0 {
					return
				}
				out.printf("\n%s\n", out.bold.Render(title))
				for _, t := range tasks {
					out.printf("  %s [%s]\n", out.taskRef(t), out.priority(t.Priority))
				}
			}
			section("Up next", summary.Next)
			section("Recently completed", summary.RecentlyDone)
			return nil
		},
	}
}
