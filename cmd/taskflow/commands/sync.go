// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
	"github.com/bureau-foundation/taskflow/lib/task"
	"github.com/bureau-foundation/taskflow/lib/tasksync"
	"github.com/bureau-foundation/taskflow/lib/tracker"
)

// pullFlags are shared by pull and sync.
type pullFlags struct {
	Limit int    `flag:"limit,n" desc:"maximum number of issues to fetch (default from config)"`
	State string `flag:"state" desc:"open, closed, or all (default from config)"`
}

func (f pullFlags) filter(s *session) tracker.IssueFilter {
	filter := tracker.IssueFilter{Limit: s.config.Pull.Limit, State: s.config.Pull.State}
	if f.Limit != 0 {
		filter.Limit = f.Limit
	}
	if f.State != "" {
		filter.State = f.State
	}
	return filter
}

// pushFailureOutput is the JSON form of a tasksync.PushFailure.
type pushFailureOutput struct {
	TaskID int64  `json:"task_id"`
	Error  string `json:"error"`
}

type pushAllOutput struct {
	Pushed   int                 `json:"pushed"`
	Failed   int                 `json:"failed"`
	Failures []pushFailureOutput `json:"failures"`
}

func newPushAllOutput(result tasksync.PushAllResult) pushAllOutput {
	output := pushAllOutput{Pushed: result.Pushed, Failed: result.Failed, Failures: []pushFailureOutput{}}
	for _, failure := range result.Failures {
		output.Failures = append(output.Failures, pushFailureOutput{TaskID: failure.TaskID, Error: failure.Err.Error()})
	}
	return output
}

func (p *printer) pullResult(result tasksync.PullResult) {
	p.printf("Pulled: %d created, %d updated, %d unchanged\n", result.Created, result.Updated, result.Skipped)
}

func (p *printer) pushAllResult(result tasksync.PushAllResult) {
	p.printf("Pushed: %d created, %d failed\n", result.Pushed, result.Failed)
	for _, failure := range result.Failures {
		p.printf("  %s task #%d: %v\n", p.warn.Render("failed:"), failure.TaskID, failure.Err)
	}
}

// --- pull ---

type pullParams struct {
	sessionParams
	cli.JSONOutput
	pullFlags
}

func pullCommand(env *environment) *cli.Command {
	var params pullParams

	return &cli.Command{
		Name:    "pull",
		Summary: "Import issues from the tracker as tasks",
		Description: `Fetch issues and create or update the matching tasks. Priority and
module come from "priority: X" and "module: X" labels. An open issue
moves its task to in_progress and a closed one completes it; completed
tasks stay completed. Issues not updated since the last sync are
skipped.`,
		Usage:  "taskflow pull [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			reconciler, err := s.reconciler(ctx)
			if err != nil {
				return err
			}
			result, pullErr := reconciler.PullRemote(ctx, params.filter(s))
			if done, err := params.EmitJSON(env.stdout, result); done {
				return errors.Join(pullErr, err)
			}
			env.printer().pullResult(result)
			return pullErr
		},
	}
}

// --- push ---

type pushParams struct {
	sessionParams
	cli.JSONOutput
	All   bool `flag:"all" desc:"push every task without an issue"`
	Force bool `flag:"force" desc:"update the linked issue of an already synced task"`
}

func pushCommand(env *environment) *cli.Command {
	var params pushParams

	return &cli.Command{
		Name:    "push",
		Summary: "Publish tasks as tracker issues",
		Description: `Create an issue for a task. The issue carries the task's priority and
module as labels, plus the marker label, and its notes in the body.

A task already linked to an issue is refused unless --force is given,
which rewrites the issue from the task. --all pushes every unsynced
task and reports each failure without stopping.`,
		Usage: "taskflow push <id> [--force]  |  taskflow push --all",
		Examples: []cli.Example{
			{
				Description: "Publish task 7",
				Command:     "taskflow push 7",
			},
			{
				Description: "Publish everything not yet on GitHub",
				Command:     "taskflow push --all",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			var id int64
			switch {
			case params.All && len(args) > 0:
				return cli.Validation("give either a task ID or --all, not both")
			case params.All && params.Force:
				return cli.Validation("--force applies to a single task")
			case !params.All:
				if len(args) != 1 {
					return cli.Validation("a task ID or --all is required\n\nUsage: taskflow push <id>")
				}
				if id, err = parseTaskID(args[0]); err != nil {
					return err
				}
			}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			reconciler, err := s.reconciler(ctx)
			if err != nil {
				return err
			}

			out := env.printer()
			if params.All {
				result, pushErr := reconciler.PushAll(ctx)
				if done, err := params.EmitJSON(env.stdout, newPushAllOutput(result)); done {
					return errors.Join(pushErr, err)
				}
				out.pushAllResult(result)
				return pushErr
			}

			pushed, err := reconciler.Push(ctx, id, tasksync.PushOptions{Force: params.Force})
			if errors.Is(err, task.ErrAlreadySynced) {
				return cli.Conflict("%w\n\nUse --force to update the issue from the task.", err)
			}
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, pushed); done {
				return err
			}
			out.printf("Pushed %s to %s#%s\n", out.taskRef(pushed), pushed.ExternalProvider, pushed.ExternalID)
			if pushed.ExternalURL != "" {
				out.printf("  %s\n", pushed.ExternalURL)
			}
			return nil
		},
	}
}

// --- sync ---

type syncParams struct {
	sessionParams
	cli.JSONOutput
	pullFlags
	PullOnly bool `flag:"pull-only" desc:"only import issues"`
	PushOnly bool `flag:"push-only" desc:"only publish unsynced tasks"`
}

type syncOutput struct {
	Pull *tasksync.PullResult `json:"pull,omitempty"`
	Push *pushAllOutput       `json:"push,omitempty"`
}

func syncCommand(env *environment) *cli.Command {
	var params syncParams

	return &cli.Command{
		Name:    "sync",
		Summary: "Pull issues, then push unsynced tasks",
		Description: `Run a pull followed by a push of every unsynced task. A failed pull
stops before anything is pushed.`,
		Usage:  "taskflow sync [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			mode := tasksync.ModeBoth
			switch {
			case params.PullOnly && params.PushOnly:
				return cli.Validation("--pull-only and --push-only are mutually exclusive")
			case params.PullOnly:
				mode = tasksync.ModePullOnly
			case params.PushOnly:
				mode = tasksync.ModePushOnly
			}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			reconciler, err := s.reconciler(ctx)
			if err != nil {
				return err
			}
			result, syncErr := reconciler.SyncAll(ctx, tasksync.SyncOptions{Mode: mode, Filter: params.filter(s)})

			if params.OutputJSON {
				output := syncOutput{Pull: result.Pull}
				if result.Push != nil {
					push := newPushAllOutput(*result.Push)
					output.Push = &push
				}
				return errors.Join(syncErr, cli.WriteJSON(env.stdout, output))
			}
			out := env.printer()
			if result.Pull != nil {
				out.pullResult(*result.Pull)
			}
			if result.Push != nil {
				out.pushAllResult(*result.Push)
			}
			return syncErr
		},
	}
}
