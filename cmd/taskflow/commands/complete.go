// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
	"github.com/bureau-foundation/taskflow/lib/lifecycle"
)

type completeParams struct {
	sessionParams
	cli.JSONOutput
	Commit       bool   `flag:"commit" desc:"commit uncommitted changes first" default:"true"`
	Message      string `flag:"message,m" desc:"commit message (default: \"Complete task: <title>\")"`
	Merge        bool   `flag:"merge" desc:"merge the task branch into the main branch"`
	DeleteBranch bool   `flag:"delete-branch" desc:"delete the task branch after merging"`
	MainBranch   string `flag:"main-branch" desc:"merge target (default from config)"`
}

func completeCommand(env *environment) *cli.Command {
	var params completeParams

	return &cli.Command{
		Name:    "complete",
		Summary: "Complete the current task",
		Description: `Mark a task completed. Without an ID, the task currently in
progress with the focus is completed.

Uncommitted changes are committed first (disable with --commit=false).
--merge merges the task branch into the main branch and returns there;
a failed merge leaves the task in progress on its own branch.`,
		Usage: "taskflow complete [<id>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Complete the current task, committing its changes",
				Command:     "taskflow complete",
			},
			{
				Description: "Complete, merge, and clean up the branch",
				Command:     "taskflow complete --merge --delete-branch",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			id, err := optionalTaskID(args)
			if err != nil {
				return err
			}
			if params.DeleteBranch && !params.Merge {
				return cli.Validation("--delete-branch requires --merge")
			}

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			mainBranch := params.MainBranch
			if mainBranch == "" {
				mainBranch = s.config.MainBranch
			}
			result, err := s.engine.Complete(ctx, lifecycle.CompleteRequest{
				TaskID:       id,
				Commit:       params.Commit,
				Message:      params.Message,
				Merge:        params.Merge,
				DeleteBranch: params.DeleteBranch,
				MainBranch:   mainBranch,
			})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			out := env.printer()
			out.printf("Completed %s\n", out.taskRef(result.Task))
			if result.Committed {
				out.printf("  Committed changes\n")
			}
			if result.Merged {
				out.printf("  Merged %s into %s\n", result.Task.Branch, mainBranch)
			}
			if result.DeletedBranch {
				out.printf("  Deleted branch %s\n", result.Task.Branch)
			}
			out.warnings(result.Warnings)
			return nil
		},
	}
}
