// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the taskflow command tree over the lifecycle
// engine and the sync reconciler.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
	"github.com/bureau-foundation/taskflow/lib/task"
	"github.com/bureau-foundation/taskflow/lib/version"
)

// Root returns the taskflow command tree wired to the running process.
func Root() *cli.Command {
	return newRoot(processEnvironment())
}

func newRoot(env *environment) *cli.Command {
	return &cli.Command{
		Name: "taskflow",
		Description: `taskflow: local task tracking with git and GitHub automation.

Capture work as it comes up, start a task to get a branch and the
exclusive focus, complete it to commit and merge, and sync tasks with
GitHub issues in either direction.`,
		Subcommands: []*cli.Command{
			captureCommand(env),
			startCommand(env),
			completeCommand(env),
			noteCommand(env),
			nextCommand(env),
			listCommand(env),
			showCommand(env),
			summaryCommand(env),
			pickCommand(env),
			pullCommand(env),
			pushCommand(env),
			syncCommand(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Fprintf(env.stdout, "taskflow %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// parseTaskID parses a positional task ID ("12" or "#12").
func parseTaskID(value string) (int64, error) {
	if len(value) > 0 && value[0] == '#' {
		value = value[1:]
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid task ID %q", task.ErrValidation, value)
	}
	return id, nil
}

// optionalTaskID parses zero or one positional task ID. Zero means
// "not given".
func optionalTaskID(args []string) (int64, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		return parseTaskID(args[0])
	}
	return 0, cli.Validation("expected at most one task ID, got %d arguments", len(args))
}
