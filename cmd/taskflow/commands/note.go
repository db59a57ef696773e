// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
)

type noteParams struct {
	sessionParams
	cli.JSONOutput
	Source string `flag:"source,s" desc:"who wrote the note" default:"user"`
}

func noteCommand(env *environment) *cli.Command {
	var params noteParams

	return &cli.Command{
		Name:    "note",
		Summary: "Append a note to a task",
		Usage:   "taskflow note <id> <text> [flags]",
		Examples: []cli.Example{
			{
				Description: "Record a finding on task 4",
				Command:     "taskflow note 4 'the timeout is in the proxy, not the client'",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) (err error) {
			if len(args) < 2 {
				return cli.Validation("a task ID and note text are required\n\nUsage: taskflow note <id> <text>")
			}
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			content := strings.Join(args[1:], " ")

			s, err := env.openSession(params.sessionParams, logger)
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			note, err := s.engine.AddNote(ctx, id, content, params.Source)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, note); done {
				return err
			}
			env.printer().printf("Added note %d to task #%d\n", note.ID, id)
			return nil
		},
	}
}
