// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command taskflow tracks local tasks, automates the git branch for
// each, and syncs them with GitHub issues.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/commands"
	"github.com/bureau-foundation/taskflow/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}
