// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for the working tree
// a task lives in. All commands target a specific directory via the -C
// flag, which every Repository method injects, and run under the
// repository's time bound.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Repository represents a git working tree at a specific directory.
// There is no default directory: callers always say which repository
// they mean.
type Repository struct {
	dir     string
	timeout time.Duration
}

// NewRepository returns a Repository targeting the given directory with
// no time bound beyond the caller's context.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// WithTimeout returns a copy of r whose commands are killed after d.
// Zero or negative disables the bound.
func (r *Repository) WithTimeout(d time.Duration) *Repository {
	copied := *r
	copied.timeout = d
	return &copied
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// CommandError is returned when a git invocation fails or is cut off by
// the time bound.
type CommandError struct {
	Args     []string
	Dir      string
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *CommandError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("git %s in %s: timed out: %v", strings.Join(e.Args, " "), e.Dir, e.Err)
	}
	return fmt.Sprintf("git %s in %s: %v (stderr: %s)", strings.Join(e.Args, " "), e.Dir, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CommandOutput returns git's stderr.
func (e *CommandError) CommandOutput() string { return e.Stderr }

// Timeout reports whether the command was killed by its time bound.
func (e *CommandError) Timeout() bool { return e.TimedOut }

// exitedNonZero reports whether err is a git process that ran to
// completion and exited with a failure status. Used by predicates
// (BranchExists, IsRepository) where a non-zero exit is an answer.
func exitedNonZero(err error) bool {
	var commandError *CommandError
	if !errors.As(err, &commandError) || commandError.TimedOut {
		return false
	}
	var exitError *exec.ExitError
	return errors.As(err, &exitError)
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and carried in the returned
// *CommandError on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	// Never block on a credential prompt.
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := command.Run(); err != nil {
		return "", &CommandError{
			Args:     args,
			Dir:      r.dir,
			Stderr:   strings.TrimSpace(stderr.String()),
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:      err,
		}
	}
	return stdout.String(), nil
}
