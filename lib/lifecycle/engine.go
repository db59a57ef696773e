// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/bureau-foundation/taskflow/lib/clock"
	"github.com/bureau-foundation/taskflow/lib/git"
	"github.com/bureau-foundation/taskflow/lib/task"
)

// VCS is the working tree the engine automates. *git.Repository
// satisfies it. Failures carry the command's stderr (see
// task.NewGatewayError).
type VCS interface {
	IsRepository(ctx context.Context) (bool, error)
	CurrentBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	CreateBranch(ctx context.Context, name string) error
	Checkout(ctx context.Context, name string) error
	ModifiedFiles(ctx context.Context) ([]git.FileChange, error)
	HasUncommittedChanges(ctx context.Context) (bool, error)
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	Merge(ctx context.Context, branch string) error
	DeleteBranch(ctx context.Context, name string, force bool) error
	Stash(ctx context.Context, message string) error
}

var _ VCS = (*git.Repository)(nil)

// Config configures an Engine.
type Config struct {
	// Repository stores tasks and notes. Required.
	Repository task.Repository

	// VCS is the working tree to automate. Nil disables every VCS
	// step, as does a directory that is not a repository.
	VCS VCS

	// Clock is required.
	Clock clock.Clock

	// Logger is required.
	Logger *slog.Logger

	// BranchPrefix defaults to DefaultBranchPrefix.
	BranchPrefix string
}

// Engine implements the task lifecycle. It is safe for concurrent use
// to the extent its Repository and VCS are.
type Engine struct {
	repository   task.Repository
	vcs          VCS
	clock        clock.Clock
	logger       *slog.Logger
	branchPrefix string
}

// New returns an Engine for config.
func New(config Config) (*Engine, error) {
	if config.Repository == nil {
		return nil, errors.New("lifecycle: Repository is required")
	}
	if config.Clock == nil {
		return nil, errors.New("lifecycle: Clock is required")
	}
	if config.Logger == nil {
		return nil, errors.New("lifecycle: Logger is required")
	}
	prefix := config.BranchPrefix
	if prefix == "" {
		prefix = DefaultBranchPrefix
	}
	return &Engine{
		repository:   config.Repository,
		vcs:          config.VCS,
		clock:        config.Clock,
		logger:       config.Logger,
		branchPrefix: prefix,
	}, nil
}

// vcsActive reports whether VCS steps apply: a VCS is configured and
// its directory is a working tree.
func (e *Engine) vcsActive(ctx context.Context) (bool, error) {
	if e.vcs == nil {
		return false, nil
	}
	ok, err := e.vcs.IsRepository(ctx)
	if err != nil {
		return false, task.NewGatewayError("git", "is-repository", err)
	}
	return ok, nil
}

// dirty reports whether the working tree has uncommitted changes.
func (e *Engine) dirty(ctx context.Context) (bool, error) {
	dirty, err := e.vcs.HasUncommittedChanges(ctx)
	if err != nil {
		return false, task.NewGatewayError("git", "status", err)
	}
	return dirty, nil
}

// moduleFromBranch matches branches like feature/auth-login and
// captures the module segment ("auth").
var moduleFromBranch = regexp.MustCompile(`^(?:feature|task|fix)/([^-/]+)`)

// detectModule derives a module name from the current branch. Any VCS
// failure yields "" since the module is only a hint.
func (e *Engine) detectModule(ctx context.Context) string {
	active, err := e.vcsActive(ctx)
	if err != nil || !active {
		return ""
	}
	branch, err := e.vcs.CurrentBranch(ctx)
	if err != nil {
		e.logger.Debug("module detection skipped", "error", err)
		return ""
	}
	if match := moduleFromBranch.FindStringSubmatch(branch); match != nil {
		return match[1]
	}
	return ""
}

// get loads a task, turning a missing ID into a readable NotFound.
func (e *Engine) get(ctx context.Context, id int64) (task.Task, error) {
	if id <= 0 {
		return task.Task{}, fmt.Errorf("%w: task ID must be positive, got %d", task.ErrValidation, id)
	}
	return e.repository.Get(ctx, id)
}

// warn logs a soft failure and returns its message for the result.
func (e *Engine) warn(message string, err error, attrs ...any) string {
	e.logger.Warn(message, append(attrs, "error", err)...)
	return fmt.Sprintf("%s: %v", message, err)
}
