// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// StartRequest either resumes an existing task (TaskID set) or creates
// and starts a new one from Title.
type StartRequest struct {
	TaskID int64

	Title       string
	Description string
	Priority    task.Priority
	Module      string
	CreatedBy   string

	// Stash uncommitted changes before creating a new task's branch.
	// Without it a dirty working tree refuses the start.
	Stash bool

	// NoBranch leaves the working tree on its current branch instead of
	// creating a task branch. A resumed task that already has a branch
	// is still checked out to it.
	NoBranch bool
}

// StartResult reports what Start did.
type StartResult struct {
	Task task.Task `json:"task"`
	// Resumed is true when an existing task was started.
	Resumed bool `json:"resumed"`
	// Stashed is true when uncommitted changes were stashed.
	Stashed bool `json:"stashed"`
	// Branch is the branch created or checked out, if any.
	Branch string `json:"branch,omitempty"`
	// Warnings lists soft failures, already logged.
	Warnings []string `json:"warnings,omitempty"`
}

// Start moves a task to in_progress and gives it the exclusive focus.
func (e *Engine) Start(ctx context.Context, request StartRequest) (StartResult, error) {
	if request.TaskID != 0 {
		return e.resume(ctx, request.TaskID, request.NoBranch)
	}
	return e.startNew(ctx, request)
}

func (e *Engine) startNew(ctx context.Context, request StartRequest) (StartResult, error) {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		return StartResult{}, fmt.Errorf("%w: title is required to start a new task", task.ErrValidation)
	}
	priority, err := task.ParsePriority(string(request.Priority))
	if err != nil {
		return StartResult{}, err
	}
	createdBy := request.CreatedBy
	if createdBy == "" {
		createdBy = task.SourceUser
	}

	var result StartResult
	active, err := e.vcsActive(ctx)
	if err != nil {
		return StartResult{}, err
	}
	if active {
		dirty, err := e.dirty(ctx)
		if err != nil {
			return StartResult{}, err
		}
		if dirty {
			if !request.Stash {
				return StartResult{}, fmt.Errorf("%w: working tree has uncommitted changes; commit them or stash them first", task.ErrInvalidState)
			}
			if err := e.vcs.Stash(ctx, "Auto-stash before starting task: "+title); err != nil {
				return StartResult{}, task.NewGatewayError("git", "stash", err)
			}
			result.Stashed = true
			e.logger.Info("stashed uncommitted changes", "title", title)
		}
	}

	module := request.Module
	if module == "" {
		module = e.detectModule(ctx)
	}

	now := e.clock.Now()
	created, err := e.repository.Create(ctx, task.Task{
		Title:       title,
		Description: request.Description,
		Status:      task.StatusInProgress,
		Priority:    priority,
		Module:      module,
		CreatedBy:   createdBy,
		FocusedAt:   &now,
	})
	if err != nil {
		return result, err
	}
	result.Task = created

	if active && !request.NoBranch {
		if err := e.attachBranch(ctx, &result); err != nil {
			return result, err
		}
	}

	e.logger.Info("task started", "task_id", result.Task.ID, "branch", result.Task.Branch)
	return result, nil
}

func (e *Engine) resume(ctx context.Context, id int64, noBranch bool) (StartResult, error) {
	existing, err := e.get(ctx, id)
	if err != nil {
		return StartResult{}, err
	}
	if existing.Status.Terminal() {
		return StartResult{}, fmt.Errorf("%w: task #%d is %s", task.ErrInvalidState, id, existing.Status)
	}

	result := StartResult{Task: existing, Resumed: true}
	active, err := e.vcsActive(ctx)
	if err != nil {
		return StartResult{}, err
	}
	if active {
		dirty, err := e.dirty(ctx)
		if err != nil {
			return StartResult{}, err
		}
		if dirty {
			return StartResult{}, fmt.Errorf("%w: working tree has uncommitted changes; commit or stash them before switching tasks", task.ErrInvalidState)
		}
	}

	focused, err := e.repository.Focus(ctx, id, e.clock.Now(), task.Changes{
		Status: task.Ptr(task.StatusInProgress),
	})
	if err != nil {
		return StartResult{}, err
	}
	result.Task = focused

	if active {
		switch {
		case focused.Branch != "":
			e.checkoutTaskBranch(ctx, &result)
		case !noBranch:
			err = e.attachBranch(ctx, &result)
		}
		if err != nil {
			return result, err
		}
	}

	e.logger.Info("task resumed", "task_id", id, "branch", result.Task.Branch)
	return result, nil
}

// attachBranch creates a fresh branch for result.Task and records it.
// Creation failure is a warning; only a failure to record the branch
// on the task is returned.
func (e *Engine) attachBranch(ctx context.Context, result *StartResult) error {
	name, err := e.freeBranchName(ctx, BranchName(e.branchPrefix, result.Task.Title))
	if err != nil {
		result.Warnings = append(result.Warnings, e.warn("could not choose a branch name", err, "task_id", result.Task.ID))
		return nil
	}
	if err := e.vcs.CreateBranch(ctx, name); err != nil {
		gatewayError := task.NewGatewayError("git", "create-branch", err)
		result.Warnings = append(result.Warnings, e.warn("failed to create branch", gatewayError, "task_id", result.Task.ID, "branch", name))
		return nil
	}
	updated, err := e.repository.Update(ctx, result.Task.ID, task.Changes{Branch: &name})
	if err != nil {
		return fmt.Errorf("lifecycle: recording branch %s on task #%d: %w", name, result.Task.ID, err)
	}
	result.Task = updated
	result.Branch = name
	return nil
}

// checkoutTaskBranch switches to the task's recorded branch when it
// still exists. Failures are warnings.
func (e *Engine) checkoutTaskBranch(ctx context.Context, result *StartResult) {
	branch := result.Task.Branch
	exists, err := e.vcs.BranchExists(ctx, branch)
	if err != nil {
		result.Warnings = append(result.Warnings, e.warn("could not check for task branch", task.NewGatewayError("git", "branch-exists", err), "branch", branch))
		return
	}
	if !exists {
		e.logger.Debug("task branch no longer exists", "task_id", result.Task.ID, "branch", branch)
		return
	}
	if err := e.vcs.Checkout(ctx, branch); err != nil {
		result.Warnings = append(result.Warnings, e.warn("failed to switch to task branch", task.NewGatewayError("git", "checkout", err), "branch", branch))
		return
	}
	result.Branch = branch
}
