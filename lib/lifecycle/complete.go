// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// DefaultMainBranch is the merge target when CompleteRequest leaves
// MainBranch empty.
const DefaultMainBranch = "main"

// CompletionNote is appended to every completed task.
const CompletionNote = "Task completed"

// CompleteRequest selects a task to complete and the VCS steps to run.
type CompleteRequest struct {
	// TaskID selects the task. Zero selects the most recently focused
	// in_progress task.
	TaskID int64

	// Commit stages and commits uncommitted changes first.
	Commit bool
	// Message defaults to "Complete task: <title>".
	Message string

	// Merge merges the task branch into MainBranch.
	Merge bool
	// DeleteBranch deletes the task branch after a successful merge.
	DeleteBranch bool
	// MainBranch defaults to DefaultMainBranch.
	MainBranch string
}

// CompleteResult reports what Complete did.
type CompleteResult struct {
	Task      task.Task `json:"task"`
	Committed bool      `json:"committed"`
	Merged    bool      `json:"merged"`
	// DeletedBranch is true when the task branch was removed.
	DeletedBranch bool     `json:"deleted_branch"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Complete marks a task completed after running the requested VCS
// steps. A failed commit or merge leaves the task untouched.
func (e *Engine) Complete(ctx context.Context, request CompleteRequest) (CompleteResult, error) {
	target, err := e.resolveCompletion(ctx, request.TaskID)
	if err != nil {
		return CompleteResult{}, err
	}
	if target.Status.Terminal() {
		return CompleteResult{}, fmt.Errorf("%w: task #%d is already %s", task.ErrInvalidState, target.ID, target.Status)
	}

	result := CompleteResult{Task: target}
	var files []string

	active, err := e.vcsActive(ctx)
	if err != nil {
		return CompleteResult{}, err
	}
	if active {
		changes, err := e.vcs.ModifiedFiles(ctx)
		if err != nil {
			return CompleteResult{}, task.NewGatewayError("git", "status", err)
		}
		for _, change := range changes {
			files = append(files, change.Path)
		}

		if request.Commit && len(changes) > 0 {
			if err := e.commit(ctx, target, request.Message); err != nil {
				return CompleteResult{}, err
			}
			result.Committed = true
		}
		if request.Merge {
			if err := e.merge(ctx, target, request, &result); err != nil {
				return CompleteResult{}, err
			}
		}
	}

	changes := task.Changes{
		Status:      task.Ptr(task.StatusCompleted),
		CompletedAt: task.Ptr(task.TimePtr(e.clock.Now())),
	}
	if len(files) > 0 {
		changes.Files = &files
	}
	completed, err := e.repository.Update(ctx, target.ID, changes)
	if err != nil {
		return result, err
	}
	result.Task = completed

	if _, err := e.repository.CreateNote(ctx, target.ID, CompletionNote, task.SourceUser); err != nil {
		return result, fmt.Errorf("lifecycle: recording completion note on task #%d: %w", target.ID, err)
	}

	e.logger.Info("task completed",
		"task_id", target.ID,
		"committed", result.Committed,
		"merged", result.Merged,
		"files", len(files),
	)
	return result, nil
}

// resolveCompletion picks the task to complete: the explicit ID, or the
// in_progress task focused most recently.
func (e *Engine) resolveCompletion(ctx context.Context, id int64) (task.Task, error) {
	if id != 0 {
		return e.get(ctx, id)
	}
	candidates, err := e.repository.Query(ctx, task.Filter{
		Status:  task.StatusInProgress,
		Focused: true,
	}, task.OrderRecentlyFocused, 0)
	if err != nil {
		return task.Task{}, err
	}
	if len(candidates) == 0 {
		return task.Task{}, fmt.Errorf("%w: no focused in-progress task; specify a task ID", task.ErrNotFound)
	}
	if len(candidates) > 1 {
		ids := make([]int64, len(candidates))
		for i, candidate := range candidates {
			ids[i] = candidate.ID
		}
		e.logger.Warn("more than one focused task, completing the most recent", "task_ids", ids)
	}
	return candidates[0], nil
}

func (e *Engine) commit(ctx context.Context, target task.Task, message string) error {
	if message == "" {
		message = "Complete task: " + target.Title
	}
	if err := e.vcs.StageAll(ctx); err != nil {
		return task.NewGatewayError("git", "stage", err)
	}
	if err := e.vcs.Commit(ctx, message); err != nil {
		return task.NewGatewayError("git", "commit", err)
	}
	return nil
}

// merge checks out the main branch and merges the task branch into it.
// On failure it tries to return to the branch it started on.
func (e *Engine) merge(ctx context.Context, target task.Task, request CompleteRequest, result *CompleteResult) error {
	if target.Branch == "" {
		return fmt.Errorf("%w: task #%d has no branch to merge", task.ErrInvalidState, target.ID)
	}
	mainBranch := request.MainBranch
	if mainBranch == "" {
		mainBranch = DefaultMainBranch
	}

	original, err := e.vcs.CurrentBranch(ctx)
	if err != nil {
		return task.NewGatewayError("git", "current-branch", err)
	}
	if err := e.vcs.Checkout(ctx, mainBranch); err != nil {
		return task.NewGatewayError("git", "checkout", err)
	}
	if err := e.vcs.Merge(ctx, target.Branch); err != nil {
		mergeError := task.NewGatewayError("git", "merge", err)
		if original != "" {
			if restoreErr := e.vcs.Checkout(ctx, original); restoreErr != nil {
				e.logger.Error("could not return to original branch after failed merge",
					"branch", original,
					"error", restoreErr,
				)
			}
		}
		return mergeError
	}
	result.Merged = true

	if request.DeleteBranch {
		if err := e.vcs.DeleteBranch(ctx, target.Branch, false); err != nil {
			result.Warnings = append(result.Warnings,
				e.warn("failed to delete task branch", task.NewGatewayError("git", "delete-branch", err), "branch", target.Branch))
		} else {
			result.DeletedBranch = true
		}
	}
	return nil
}
