// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// CaptureRequest describes a task to record for later.
type CaptureRequest struct {
	Title       string
	Description string
	// Priority defaults to medium.
	Priority task.Priority
	// Module is derived from the current branch when empty.
	Module string
	// Context, when set, is stored as the task's first note.
	Context string
	// CreatedBy defaults to "user".
	CreatedBy string
}

// Capture records a pending task without starting it.
func (e *Engine) Capture(ctx context.Context, request CaptureRequest) (task.Task, error) {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		return task.Task{}, fmt.Errorf("%w: title is required", task.ErrValidation)
	}
	priority, err := task.ParsePriority(string(request.Priority))
	if err != nil {
		return task.Task{}, err
	}
	createdBy := request.CreatedBy
	if createdBy == "" {
		createdBy = task.SourceUser
	}
	module := request.Module
	if module == "" {
		module = e.detectModule(ctx)
	}

	created, err := e.repository.Create(ctx, task.Task{
		Title:       title,
		Description: request.Description,
		Status:      task.StatusPending,
		Priority:    priority,
		Module:      module,
		CreatedBy:   createdBy,
	})
	if err != nil {
		return task.Task{}, err
	}

	if contextNote := strings.TrimSpace(request.Context); contextNote != "" {
		if _, err := e.repository.CreateNote(ctx, created.ID, "Context: "+contextNote, createdBy); err != nil {
			return created, fmt.Errorf("lifecycle: recording context for task #%d: %w", created.ID, err)
		}
	}

	e.logger.Info("task captured",
		"task_id", created.ID,
		"priority", created.Priority,
		"module", created.Module,
	)
	return created, nil
}

// AddNote appends a note to a task. Source defaults to "user".
func (e *Engine) AddNote(ctx context.Context, taskID int64, content, source string) (task.Note, error) {
	if strings.TrimSpace(content) == "" {
		return task.Note{}, fmt.Errorf("%w: note content is required", task.ErrValidation)
	}
	if _, err := e.get(ctx, taskID); err != nil {
		return task.Note{}, err
	}
	if source == "" {
		source = task.SourceUser
	}
	note, err := e.repository.CreateNote(ctx, taskID, content, source)
	if err != nil {
		return task.Note{}, err
	}
	e.logger.Debug("note added", "task_id", taskID, "note_id", note.ID, "source", source)
	return note, nil
}
