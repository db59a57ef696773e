// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is allowed
// out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus validates a user-supplied status string.
func ParseStatus(value string) (Status, error) {
	status := Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q (want pending, in_progress, completed, or cancelled)", ErrValidation, value)
	}
	return status, nil
}

// Priority orders pending work. The zero value is not a valid priority;
// callers that accept user input default it to PriorityMedium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() < 4
}

// Rank returns the sort position of p: 0 for urgent through 3 for low.
// Unknown values rank after every known priority.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// ParsePriority validates a user-supplied priority. An empty string
// selects PriorityMedium.
func ParsePriority(value string) (Priority, error) {
	if value == "" {
		return PriorityMedium, nil
	}
	priority := Priority(value)
	if !priority.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q (want low, medium, high, or urgent)", ErrValidation, value)
	}
	return priority, nil
}

// Task is a unit of work tracked locally and optionally mirrored to an
// issue tracker. Optional timestamps are nil when unset.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Module      string   `json:"module,omitempty"`

	// Branch is the VCS branch created for the task, if any.
	Branch string `json:"branch,omitempty"`
	// Files lists the paths the VCS reported as modified when the task
	// was completed.
	Files []string `json:"files,omitempty"`

	ExternalProvider string     `json:"external_provider,omitempty"`
	ExternalID       string     `json:"external_id,omitempty"`
	ExternalURL      string     `json:"external_url,omitempty"`
	Synced           bool       `json:"synced"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`

	CreatedBy   string     `json:"created_by"`
	FocusedAt   *time.Time `json:"focused_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Focused reports whether the task holds the exclusive focus.
func (t Task) Focused() bool {
	return t.FocusedAt != nil
}

// SyncedTo reports whether the task already has a counterpart at the
// given provider.
func (t Task) SyncedTo(provider string) bool {
	return t.ExternalProvider == provider && t.ExternalID != ""
}

// Note is an append-only annotation on a task.
type Note struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Well-known values for Task.CreatedBy and Note.Source.
const (
	SourceUser   = "user"
	SourceClaude = "claude"
)

// Detail is a task together with its notes in creation order.
type Detail struct {
	Task  Task   `json:"task"`
	Notes []Note `json:"notes"`
}

// TimePtr returns a pointer to a copy of t. Used when filling optional
// timestamp fields.
func TimePtr(t time.Time) *time.Time {
	return &t
}
