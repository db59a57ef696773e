// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tasksync

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/taskflow/lib/clock"
	"github.com/bureau-foundation/taskflow/lib/task"
	"github.com/bureau-foundation/taskflow/lib/tracker"
)

// Config configures a Reconciler.
type Config struct {
	// Repository is required.
	Repository task.Repository
	// Gateway is required.
	Gateway tracker.Gateway
	// Clock is required.
	Clock clock.Clock
	// Logger is required.
	Logger *slog.Logger
	// MarkerLabel is added to pushed issues. Defaults to
	// DefaultMarkerLabel.
	MarkerLabel string
}

// Reconciler synchronizes tasks with one issue tracker.
type Reconciler struct {
	repository task.Repository
	gateway    tracker.Gateway
	provider   string
	clock      clock.Clock
	logger     *slog.Logger
	marker     string
}

// New returns a Reconciler for config.
func New(config Config) (*Reconciler, error) {
	switch {
	case config.Repository == nil:
		return nil, errors.New("tasksync: Repository is required")
	case config.Gateway == nil:
		return nil, errors.New("tasksync: Gateway is required")
	case config.Clock == nil:
		return nil, errors.New("tasksync: Clock is required")
	case config.Logger == nil:
		return nil, errors.New("tasksync: Logger is required")
	}
	marker := config.MarkerLabel
	if marker == "" {
		marker = DefaultMarkerLabel
	}
	return &Reconciler{
		repository: config.Repository,
		gateway:    config.Gateway,
		provider:   config.Gateway.Provider(),
		clock:      config.Clock,
		logger:     config.Logger,
		marker:     marker,
	}, nil
}

// PullResult counts what a pull did with each issue.
type PullResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// PullRemote fetches issues from the tracker and pulls them.
func (r *Reconciler) PullRemote(ctx context.Context, filter tracker.IssueFilter) (PullResult, error) {
	issues, err := r.gateway.ListIssues(ctx, filter)
	if err != nil {
		if errors.Is(err, task.ErrValidation) {
			return PullResult{}, err
		}
		return PullResult{}, &task.SyncError{Provider: r.provider, Err: err}
	}
	r.logger.Debug("fetched issues", "provider", r.provider, "count", len(issues))
	return r.Pull(ctx, issues)
}

// Pull imports issues in order. A repository failure stops the loop;
// the returned result counts the issues handled before it.
func (r *Reconciler) Pull(ctx context.Context, issues []tracker.ExternalIssue) (PullResult, error) {
	var result PullResult
	for _, issue := range issues {
		outcome, taskID, err := r.pullOne(ctx, issue)
		if err != nil {
			return result, &task.SyncError{Provider: r.provider, TaskID: taskID, Err: fmt.Errorf("issue #%s: %w", issue.ID, err)}
		}
		switch outcome {
		case pullCreated:
			result.Created++
		case pullUpdated:
			result.Updated++
		case pullSkipped:
			result.Skipped++
		}
	}
	r.logger.Info("pull finished",
		"provider", r.provider,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)
	return result, nil
}

type pullOutcome int

const (
	pullCreated pullOutcome = iota
	pullUpdated
	pullSkipped
)

func (r *Reconciler) pullOne(ctx context.Context, issue tracker.ExternalIssue) (pullOutcome, int64, error) {
	existing, err := r.repository.FindByExternal(ctx, r.provider, issue.ID)
	if errors.Is(err, task.ErrNotFound) {
		created, err := r.createFromIssue(ctx, issue)
		if err != nil {
			return 0, 0, err
		}
		r.logger.Debug("created task from issue", "task_id", created.ID, "issue", issue.ID)
		return pullCreated, created.ID, nil
	}
	if err != nil {
		return 0, 0, err
	}

	if existing.LastSyncedAt != nil && !issue.UpdatedAt.After(*existing.LastSyncedAt) {
		return pullSkipped, existing.ID, nil
	}

	now := r.clock.Now()
	changes := task.Changes{LastSyncedAt: task.Ptr(task.TimePtr(now))}
	if status := statusForState(issue.State, true); existing.Status != status && !existing.Status.Terminal() {
		changes.Status = &status
		if status == task.StatusCompleted {
			changes.CompletedAt = task.Ptr(task.TimePtr(now))
		}
	}
	if issue.Title != "" && issue.Title != existing.Title {
		changes.Title = &issue.Title
	}
	if _, err := r.repository.Update(ctx, existing.ID, changes); err != nil {
		return 0, existing.ID, err
	}
	r.logger.Debug("updated task from issue", "task_id", existing.ID, "issue", issue.ID)
	return pullUpdated, existing.ID, nil
}

func (r *Reconciler) createFromIssue(ctx context.Context, issue tracker.ExternalIssue) (task.Task, error) {
	now := r.clock.Now()
	status := statusForState(issue.State, false)
	newTask := task.Task{
		Title:            issue.Title,
		Description:      issue.Body,
		Status:           status,
		Priority:         ParsePriorityLabel(issue.Labels),
		Module:           ParseModuleLabel(issue.Labels),
		ExternalProvider: r.provider,
		ExternalID:       issue.ID,
		ExternalURL:      issue.URL,
		Synced:           true,
		LastSyncedAt:     &now,
		CreatedBy:        r.provider,
	}
	if status == task.StatusCompleted {
		newTask.CompletedAt = &now
	}
	return r.repository.Create(ctx, newTask)
}

// statusForState maps an issue state to a task status. An open issue
// is pending when first imported and in_progress when it updates a
// known task.
func statusForState(state string, known bool) task.Status {
	if state == "closed" {
		return task.StatusCompleted
	}
	if known {
		return task.StatusInProgress
	}
	return task.StatusPending
}

// PushOptions controls Push.
type PushOptions struct {
	// Force overwrites the linked issue of an already synced task
	// instead of refusing.
	Force bool
}

// Push publishes a task as an issue. An already synced task is refused
// with an error matching task.ErrInvalidState and ErrAlreadySynced
// unless options.Force is set, in which case its issue is updated. The
// task is left untouched when the tracker call fails.
func (r *Reconciler) Push(ctx context.Context, taskID int64, options PushOptions) (task.Task, error) {
	current, err := r.repository.Get(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	alreadySynced := current.Synced && current.SyncedTo(r.provider)
	if alreadySynced && !options.Force {
		return current, fmt.Errorf("%w: %w: task #%d is linked to %s issue #%s",
			task.ErrInvalidState, task.ErrAlreadySynced, taskID, r.provider, current.ExternalID)
	}

	notes, err := r.repository.ListNotes(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	draft := tracker.IssueDraft{
		Title:  current.Title,
		Body:   ComposeIssueBody(current, notes),
		Labels: ComposeLabels(current, r.marker),
	}

	changes := task.Changes{Synced: task.Ptr(true)}
	if alreadySynced {
		if err := r.gateway.UpdateIssue(ctx, current.ExternalID, draft); err != nil {
			return current, &task.SyncError{Provider: r.provider, TaskID: taskID, Err: err}
		}
		r.logger.Info("updated issue from task", "task_id", taskID, "issue", current.ExternalID)
	} else {
		created, err := r.gateway.CreateIssue(ctx, draft)
		if err != nil {
			return current, &task.SyncError{Provider: r.provider, TaskID: taskID, Err: err}
		}
		changes.ExternalProvider = &r.provider
		changes.ExternalID = &created.ID
		changes.ExternalURL = &created.URL
		r.logger.Info("created issue from task", "task_id", taskID, "issue", created.ID)
	}

	// LastSyncedAt must not precede the issue's updated_at.
	changes.LastSyncedAt = task.Ptr(task.TimePtr(r.clock.Now()))
	return r.repository.Update(ctx, taskID, changes)
}

// PushFailure records one task PushAll could not publish.
type PushFailure struct {
	TaskID int64 `json:"task_id"`
	Err    error `json:"-"`
}

// PushAllResult counts what PushAll did.
type PushAllResult struct {
	Pushed   int           `json:"pushed"`
	Failed   int           `json:"failed"`
	Failures []PushFailure `json:"failures,omitempty"`
}

// PushAll pushes every unsynced task in ID order. A failing task does
// not stop the loop; the returned error is non-nil when any failed.
func (r *Reconciler) PushAll(ctx context.Context) (PushAllResult, error) {
	unsynced, err := r.repository.Query(ctx, task.Filter{Synced: task.Ptr(false)}, task.OrderOldest, 0)
	if err != nil {
		return PushAllResult{}, err
	}
	slices.SortFunc(unsynced, func(a, b task.Task) int {
		return cmp.Compare(a.ID, b.ID)
	})

	var result PushAllResult
	for _, candidate := range unsynced {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := r.Push(ctx, candidate.ID, PushOptions{}); err != nil {
			r.logger.Warn("push failed", "task_id", candidate.ID, "error", err)
			result.Failed++
			result.Failures = append(result.Failures, PushFailure{TaskID: candidate.ID, Err: err})
			continue
		}
		result.Pushed++
	}

	r.logger.Info("push finished", "provider", r.provider, "pushed", result.Pushed, "failed", result.Failed)
	if result.Failed > 0 {
		failures := make([]error, len(result.Failures))
		for i, failure := range result.Failures {
			failures[i] = failure.Err
		}
		return result, &task.SyncError{
			Provider: r.provider,
			Err:      fmt.Errorf("%d of %d pushes failed: %w", result.Failed, len(unsynced), errors.Join(failures...)),
		}
	}
	return result, nil
}

// Mode selects the directions SyncAll runs.
type Mode string

const (
	ModeBoth     Mode = "both"
	ModePullOnly Mode = "pull-only"
	ModePushOnly Mode = "push-only"
)

// SyncOptions controls SyncAll.
type SyncOptions struct {
	// Mode defaults to ModeBoth.
	Mode Mode
	// Filter bounds the pull.
	Filter tracker.IssueFilter
}

// SyncResult reports both halves of a SyncAll.
type SyncResult struct {
	Pull *PullResult    `json:"pull,omitempty"`
	Push *PushAllResult `json:"push,omitempty"`
}

// SyncAll pulls and then pushes. A failed pull aborts before any push.
func (r *Reconciler) SyncAll(ctx context.Context, options SyncOptions) (SyncResult, error) {
	mode := options.Mode
	if mode == "" {
		mode = ModeBoth
	}
	if mode != ModeBoth && mode != ModePullOnly && mode != ModePushOnly {
		return SyncResult{}, fmt.Errorf("%w: unknown sync mode %q", task.ErrValidation, mode)
	}

	var result SyncResult
	if mode != ModePushOnly {
		pulled, err := r.PullRemote(ctx, options.Filter)
		result.Pull = &pulled
		if err != nil {
			return result, err
		}
	}
	if mode != ModePullOnly {
		pushed, err := r.PushAll(ctx)
		result.Push = &pushed
		if err != nil {
			return result, err
		}
	}
	return result, nil
}
