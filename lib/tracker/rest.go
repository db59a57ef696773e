// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/taskflow/lib/github"
	"github.com/bureau-foundation/taskflow/lib/task"
)

// maxPerPage is GitHub's largest page size for the issues endpoint.
const maxPerPage = 100

// RESTConfig configures a REST gateway.
type RESTConfig struct {
	Client *github.Client

	// Repository is "owner/repo". Required.
	Repository string

	// Timeout bounds each gateway call, including every page of a
	// listing. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// REST is a Gateway backed by the GitHub REST API.
type REST struct {
	client  *github.Client
	owner   string
	repo    string
	timeout time.Duration
}

// NewREST returns a REST gateway for config.Repository.
func NewREST(config RESTConfig) (*REST, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("%w: tracker: REST gateway requires a GitHub client", task.ErrConfiguration)
	}
	owner, repo, err := SplitRepository(config.Repository)
	if err != nil {
		return nil, err
	}
	return &REST{
		client:  config.Client,
		owner:   owner,
		repo:    repo,
		timeout: config.Timeout,
	}, nil
}

// Provider returns ProviderGitHub.
func (r *REST) Provider() string { return ProviderGitHub }

// ListIssues pages through the repository's issues, newest updated
// first, skipping pull requests, until filter.Limit issues are
// collected.
func (r *REST) ListIssues(ctx context.Context, filter IssueFilter) ([]ExternalIssue, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.withDefaults()
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	iterator := r.client.ListIssues(r.owner, r.repo, github.ListIssuesOptions{
		State:   filter.State,
		Sort:    "updated",
		PerPage: min(filter.Limit, maxPerPage),
	})
	raw, err := iterator.CollectFunc(ctx, filter.Limit, func(issue github.Issue) bool {
		return !issue.IsPullRequest()
	})
	if err != nil {
		return nil, r.gatewayError(ctx, "list-issues", err)
	}

	issues := make([]ExternalIssue, 0, len(raw))
	for _, issue := range raw {
		issues = append(issues, ExternalIssue{
			ID:        strconv.Itoa(issue.Number),
			Title:     issue.Title,
			Body:      issue.Body,
			State:     strings.ToLower(issue.State),
			Labels:    issue.LabelNames(),
			UpdatedAt: issue.UpdatedAt.UTC(),
			URL:       issue.HTMLURL,
		})
	}
	return issues, nil
}

func (r *REST) CreateIssue(ctx context.Context, draft IssueDraft) (CreatedIssue, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	issue, err := r.client.CreateIssue(ctx, r.owner, r.repo, github.CreateIssueRequest{
		Title:  draft.Title,
		Body:   draft.Body,
		Labels: draft.Labels,
	})
	if err != nil {
		return CreatedIssue{}, r.gatewayError(ctx, "create-issue", err)
	}
	return CreatedIssue{ID: strconv.Itoa(issue.Number), URL: issue.HTMLURL}, nil
}

// UpdateIssue overwrites the title and body. Labels are merged with the
// issue's current labels so labels added on GitHub survive.
func (r *REST) UpdateIssue(ctx context.Context, id string, draft IssueDraft) error {
	number, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("%w: issue id %q is not a number", task.ErrValidation, id)
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	current, err := r.client.GetIssue(ctx, r.owner, r.repo, number)
	if err != nil {
		return r.gatewayError(ctx, "get-issue", err)
	}
	labels := current.LabelNames()
	for _, label := range draft.Labels {
		if !slices.Contains(labels, label) {
			labels = append(labels, label)
		}
	}

	_, err = r.client.UpdateIssue(ctx, r.owner, r.repo, number, github.UpdateIssueRequest{
		Title:  &draft.Title,
		Body:   &draft.Body,
		Labels: labels,
	})
	if err != nil {
		return r.gatewayError(ctx, "update-issue", err)
	}
	return nil
}

// IsAuthenticated asks GitHub who the token belongs to. A 401 is a
// definite no.
func (r *REST) IsAuthenticated(ctx context.Context) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.client.GetAuthenticatedUser(ctx); err != nil {
		if github.IsUnauthorized(err) {
			return false, nil
		}
		return false, r.gatewayError(ctx, "get-user", err)
	}
	return true, nil
}

// gatewayError wraps err and adds the task error kind its response maps
// to. An expired deadline is a timeout; 404, 409 and 422 become not
// found, invalid state and validation.
func (r *REST) gatewayError(ctx context.Context, operation string, err error) error {
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		err = fmt.Errorf("%w: %w", task.ErrTimeout, err)
	case github.IsNotFound(err):
		err = fmt.Errorf("%w: %w", task.ErrNotFound, err)
	case github.IsValidationFailed(err):
		err = fmt.Errorf("%w: %w", task.ErrValidation, err)
	case github.IsConflict(err):
		err = fmt.Errorf("%w: %w", task.ErrInvalidState, err)
	}
	return task.NewGatewayError("github", operation, err)
}
