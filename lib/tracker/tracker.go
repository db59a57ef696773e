// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// ProviderGitHub is the provider name recorded on tasks linked to
// GitHub issues.
const ProviderGitHub = "github"

// DefaultHost is the host DetectRepository matches when none is given.
const DefaultHost = "github.com"

// Defaults for ListIssues when the filter leaves them unset.
const (
	DefaultLimit = 20
	DefaultState = "all"
)

// ExternalIssue is an issue as read from the tracker.
type ExternalIssue struct {
	// ID is the issue number as a string.
	ID    string
	Title string
	Body  string
	// State is "open" or "closed".
	State     string
	Labels    []string
	UpdatedAt time.Time
	URL       string
}

// IssueFilter bounds a ListIssues call. Zero fields take DefaultLimit
// and DefaultState.
type IssueFilter struct {
	Limit int
	// State is "open", "closed", or "all".
	State string
}

func (f IssueFilter) withDefaults() IssueFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.State == "" {
		f.State = DefaultState
	}
	return f
}

// Validate rejects a state the tracker does not understand.
func (f IssueFilter) Validate() error {
	switch f.State {
	case "", "open", "closed", "all":
		return nil
	}
	return fmt.Errorf("%w: issue state %q is not one of open, closed, all", task.ErrValidation, f.State)
}

// IssueDraft is the content of an issue to create or overwrite.
type IssueDraft struct {
	Title  string
	Body   string
	Labels []string
}

// CreatedIssue identifies an issue the tracker just created.
type CreatedIssue struct {
	ID  string
	URL string
}

// Gateway is an issue tracker. Every method runs under the adapter's
// time bound; failures are *task.GatewayError.
type Gateway interface {
	// Provider names the tracker, for example "github".
	Provider() string

	// ListIssues returns issues in the tracker's order.
	ListIssues(ctx context.Context, filter IssueFilter) ([]ExternalIssue, error)

	CreateIssue(ctx context.Context, draft IssueDraft) (CreatedIssue, error)

	// UpdateIssue overwrites the title and body of an existing issue and
	// adds the draft's labels.
	UpdateIssue(ctx context.Context, id string, draft IssueDraft) error

	// IsAuthenticated reports whether the gateway holds usable
	// credentials. A definite "no" is (false, nil); an error means the
	// question could not be answered.
	IsAuthenticated(ctx context.Context) (bool, error)
}

// DetectRepository extracts "owner/repo" from a git remote URL on host
// (DefaultHost when empty). Both SSH (git@host:owner/repo.git) and HTTPS
// (https://host/owner/repo) forms are accepted. A URL on another host
// returns an error matching task.ErrConfiguration.
func DetectRepository(remoteURL, host string) (string, error) {
	if host == "" {
		host = DefaultHost
	}
	// The host must start the URL or follow "@" or "/", so
	// "evilgithub.com" does not pass for "github.com".
	pattern := regexp.MustCompile(`^(?:.*[@/])?` + regexp.QuoteMeta(host) + `[:/]([^/]+/[^/]+?)(?:\.git)?/?$`)
	match := pattern.FindStringSubmatch(strings.TrimSpace(remoteURL))
	if match == nil {
		return "", fmt.Errorf("%w: remote %q is not a %s repository", task.ErrConfiguration, remoteURL, host)
	}
	return match[1], nil
}

// SplitRepository splits "owner/repo".
func SplitRepository(repository string) (owner, repo string, err error) {
	owner, repo, found := strings.Cut(repository, "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: repository %q is not in owner/repo form", task.ErrConfiguration, repository)
	}
	return owner, repo, nil
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
