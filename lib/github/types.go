// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "time"

// User is a GitHub user reference.
type User struct {
	Login   string `json:"login"`
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

// Label is a GitHub issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PullRequestLink is present on items of the issues endpoint that are
// pull requests.
type PullRequestLink struct {
	URL string `json:"url"`
}

// Issue is a GitHub issue.
type Issue struct {
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	State       string           `json:"state"` // "open" or "closed"
	HTMLURL     string           `json:"html_url"`
	User        User             `json:"user"`
	Labels      []Label          `json:"labels"`
	PullRequest *PullRequestLink `json:"pull_request,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	ClosedAt    *time.Time       `json:"closed_at"`
}

// IsPullRequest reports whether the issues endpoint returned a pull
// request rather than an issue.
func (issue Issue) IsPullRequest() bool {
	return issue.PullRequest != nil
}

// LabelNames returns the issue's label names in API order.
func (issue Issue) LabelNames() []string {
	names := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		names = append(names, label.Name)
	}
	return names
}
