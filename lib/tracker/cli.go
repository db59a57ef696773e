// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// Runner executes the gh binary with args and returns its stdout.
// Failures should be a *CommandError so stderr reaches the user.
type Runner func(ctx context.Context, args ...string) (string, error)

// CommandError is a failed or timed-out gh invocation.
type CommandError struct {
	Args     []string
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *CommandError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("gh %s: timed out: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("gh %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error         { return e.Err }
func (e *CommandError) CommandOutput() string { return e.Stderr }
func (e *CommandError) Timeout() bool         { return e.TimedOut }

// ExecRunner returns a Runner that executes binary (usually "gh").
func ExecRunner(binary string) Runner {
	return func(ctx context.Context, args ...string) (string, error) {
		var stdout, stderr bytes.Buffer
		command := exec.CommandContext(ctx, binary, args...)
		command.Stdout = &stdout
		command.Stderr = &stderr
		command.Env = append(os.Environ(), "GH_PROMPT_DISABLED=1", "NO_COLOR=1")
		if err := command.Run(); err != nil {
			return "", &CommandError{
				Args:     args,
				Stderr:   strings.TrimSpace(stderr.String()),
				TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
				Err:      err,
			}
		}
		return stdout.String(), nil
	}
}

// CLIConfig configures a CLI gateway.
type CLIConfig struct {
	// Repository is "owner/repo". Required.
	Repository string

	// Host is passed to "gh auth status --hostname". Defaults to
	// DefaultHost.
	Host string

	// Timeout bounds each gh invocation. Zero means no bound beyond
	// the caller's context.
	Timeout time.Duration

	// Runner defaults to ExecRunner("gh").
	Runner Runner
}

// CLI is a Gateway backed by the gh command line tool.
type CLI struct {
	repository string
	host       string
	timeout    time.Duration
	run        Runner
}

// NewCLI returns a gh-backed gateway for config.Repository.
func NewCLI(config CLIConfig) (*CLI, error) {
	if _, _, err := SplitRepository(config.Repository); err != nil {
		return nil, err
	}
	runner := config.Runner
	if runner == nil {
		runner = ExecRunner("gh")
	}
	host := config.Host
	if host == "" {
		host = DefaultHost
	}
	return &CLI{
		repository: config.Repository,
		host:       host,
		timeout:    config.Timeout,
		run:        runner,
	}, nil
}

// Provider returns ProviderGitHub.
func (c *CLI) Provider() string { return ProviderGitHub }

// call runs gh under the configured timeout and lifts failures into
// task.GatewayError.
func (c *CLI) call(ctx context.Context, operation string, args ...string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()
	output, err := c.run(ctx, args...)
	if err != nil {
		return "", task.NewGatewayError("gh", operation, err)
	}
	return output, nil
}

// ghIssue is one element of "gh issue list --json ...".
type ghIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	UpdatedAt time.Time `json:"updatedAt"`
	URL       string    `json:"url"`
}

func (c *CLI) ListIssues(ctx context.Context, filter IssueFilter) ([]ExternalIssue, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = filter.withDefaults()
	output, err := c.call(ctx, "issue-list",
		"issue", "list",
		"--repo", c.repository,
		"--limit", strconv.Itoa(filter.Limit),
		"--state", filter.State,
		"--json", "number,title,body,state,labels,updatedAt,url",
	)
	if err != nil {
		return nil, err
	}

	var raw []ghIssue
	if err := json.Unmarshal([]byte(output), &raw); err != nil {
		return nil, task.NewGatewayError("gh", "issue-list", fmt.Errorf("decoding issue list: %w", err))
	}

	issues := make([]ExternalIssue, 0, len(raw))
	for _, item := range raw {
		labels := make([]string, 0, len(item.Labels))
		for _, label := range item.Labels {
			labels = append(labels, label.Name)
		}
		issues = append(issues, ExternalIssue{
			ID:        strconv.Itoa(item.Number),
			Title:     item.Title,
			Body:      item.Body,
			State:     strings.ToLower(item.State),
			Labels:    labels,
			UpdatedAt: item.UpdatedAt.UTC(),
			URL:       item.URL,
		})
	}
	return issues, nil
}

// issueURLPattern extracts the issue number from the URL gh prints
// after creating an issue.
var issueURLPattern = regexp.MustCompile(`/issues/(\d+)$`)

func (c *CLI) CreateIssue(ctx context.Context, draft IssueDraft) (CreatedIssue, error) {
	args := []string{
		"issue", "create",
		"--repo", c.repository,
		"--title", draft.Title,
		"--body", draft.Body,
	}
	if len(draft.Labels) > 0 {
		args = append(args, "--label", strings.Join(draft.Labels, ","))
	}
	output, err := c.call(ctx, "issue-create", args...)
	if err != nil {
		return CreatedIssue{}, err
	}

	url := lastLine(output)
	match := issueURLPattern.FindStringSubmatch(url)
	if match == nil {
		return CreatedIssue{}, task.NewGatewayError("gh", "issue-create",
			fmt.Errorf("could not find an issue number in gh output %q", strings.TrimSpace(output)))
	}
	return CreatedIssue{ID: match[1], URL: url}, nil
}

func (c *CLI) UpdateIssue(ctx context.Context, id string, draft IssueDraft) error {
	args := []string{
		"issue", "edit", id,
		"--repo", c.repository,
		"--title", draft.Title,
		"--body", draft.Body,
	}
	if len(draft.Labels) > 0 {
		args = append(args, "--add-label", strings.Join(draft.Labels, ","))
	}
	_, err := c.call(ctx, "issue-edit", args...)
	return err
}

// IsAuthenticated runs "gh auth status". A non-zero exit means not
// logged in; a timeout or a missing gh binary is an error.
func (c *CLI) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := c.call(ctx, "auth-status", "auth", "status", "--hostname", c.host)
	if err == nil {
		return true, nil
	}
	var commandError *CommandError
	var exitError *exec.ExitError
	if errors.As(err, &commandError) && !commandError.TimedOut && errors.As(err, &exitError) {
		return false, nil
	}
	return false, err
}

// lastLine returns the last non-empty line of output, trimmed. gh may
// print progress text before the issue URL.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
