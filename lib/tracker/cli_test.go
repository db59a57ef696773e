// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// scriptedRunner records each invocation and answers with a canned
// response.
type scriptedRunner struct {
	calls  [][]string
	output string
	err    error
}

func (s *scriptedRunner) run(ctx context.Context, args ...string) (string, error) {
	s.calls = append(s.calls, args)
	return s.output, s.err
}

func newTestCLI(t *testing.T, runner *scriptedRunner) *CLI {
	t.Helper()
	gateway, err := NewCLI(CLIConfig{Repository: "acme/widgets", Runner: runner.run})
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	return gateway
}

func TestCLI_ListIssues(t *testing.T) {
	runner := &scriptedRunner{output: `[
		{"number": 12, "title": "Crash on save", "body": "trace", "state": "OPEN",
		 "labels": [{"name": "priority: high"}, {"name": "module: editor"}],
		 "updatedAt": "2026-03-01T10:00:00Z", "url": "https://github.com/acme/widgets/issues/12"},
		{"number": 9, "title": "Old bug", "body": "", "state": "CLOSED", "labels": [],
		 "updatedAt": "2026-02-01T10:00:00Z", "url": "https://github.com/acme/widgets/issues/9"}
	]`}
	issues, err := newTestCLI(t, runner).ListIssues(context.Background(), IssueFilter{})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}

	wantArgs := []string{
		"issue", "list", "--repo", "acme/widgets", "--limit", "20", "--state", "all",
		"--json", "number,title,body,state,labels,updatedAt,url",
	}
	if !slices.Equal(runner.calls[0], wantArgs) {
		t.Errorf("args = %v, want %v", runner.calls[0], wantArgs)
	}

	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(issues))
	}
	first := issues[0]
	if first.ID != "12" || first.State != "open" || first.URL != "https://github.com/acme/widgets/issues/12" {
		t.Errorf("first issue = %+v", first)
	}
	if !slices.Equal(first.Labels, []string{"priority: high", "module: editor"}) {
		t.Errorf("labels = %v", first.Labels)
	}
	if !first.UpdatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", first.UpdatedAt)
	}
	if issues[1].State != "closed" {
		t.Errorf("second state = %q, want closed", issues[1].State)
	}
}

func TestCLI_ListIssues_MalformedOutput(t *testing.T) {
	runner := &scriptedRunner{output: "not json"}
	_, err := newTestCLI(t, runner).ListIssues(context.Background(), IssueFilter{})
	if !errors.Is(err, task.ErrGateway) {
		t.Fatalf("error = %v, want ErrGateway", err)
	}
}

func TestCLI_CreateIssue(t *testing.T) {
	runner := &scriptedRunner{output: "Creating issue in acme/widgets\n\nhttps://github.com/acme/widgets/issues/57\n"}
	created, err := newTestCLI(t, runner).CreateIssue(context.Background(), IssueDraft{
		Title:  "Add export",
		Body:   "body text",
		Labels: []string{"priority: medium", "synced-from-local"},
	})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if created.ID != "57" || created.URL != "https://github.com/acme/widgets/issues/57" {
		t.Errorf("created = %+v", created)
	}
	args := strings.Join(runner.calls[0], " ")
	if !strings.Contains(args, "--label priority: medium,synced-from-local") {
		t.Errorf("labels missing from args: %s", args)
	}
}

func TestCLI_CreateIssue_UnparseableURL(t *testing.T) {
	runner := &scriptedRunner{output: "something unexpected\n"}
	_, err := newTestCLI(t, runner).CreateIssue(context.Background(), IssueDraft{Title: "x"})
	if !errors.Is(err, task.ErrGateway) {
		t.Fatalf("error = %v, want ErrGateway", err)
	}
}

func TestCLI_UpdateIssue(t *testing.T) {
	runner := &scriptedRunner{}
	err := newTestCLI(t, runner).UpdateIssue(context.Background(), "57", IssueDraft{
		Title:  "Add export",
		Body:   "new body",
		Labels: []string{"synced-from-local"},
	})
	if err != nil {
		t.Fatalf("UpdateIssue: %v", err)
	}
	want := []string{
		"issue", "edit", "57", "--repo", "acme/widgets",
		"--title", "Add export", "--body", "new body", "--add-label", "synced-from-local",
	}
	if !slices.Equal(runner.calls[0], want) {
		t.Errorf("args = %v, want %v", runner.calls[0], want)
	}
}

func TestCLI_FailureCarriesStderr(t *testing.T) {
	runner := &scriptedRunner{err: &CommandError{
		Args:   []string{"issue", "list"},
		Stderr: "HTTP 404: Not Found",
		Err:    errors.New("exit status 1"),
	}}
	_, err := newTestCLI(t, runner).ListIssues(context.Background(), IssueFilter{})

	var gatewayError *task.GatewayError
	if !errors.As(err, &gatewayError) {
		t.Fatalf("error = %v, want *task.GatewayError", err)
	}
	if gatewayError.Output != "HTTP 404: Not Found" {
		t.Errorf("Output = %q", gatewayError.Output)
	}
	if errors.Is(err, task.ErrTimeout) {
		t.Error("plain failure reported as timeout")
	}
}

func TestCLI_Timeout(t *testing.T) {
	runner := func(ctx context.Context, args ...string) (string, error) {
		<-ctx.Done()
		return "", &CommandError{Args: args, TimedOut: true, Err: ctx.Err()}
	}
	gateway, err := NewCLI(CLIConfig{Repository: "acme/widgets", Timeout: 10 * time.Millisecond, Runner: runner})
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	_, err = gateway.ListIssues(context.Background(), IssueFilter{})
	if !errors.Is(err, task.ErrTimeout) || !errors.Is(err, task.ErrGateway) {
		t.Fatalf("error = %v, want a gateway timeout", err)
	}
}

func TestCLI_IsAuthenticated(t *testing.T) {
	ok, err := newTestCLI(t, &scriptedRunner{}).IsAuthenticated(context.Background())
	if err != nil || !ok {
		t.Errorf("logged in: got %v, %v", ok, err)
	}

	exitError := exec.Command("false").Run()
	runner := &scriptedRunner{err: &CommandError{Args: []string{"auth", "status"}, Err: exitError}}
	ok, err = newTestCLI(t, runner).IsAuthenticated(context.Background())
	if err != nil || ok {
		t.Errorf("logged out: got %v, %v, want false, nil", ok, err)
	}

	runner = &scriptedRunner{err: &CommandError{Args: []string{"auth", "status"}, Err: exec.ErrNotFound}}
	if _, err := newTestCLI(t, runner).IsAuthenticated(context.Background()); !errors.Is(err, task.ErrGateway) {
		t.Errorf("missing binary: error = %v, want ErrGateway", err)
	}
}

func TestNewCLI_RequiresRepository(t *testing.T) {
	if _, err := NewCLI(CLIConfig{}); !errors.Is(err, task.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}
