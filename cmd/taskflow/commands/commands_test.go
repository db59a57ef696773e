// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/taskflow/cmd/taskflow/cli"
	"github.com/bureau-foundation/taskflow/lib/clock"
	"github.com/bureau-foundation/taskflow/lib/github"
	"github.com/bureau-foundation/taskflow/lib/task"
	"github.com/bureau-foundation/taskflow/lib/tracker"
)

var epoch = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// fakeGH answers gh invocations by their first two words.
type fakeGH struct {
	calls   [][]string
	issues  string
	created int
	authErr error
}

func (g *fakeGH) run(ctx context.Context, args ...string) (string, error) {
	g.calls = append(g.calls, args)
	switch strings.Join(args[:2], " ") {
	case "auth status":
		return "", g.authErr
	case "issue list":
		return g.issues, nil
	case "issue create":
		g.created++
		return fmt.Sprintf("Creating issue in acme/widgets\n\nhttps://github.com/acme/widgets/issues/%d\n", 100+g.created), nil
	case "issue edit":
		return "", nil
	}
	return "", fmt.Errorf("unexpected gh call %v", args)
}

func (g *fakeGH) callsTo(prefix string) int {
	count := 0
	for _, call := range g.calls {
		if strings.HasPrefix(strings.Join(call, " "), prefix) {
			count++
		}
	}
	return count
}

type harness struct {
	t          *testing.T
	dir        string
	configPath string
	gh         *fakeGH
	clock      *clock.FakeClock
	httpClient *http.Client
}

// newHarness writes a config whose repository is a plain directory, so
// every VCS step is skipped, and whose tracker repository is fixed.
func newHarness(t *testing.T, extraConfig string) *harness {
	t.Helper()
	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	if err := os.Mkdir(work, 0o755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "taskflow.yaml")
	content := fmt.Sprintf("database: %s\nrepository: %s\ntracker:\n  repository: acme/widgets\n%s",
		filepath.Join(dir, "data", "tasks.db"), work, extraConfig)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return &harness{t: t, dir: dir, configPath: configPath, gh: &fakeGH{}, clock: clock.Fake(epoch)}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var stdout bytes.Buffer
	env := &environment{
		stdout:     &stdout,
		stdin:      strings.NewReader(""),
		clock:      h.clock,
		ghRunner:   h.gh.run,
		httpClient: h.httpClient,
	}
	root := newRoot(env)
	root.Stderr = io.Discard
	err := root.Execute(context.Background(), append(args, "--config", h.configPath))
	h.clock.Advance(time.Second)
	return ansi.Strip(stdout.String()), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	output, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("taskflow %s: %v", strings.Join(args, " "), err)
	}
	return output
}

func decode[T any](t *testing.T, output string) T {
	t.Helper()
	var value T
	if err := json.Unmarshal([]byte(output), &value); err != nil {
		t.Fatalf("decoding %q: %v", output, err)
	}
	return value
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func wantCategory(t *testing.T, err error, want cli.ErrorCategory) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a %s error, got nil", want)
	}
	if got := cli.CategoryOf(err); got != want {
		t.Errorf("category = %s, want %s (error: %v)", got, want, err)
	}
}

func TestCaptureListShow(t *testing.T) {
	h := newHarness(t, "")

	output := h.mustRun("capture", "Fix", "login", "redirect", "-p", "high", "-m", "auth", "-c", "seen in staging")
	if !strings.Contains(output, "Captured #1 Fix login redirect [high]") {
		t.Errorf("capture output = %q", output)
	}

	captured := decode[task.Task](t, h.mustRun("capture", "Write docs", "--json"))
	if captured.ID != 2 || captured.Status != task.StatusPending || captured.Priority != task.PriorityMedium {
		t.Errorf("captured = %+v", captured)
	}

	tasks := decode[[]task.Task](t, h.mustRun("list", "--json"))
	if len(tasks) != 2 || tasks[0].ID != 2 {
		t.Fatalf("list = %+v, want both tasks newest first", tasks)
	}

	filtered := decode[[]task.Task](t, h.mustRun("list", "--module", "auth", "--json"))
	if len(filtered) != 1 || filtered[0].Title != "Fix login redirect" {
		t.Errorf("filtered list = %+v", filtered)
	}

	table := h.mustRun("list")
	for _, want := range []string{"ID", "STATUS", "Fix login redirect", "auth", "pending"} {
		if !strings.Contains(table, want) {
			t.Errorf("list table is missing %q:\n%s", want, table)
		}
	}

	detail := h.mustRun("show", "#1")
	for _, want := range []string{"#1 Fix login redirect", "Priority:", "high", "Notes", "Context: seen in staging"} {
		if !strings.Contains(detail, want) {
			t.Errorf("show output is missing %q:\n%s", want, detail)
		}
	}
}

func TestCommandValidation(t *testing.T) {
	h := newHarness(t, "")

	_, err := h.run("capture")
	wantCategory(t, err, cli.CategoryValidation)

	_, err = h.run("capture", "x", "-p", "critical")
	wantCategory(t, err, cli.CategoryValidation)

	_, err = h.run("show", "abc")
	wantCategory(t, err, cli.CategoryValidation)

	_, err = h.run("show", "42")
	wantCategory(t, err, cli.CategoryNotFound)

	_, err = h.run("list", "--status", "done")
	wantCategory(t, err, cli.CategoryValidation)

	_, err = h.run("complete", "--delete-branch")
	wantCategory(t, err, cli.CategoryValidation)

	_, err = h.run("sync", "--pull-only", "--push-only")
	wantCategory(t, err, cli.CategoryValidation)
}

func TestBadConfigIsValidation(t *testing.T) {
	h := newHarness(t, "pull:\n  limit: -1\n")
	_, err := h.run("list")
	wantCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "pull.limit") {
		t.Errorf("error = %v, want it to name pull.limit", err)
	}
}

func TestNoteAndSummary(t *testing.T) {
	h := newHarness(t, "")
	h.mustRun("capture", "Low chore", "-p", "low")
	h.mustRun("capture", "Urgent fix", "-p", "urgent")

	output := h.mustRun("note", "2", "root", "cause", "found")
	if !strings.Contains(output, "task #2") {
		t.Errorf("note output = %q", output)
	}
	detail := decode[task.Detail](t, h.mustRun("show", "2", "--json"))
	if len(detail.Notes) != 1 || detail.Notes[0].Content != "root cause found" {
		t.Errorf("notes = %+v", detail.Notes)
	}

	_, err := h.run("note", "2")
	wantCategory(t, err, cli.CategoryValidation)
	_, err = h.run("note", "9", "text")
	wantCategory(t, err, cli.CategoryNotFound)

	summary := h.mustRun("summary")
	for _, want := range []string{"Current: none", "0 in progress, 2 pending", "Up next", "#2 Urgent fix"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary is missing %q:\n%s", want, summary)
		}
	}
}

func TestNext(t *testing.T) {
	h := newHarness(t, "")
	if output := h.mustRun("next"); !strings.Contains(output, "Nothing pending.") {
		t.Errorf("next on empty store = %q", output)
	}

	h.mustRun("capture", "Medium one")
	h.mustRun("capture", "Urgent one", "-p", "urgent")
	h.mustRun("capture", "Urgent two", "-p", "urgent")

	next := decode[task.Task](t, h.mustRun("next", "--json"))
	if next.Title != "Urgent one" {
		t.Errorf("next = %q, want the oldest urgent task", next.Title)
	}
	if output := h.mustRun("next", "-p", "medium"); !strings.Contains(output, "Medium one") {
		t.Errorf("next -p medium = %q", output)
	}
}

func TestStartAndComplete(t *testing.T) {
	requireGit(t)
	h := newHarness(t, "")

	h.mustRun("capture", "Earlier task")
	started := decode[struct {
		Task    task.Task `json:"task"`
		Resumed bool      `json:"resumed"`
		Branch  string    `json:"branch"`
	}](t, h.mustRun("start", "Fix bug", "--json"))
	if started.Task.Status != task.StatusInProgress || !started.Task.Focused() || started.Resumed {
		t.Errorf("started = %+v", started)
	}
	if started.Branch != "" {
		t.Errorf("branch = %q outside a git repository", started.Branch)
	}

	_, err := h.run("start", "x", "--id", "1")
	wantCategory(t, err, cli.CategoryValidation)

	resumed := h.mustRun("start", "--id", "1")
	if !strings.Contains(resumed, "Resumed #1 Earlier task") {
		t.Errorf("resume output = %q", resumed)
	}

	completed := h.mustRun("complete")
	if !strings.Contains(completed, "Completed #1 Earlier task") {
		t.Errorf("complete output = %q", completed)
	}
	_, err = h.run("complete", "1")
	wantCategory(t, err, cli.CategoryConflict)

	_, err = h.run("start", "--id", "1")
	wantCategory(t, err, cli.CategoryConflict)

	// Task 2 lost focus to task 1, so nothing is left to complete
	// implicitly.
	_, err = h.run("complete")
	if err == nil {
		t.Error("complete with no focused task succeeded")
	}
	h.mustRun("complete", "2")
}

func TestStartNoBranchFlag(t *testing.T) {
	h := newHarness(t, "")
	started := decode[struct {
		Task   task.Task `json:"task"`
		Branch string    `json:"branch"`
	}](t, h.mustRun("start", "Hotfix", "--no-branch", "--json"))
	if started.Task.Title != "Hotfix" || !started.Task.Focused() || started.Branch != "" {
		t.Errorf("started = %+v", started)
	}
}

func TestPushAndPullThroughGH(t *testing.T) {
	h := newHarness(t, "")
	h.mustRun("capture", "Export CSV", "-p", "high", "-m", "reports")

	output := h.mustRun("push", "1")
	if !strings.Contains(output, "Pushed #1 Export CSV to github#101") {
		t.Errorf("push output = %q", output)
	}
	var createCall []string
	for _, call := range h.gh.calls {
		if call[0] == "issue" && call[1] == "create" {
			createCall = call
		}
	}
	joined := strings.Join(createCall, " ")
	if !strings.Contains(joined, "--repo acme/widgets") || !strings.Contains(joined, "priority: high,module: reports,synced-from-local") {
		t.Errorf("issue create call = %v", createCall)
	}

	_, err := h.run("push", "1")
	wantCategory(t, err, cli.CategoryConflict)
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("error = %v, want a --force hint", err)
	}

	h.mustRun("push", "1", "--force")
	if h.gh.callsTo("issue edit 101") != 1 {
		t.Errorf("forced push did not edit the issue: %v", h.gh.calls)
	}

	h.mustRun("capture", "Second")
	h.mustRun("capture", "Third")
	all := decode[pushAllOutput](t, h.mustRun("push", "--all", "--json"))
	if all.Pushed != 2 || all.Failed != 0 {
		t.Errorf("push --all = %+v", all)
	}

	h.gh.issues = `[{"number":5,"title":"Crash on save","body":"steps","state":"OPEN",
		"labels":[{"name":"priority: urgent"},{"name":"module: editor"}],
		"updatedAt":"2026-10-01T12:00:00Z","url":"https://github.com/acme/widgets/issues/5"}]`
	if output := h.mustRun("pull"); !strings.Contains(output, "Pulled: 1 created, 0 updated, 0 unchanged") {
		t.Errorf("pull output = %q", output)
	}
	if output := h.mustRun("pull"); !strings.Contains(output, "0 created, 0 updated, 1 unchanged") {
		t.Errorf("second pull output = %q", output)
	}
	listCalls := 0
	for _, call := range h.gh.calls {
		if call[1] == "list" {
			listCalls++
			if !strings.Contains(strings.Join(call, " "), "--limit 20 --state all") {
				t.Errorf("issue list call = %v, want the configured defaults", call)
			}
		}
	}
	if listCalls != 2 {
		t.Errorf("issue list called %d times, want 2", listCalls)
	}

	imported := decode[[]task.Task](t, h.mustRun("list", "--module", "editor", "--json"))
	if len(imported) != 1 || imported[0].Priority != task.PriorityUrgent || imported[0].ExternalID != "5" {
		t.Errorf("imported = %+v", imported)
	}
}

func TestSync(t *testing.T) {
	h := newHarness(t, "")
	h.gh.issues = `[]`
	h.mustRun("capture", "Local only")

	result := decode[syncOutput](t, h.mustRun("sync", "--json"))
	if result.Pull == nil || result.Push == nil || result.Push.Pushed != 1 {
		t.Errorf("sync = %+v", result)
	}

	pullOnly := decode[syncOutput](t, h.mustRun("sync", "--pull-only", "--json", "--limit", "5"))
	if pullOnly.Push != nil {
		t.Errorf("pull-only sync pushed: %+v", pullOnly.Push)
	}
	if h.gh.callsTo("issue list --repo acme/widgets --limit 5") != 1 {
		t.Errorf("--limit not passed through: %v", h.gh.calls)
	}
}

func TestSyncUnauthenticated(t *testing.T) {
	h := newHarness(t, "")
	h.gh.authErr = &tracker.CommandError{
		Args:   []string{"auth", "status"},
		Stderr: "You are not logged into any GitHub hosts.",
		Err:    &exec.ExitError{},
	}
	_, err := h.run("sync")
	wantCategory(t, err, cli.CategoryValidation)
	if h.gh.callsTo("issue") != 0 {
		t.Errorf("issues were touched without authentication: %v", h.gh.calls)
	}
}

func TestPushOverREST(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer rest-token" {
			t.Errorf("Authorization = %q", request.Header.Get("Authorization"))
		}
		switch {
		case request.Method == http.MethodGet && request.URL.Path == "/user":
			json.NewEncoder(writer).Encode(github.User{Login: "ada"})
		case request.Method == http.MethodPost && request.URL.Path == "/repos/acme/widgets/issues":
			writer.WriteHeader(http.StatusCreated)
			json.NewEncoder(writer).Encode(github.Issue{Number: 12, HTMLURL: "https://github.com/acme/widgets/issues/12"})
		default:
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	t.Setenv("TASKFLOW_TEST_TOKEN", "rest-token")

	h := newHarness(t, fmt.Sprintf("  transport: rest\n  api_url: %s\n  token_env: TASKFLOW_TEST_TOKEN\n", server.URL))
	h.httpClient = server.Client()

	h.mustRun("capture", "Over the API")
	pushed := decode[task.Task](t, h.mustRun("push", "1", "--json"))
	if pushed.ExternalID != "12" || !pushed.Synced || pushed.ExternalURL != "https://github.com/acme/widgets/issues/12" {
		t.Errorf("pushed = %+v", pushed)
	}
	if len(h.gh.calls) != 0 {
		t.Errorf("gh was invoked under the rest transport: %v", h.gh.calls)
	}
}

func TestRESTWithoutToken(t *testing.T) {
	t.Setenv("TASKFLOW_MISSING_TOKEN", "")
	h := newHarness(t, "  transport: rest\n  token_env: TASKFLOW_MISSING_TOKEN\n")
	h.mustRun("capture", "x")
	_, err := h.run("push", "1")
	wantCategory(t, err, cli.CategoryValidation)
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "")
	if output := h.mustRun("version"); !strings.HasPrefix(output, "taskflow ") {
		t.Errorf("version output = %q", output)
	}
}

func TestParseTaskID(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"12", 12, true},
		{"#7", 7, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"seven", 0, false},
		{"#", 0, false},
	}
	for _, test := range tests {
		got, err := parseTaskID(test.input)
		if test.ok != (err == nil) || got != test.want {
			t.Errorf("parseTaskID(%q) = %d, %v", test.input, got, err)
		}
	}
}
