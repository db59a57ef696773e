// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/taskflow/lib/github"
	"github.com/bureau-foundation/taskflow/lib/task"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *REST {
	t.Helper()
	server := httptest.NewTLSServer(handler)
	t.Cleanup(server.Close)

	client, err := github.NewClient(github.Config{
		BaseURL:    server.URL,
		Token:      "test-token",
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("github.NewClient: %v", err)
	}
	gateway, err := NewREST(RESTConfig{Client: client, Repository: "acme/widgets", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewREST: %v", err)
	}
	return gateway
}

func TestREST_ListIssues(t *testing.T) {
	updated := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	gateway := newTestREST(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/repos/acme/widgets/issues" {
			t.Errorf("path = %s", request.URL.Path)
		}
		query := request.URL.Query()
		if query.Get("state") != "open" || query.Get("sort") != "updated" || query.Get("per_page") != "5" {
			t.Errorf("query = %s", request.URL.RawQuery)
		}
		json.NewEncoder(writer).Encode([]github.Issue{
			{Number: 3, Title: "Slow query", State: "open", UpdatedAt: updated,
				HTMLURL: "https://github.com/acme/widgets/issues/3",
				Labels:  []github.Label{{Name: "priority: urgent"}}},
			{Number: 4, Title: "Bump deps", State: "open", PullRequest: &github.PullRequestLink{URL: "x"}},
		})
	})

	issues, err := gateway.ListIssues(context.Background(), IssueFilter{Limit: 5, State: "open"})
	if err != nil {
		t.Fatalf("ListIssues: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1 (pull request skipped)", len(issues))
	}
	issue := issues[0]
	if issue.ID != "3" || issue.State != "open" || !issue.UpdatedAt.Equal(updated) {
		t.Errorf("issue = %+v", issue)
	}
	if !slices.Equal(issue.Labels, []string{"priority: urgent"}) {
		t.Errorf("labels = %v", issue.Labels)
	}
}

func TestREST_CreateIssue(t *testing.T) {
	gateway := newTestREST(t, func(writer http.ResponseWriter, request *http.Request) {
		var body github.CreateIssueRequest
		json.NewDecoder(request.Body).Decode(&body)
		if body.Title != "Add export" || !slices.Equal(body.Labels, []string{"synced-from-local"}) {
			t.Errorf("request = %+v", body)
		}
		writer.WriteHeader(http.StatusCreated)
		json.NewEncoder(writer).Encode(github.Issue{Number: 88, HTMLURL: "https://github.com/acme/widgets/issues/88"})
	})

	created, err := gateway.CreateIssue(context.Background(), IssueDraft{
		Title:  "Add export",
		Labels: []string{"synced-from-local"},
	})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if created.ID != "88" || created.URL != "https://github.com/acme/widgets/issues/88" {
		t.Errorf("created = %+v", created)
	}
}

func TestREST_UpdateIssueMergesLabels(t *testing.T) {
	gateway := newTestREST(t, func(writer http.ResponseWriter, request *http.Request) {
		switch request.Method {
		case http.MethodGet:
			json.NewEncoder(writer).Encode(github.Issue{
				Number: 88,
				Labels: []github.Label{{Name: "bug"}, {Name: "synced-from-local"}},
			})
		case http.MethodPatch:
			var body github.UpdateIssueRequest
			json.NewDecoder(request.Body).Decode(&body)
			want := []string{"bug", "synced-from-local", "priority: high"}
			if !slices.Equal(body.Labels, want) {
				t.Errorf("labels = %v, want %v", body.Labels, want)
			}
			if body.Title == nil || *body.Title != "Renamed" {
				t.Errorf("title = %v", body.Title)
			}
			json.NewEncoder(writer).Encode(github.Issue{Number: 88})
		}
	})

	err := gateway.UpdateIssue(context.Background(), "88", IssueDraft{
		Title:  "Renamed",
		Body:   "body",
		Labels: []string{"priority: high", "synced-from-local"},
	})
	if err != nil {
		t.Fatalf("UpdateIssue: %v", err)
	}
}

func TestREST_UpdateIssue_BadID(t *testing.T) {
	gateway := newTestREST(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	if err := gateway.UpdateIssue(context.Background(), "abc", IssueDraft{}); !errors.Is(err, task.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestREST_IsAuthenticated(t *testing.T) {
	status := http.StatusOK
	gateway := newTestREST(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(status)
		writer.Write([]byte(`{"login":"octocat","message":"Bad credentials"}`))
	})
	ctx := context.Background()

	if ok, err := gateway.IsAuthenticated(ctx); err != nil || !ok {
		t.Errorf("200: got %v, %v", ok, err)
	}

	status = http.StatusUnauthorized
	if ok, err := gateway.IsAuthenticated(ctx); err != nil || ok {
		t.Errorf("401: got %v, %v, want false, nil", ok, err)
	}

	status = http.StatusInternalServerError
	if _, err := gateway.IsAuthenticated(ctx); !errors.Is(err, task.ErrGateway) {
		t.Errorf("500: error = %v, want ErrGateway", err)
	}
}

func TestREST_APIErrorIsGatewayError(t *testing.T) {
	gateway := newTestREST(t, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		writer.Write([]byte(`{"message":"Not Found"}`))
	})
	_, err := gateway.ListIssues(context.Background(), IssueFilter{})
	if !errors.Is(err, task.ErrGateway) {
		t.Fatalf("error = %v, want ErrGateway", err)
	}
	if !github.IsNotFound(err) {
		t.Error("API error not reachable through the gateway error")
	}
}

func TestREST_ErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnprocessableEntity, `{"message":"Validation Failed","errors":[{"resource":"Issue","field":"title","code":"missing_field"}]}`, task.ErrValidation},
		{http.StatusConflict, `{"message":"Issue is locked"}`, task.ErrInvalidState},
		{http.StatusNotFound, `{"message":"Not Found"}`, task.ErrNotFound},
	}
	for _, test := range tests {
		gateway := newTestREST(t, func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(test.status)
			writer.Write([]byte(test.body))
		})
		_, err := gateway.CreateIssue(context.Background(), IssueDraft{Title: "x"})
		if !errors.Is(err, test.want) {
			t.Errorf("HTTP %d: error = %v, want %v", test.status, err, test.want)
		}
		if !errors.Is(err, task.ErrGateway) {
			t.Errorf("HTTP %d: error = %v, want ErrGateway as well", test.status, err)
		}
		if errors.Is(err, task.ErrTimeout) {
			t.Errorf("HTTP %d: error matched ErrTimeout", test.status)
		}
	}
}
