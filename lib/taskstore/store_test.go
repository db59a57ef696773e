// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/taskflow/lib/clock"
	"github.com/bureau-foundation/taskflow/lib/task"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	fakeClock := clock.Fake(epoch)
	store, err := Open(Config{
		Path:   filepath.Join(t.TempDir(), "tasks.db"),
		Clock:  fakeClock,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store, fakeClock
}

func mustCreate(t *testing.T, store *Store, newTask task.Task) task.Task {
	t.Helper()
	created, err := store.Create(context.Background(), newTask)
	if err != nil {
		t.Fatalf("Create(%q): %v", newTask.Title, err)
	}
	return created
}

func TestOpenRequiresClockAndLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	if _, err := Open(Config{Path: path, Logger: slog.New(slog.DiscardHandler)}); err == nil {
		t.Error("Open without Clock succeeded")
	}
	if _, err := Open(Config{Path: path, Clock: clock.Fake(epoch)}); err == nil {
		t.Error("Open without Logger succeeded")
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	store, _ := openTestStore(t)

	created := mustCreate(t, store, task.Task{Title: "Write docs"})

	if created.ID == 0 {
		t.Fatal("ID not assigned")
	}
	if created.Status != task.StatusPending {
		t.Errorf("Status = %q, want pending", created.Status)
	}
	if created.Priority != task.PriorityMedium {
		t.Errorf("Priority = %q, want medium", created.Priority)
	}
	if created.CreatedBy != task.SourceUser {
		t.Errorf("CreatedBy = %q, want user", created.CreatedBy)
	}
	if !created.CreatedAt.Equal(epoch) || !created.UpdatedAt.Equal(epoch) {
		t.Errorf("timestamps = %v/%v, want %v", created.CreatedAt, created.UpdatedAt, epoch)
	}
	if created.CompletedAt != nil || created.FocusedAt != nil || created.LastSyncedAt != nil {
		t.Errorf("optional timestamps set on a fresh task: %+v", created)
	}
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.Create(context.Background(), task.Task{Title: "   "})
	if !errors.Is(err, task.ErrValidation) {
		t.Fatalf("Create(blank) error = %v, want ErrValidation", err)
	}
}

func TestCreateCompletedStampsCompletion(t *testing.T) {
	store, _ := openTestStore(t)
	created := mustCreate(t, store, task.Task{Title: "Imported", Status: task.StatusCompleted})
	if created.CompletedAt == nil || !created.CompletedAt.Equal(epoch) {
		t.Fatalf("CompletedAt = %v, want %v", created.CompletedAt, epoch)
	}
}

func TestRoundTripAllFields(t *testing.T) {
	store, _ := openTestStore(t)
	synced := epoch.Add(-time.Hour)

	created := mustCreate(t, store, task.Task{
		Title:            "Fix bug",
		Description:      "Login fails on Safari",
		Priority:         task.PriorityUrgent,
		Module:           "auth",
		Branch:           "task/fix-bug",
		Files:            []string{"auth/login.go", "auth/login_test.go"},
		ExternalProvider: "github",
		ExternalID:       "12",
		ExternalURL:      "https://github.com/acme/app/issues/12",
		Synced:           true,
		LastSyncedAt:     &synced,
		CreatedBy:        "github",
	})

	got, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "Login fails on Safari" || got.Module != "auth" || got.Branch != "task/fix-bug" {
		t.Errorf("text fields = %+v", got)
	}
	if !slices.Equal(got.Files, []string{"auth/login.go", "auth/login_test.go"}) {
		t.Errorf("Files = %v", got.Files)
	}
	if !got.Synced || got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(synced) {
		t.Errorf("sync fields = %v %v", got.Synced, got.LastSyncedAt)
	}
	if got.ExternalURL != "https://github.com/acme/app/issues/12" || got.CreatedBy != "github" {
		t.Errorf("external fields = %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.Get(context.Background(), 404)
	if !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("Get(404) error = %v, want ErrNotFound", err)
	}
}

func TestExternalPairIsUnique(t *testing.T) {
	store, _ := openTestStore(t)
	mustCreate(t, store, task.Task{Title: "one", ExternalProvider: "github", ExternalID: "5"})

	_, err := store.Create(context.Background(), task.Task{Title: "two", ExternalProvider: "github", ExternalID: "5"})
	if !errors.Is(err, task.ErrInvalidState) {
		t.Fatalf("duplicate external link error = %v, want ErrInvalidState", err)
	}

	// Unlinked tasks never collide.
	mustCreate(t, store, task.Task{Title: "three"})
	mustCreate(t, store, task.Task{Title: "four"})

	found, err := store.FindByExternal(context.Background(), "github", "5")
	if err != nil {
		t.Fatalf("FindByExternal: %v", err)
	}
	if found.Title != "one" {
		t.Errorf("FindByExternal title = %q, want one", found.Title)
	}
	if _, err := store.FindByExternal(context.Background(), "github", "6"); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("FindByExternal(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUpdateMaintainsCompletedAt(t *testing.T) {
	store, fakeClock := openTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, task.Task{Title: "ship it"})

	fakeClock.Advance(time.Minute)
	completed, err := store.Update(ctx, created.ID, task.Changes{Status: task.Ptr(task.StatusCompleted)})
	if err != nil {
		t.Fatalf("Update(completed): %v", err)
	}
	if completed.CompletedAt == nil || !completed.CompletedAt.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("CompletedAt = %v, want %v", completed.CompletedAt, epoch.Add(time.Minute))
	}
	if !completed.UpdatedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v, want bumped", completed.UpdatedAt)
	}

	reopened, err := store.Update(ctx, created.ID, task.Changes{Status: task.Ptr(task.StatusInProgress)})
	if err != nil {
		t.Fatalf("Update(in_progress): %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Errorf("CompletedAt = %v after leaving completed, want nil", reopened.CompletedAt)
	}

	var noTime *time.Time
	_, err = store.Update(ctx, created.ID, task.Changes{
		Status:      task.Ptr(task.StatusCompleted),
		CompletedAt: &noTime,
	})
	if !errors.Is(err, task.ErrValidation) {
		t.Errorf("completed without completed_at error = %v, want ErrValidation", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, task.Task{Title: "old", Module: "api", Priority: task.PriorityLow})

	updated, err := store.Update(ctx, created.ID, task.Changes{
		Title:  task.Ptr("new"),
		Module: task.Ptr(""),
		Files:  &[]string{"a.go"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "new" {
		t.Errorf("Title = %q, want new", updated.Title)
	}
	if updated.Module != "" {
		t.Errorf("Module = %q, want cleared", updated.Module)
	}
	if updated.Priority != task.PriorityLow {
		t.Errorf("Priority = %q, untouched field changed", updated.Priority)
	}
	if !slices.Equal(updated.Files, []string{"a.go"}) {
		t.Errorf("Files = %v", updated.Files)
	}

	if _, err := store.Update(ctx, 999, task.Changes{Title: task.Ptr("x")}); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, created.ID, task.Changes{Priority: task.Ptr(task.Priority("p0"))}); !errors.Is(err, task.ErrValidation) {
		t.Errorf("Update(bad priority) error = %v, want ErrValidation", err)
	}
}

func focusedIDs(t *testing.T, store *Store) []int64 {
	t.Helper()
	focused, err := store.Query(context.Background(), task.Filter{Focused: true}, task.OrderOldest, 0)
	if err != nil {
		t.Fatalf("Query(focused): %v", err)
	}
	var ids []int64
	for _, each := range focused {
		ids = append(ids, each.ID)
	}
	return ids
}

func TestFocusIsExclusive(t *testing.T) {
	store, fakeClock := openTestStore(t)
	ctx := context.Background()

	first := mustCreate(t, store, task.Task{Title: "first"})
	second := mustCreate(t, store, task.Task{Title: "second"})
	third := mustCreate(t, store, task.Task{Title: "third", FocusedAt: task.TimePtr(epoch)})

	if ids := focusedIDs(t, store); !slices.Equal(ids, []int64{third.ID}) {
		t.Fatalf("focused after create = %v, want [%d]", ids, third.ID)
	}

	for _, id := range []int64{first.ID, second.ID, first.ID, third.ID} {
		fakeClock.Advance(time.Second)
		focused, err := store.Focus(ctx, id, fakeClock.Now(), task.Changes{Status: task.Ptr(task.StatusInProgress)})
		if err != nil {
			t.Fatalf("Focus(%d): %v", id, err)
		}
		if focused.FocusedAt == nil || !focused.FocusedAt.Equal(fakeClock.Now()) {
			t.Errorf("Focus(%d) FocusedAt = %v", id, focused.FocusedAt)
		}
		if focused.Status != task.StatusInProgress {
			t.Errorf("Focus(%d) Status = %q, changes not applied", id, focused.Status)
		}
		if ids := focusedIDs(t, store); !slices.Equal(ids, []int64{id}) {
			t.Fatalf("focused after Focus(%d) = %v", id, ids)
		}
	}
}

func TestFocusFailureKeepsPreviousFocus(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	current := mustCreate(t, store, task.Task{Title: "current", FocusedAt: task.TimePtr(epoch)})
	other := mustCreate(t, store, task.Task{Title: "other"})

	// An invalid change aborts the transaction after focus was cleared.
	_, err := store.Focus(ctx, other.ID, epoch, task.Changes{Title: task.Ptr("")})
	if !errors.Is(err, task.ErrValidation) {
		t.Fatalf("Focus with blank title error = %v, want ErrValidation", err)
	}
	if ids := focusedIDs(t, store); !slices.Equal(ids, []int64{current.ID}) {
		t.Fatalf("focused after failed Focus = %v, want [%d]", ids, current.ID)
	}

	if _, err := store.Focus(ctx, 999, epoch, task.Changes{}); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("Focus(missing) error = %v, want ErrNotFound", err)
	}
	if ids := focusedIDs(t, store); !slices.Equal(ids, []int64{current.ID}) {
		t.Fatalf("focused after Focus(missing) = %v, want [%d]", ids, current.ID)
	}
}

func TestQueryFiltersAndOrders(t *testing.T) {
	store, fakeClock := openTestStore(t)
	ctx := context.Background()

	low := mustCreate(t, store, task.Task{Title: "low", Priority: task.PriorityLow, Module: "api"})
	fakeClock.Advance(time.Second)
	urgentOld := mustCreate(t, store, task.Task{Title: "urgent old", Priority: task.PriorityUrgent})
	fakeClock.Advance(time.Second)
	medium := mustCreate(t, store, task.Task{Title: "medium", Module: "api", Synced: true})
	fakeClock.Advance(time.Second)
	urgentNew := mustCreate(t, store, task.Task{Title: "urgent new", Priority: task.PriorityUrgent})
	mustCreate(t, store, task.Task{Title: "done", Priority: task.PriorityUrgent, Status: task.StatusCompleted})

	titles := func(tasks []task.Task) []string {
		var result []string
		for _, each := range tasks {
			result = append(result, each.Title)
		}
		return result
	}

	byPriority, err := store.Query(ctx, task.Filter{Status: task.StatusPending}, task.OrderPriority, 0)
	if err != nil {
		t.Fatalf("Query(priority): %v", err)
	}
	want := []string{urgentOld.Title, urgentNew.Title, medium.Title, low.Title}
	if got := titles(byPriority); !slices.Equal(got, want) {
		t.Errorf("priority order = %v, want %v", got, want)
	}

	newest, err := store.Query(ctx, task.Filter{Module: "api"}, task.OrderNewest, 1)
	if err != nil {
		t.Fatalf("Query(module): %v", err)
	}
	if got := titles(newest); !slices.Equal(got, []string{"medium"}) {
		t.Errorf("newest api task = %v, want [medium]", got)
	}

	unsynced := false
	count, err := store.Count(ctx, task.Filter{Synced: &unsynced})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Errorf("unsynced count = %d, want 4", count)
	}
}

func TestNotesAppendInOrderAndCascade(t *testing.T) {
	store, fakeClock := openTestStore(t)
	ctx := context.Background()
	owner := mustCreate(t, store, task.Task{Title: "noted"})

	for _, content := range []string{"first", "second", "third"} {
		if _, err := store.CreateNote(ctx, owner.ID, content, ""); err != nil {
			t.Fatalf("CreateNote(%q): %v", content, err)
		}
		fakeClock.Advance(time.Millisecond)
	}

	notes, err := store.ListNotes(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	var contents []string
	for _, note := range notes {
		contents = append(contents, note.Content)
		if note.Source != task.SourceUser {
			t.Errorf("note %q source = %q, want user", note.Content, note.Source)
		}
	}
	if !slices.Equal(contents, []string{"first", "second", "third"}) {
		t.Errorf("notes = %v", contents)
	}

	if _, err := store.CreateNote(ctx, 999, "orphan", "user"); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("CreateNote(missing task) error = %v, want ErrNotFound", err)
	}
	if _, err := store.CreateNote(ctx, owner.ID, " ", "user"); !errors.Is(err, task.ErrValidation) {
		t.Errorf("CreateNote(blank) error = %v, want ErrValidation", err)
	}

	conn, err := store.pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer store.pool.Put(conn)
	if _, err := execScript(conn, "DELETE FROM tasks"); err != nil {
		t.Fatalf("delete tasks: %v", err)
	}
	remaining, err := execScript(conn, "SELECT count(*) FROM task_notes")
	if err != nil {
		t.Fatalf("count notes: %v", err)
	}
	if remaining != 0 {
		t.Errorf("notes after task delete = %d, want 0", remaining)
	}
}
