// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/taskflow/lib/clock"
	"github.com/bureau-foundation/taskflow/lib/codec"
	"github.com/bureau-foundation/taskflow/lib/sqlitepool"
	"github.com/bureau-foundation/taskflow/lib/task"
)

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize is passed to sqlitepool. Zero selects the pool default.
	PoolSize int

	// Clock supplies created_at/updated_at and the default completion
	// time. Required.
	Clock clock.Clock

	// Logger is required.
	Logger *slog.Logger
}

// Store is the SQLite implementation of task.Repository.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

var _ task.Repository = (*Store)(nil)

// Open creates the database if needed, applies the schema, and returns
// a ready Store. The caller must Close it.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("taskstore: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("taskstore: Logger is required")
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("taskstore: %w", err)
	}

	return &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Create inserts a task. Empty Status, Priority, and CreatedBy take
// their defaults (pending, medium, user). A completed task without a
// CompletedAt gets the current time; any other status has CompletedAt
// cleared. A non-nil FocusedAt clears focus on every other task in the
// same transaction.
func (s *Store) Create(ctx context.Context, newTask task.Task) (created task.Task, err error) {
	if strings.TrimSpace(newTask.Title) == "" {
		return task.Task{}, fmt.Errorf("taskstore: %w: title is empty", task.ErrValidation)
	}
	if newTask.Status == "" {
		newTask.Status = task.StatusPending
	}
	if !newTask.Status.Valid() {
		return task.Task{}, fmt.Errorf("taskstore: %w: unknown status %q", task.ErrValidation, newTask.Status)
	}
	if newTask.Priority == "" {
		newTask.Priority = task.PriorityMedium
	}
	if !newTask.Priority.Valid() {
		return task.Task{}, fmt.Errorf("taskstore: %w: unknown priority %q", task.ErrValidation, newTask.Priority)
	}
	if newTask.CreatedBy == "" {
		newTask.CreatedBy = task.SourceUser
	}

	now := s.clock.Now()
	if newTask.Status == task.StatusCompleted {
		if newTask.CompletedAt == nil {
			newTask.CompletedAt = task.TimePtr(now)
		}
	} else {
		newTask.CompletedAt = nil
	}

	files, err := encodeFiles(newTask.Files)
	if err != nil {
		return task.Task{}, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: begin create: %w", err)
	}
	defer endTransaction(&err)

	if newTask.FocusedAt != nil {
		if err = clearFocus(conn, 0); err != nil {
			return task.Task{}, err
		}
	}

	err = sqlitex.Execute(conn,
		"INSERT INTO tasks (title, description, status, priority, module, "+
			"vcs_branch, vcs_files, external_provider, external_id, external_url, "+
			"is_synced, last_synced_at, created_by, focused_at, completed_at, "+
			"created_at, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{
				newTask.Title,
				nullableString(newTask.Description),
				string(newTask.Status),
				string(newTask.Priority),
				nullableString(newTask.Module),
				nullableString(newTask.Branch),
				files,
				nullableString(newTask.ExternalProvider),
				nullableString(newTask.ExternalID),
				nullableString(newTask.ExternalURL),
				boolInt(newTask.Synced),
				nullableTime(newTask.LastSyncedAt),
				newTask.CreatedBy,
				nullableTime(newTask.FocusedAt),
				nullableTime(newTask.CompletedAt),
				now.UnixNano(),
				now.UnixNano(),
			},
		})
	if err != nil {
		return task.Task{}, s.writeError("insert task", newTask, err)
	}

	created, err = getTask(conn, conn.LastInsertRowID())
	if err != nil {
		return task.Task{}, err
	}

	s.logger.Debug("task created",
		"task_id", created.ID,
		"status", created.Status,
		"focused", created.Focused(),
	)
	return created, nil
}

// Get returns the task with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (task.Task, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)
	return getTask(conn, id)
}

// FindByExternal returns the task linked to the given provider issue.
func (s *Store) FindByExternal(ctx context.Context, provider, externalID string) (task.Task, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	tasks, err := queryTasks(conn,
		"SELECT "+taskColumns+" FROM tasks WHERE external_provider = ? AND external_id = ?",
		[]any{provider, externalID})
	if err != nil {
		return task.Task{}, err
	}
	if len(tasks) == 0 {
		return task.Task{}, fmt.Errorf("taskstore: %w: no task linked to %s issue %s", task.ErrNotFound, provider, externalID)
	}
	return tasks[0], nil
}

// Update applies changes to one task in a single transaction.
func (s *Store) Update(ctx context.Context, id int64, changes task.Changes) (updated task.Task, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: begin update: %w", err)
	}
	defer endTransaction(&err)

	current, err := getTask(conn, id)
	if err != nil {
		return task.Task{}, err
	}
	if changes.Empty() {
		return current, nil
	}

	assignments, err := s.assignmentsFor(current, changes)
	if err != nil {
		return task.Task{}, err
	}
	if err = execUpdate(conn, id, assignments); err != nil {
		return task.Task{}, s.writeError("update task", current, err)
	}
	return getTask(conn, id)
}

// Focus makes id the only focused task and applies changes, in one
// IMMEDIATE transaction. Either every write lands or none does.
func (s *Store) Focus(ctx context.Context, id int64, at time.Time, changes task.Changes) (focused task.Task, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return task.Task{}, fmt.Errorf("taskstore: begin focus: %w", err)
	}
	defer endTransaction(&err)

	current, err := getTask(conn, id)
	if err != nil {
		return task.Task{}, err
	}

	if err = clearFocus(conn, id); err != nil {
		return task.Task{}, err
	}

	assignments, err := s.assignmentsFor(current, changes)
	if err != nil {
		return task.Task{}, err
	}
	assignments = append(assignments, assignment{"focused_at", at.UnixNano()})
	if err = execUpdate(conn, id, assignments); err != nil {
		return task.Task{}, s.writeError("focus task", current, err)
	}

	focused, err = getTask(conn, id)
	if err != nil {
		return task.Task{}, err
	}
	s.logger.Debug("task focused", "task_id", id, "status", focused.Status)
	return focused, nil
}

// Query returns tasks matching filter in the requested order.
func (s *Store) Query(ctx context.Context, filter task.Filter, order task.Order, limit int) ([]task.Task, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	where, args := whereClause(filter)
	query := "SELECT " + taskColumns + " FROM tasks" + where + " ORDER BY " + orderClause(order)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return queryTasks(conn, query, args)
}

// Count returns the number of tasks matching filter.
func (s *Store) Count(ctx context.Context, filter task.Filter) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	where, args := whereClause(filter)
	var count int
	err = sqlitex.Execute(conn, "SELECT count(*) FROM tasks"+where, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("taskstore: count tasks: %w", err)
	}
	return count, nil
}

// CreateNote appends a note to a task. Empty source records "user".
func (s *Store) CreateNote(ctx context.Context, taskID int64, content, source string) (note task.Note, err error) {
	if strings.TrimSpace(content) == "" {
		return task.Note{}, fmt.Errorf("taskstore: %w: note content is empty", task.ErrValidation)
	}
	if source == "" {
		source = task.SourceUser
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return task.Note{}, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return task.Note{}, fmt.Errorf("taskstore: begin create note: %w", err)
	}
	defer endTransaction(&err)

	if _, err = getTask(conn, taskID); err != nil {
		return task.Note{}, err
	}

	now := s.clock.Now()
	err = sqlitex.Execute(conn,
		"INSERT INTO task_notes (task_id, content, source, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{taskID, content, source, now.UnixNano(), now.UnixNano()},
		})
	if err != nil {
		return task.Note{}, fmt.Errorf("taskstore: insert note for task #%d: %w", taskID, err)
	}

	return task.Note{
		ID:        conn.LastInsertRowID(),
		TaskID:    taskID,
		Content:   content,
		Source:    source,
		CreatedAt: now,
	}, nil
}

// ListNotes returns a task's notes in creation order.
func (s *Store) ListNotes(ctx context.Context, taskID int64) ([]task.Note, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("taskstore: %w", err)
	}
	defer s.pool.Put(conn)

	var notes []task.Note
	err = sqlitex.Execute(conn,
		"SELECT id, task_id, content, source, created_at FROM task_notes "+
			"WHERE task_id = ? ORDER BY created_at, id",
		&sqlitex.ExecOptions{
			Args: []any{taskID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				notes = append(notes, task.Note{
					ID:        stmt.ColumnInt64(0),
					TaskID:    stmt.ColumnInt64(1),
					Content:   stmt.ColumnText(2),
					Source:    stmt.ColumnText(3),
					CreatedAt: fromNanos(stmt.ColumnInt64(4)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("taskstore: list notes for task #%d: %w", taskID, err)
	}
	return notes, nil
}

// assignment is one "column = ?" pair of an UPDATE.
type assignment struct {
	column string
	value  any
}

// assignmentsFor translates changes into column assignments against the
// current row, maintaining the completed_at invariant: moving into
// completed stamps the current time unless the caller supplied one,
// moving out of completed clears it.
func (s *Store) assignmentsFor(current task.Task, changes task.Changes) ([]assignment, error) {
	var assignments []assignment

	if changes.Title != nil {
		if strings.TrimSpace(*changes.Title) == "" {
			return nil, fmt.Errorf("taskstore: %w: title is empty", task.ErrValidation)
		}
		assignments = append(assignments, assignment{"title", *changes.Title})
	}
	if changes.Description != nil {
		assignments = append(assignments, assignment{"description", nullableString(*changes.Description)})
	}
	if changes.Priority != nil {
		if !changes.Priority.Valid() {
			return nil, fmt.Errorf("taskstore: %w: unknown priority %q", task.ErrValidation, *changes.Priority)
		}
		assignments = append(assignments, assignment{"priority", string(*changes.Priority)})
	}
	if changes.Module != nil {
		assignments = append(assignments, assignment{"module", nullableString(*changes.Module)})
	}
	if changes.Branch != nil {
		assignments = append(assignments, assignment{"vcs_branch", nullableString(*changes.Branch)})
	}
	if changes.Files != nil {
		files, err := encodeFiles(*changes.Files)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment{"vcs_files", files})
	}
	if changes.ExternalProvider != nil {
		assignments = append(assignments, assignment{"external_provider", nullableString(*changes.ExternalProvider)})
	}
	if changes.ExternalID != nil {
		assignments = append(assignments, assignment{"external_id", nullableString(*changes.ExternalID)})
	}
	if changes.ExternalURL != nil {
		assignments = append(assignments, assignment{"external_url", nullableString(*changes.ExternalURL)})
	}
	if changes.Synced != nil {
		assignments = append(assignments, assignment{"is_synced", boolInt(*changes.Synced)})
	}
	if changes.LastSyncedAt != nil {
		assignments = append(assignments, assignment{"last_synced_at", nullableTime(*changes.LastSyncedAt)})
	}

	if changes.Status != nil || changes.CompletedAt != nil {
		status := current.Status
		if changes.Status != nil {
			status = *changes.Status
			if !status.Valid() {
				return nil, fmt.Errorf("taskstore: %w: unknown status %q", task.ErrValidation, status)
			}
		}

		completedAt := current.CompletedAt
		switch {
		case changes.CompletedAt != nil:
			completedAt = *changes.CompletedAt
		case status != task.StatusCompleted:
			completedAt = nil
		case completedAt == nil:
			completedAt = task.TimePtr(s.clock.Now())
		}

		if (status == task.StatusCompleted) != (completedAt != nil) {
			return nil, fmt.Errorf("taskstore: %w: completed_at must be set exactly when status is completed", task.ErrValidation)
		}
		assignments = append(assignments,
			assignment{"status", string(status)},
			assignment{"completed_at", nullableTime(completedAt)},
		)
	}

	assignments = append(assignments, assignment{"updated_at", s.clock.Now().UnixNano()})
	return assignments, nil
}

func execUpdate(conn *sqlite.Conn, id int64, assignments []assignment) error {
	columns := make([]string, len(assignments))
	args := make([]any, 0, len(assignments)+1)
	for i, assignment := range assignments {
		columns[i] = assignment.column + " = ?"
		args = append(args, assignment.value)
	}
	args = append(args, id)

	return sqlitex.Execute(conn,
		"UPDATE tasks SET "+strings.Join(columns, ", ")+" WHERE id = ?",
		&sqlitex.ExecOptions{Args: args})
}

// clearFocus removes focus from every task except keep (0 keeps none).
func clearFocus(conn *sqlite.Conn, keep int64) error {
	err := sqlitex.Execute(conn,
		"UPDATE tasks SET focused_at = NULL WHERE focused_at IS NOT NULL AND id != ?",
		&sqlitex.ExecOptions{Args: []any{keep}})
	if err != nil {
		return fmt.Errorf("taskstore: clear focus: %w", err)
	}
	return nil
}

func getTask(conn *sqlite.Conn, id int64) (task.Task, error) {
	tasks, err := queryTasks(conn, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", []any{id})
	if err != nil {
		return task.Task{}, err
	}
	if len(tasks) == 0 {
		return task.Task{}, fmt.Errorf("taskstore: %w: task #%d", task.ErrNotFound, id)
	}
	return tasks[0], nil
}

func queryTasks(conn *sqlite.Conn, query string, args []any) ([]task.Task, error) {
	var tasks []task.Task
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			scanned, err := scanTask(stmt)
			if err != nil {
				return err
			}
			tasks = append(tasks, scanned)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("taskstore: query tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(stmt *sqlite.Stmt) (task.Task, error) {
	// Column positions follow taskColumns.
	scanned := task.Task{
		ID:               stmt.ColumnInt64(0),
		Title:            stmt.ColumnText(1),
		Description:      stmt.ColumnText(2),
		Status:           task.Status(stmt.ColumnText(3)),
		Priority:         task.Priority(stmt.ColumnText(4)),
		Module:           stmt.ColumnText(5),
		Branch:           stmt.ColumnText(6),
		ExternalProvider: stmt.ColumnText(8),
		ExternalID:       stmt.ColumnText(9),
		ExternalURL:      stmt.ColumnText(10),
		Synced:           stmt.ColumnInt64(11) != 0,
		LastSyncedAt:     optionalTime(stmt, 12),
		CreatedBy:        stmt.ColumnText(13),
		FocusedAt:        optionalTime(stmt, 14),
		CompletedAt:      optionalTime(stmt, 15),
		CreatedAt:        fromNanos(stmt.ColumnInt64(16)),
		UpdatedAt:        fromNanos(stmt.ColumnInt64(17)),
	}

	if !stmt.ColumnIsNull(7) {
		blob := make([]byte, stmt.ColumnLen(7))
		stmt.ColumnBytes(7, blob)
		if err := codec.Unmarshal(blob, &scanned.Files); err != nil {
			return task.Task{}, fmt.Errorf("taskstore: decode vcs_files of task #%d: %w", scanned.ID, err)
		}
	}
	return scanned, nil
}

func whereClause(filter task.Filter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Module != "" {
		conditions = append(conditions, "module = ?")
		args = append(args, filter.Module)
	}
	if filter.Synced != nil {
		conditions = append(conditions, "is_synced = ?")
		args = append(args, boolInt(*filter.Synced))
	}
	if filter.Focused {
		conditions = append(conditions, "focused_at IS NOT NULL")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func orderClause(order task.Order) string {
	switch order {
	case task.OrderOldest:
		return "created_at ASC, id ASC"
	case task.OrderPriority:
		return "CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 " +
			"WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END, created_at ASC, id ASC"
	case task.OrderRecentlyFocused:
		return "focused_at IS NULL, focused_at DESC, id DESC"
	case task.OrderRecentlyCompleted:
		return "completed_at IS NULL, completed_at DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

// writeError classifies a failed INSERT or UPDATE. A unique-index
// violation can only come from the (external_provider, external_id)
// pair, so it is reported as a state conflict rather than a storage
// fault.
func (s *Store) writeError(operation string, subject task.Task, err error) error {
	if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
		return fmt.Errorf("taskstore: %s: %w: another task is already linked to this issue: %v",
			operation, task.ErrInvalidState, err)
	}
	s.logger.Error("task store write failed",
		"operation", operation,
		"task_id", subject.ID,
		"error", err,
	)
	return fmt.Errorf("taskstore: %s: %w", operation, err)
}

func encodeFiles(files []string) (any, error) {
	if len(files) == 0 {
		return nil, nil
	}
	encoded, err := codec.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("taskstore: encode vcs_files: %w", err)
	}
	return encoded, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UnixNano()
}

func optionalTime(stmt *sqlite.Stmt, column int) *time.Time {
	if stmt.ColumnIsNull(column) {
		return nil
	}
	return task.TimePtr(fromNanos(stmt.ColumnInt64(column)))
}

func fromNanos(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

func boolInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
