// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

// schema is applied on every new connection. All statements are
// idempotent.
//
// Timestamps are Unix nanoseconds in UTC; NULL means unset. vcs_files
// is a CBOR array of strings. The CHECK on completed_at keeps the
// "completed iff completed_at is set" invariant even against direct SQL.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	title             TEXT    NOT NULL CHECK (length(trim(title)) > 0),
	description       TEXT,
	status            TEXT    NOT NULL DEFAULT 'pending'
	                  CHECK (status IN ('pending', 'in_progress', 'completed', 'cancelled')),
	priority          TEXT    NOT NULL DEFAULT 'medium'
	                  CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
	module            TEXT,
	vcs_branch        TEXT,
	vcs_files         BLOB,
	external_provider TEXT,
	external_id       TEXT,
	external_url      TEXT,
	is_synced         INTEGER NOT NULL DEFAULT 0,
	last_synced_at    INTEGER,
	created_by        TEXT    NOT NULL DEFAULT 'user',
	focused_at        INTEGER,
	completed_at      INTEGER,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	CHECK ((status = 'completed') = (completed_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS tasks_status ON tasks (status);
CREATE INDEX IF NOT EXISTS tasks_synced ON tasks (is_synced);
CREATE INDEX IF NOT EXISTS tasks_focused ON tasks (focused_at) WHERE focused_at IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS tasks_external
	ON tasks (external_provider, external_id)
	WHERE external_provider IS NOT NULL AND external_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS task_notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    INTEGER NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
	content    TEXT    NOT NULL,
	source     TEXT    NOT NULL DEFAULT 'user',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS task_notes_task ON task_notes (task_id);
`

// taskColumns is the column list shared by every task SELECT. scanTask
// reads them by position.
const taskColumns = "id, title, description, status, priority, module, " +
	"vcs_branch, vcs_files, external_provider, external_id, external_url, " +
	"is_synced, last_synced_at, created_by, focused_at, completed_at, " +
	"created_at, updated_at"
