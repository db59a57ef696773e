// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite connection pools with taskflow's
// standard pragmas.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers [Pool.Take]
// a connection, do their work, and [Pool.Put] it back. Connections are
// not safe for concurrent use.
//
// # Pragmas
//
//   - journal_mode=WAL: readers do not block the writer.
//   - synchronous=NORMAL: commits survive a process crash.
//   - busy_timeout=5000: wait up to 5 seconds for the write lock when a
//     second taskflow process is mid-transaction.
//   - foreign_keys=ON: deleting a task removes its notes.
//   - cache_size=-2048: 2 MB page cache per connection.
//   - temp_store=MEMORY.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   databasePath,
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// The package applies pragmas and exposes the zombiezen types directly.
// Callers write SQL, use sqlitex.Execute for cached statements, and
// manage transactions with sqlitex.ImmediateTransaction.
package sqlitepool
