package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS thread_checkpoints (
		thread_id TEXT PRIMARY KEY,
		step INTEGER NOT NULL,
		node TEXT NOT NULL,
		next_node TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)
`

const sqliteUpsert = `
	INSERT INTO thread_checkpoints (thread_id, step, node, next_node, state, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(thread_id) DO UPDATE SET
		step = excluded.step,
		node = excluded.node,
		next_node = excluded.next_node,
		state = excluded.state,
		updated_at = excluded.updated_at
`

// SQLiteStore is a Store backed by a single SQLite file, using the pure-Go
// modernc.org/sqlite driver.
//
// It suits development and single-process deployments. The database runs in
// WAL mode so readers are not blocked by the writer.
type SQLiteStore[S any] struct {
	sqlStore[S]
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates its schema. ":memory:" gives a private in-memory database.
//
//	st, err := store.NewSQLiteStore[graph.State]("./threads.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite has a single writer; one connection also keeps a :memory:
	// database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore[S]{
		sqlStore: sqlStore[S]{db: db, upsert: sqliteUpsert},
		path:     path,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore[S]) Path() string {
	return s.path
}
