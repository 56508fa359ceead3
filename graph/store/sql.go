package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// errClosed is returned by SQL-backed stores after Close.
var errClosed = errors.New("store is closed")

// sqlStore holds the database/sql plumbing shared by SQLiteStore and
// MySQLStore. The dialects differ only in DDL and the upsert statement.
//
// Every checkpoint is one row of thread_checkpoints written by a single
// upsert, which is what makes Save atomic with respect to Load.
type sqlStore[S any] struct {
	db     *sql.DB
	upsert string
	mu     sync.RWMutex
	closed bool
}

func (s *sqlStore[S]) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

// Load implements Store.
func (s *sqlStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
	if err := s.checkOpen(); err != nil {
		return Checkpoint[S]{}, err
	}

	r := record{ThreadID: threadID}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT step, node, next_node, state, updated_at FROM thread_checkpoints WHERE thread_id = ?`,
		threadID,
	).Scan(&r.Step, &r.Node, &r.Next, &r.State, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint[S]{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	r.UpdatedAt = time.Unix(0, updated).UTC()
	return decode[S](r)
}

// Save implements Store.
func (s *sqlStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	r, err := encode(cp)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.upsert,
		r.ThreadID, r.Step, r.Node, r.Next, string(r.State), r.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// List implements Lister.
func (s *sqlStore[S]) List(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT thread_id FROM thread_checkpoints ORDER BY thread_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping verifies the database connection is alive.
func (s *sqlStore[S]) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close releases the connection pool. It is safe to call more than once.
func (s *sqlStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
