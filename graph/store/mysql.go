package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS thread_checkpoints (
		thread_id VARCHAR(255) NOT NULL PRIMARY KEY,
		step INT NOT NULL,
		node VARCHAR(255) NOT NULL,
		next_node VARCHAR(255) NOT NULL DEFAULT '',
		state LONGTEXT NOT NULL,
		updated_at BIGINT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
`

const mysqlUpsert = `
	INSERT INTO thread_checkpoints (thread_id, step, node, next_node, state, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		step = VALUES(step),
		node = VALUES(node),
		next_node = VALUES(next_node),
		state = VALUES(state),
		updated_at = VALUES(updated_at)
`

// MySQLStore is a Store backed by MySQL or MariaDB.
//
// Several processes may share one database; the per-thread lock that keeps
// a thread's runs sequential is process-local, so route all turns of a
// thread to the same process.
type MySQLStore[S any] struct {
	sqlStore[S]
}

// NewMySQLStore connects with dsn and migrates the schema.
//
// The DSN format is
//
//	[username[:password]@][protocol[(address)]]/dbname[?param=value]
//
// for example "user:pass@tcp(localhost:3306)/threads". Keep credentials out
// of source code; the CLI reads the DSN from configuration or
// THREADGRAPH_STORE_DSN.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s, err := NewMySQLStoreFromDB[S](db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStoreFromDB wraps an existing connection pool and migrates the
// schema. The store takes ownership of db; Close closes it.
func NewMySQLStoreFromDB[S any](db *sql.DB) (*MySQLStore[S], error) {
	if _, err := db.ExecContext(context.Background(), mysqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &MySQLStore[S]{sqlStore: sqlStore[S]{db: db, upsert: mysqlUpsert}}, nil
}
