package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// checkpointRow is the GORM model of a thread checkpoint. It maps to the
// same thread_checkpoints layout the database/sql stores use.
type checkpointRow struct {
	ThreadID  string `gorm:"column:thread_id;primaryKey;size:255"`
	Step      int    `gorm:"column:step;not null"`
	Node      string `gorm:"column:node;size:255;not null"`
	NextNode  string `gorm:"column:next_node;size:255;not null"`
	State     string `gorm:"column:state;type:text;not null"`
	UpdatedNS int64  `gorm:"column:updated_at;not null"`
}

func (checkpointRow) TableName() string { return "thread_checkpoints" }

// GormStore is a Store on top of any GORM dialect. The CLI uses it for
// PostgreSQL.
type GormStore[S any] struct {
	db *gorm.DB
}

// OpenGorm opens a GORM connection for dialect "postgres" or "mysql".
func OpenGorm(dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm dialect: %s (supported: postgres, mysql)", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// NewGormStore wraps db. Call Migrate once before first use on a fresh
// database.
//
// Each Save is a single upsert statement, so the implicit GORM transaction
// around writes is skipped.
func NewGormStore[S any](db *gorm.DB) *GormStore[S] {
	return &GormStore[S]{db: db.Session(&gorm.Session{SkipDefaultTransaction: true})}
}

// Migrate creates or updates the thread_checkpoints table.
func (g *GormStore[S]) Migrate(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(&checkpointRow{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Save implements Store.
func (g *GormStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	r, err := encode(cp)
	if err != nil {
		return err
	}
	row := checkpointRow{
		ThreadID:  r.ThreadID,
		Step:      r.Step,
		Node:      r.Node,
		NextNode:  r.Next,
		State:     string(r.State),
		UpdatedNS: r.UpdatedAt.UnixNano(),
	}

	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thread_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (g *GormStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var row checkpointRow
	err := g.db.WithContext(ctx).Where("thread_id = ?", threadID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Checkpoint[S]{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return decode[S](record{
		ThreadID:  row.ThreadID,
		Step:      row.Step,
		Node:      row.Node,
		Next:      row.NextNode,
		State:     []byte(row.State),
		UpdatedAt: time.Unix(0, row.UpdatedNS).UTC(),
	})
}

// List implements Lister.
func (g *GormStore[S]) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := g.db.WithContext(ctx).Model(&checkpointRow{}).Order("thread_id").Pluck("thread_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return ids, nil
}

// Close closes the underlying connection pool.
func (g *GormStore[S]) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
