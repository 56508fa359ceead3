package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/threadgraph/config"
	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/store"
)

// openStore opens the configured checkpoint store and returns a function
// that closes it.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Store[graph.State], func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "memory":
		return store.NewMemStore[graph.State](), noop, nil

	case "sqlite":
		st, err := store.NewSQLiteStore[graph.State](cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("sqlite store opened", zap.String("path", st.Path()))
		return st, st.Close, nil

	case "mysql":
		st, err := store.NewMySQLStore[graph.State](cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil

	case "postgres":
		db, err := store.OpenGorm("postgres", cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		st := store.NewGormStore[graph.State](db)
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		return st, st.Close, nil

	case "redis":
		opts := []store.RedisOption{store.WithTTL(cfg.TTL)}
		if cfg.Prefix != "" {
			opts = append(opts, store.WithPrefix(cfg.Prefix))
		}
		st := store.NewRedisStore[graph.State](cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		return st, st.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
