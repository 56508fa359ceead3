package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dshills/threadgraph/assistant"
	"github.com/dshills/threadgraph/config"
	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/emit"
)

// app holds everything a command needs and releases it on close.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *graph.Engine

	closers []func(context.Context) error
}

// newApp wires logging, telemetry, the checkpoint store, the chat model and
// the engine from cfg.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	a = &app{cfg: cfg, logger: logger}
	a.onClose(func(context.Context) error {
		_ = logger.Sync()
		return nil
	})
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	emitters := emit.Multi{emit.NewZapEmitter(logger)}

	tracer, shutdown, err := newTracer(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(shutdown)
	if tracer != nil {
		emitters = append(emitters, emit.NewOTelEmitter(tracer))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := graph.NewPrometheusMetrics(registry)
	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(registry); err != nil {
			return nil, err
		}
	}

	st, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return closeStore() })

	chat, closeModel, err := newChatModel(ctx, cfg.Model, cfg.APIKey())
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return closeModel() })

	dir := assistant.DefaultDirectory()
	if cfg.Assistant.Directory != "" {
		if dir, err = assistant.LoadDirectory(cfg.Assistant.Directory); err != nil {
			return nil, err
		}
	}

	def, err := assistant.NewWorkflow(chat, assistant.Options{Directory: dir, Logger: logger})
	if err != nil {
		return nil, err
	}
	a.engine, err = graph.New(def, st,
		graph.WithStepCeiling(cfg.Engine.StepCeiling),
		graph.WithEmitter(emitters),
		graph.WithMetrics(metrics),
		graph.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("assistant ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("model", cfg.Model.Provider),
		zap.Int("step_ceiling", cfg.Engine.StepCeiling),
	)
	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) serveMetrics(registry *prometheus.Registry) error {
	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	a.onClose(srv.Shutdown)
	return nil
}
