package main

import (
	"context"
	"fmt"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"
	googleopt "google.golang.org/api/option"

	"github.com/dshills/threadgraph/config"
	"github.com/dshills/threadgraph/graph/model"
	"github.com/dshills/threadgraph/graph/model/anthropic"
	"github.com/dshills/threadgraph/graph/model/google"
	"github.com/dshills/threadgraph/graph/model/openai"
)

// newChatModel builds the configured chat model. Hosted providers are
// wrapped with retry on transient failures.
func newChatModel(ctx context.Context, cfg config.ModelConfig, apiKey string) (model.ChatModel, func() error, error) {
	noop := func() error { return nil }

	var (
		m       model.ChatModel
		closeFn = noop
	)
	switch cfg.Provider {
	case "mock":
		return model.Offline{}, noop, nil

	case "openai":
		var opts []openaiopt.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(cfg.BaseURL))
		}
		c, err := openai.NewChatModel(apiKey, cfg.Name, opts...)
		if err != nil {
			return nil, nil, err
		}
		m = c

	case "anthropic":
		var opts []anthropicopt.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
		}
		c, err := anthropic.NewChatModel(apiKey, cfg.Name, opts...)
		if err != nil {
			return nil, nil, err
		}
		m = c

	case "google":
		var opts []googleopt.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, googleopt.WithEndpoint(cfg.BaseURL))
		}
		c, err := google.NewChatModel(ctx, apiKey, cfg.Name, opts...)
		if err != nil {
			return nil, nil, err
		}
		m, closeFn = c, c.Close

	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	return &model.Retrying{Model: m, MaxRetries: cfg.MaxRetries, Delay: cfg.RetryDelay}, closeFn, nil
}
