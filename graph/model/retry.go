package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Retrying wraps a ChatModel and retries transient failures with a linear
// backoff. Errors that do not look transient are returned immediately.
type Retrying struct {
	Model      ChatModel
	MaxRetries int
	Delay      time.Duration
}

// WithRetry returns m wrapped in a Retrying with three retries one second
// apart.
func WithRetry(m ChatModel) *Retrying {
	return &Retrying{Model: m, MaxRetries: 3, Delay: time.Second}
}

// Chat implements ChatModel.
func (r *Retrying) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return ChatOut{}, err
		}

		out, err := r.Model.Chat(ctx, messages)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt >= r.MaxRetries {
			break
		}

		select {
		case <-time.After(r.Delay * time.Duration(attempt+1)):
		case <-ctx.Done():
			return ChatOut{}, ctx.Err()
		}
	}

	if !IsTransient(lastErr) {
		return ChatOut{}, lastErr
	}
	return ChatOut{}, fmt.Errorf("model failed after %d retries: %w", r.MaxRetries, lastErr)
}

// IsTransient reports whether err looks like a temporary provider or
// network failure worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"rate limit",
		"429",
		"connection",
		"temporary",
		"unavailable",
		"503",
		"502",
		"500",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
