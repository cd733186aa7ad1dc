package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/policydigest/internal/cache"
)

// Observer is told about every stage call.
type Observer func(provider, outcome string, elapsed time.Duration)

type Option func(*Waterfall)

// WithObserver registers a callback invoked after each stage call.
func WithObserver(o Observer) Option {
	return func(w *Waterfall) { w.observe = o }
}

// WithCache serves repeated prompts from c instead of calling providers.
func WithCache(c *cache.Cache) Option {
	return func(w *Waterfall) { w.cache = c }
}

// Waterfall tries its stages in order until one returns non-blank text.
// There is no retry inside a call beyond moving to the next stage.
type Waterfall struct {
	stages  []Stage
	logger  *slog.Logger
	observe Observer
	cache   *cache.Cache
}

func NewWaterfall(logger *slog.Logger, stages []Stage, opts ...Option) *Waterfall {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Waterfall{
		stages: stages,
		logger: logger.With("component", "waterfall"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Providers lists stage names in priority order.
func (w *Waterfall) Providers() []string {
	names := make([]string, 0, len(w.stages))
	for _, s := range w.stages {
		names = append(names, s.Backend.Name())
	}
	return names
}

// Generate returns the first successful answer. When every stage fails
// the error is an *ExhaustedError listing each attempt.
func (w *Waterfall) Generate(ctx context.Context, prompt string) (Response, error) {
	var key string
	if w.cache != nil {
		key = cache.GenerateKey(prompt)
		if text, ok := w.cache.Get(key); ok {
			w.record("cache", OutcomeCacheHit, 0)
			return Response{Text: text, Provider: "cache"}, nil
		}
	}

	var attempts []Attempt
	for i, stage := range w.stages {
		name := stage.Backend.Name()
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Provider: name, Err: err})
			break
		}

		start := time.Now()
		text, err := w.call(ctx, stage, prompt)
		elapsed := time.Since(start)
		w.record(name, outcomeOf(err), elapsed)

		if err == nil {
			if key != "" {
				w.cache.Set(key, text)
			}
			return Response{Text: text, Provider: name, Fallthroughs: attempts}, nil
		}

		attempts = append(attempts, Attempt{Provider: name, Err: err, Duration: elapsed})
		if i < len(w.stages)-1 {
			w.logger.Warn("provider failed, falling through",
				"provider", name,
				"next", w.stages[i+1].Backend.Name(),
				"elapsed", elapsed,
				"error", err)
		} else {
			w.logger.Warn("provider failed, no providers left", "provider", name, "elapsed", elapsed, "error", err)
		}
	}

	return Response{Fallthroughs: attempts}, &ExhaustedError{Attempts: attempts}
}

func (w *Waterfall) call(ctx context.Context, stage Stage, prompt string) (string, error) {
	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}

	text, err := stage.Backend.Submit(ctx, prompt)
	if err != nil {
		// Some clients swallow the deadline into their own error type.
		if ctx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (w *Waterfall) record(provider, outcome string, elapsed time.Duration) {
	if w.observe != nil {
		w.observe(provider, outcome, elapsed)
	}
}
