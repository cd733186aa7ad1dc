// Package ai runs prompts through an ordered list of interchangeable
// text-generation providers, falling through to the next one on failure.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrExhausted matches *ExhaustedError: every stage failed.
	ErrExhausted = errors.New("all providers failed")
	// ErrRateLimited marks a provider rejection worth retrying after a pause.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrEmptyResponse is recorded when a provider answers with blank text.
	ErrEmptyResponse = errors.New("empty provider response")
)

// Backend is one text-generation provider.
type Backend interface {
	Name() string
	Submit(ctx context.Context, prompt string) (string, error)
}

// Stage is a backend plus the timeout applied to each of its calls.
type Stage struct {
	Backend Backend
	Timeout time.Duration
}

// Attempt records one failed stage.
type Attempt struct {
	Provider string
	Err      error
	Duration time.Duration
}

// Response is the first non-empty answer and the stages skipped to get it.
type Response struct {
	Text         string
	Provider     string
	Fallthroughs []Attempt
}

// ExhaustedError is returned by Generate when no stage produced text.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed: no providers configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Outcome labels used for metrics and logs.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeEmpty    = "empty"
	OutcomeCacheHit = "cache_hit"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrEmptyResponse):
		return OutcomeEmpty
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
