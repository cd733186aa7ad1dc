// Package relevance decides whether a news item concerns public policy in
// the configured jurisdiction.
package relevance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deusflow/policydigest/internal/ai"
	"github.com/deusflow/policydigest/internal/metrics"
	"github.com/deusflow/policydigest/internal/news"
)

// Generator produces model output for a prompt. *ai.Waterfall satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (ai.Response, error)
}

// Outcome explains how a Decision was reached.
type Outcome string

const (
	OutcomeYes        Outcome = "yes"
	OutcomeNo         Outcome = "no"
	OutcomeMalformed  Outcome = "malformed"
	OutcomeExhausted  Outcome = "exhausted"
	OutcomeGated      Outcome = "keyword_gate"
)

type Decision struct {
	Relevant bool
	Reason   string
	Provider string
	Outcome  Outcome
}

type Option func(*Classifier)

// WithFailOpen sets the verdict used when every provider fails.
// The default is true: an outage should not silently drop policy news.
func WithFailOpen(open bool) Option {
	return func(c *Classifier) { c.failOpen = open }
}

// WithKeywordGate rejects text that mentions none of the vocabulary's
// keywords without calling any provider.
func WithKeywordGate(v *news.Vocabulary) Option {
	return func(c *Classifier) { c.gate = v }
}

type Classifier struct {
	gen          Generator
	jurisdiction string
	areas        []string
	failOpen     bool
	gate         *news.Vocabulary
	logger       *slog.Logger
}

// New returns a classifier asking whether text is about policy in
// jurisdiction touching any of areas.
func New(gen Generator, jurisdiction string, areas []string, logger *slog.Logger, opts ...Option) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Classifier{
		gen:          gen,
		jurisdiction: jurisdiction,
		areas:        areas,
		failOpen:     true,
		logger:       logger.With("component", "relevance"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsRelevant reports whether text should be kept.
func (c *Classifier) IsRelevant(ctx context.Context, text string) bool {
	return c.Decide(ctx, text).Relevant
}

// Decide classifies text and reports how the verdict was reached.
func (c *Classifier) Decide(ctx context.Context, text string) Decision {
	d := c.decide(ctx, text)
	metrics.RelevanceTotal.WithLabelValues(string(d.Outcome)).Inc()
	return d
}

func (c *Classifier) decide(ctx context.Context, text string) Decision {
	if c.gate != nil && !c.gate.Matches(text) {
		return Decision{Relevant: false, Outcome: OutcomeGated}
	}

	resp, err := c.gen.Generate(ctx, c.Prompt(text))
	if err != nil {
		if errors.Is(err, ai.ErrExhausted) {
			c.logger.Warn("relevance check failed on every provider, applying fallback", "fail_open", c.failOpen, "error", err)
		} else {
			c.logger.Warn("relevance check failed", "fail_open", c.failOpen, "error", err)
		}
		return Decision{Relevant: c.failOpen, Reason: err.Error(), Outcome: OutcomeExhausted}
	}

	d := ParseVerdict(resp.Text)
	d.Provider = resp.Provider
	if d.Outcome == OutcomeMalformed {
		c.logger.Warn("malformed relevance response, treating as not relevant",
			"provider", resp.Provider,
			"response", truncate(resp.Text, 80))
	}
	return d
}

// Prompt renders the classification instruction for text.
func (c *Classifier) Prompt(text string) string {
	areas := "public policy"
	if len(c.areas) > 0 {
		areas = strings.Join(c.areas, ", ")
	}
	return fmt.Sprintf(`You are screening news for a %[1]s policy digest.
Decide whether the article below is about government policy, regulation, public spending or public projects in %[1]s, in any of these areas: %[2]s.

Answer with YES or NO as the first word, optionally followed by a short reason on the same line.

Article:
%[3]s`, c.jurisdiction, areas, text)
}

// ParseVerdict reads a YES/NO answer. Anything that starts with neither
// is malformed and counts as not relevant.
func ParseVerdict(response string) Decision {
	upper := strings.ToUpper(strings.TrimSpace(response))
	switch {
	case strings.HasPrefix(upper, "YES"):
		return Decision{Relevant: true, Reason: reason(response, 3), Outcome: OutcomeYes}
	case strings.HasPrefix(upper, "NO"):
		return Decision{Relevant: false, Reason: reason(response, 2), Outcome: OutcomeNo}
	default:
		return Decision{Relevant: false, Outcome: OutcomeMalformed}
	}
}

func reason(response string, skip int) string {
	r := strings.TrimSpace(response)[skip:]
	return strings.TrimSpace(strings.TrimLeft(r, " .,:;-"))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
