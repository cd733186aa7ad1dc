// Package digest runs items through relevance, aggregation, summarization
// and report rendering.
package digest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/policydigest/internal/metrics"
	"github.com/deusflow/policydigest/internal/news"
	"github.com/deusflow/policydigest/internal/report"
)

const DefaultWorkers = 4

// RelevanceChecker decides whether an item's text is worth keeping.
type RelevanceChecker interface {
	IsRelevant(ctx context.Context, text string) bool
}

// EventSummarizer writes the brief for one event.
type EventSummarizer interface {
	SummarizeEvent(ctx context.Context, ev *news.Event) string
}

type Pipeline struct {
	relevance  RelevanceChecker
	summarizer EventSummarizer
	vocab      *news.Vocabulary
	builder    *report.Builder
	workers    int
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Pipeline)

// WithWorkers bounds how many provider calls run at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock replaces time.Now for the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(rc RelevanceChecker, s EventSummarizer, vocab *news.Vocabulary, builder *report.Builder, logger *slog.Logger, opts ...Option) *Pipeline {
	if vocab == nil {
		vocab = news.DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		relevance:  rc,
		summarizer: s,
		vocab:      vocab,
		builder:    builder,
		workers:    DefaultWorkers,
		now:        time.Now,
		logger:     logger.With("component", "digest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Items    int
	Relevant []news.Item
	Events   []*news.Event
	Report   string
	Duration time.Duration
}

// Empty reports whether no event survived filtering.
func (r Result) Empty() bool { return len(r.Events) == 0 }

// Run filters items, merges them into events, summarizes each event once
// and renders the report. Provider failures degrade to fallbacks; Run
// itself never fails.
func (p *Pipeline) Run(ctx context.Context, items []news.Item) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString(), Items: len(items)}
	logger := p.logger.With("run_id", res.RunID)

	res.Relevant = p.filter(ctx, items)
	metrics.ItemsTotal.WithLabelValues("relevant").Add(float64(len(res.Relevant)))
	metrics.ItemsTotal.WithLabelValues("rejected").Add(float64(len(items) - len(res.Relevant)))
	logger.Info("relevance filtering done", "items", len(items), "relevant", len(res.Relevant))

	// Folded sequentially so the first item in input order owns each event.
	res.Events = news.Aggregate(res.Relevant, p.vocab)
	metrics.EventsTotal.Add(float64(len(res.Events)))
	logger.Info("aggregated events", "events", len(res.Events))

	p.summarize(ctx, res.Events)

	now := p.now()
	res.Report = p.builder.Build(res.Events, now)
	res.Duration = time.Since(start)
	logger.Info("digest built", "events", len(res.Events), "duration", res.Duration)
	return res
}

// filter checks items concurrently and keeps relevant ones in input order.
func (p *Pipeline) filter(ctx context.Context, items []news.Item) []news.Item {
	keep := make([]bool, len(items))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, it := range items {
		g.Go(func() error {
			keep[i] = p.relevance.IsRelevant(ctx, it.Text())
			return nil
		})
	}
	_ = g.Wait()

	relevant := make([]news.Item, 0, len(items))
	for i, ok := range keep {
		if ok {
			relevant = append(relevant, items[i])
		}
	}
	return relevant
}

func (p *Pipeline) summarize(ctx context.Context, events []*news.Event) {
	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, ev := range events {
		g.Go(func() error {
			p.summarizer.SummarizeEvent(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()
}
