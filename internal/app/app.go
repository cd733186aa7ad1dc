// Package app wires feeds, the seen store, the digest pipeline and the
// delivery channels into the run and preview commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/deusflow/policydigest/internal/ai"
	"github.com/deusflow/policydigest/internal/cache"
	"github.com/deusflow/policydigest/internal/config"
	"github.com/deusflow/policydigest/internal/digest"
	"github.com/deusflow/policydigest/internal/gemini"
	"github.com/deusflow/policydigest/internal/metrics"
	"github.com/deusflow/policydigest/internal/news"
	"github.com/deusflow/policydigest/internal/openaicompat"
	"github.com/deusflow/policydigest/internal/ratelimit"
	"github.com/deusflow/policydigest/internal/relevance"
	"github.com/deusflow/policydigest/internal/report"
	"github.com/deusflow/policydigest/internal/rss"
	"github.com/deusflow/policydigest/internal/scraper"
	"github.com/deusflow/policydigest/internal/storage"
	"github.com/deusflow/policydigest/internal/summarize"
)

// Fetcher collects items from the configured feeds.
type Fetcher interface {
	Fetch(ctx context.Context, feeds []rss.Feed) []news.Item
}

// Enricher fills in thin item summaries.
type Enricher interface {
	Enrich(ctx context.Context, items []news.Item) []news.Item
}

type App struct {
	cfg       *config.Config
	fetcher   Fetcher
	enricher  Enricher
	store     storage.SeenStore
	pipeline  *digest.Pipeline
	notifiers []Notifier
	limiter   *ratelimit.AIRateLimiter
	health    *metrics.Health
	closers   []func()
	logger    *slog.Logger
}

// New builds every collaborator from cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:     cfg,
		fetcher: rss.NewFetcher(logger, rss.WithMaxAge(cfg.NewsMaxAge), rss.WithMaxPerFeed(cfg.MaxItemsPerFeed)),
		health:  metrics.Global,
		logger:  logger.With("component", "app"),
	}
	if cfg.ScrapeMaxArticles > 0 {
		a.enricher = scraper.New(cfg.ScrapeConcurrency, cfg.ScrapeMaxArticles, logger)
	}

	vocab, err := news.NewVocabulary(cfg.Topics, cfg.CatchAll)
	if err != nil {
		return nil, err
	}

	waterfall, err := a.buildWaterfall(ctx, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	relOpts := []relevance.Option{relevance.WithFailOpen(cfg.RelevanceFailOpen)}
	if cfg.RelevanceKeywordGate {
		relOpts = append(relOpts, relevance.WithKeywordGate(vocab))
	}
	a.pipeline = digest.New(
		relevance.New(waterfall, cfg.Jurisdiction, vocab.Keywords(), logger, relOpts...),
		summarize.New(waterfall, logger),
		vocab,
		report.NewBuilder(cfg.Title, vocab),
		logger,
		digest.WithWorkers(cfg.Workers),
	)

	a.store, err = openSeenStore(ctx, cfg, a.logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open seen store: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing seen store", "error", err)
		}
	})

	a.notifiers, err = buildNotifiers(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildWaterfall constructs one stage per provider with a key. Each
// backend is paced by a shared limiter and retried when rate limited.
func (a *App) buildWaterfall(ctx context.Context, logger *slog.Logger) (*ai.Waterfall, error) {
	a.limiter = ratelimit.NewAIRateLimiter(ratelimit.Limits{Burst: 1}, a.cfg.MaxAIRequests, logger)

	var stages []ai.Stage
	for _, p := range a.cfg.EnabledProviders() {
		backend, err := a.newBackend(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		a.limiter.Configure(p.Name, ratelimit.Limits{Interval: p.Interval, Burst: 1, MaxRequests: p.MaxRequests})
		stages = append(stages, ai.Stage{
			Backend: ai.WithRetry(ai.WithLimiter(backend, a.limiter), ai.DefaultRetry),
			Timeout: p.Timeout,
		})
	}
	if len(stages) == 0 {
		return nil, errors.New("no provider has an API key")
	}

	w := ai.NewWaterfall(logger, stages,
		ai.WithObserver(metrics.ObserveProvider),
		ai.WithCache(cache.New(a.cfg.CacheSize, a.cfg.CacheTTL)),
	)
	a.logger.Info("provider waterfall ready", "providers", w.Providers())
	return w, nil
}

func (a *App) newBackend(ctx context.Context, p config.ProviderConfig) (ai.Backend, error) {
	switch p.Name {
	case "groq":
		return openaicompat.NewGroq(p.APIKey, p.Model)
	case "openrouter":
		return openaicompat.NewOpenRouter(p.APIKey, p.Model)
	case "gemini":
		c, err := gemini.NewClient(ctx, p.APIKey, p.Model)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}

// Close releases provider clients and the seen store.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// collect fetches feeds, drops delivered links and enriches what is left.
func (a *App) collect(ctx context.Context) []news.Item {
	items := a.fetcher.Fetch(ctx, a.cfg.Feeds)
	metrics.ItemsTotal.WithLabelValues("fetched").Add(float64(len(items)))

	fresh := storage.FilterUnseen(ctx, a.store, items, a.logger)
	metrics.ItemsTotal.WithLabelValues("seen").Add(float64(len(items) - len(fresh)))
	a.logger.Info("collected items", "fetched", len(items), "new", len(fresh))

	if a.enricher != nil && len(fresh) > 0 {
		fresh = a.enricher.Enrich(ctx, fresh)
	}
	return fresh
}

// Run performs one digest: collect, filter, summarize, deliver, then mark
// the delivered items as seen. Nothing is delivered when no item is relevant.
func (a *App) Run(ctx context.Context) error {
	start := time.Now()

	items := a.collect(ctx)
	res := a.pipeline.Run(ctx, items)
	logger := a.logger.With("run_id", res.RunID)

	if res.Empty() {
		logger.Info("no new relevant policy articles")
		a.health.RecordRun(time.Since(start), 0)
		return nil
	}

	if err := deliver(ctx, a.notifiers, a.cfg.Title, res.Report, logger); err != nil {
		a.health.SetError(err.Error())
		return fmt.Errorf("deliver digest: %w", err)
	}

	if err := a.store.MarkSeen(ctx, res.Relevant); err != nil {
		logger.Error("failed to mark items as seen", "items", len(res.Relevant), "error", err)
		a.health.SetError(err.Error())
		return fmt.Errorf("mark seen: %w", err)
	}

	pruneSeenStore(ctx, a.store, logger)

	a.health.RecordRun(time.Since(start), len(res.Events))
	if a.limiter != nil {
		logger.Debug("provider usage", "stats", a.limiter.GetStats())
	}
	logger.Info("run completed", "events", len(res.Events), "items", len(res.Relevant), "duration", time.Since(start))
	return nil
}

// Preview runs the same pipeline and writes the report to w without
// delivering it or touching the seen store.
func (a *App) Preview(ctx context.Context, w io.Writer) error {
	res := a.pipeline.Run(ctx, a.collect(ctx))
	if res.Empty() {
		a.logger.Info("no new relevant policy articles", "run_id", res.RunID)
		return nil
	}
	_, err := fmt.Fprintln(w, res.Report)
	return err
}
