package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/policydigest/internal/news"
)

// Feed is one RSS or Atom source.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DefaultFeeds are Kenyan outlets with working RSS endpoints.
var DefaultFeeds = []Feed{
	{Name: "People Daily", URL: "https://peopledaily.digital/rss"},
	{Name: "Kenyans.co.ke", URL: "https://www.kenyans.co.ke/feeds/news?_wrapper_format=html"},
	{Name: "Standard Headlines", URL: "https://www.standardmedia.co.ke/rss/headlines.php"},
	{Name: "Standard Kenya", URL: "https://www.standardmedia.co.ke/rss/kenya.php"},
	{Name: "Standard Business", URL: "https://www.standardmedia.co.ke/rss/business.php"},
	{Name: "Standard Politics", URL: "https://www.standardmedia.co.ke/rss/politics.php"},
	{Name: "Standard Agriculture", URL: "https://www.standardmedia.co.ke/rss/agriculture.php"},
	{Name: "The East African", URL: "https://www.theeastafrican.co.ke/service/rss/tea/1289142/feed.rss"},
}

// FeedsConfig is YAML config structure
// feeds:
//   - name: ...
//     url: https://...
type FeedsConfig struct {
	Feeds []Feed `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg.Feeds, nil
}

type Fetcher struct {
	client      *http.Client
	maxAge      time.Duration
	maxPerFeed  int
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Fetcher)

// WithMaxAge drops items published longer ago than d. Items without a
// date are kept.
func WithMaxAge(d time.Duration) Option {
	return func(f *Fetcher) { f.maxAge = d }
}

// WithMaxPerFeed keeps at most n items from each feed.
func WithMaxPerFeed(n int) Option {
	return func(f *Fetcher) { f.maxPerFeed = n }
}

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		concurrency: 4,
		now:         time.Now,
		logger:      logger.With("component", "rss"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads every feed and returns their items in feed order.
// A feed that fails is logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context, feeds []Feed) []news.Item {
	results := make([][]news.Item, len(feeds))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, feed := range feeds {
		g.Go(func() error {
			items, err := f.FetchFeed(ctx, feed)
			if err != nil {
				f.logger.Error("failed to fetch feed", "feed", feed.Name, "url", feed.URL, "error", err)
				return nil
			}
			f.logger.Info("fetched feed", "feed", feed.Name, "items", len(items))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []news.Item
	ok := 0
	for _, items := range results {
		if items != nil {
			ok++
		}
		all = append(all, items...)
	}
	f.logger.Info("processed feeds", "ok", ok, "total", len(feeds), "items", len(all))
	return all
}

// FetchFeed downloads and converts a single feed.
func (f *Fetcher) FetchFeed(ctx context.Context, feed Feed) ([]news.Item, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client

	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feed.URL, err)
	}

	source := feed.Name
	if source == "" {
		source = parsed.Title
	}

	items := make([]news.Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		item := ToItem(source, it)
		if item.Link == "" || item.Title == "" {
			continue
		}
		if f.maxAge > 0 && !item.Published.IsZero() && f.now().Sub(item.Published) > f.maxAge {
			continue
		}
		items = append(items, item)
		if f.maxPerFeed > 0 && len(items) >= f.maxPerFeed {
			break
		}
	}
	return items, nil
}

// ToItem converts a parsed feed entry.
func ToItem(source string, it *gofeed.Item) news.Item {
	summary := it.Description
	if summary == "" {
		summary = it.Content
	}

	item := news.Item{
		Title:   strings.TrimSpace(StripHTML(it.Title)),
		Link:    strings.TrimSpace(it.Link),
		Summary: StripHTML(summary),
		Source:  source,
	}
	switch {
	case it.PublishedParsed != nil:
		item.Published = *it.PublishedParsed
	case it.UpdatedParsed != nil:
		item.Published = *it.UpdatedParsed
	}
	return item
}

// StripHTML returns the visible text of an HTML fragment with whitespace
// collapsed.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
