package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/policydigest/internal/news"
)

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// siteSelectors lists paragraph selectors for outlets we know, tried in order.
var siteSelectors = map[string][]string{
	"standardmedia.co.ke":  {".article-body p", ".content-body p", "article p"},
	"kenyans.co.ke":        {".field--name-body p", ".article-body p", "article p"},
	"peopledaily.digital":  {".entry-content p", ".post-content p", "article p"},
	"theeastafrican.co.ke": {".paragraph-wrapper p", ".article-content p", "article p"},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".article-body p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

var junkIndicators = []string{
	"cookie", "subscribe", "newsletter", "sign up", "log in",
	"read more", "related:", "also read", "follow us", "share this",
	"advertisement", "all rights reserved",
}

const (
	minParagraph = 30
	maxContent   = 1800
)

type Scraper struct {
	client      *http.Client
	concurrency int
	maxArticles int
	minSummary  int
	logger      *slog.Logger
}

// New returns a scraper fetching at most maxArticles pages per Enrich call,
// concurrency at a time.
func New(concurrency, maxArticles int, logger *slog.Logger) *Scraper {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		client:      &http.Client{Timeout: 15 * time.Second},
		concurrency: concurrency,
		maxArticles: maxArticles,
		minSummary:  80,
		logger:      logger.With("component", "scraper"),
	}
}

// ExtractFullArticle gets full text of article by URL
func (s *Scraper) ExtractFullArticle(ctx context.Context, pageURL string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "policydigest/1.0 (+news digest)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := cleanContent(extractParagraphs(doc, selectorsFor(pageURL)))
	if content == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: content,
		URL:     pageURL,
	}, nil
}

// Enrich fills in thin summaries from the article pages. Items keep their
// order; failures leave the item as it was.
func (s *Scraper) Enrich(ctx context.Context, items []news.Item) []news.Item {
	out := make([]news.Item, len(items))
	copy(out, items)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	scheduled := 0
	for i := range out {
		if len([]rune(strings.TrimSpace(out[i].Summary))) >= s.minSummary {
			continue
		}
		if s.maxArticles > 0 && scheduled >= s.maxArticles {
			break
		}
		scheduled++

		g.Go(func() error {
			article, err := s.ExtractFullArticle(ctx, out[i].Link)
			if err != nil {
				s.logger.Warn("can't get article content", "url", out[i].Link, "error", err)
				return nil
			}
			out[i].Summary = article.Content
			s.logger.Debug("got article content", "url", out[i].Link, "chars", len(article.Content))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func selectorsFor(pageURL string) []string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return genericSelectors
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if sel, ok := siteSelectors[host]; ok {
		return append(append([]string{}, sel...), genericSelectors...)
	}
	return genericSelectors
}

func extractParagraphs(doc *goquery.Document, selectors []string) []string {
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 2 {
			return paragraphs
		}
	}
	return nil
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		".article-title",
		".headline",
		".entry-title",
		"title",
	}

	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// cleanContent drops boilerplate paragraphs and keeps whole paragraphs up
// to maxContent bytes.
func cleanContent(paragraphs []string) string {
	var kept []string
	total := 0
	for _, p := range paragraphs {
		if len(p) < minParagraph || isJunk(p) {
			continue
		}
		if total > 0 && total+len(p) > maxContent {
			break
		}
		kept = append(kept, p)
		total += len(p) + 2
	}
	return strings.Join(kept, "\n\n")
}

func isJunk(p string) bool {
	lower := strings.ToLower(p)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
