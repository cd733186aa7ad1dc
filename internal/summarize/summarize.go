// Package summarize writes one short brief per event.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/policydigest/internal/ai"
	"github.com/deusflow/policydigest/internal/metrics"
	"github.com/deusflow/policydigest/internal/news"
)

const (
	// FallbackRunes is how much event text the local fallback keeps.
	FallbackRunes = 200
	Ellipsis      = "..."
	NoSummary     = "No summary available."

	// maxPromptRunes bounds the article text sent to a provider.
	maxPromptRunes = 6000
)

// Generator produces model output for a prompt. *ai.Waterfall satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (ai.Response, error)
}

// Source tells the caller where a brief came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

type Summarizer struct {
	gen    Generator
	logger *slog.Logger
}

func New(gen Generator, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{gen: gen, logger: logger.With("component", "summarizer")}
}

// SummarizeEvent returns a brief for ev's first-seen text and stores it on
// the event. It never fails: when no provider answers the brief is a
// truncation of the text.
func (s *Summarizer) SummarizeEvent(ctx context.Context, ev *news.Event) string {
	brief, src := s.Summarize(ctx, ev.Text)
	metrics.SummariesTotal.WithLabelValues(string(src)).Inc()
	ev.SetSummary(brief)
	return brief
}

// Summarize returns a brief for text and where it came from.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, Source) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoSummary, SourceFallback
	}

	resp, err := s.gen.Generate(ctx, Prompt(text))
	if err != nil {
		s.logger.Warn("summarization failed, using truncated text", "error", err)
		return Fallback(text), SourceFallback
	}
	return resp.Text, SourceAI
}

// Prompt renders the summarization instruction for text.
func Prompt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxPromptRunes {
		text = string([]rune(text)[:maxPromptRunes]) + "\n[TRUNCATED]"
	}
	return fmt.Sprintf("Summarize this news article for a policy digest in two concise sentences. "+
		"Reply with the summary only.\n\nArticle:\n%s", text)
}

// Fallback keeps the first FallbackRunes runes of text and marks the cut
// with an ellipsis. Text that already fits is returned as is.
func Fallback(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoSummary
	}
	if utf8.RuneCountInString(text) <= FallbackRunes {
		return text
	}
	return string([]rune(text)[:FallbackRunes]) + Ellipsis
}
