package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/policydigest/internal/ai"
	"github.com/deusflow/policydigest/internal/news"
)

type stubBackend struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Submit(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func failingWaterfall() *ai.Waterfall {
	return ai.NewWaterfall(nil, []ai.Stage{
		{Backend: &stubBackend{name: "groq", err: errors.New("timeout")}},
		{Backend: &stubBackend{name: "openrouter", err: ai.ErrRateLimited}},
		{Backend: &stubBackend{name: "gemini", err: errors.New("unauthorized")}},
	})
}

func TestSummarizeEventFallbackOnLongText(t *testing.T) {
	text := strings.Repeat("abcde", 100)
	require.Equal(t, 500, len(text))

	ev := &news.Event{Text: text}
	brief := New(failingWaterfall(), nil).SummarizeEvent(context.Background(), ev)

	assert.Equal(t, text[:200]+"...", brief)
	assert.Equal(t, 203, utf8.RuneCountInString(brief))
	assert.Equal(t, brief, ev.Summary())
	assert.True(t, ev.Summarized())
}

func TestSummarizeEventUsesProvider(t *testing.T) {
	backend := &stubBackend{name: "groq", text: "County approves road funds. Works start in May."}
	w := ai.NewWaterfall(nil, []ai.Stage{{Backend: backend}})

	ev := &news.Event{Text: "Kenya Roads Board releases funds"}
	brief := New(w, nil).SummarizeEvent(context.Background(), ev)

	assert.Equal(t, "County approves road funds. Works start in May.", brief)
	assert.Equal(t, 1, backend.calls)
}

func TestSummarizeEmptyText(t *testing.T) {
	backend := &stubBackend{name: "groq", text: "unused"}
	w := ai.NewWaterfall(nil, []ai.Stage{{Backend: backend}})

	brief, src := New(w, nil).Summarize(context.Background(), "   ")
	assert.Equal(t, NoSummary, brief)
	assert.Equal(t, SourceFallback, src)
	assert.Equal(t, 0, backend.calls)
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", NoSummary},
		{"short", "Short text.", "Short text."},
		{"exactly limit", strings.Repeat("x", FallbackRunes), strings.Repeat("x", FallbackRunes)},
		{"over limit", strings.Repeat("x", FallbackRunes+1), strings.Repeat("x", FallbackRunes) + Ellipsis},
		{"multibyte", strings.Repeat("ü", 300), strings.Repeat("ü", FallbackRunes) + Ellipsis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestPromptTruncatesLongArticles(t *testing.T) {
	p := Prompt(strings.Repeat("word ", 5000))
	assert.Contains(t, p, "[TRUNCATED]")
	assert.Contains(t, p, "two concise sentences")
}
