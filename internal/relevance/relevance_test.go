package relevance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/policydigest/internal/ai"
	"github.com/deusflow/policydigest/internal/news"
)

type stubBackend struct {
	text  string
	err   error
	calls int
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Submit(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func waterfall(backends ...*stubBackend) *ai.Waterfall {
	stages := make([]ai.Stage, 0, len(backends))
	for _, b := range backends {
		stages = append(stages, ai.Stage{Backend: b})
	}
	return ai.NewWaterfall(nil, stages)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		response string
		relevant bool
		outcome  Outcome
		reason   string
	}{
		{"YES", true, OutcomeYes, ""},
		{"yes - new county roads budget", true, OutcomeYes, "new county roads budget"},
		{"  Yes: housing levy ruling", true, OutcomeYes, "housing levy ruling"},
		{"NO", false, OutcomeNo, ""},
		{"no. sports coverage", false, OutcomeNo, "sports coverage"},
		{"Maybe, it depends", false, OutcomeMalformed, ""},
		{"The article is about energy", false, OutcomeMalformed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			d := ParseVerdict(tt.response)
			assert.Equal(t, tt.relevant, d.Relevant)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestIsRelevantAllProvidersFailing(t *testing.T) {
	w := waterfall(
		&stubBackend{err: errors.New("timeout")},
		&stubBackend{err: ai.ErrRateLimited},
		&stubBackend{text: ""},
	)
	c := New(w, "Kenya", nil, nil)

	assert.True(t, c.IsRelevant(context.Background(), "Roads agency awards tender"))
	assert.Equal(t, OutcomeExhausted, c.Decide(context.Background(), "x").Outcome)
}

func TestFailClosed(t *testing.T) {
	c := New(waterfall(&stubBackend{err: errors.New("down")}), "Kenya", nil, nil, WithFailOpen(false))
	assert.False(t, c.IsRelevant(context.Background(), "Roads agency awards tender"))
}

func TestMalformedResponseIsNotRelevant(t *testing.T) {
	c := New(waterfall(&stubBackend{text: "I cannot determine that."}), "Kenya", nil, nil)

	d := c.Decide(context.Background(), "Housing levy approved")
	assert.False(t, d.Relevant)
	assert.Equal(t, OutcomeMalformed, d.Outcome)
	assert.Equal(t, "stub", d.Provider)
}

func TestDecideUsesFirstProviderAnswer(t *testing.T) {
	first := &stubBackend{text: "NO - celebrity news"}
	second := &stubBackend{text: "YES"}
	c := New(waterfall(first, second), "Kenya", nil, nil)

	assert.False(t, c.IsRelevant(context.Background(), "Musician tours Nairobi"))
	assert.Equal(t, 0, second.calls)
}

func TestKeywordGate(t *testing.T) {
	backend := &stubBackend{text: "YES"}
	c := New(waterfall(backend), "Kenya", nil, nil, WithKeywordGate(news.DefaultVocabulary()))

	d := c.Decide(context.Background(), "Football league results")
	assert.False(t, d.Relevant)
	assert.Equal(t, OutcomeGated, d.Outcome)
	assert.Equal(t, 0, backend.calls)

	assert.True(t, c.IsRelevant(context.Background(), "Water tariffs rise in Mombasa"))
	assert.Equal(t, 1, backend.calls)
}

func TestPrompt(t *testing.T) {
	c := New(nil, "Kenya", []string{"energy", "roads"}, nil)
	p := c.Prompt("Article body")

	require.Contains(t, p, "Kenya")
	assert.Contains(t, p, "energy, roads")
	assert.Contains(t, p, "YES or NO")
	assert.Contains(t, p, "Article body")
}
