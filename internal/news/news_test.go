package news

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Nairobi EXPRESSWAY", "nairobi expressway"},
		{"collapses punctuation", "Roads -- bypass,   phase 2!!", "roads bypass phase 2"},
		{"trims", "   ...Housing levy...  ", "housing levy"},
		{"keeps underscore", "snake_case word", "snake_case word"},
		{"unicode letters", "Mombasa–Nairobi: Bahari ya Hindi", "mombasa nairobi bahari ya hindi"},
		{"empty", "", ""},
		{"only punctuation", "?!-", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"KPLC raises ENERGY tariffs -- again!",
		"  multiple   spaces\tand\nnewlines ",
		"Ünïcödé & symbols © 2026",
		"a_b__c",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		text := "Government announces new roads programme for northern counties"
		assert.Equal(t, Fingerprint(text), Fingerprint(text))
		assert.Len(t, Fingerprint(text), 64)
	})

	t.Run("same first ten normalized words", func(t *testing.T) {
		a := "Cabinet approves KSh 10bn water project in Kisumu county, officials say today."
		b := "cabinet approves ksh 10bn WATER project in kisumu county officials -- with different tail text"
		assert.Equal(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("different lead words", func(t *testing.T) {
		assert.NotEqual(t,
			Fingerprint("Housing levy court ruling delayed"),
			Fingerprint("Energy regulator cuts power tariffs"))
	})

	t.Run("short text uses all words", func(t *testing.T) {
		assert.Equal(t, Fingerprint("ICT bill"), Fingerprint("ict   BILL!"))
		assert.NotEqual(t, Fingerprint("ICT bill"), Fingerprint("ICT bill passed"))
	})

	t.Run("empty text is a valid fingerprint", func(t *testing.T) {
		fp := Fingerprint("")
		assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", fp)
		assert.Equal(t, fp, Fingerprint("  ...  "))
	})
}

func TestEventSetSummaryOnce(t *testing.T) {
	ev := &Event{}
	assert.False(t, ev.Summarized())

	require.True(t, ev.SetSummary("first"))
	assert.False(t, ev.SetSummary("second"))
	assert.Equal(t, "first", ev.Summary())
	assert.True(t, ev.Summarized())
}

func TestItemText(t *testing.T) {
	assert.Equal(t, "Title body", Item{Title: "Title", Summary: "body"}.Text())
	assert.Equal(t, "Title", Item{Title: "Title"}.Text())
	assert.Equal(t, "", Item{}.Text())
	assert.False(t, strings.HasPrefix(Item{Summary: "body"}.Text(), " "))
}
