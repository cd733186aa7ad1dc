package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/policydigest/internal/news"
	"github.com/deusflow/policydigest/internal/rss"
)

var envKeys = []string{
	"DIGEST_CONFIG", "FEEDS_CONFIG", "JURISDICTION", "DIGEST_TITLE", "PROVIDER_ORDER",
	"GROQ_API_KEY", "OPENROUTER_API_KEY", "GEMINI_API_KEY", "GROQ_TIMEOUT",
	"MAX_AI_REQUESTS", "RELEVANCE_FAIL_OPEN", "RELEVANCE_KEYWORD_GATE", "WORKERS",
	"DELIVERY", "EMAIL_SMTP", "EMAIL_PORT", "EMAIL_SENDER", "EMAIL_PASSWORD",
	"EMAIL_RECIPIENTS", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "SEEN_STORE",
	"DATABASE_URL", "REDIS_URL", "NEWS_MAX_AGE", "DEBUG",
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("DIGEST_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{"GEMINI_API_KEY": "g"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Kenya", cfg.Jurisdiction)
	assert.Equal(t, "Kenya Policy News Digest", cfg.Title)
	assert.Equal(t, rss.DefaultFeeds, cfg.Feeds)
	assert.Equal(t, news.DefaultTopicRules, cfg.Topics)
	assert.True(t, cfg.RelevanceFailOpen)
	assert.False(t, cfg.RelevanceKeywordGate)
	assert.Equal(t, []string{ChannelStdout}, cfg.Delivery)
	assert.Equal(t, StoreFile, cfg.SeenStore)
	assert.Equal(t, 48*time.Hour, cfg.SeenTTL)

	require.Len(t, cfg.Providers, 3)
	assert.Equal(t, "groq", cfg.Providers[0].Name)
	assert.Equal(t, 20*time.Second, cfg.Providers[0].Timeout)
	assert.Equal(t, 45*time.Second, cfg.Providers[2].Timeout)

	enabled := cfg.EnabledProviders()
	require.Len(t, enabled, 1)
	assert.Equal(t, "gemini", enabled[0].Name)
}

func TestLoadEnvOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"PROVIDER_ORDER":         "gemini, groq",
		"GEMINI_API_KEY":         "g",
		"GROQ_API_KEY":           "q",
		"GROQ_TIMEOUT":           "5s",
		"RELEVANCE_FAIL_OPEN":    "false",
		"RELEVANCE_KEYWORD_GATE": "true",
		"WORKERS":                "8",
		"NEWS_MAX_AGE":           "12h",
		"JURISDICTION":           "Uganda",
		"EMAIL_SMTP":             "smtp.example.com",
		"EMAIL_SENDER":           "d@example.com",
		"EMAIL_PASSWORD":         "pw",
		"EMAIL_RECIPIENTS":       "a@example.com,b@example.com",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Uganda Policy News Digest", cfg.Title)
	assert.Equal(t, []string{"gemini", "groq"}, []string{cfg.Providers[0].Name, cfg.Providers[1].Name})
	assert.Equal(t, 5*time.Second, cfg.Providers[1].Timeout)
	assert.False(t, cfg.RelevanceFailOpen)
	assert.True(t, cfg.RelevanceKeywordGate)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 12*time.Hour, cfg.NewsMaxAge)
	assert.Equal(t, []string{ChannelEmail}, cfg.Delivery)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email().Recipients)
	assert.NoError(t, cfg.ValidateDelivery())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jurisdiction: Tanzania
feeds:
  - name: Daily News
    url: https://dailynews.example/rss
topics:
  catch_all: Misc
  rules:
    - keyword: ports
      topic: Maritime
`), 0o644))

	setEnv(t, map[string]string{"GROQ_API_KEY": "q"})
	t.Setenv("DIGEST_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Tanzania", cfg.Jurisdiction)
	assert.Equal(t, []rss.Feed{{Name: "Daily News", URL: "https://dailynews.example/rss"}}, cfg.Feeds)
	assert.Equal(t, []news.TopicRule{{Keyword: "ports", Topic: "Maritime"}}, cfg.Topics)
	assert.Equal(t, "Misc", cfg.CatchAll)
}

func TestLoadFeedsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - name: Nation\n    url: https://nation.example/rss\n"), 0o644))

	setEnv(t, map[string]string{"GROQ_API_KEY": "q", "FEEDS_CONFIG": path})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []rss.Feed{{Name: "Nation", URL: "https://nation.example/rss"}}, cfg.Feeds)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no provider keys", map[string]string{}},
		{"unknown provider", map[string]string{"PROVIDER_ORDER": "groq,claude", "GROQ_API_KEY": "q"}},
		{"postgres without dsn", map[string]string{"GROQ_API_KEY": "q", "SEEN_STORE": "postgres"}},
		{"unknown store", map[string]string{"GROQ_API_KEY": "q", "SEEN_STORE": "sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateDelivery(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"stdout", Config{Delivery: []string{ChannelStdout}}, false},
		{"telegram missing chat", Config{Delivery: []string{ChannelTelegram}, TelegramToken: "t"}, true},
		{"telegram", Config{Delivery: []string{ChannelTelegram}, TelegramToken: "t", TelegramChatID: "c"}, false},
		{"email missing recipients", Config{Delivery: []string{ChannelEmail}, SMTPHost: "h", EmailSender: "s", EmailPassword: "p"}, true},
		{"unknown", Config{Delivery: []string{"fax"}}, true},
		{"none", Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateDelivery()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
