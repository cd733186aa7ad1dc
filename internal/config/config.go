// Package config loads digest settings from .env, the environment and the
// digest YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/policydigest/internal/email"
	"github.com/deusflow/policydigest/internal/news"
	"github.com/deusflow/policydigest/internal/rss"
)

const (
	DefaultConfigPath    = "configs/digest.yaml"
	DefaultJurisdiction  = "Kenya"
	DefaultProviderOrder = "groq,openrouter,gemini"
)

// Delivery channels.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelStdout   = "stdout"
)

// Seen-store kinds.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// ProviderConfig is one stage of the provider waterfall.
type ProviderConfig struct {
	Name        string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Interval    time.Duration // minimum spacing between calls
	MaxRequests int           // per day, 0 = unlimited
}

type providerDefaults struct {
	timeout  time.Duration
	interval time.Duration
}

// Free-tier pacing: Groq ~30 RPM, OpenRouter ~20 RPM, Gemini ~15 RPM.
var knownProviders = map[string]providerDefaults{
	"groq":       {timeout: 20 * time.Second, interval: 2 * time.Second},
	"openrouter": {timeout: 30 * time.Second, interval: 3 * time.Second},
	"gemini":     {timeout: 45 * time.Second, interval: 4 * time.Second},
}

type Config struct {
	// Digest content
	Jurisdiction string
	Title        string
	Feeds        []rss.Feed
	Topics       []news.TopicRule
	CatchAll     string

	// Providers in waterfall order
	Providers     []ProviderConfig
	MaxAIRequests int // across all providers per run, 0 = unlimited

	// Relevance
	RelevanceFailOpen    bool
	RelevanceKeywordGate bool

	// Pipeline
	Workers   int
	CacheSize int
	CacheTTL  time.Duration

	// Delivery
	Delivery        []string
	SMTPHost        string
	SMTPPort        int
	EmailSender     string
	EmailPassword   string
	EmailRecipients []string
	TelegramToken   string
	TelegramChatID  string

	// Seen store
	SeenStore     string
	CacheFilePath string
	DatabaseURL   string
	RedisURL      string
	SeenTTL       time.Duration

	// RSS and scraper
	MaxItemsPerFeed   int
	NewsMaxAge        time.Duration
	ScrapeConcurrency int
	ScrapeMaxArticles int

	MonitoringPort string
}

// fileConfig is the layout of the digest YAML file:
//
//	jurisdiction: Kenya
//	feeds:
//	  - name: ...
//	    url: https://...
//	topics:
//	  catch_all: Other Policy Issues
//	  rules:
//	    - keyword: roads
//	      topic: Roads
type fileConfig struct {
	Jurisdiction string     `yaml:"jurisdiction"`
	Title        string     `yaml:"title"`
	Feeds        []rss.Feed `yaml:"feeds"`
	Topics       struct {
		CatchAll string           `yaml:"catch_all"`
		Rules    []news.TopicRule `yaml:"rules"`
	} `yaml:"topics"`
}

// Load reads .env when present, then the environment and the YAML file named
// by DIGEST_CONFIG. A missing YAML file leaves the built-in feeds and topics.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Jurisdiction:      DefaultJurisdiction,
		Feeds:             rss.DefaultFeeds,
		Topics:            news.DefaultTopicRules,
		CatchAll:          news.CatchAllTopic,
		Workers:           4,
		CacheSize:         512,
		CacheTTL:          6 * time.Hour,
		SMTPPort:          587,
		SeenStore:         StoreFile,
		MaxItemsPerFeed:   20,
		NewsMaxAge:        24 * time.Hour,
		ScrapeConcurrency: 4,
		ScrapeMaxArticles: 10,
	}

	path := getEnvOrDefault("DIGEST_CONFIG", DefaultConfigPath)
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// FEEDS_CONFIG replaces the feed list with a standalone feeds file.
	if p := os.Getenv("FEEDS_CONFIG"); p != "" {
		feeds, err := rss.LoadFeeds(p)
		if err != nil {
			return nil, fmt.Errorf("load feeds: %w", err)
		}
		cfg.Feeds = feeds
	}

	if v := os.Getenv("JURISDICTION"); v != "" {
		cfg.Jurisdiction = v
	}
	if v := os.Getenv("DIGEST_TITLE"); v != "" {
		cfg.Title = v
	}
	if cfg.Title == "" {
		cfg.Title = cfg.Jurisdiction + " Policy News Digest"
	}

	providers, err := loadProviders(getEnvOrDefault("PROVIDER_ORDER", DefaultProviderOrder))
	if err != nil {
		return nil, err
	}
	cfg.Providers = providers
	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", 0)

	cfg.RelevanceFailOpen = getEnvBoolOrDefault("RELEVANCE_FAIL_OPEN", true)
	cfg.RelevanceKeywordGate = getEnvBoolOrDefault("RELEVANCE_KEYWORD_GATE", false)

	cfg.Workers = getEnvIntOrDefault("WORKERS", cfg.Workers)
	cfg.CacheSize = getEnvIntOrDefault("AI_CACHE_SIZE", cfg.CacheSize)
	cfg.CacheTTL = getEnvDurationOrDefault("AI_CACHE_TTL", cfg.CacheTTL)

	cfg.SMTPHost = os.Getenv("EMAIL_SMTP")
	cfg.SMTPPort = getEnvIntOrDefault("EMAIL_PORT", cfg.SMTPPort)
	cfg.EmailSender = os.Getenv("EMAIL_SENDER")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")
	cfg.EmailRecipients = email.ParseRecipients(os.Getenv("EMAIL_RECIPIENTS"))
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.Delivery = cfg.resolveDelivery(os.Getenv("DELIVERY"))

	cfg.SeenStore = strings.ToLower(getEnvOrDefault("SEEN_STORE", cfg.SeenStore))
	cfg.CacheFilePath = getEnvOrDefault("CACHE_FILE_PATH", "seen_items.json")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.SeenTTL = time.Duration(getEnvIntOrDefault("CACHE_TTL_HOURS", 48)) * time.Hour

	cfg.MaxItemsPerFeed = getEnvIntOrDefault("MAX_ITEMS_PER_FEED", cfg.MaxItemsPerFeed)
	cfg.NewsMaxAge = getEnvDurationOrDefault("NEWS_MAX_AGE", cfg.NewsMaxAge)
	cfg.ScrapeConcurrency = getEnvIntOrDefault("SCRAPE_CONCURRENCY", cfg.ScrapeConcurrency)
	cfg.ScrapeMaxArticles = getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", cfg.ScrapeMaxArticles)

	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", "8080")

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if fc.Jurisdiction != "" {
		c.Jurisdiction = fc.Jurisdiction
	}
	c.Title = fc.Title
	if len(fc.Feeds) > 0 {
		c.Feeds = fc.Feeds
	}
	if len(fc.Topics.Rules) > 0 {
		c.Topics = fc.Topics.Rules
	}
	if fc.Topics.CatchAll != "" {
		c.CatchAll = fc.Topics.CatchAll
	}
	return nil
}

func loadProviders(order string) ([]ProviderConfig, error) {
	var out []ProviderConfig
	for _, name := range strings.Split(order, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		def, ok := knownProviders[name]
		if !ok {
			return nil, fmt.Errorf("PROVIDER_ORDER: unknown provider %q", name)
		}
		prefix := strings.ToUpper(name) + "_"
		out = append(out, ProviderConfig{
			Name:        name,
			APIKey:      os.Getenv(prefix + "API_KEY"),
			Model:       os.Getenv(prefix + "MODEL"),
			Timeout:     getEnvDurationOrDefault(prefix+"TIMEOUT", def.timeout),
			Interval:    getEnvDurationOrDefault(prefix+"MIN_INTERVAL", def.interval),
			MaxRequests: getEnvIntOrDefault(prefix+"MAX_REQUESTS", 0),
		})
	}
	return out, nil
}

// resolveDelivery parses DELIVERY. When unset, every channel with
// credentials is used and stdout is the fallback.
func (c *Config) resolveDelivery(v string) []string {
	var out []string
	for _, ch := range strings.Split(v, ",") {
		if ch = strings.ToLower(strings.TrimSpace(ch)); ch != "" {
			out = append(out, ch)
		}
	}
	if len(out) > 0 {
		return out
	}

	if c.SMTPHost != "" && c.EmailSender != "" {
		out = append(out, ChannelEmail)
	}
	if c.TelegramToken != "" && c.TelegramChatID != "" {
		out = append(out, ChannelTelegram)
	}
	if len(out) == 0 {
		out = append(out, ChannelStdout)
	}
	return out
}

// EnabledProviders returns providers that have an API key, in order.
func (c *Config) EnabledProviders() []ProviderConfig {
	var out []ProviderConfig
	for _, p := range c.Providers {
		if p.APIKey != "" {
			out = append(out, p)
		}
	}
	return out
}

// Email returns the SMTP settings for the email channel.
func (c *Config) Email() email.Config {
	return email.Config{
		Host:       c.SMTPHost,
		Port:       c.SMTPPort,
		Sender:     c.EmailSender,
		Password:   c.EmailPassword,
		Recipients: c.EmailRecipients,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validate checks settings every command needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Jurisdiction) == "" {
		return fmt.Errorf("JURISDICTION is required")
	}
	if len(c.Feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}
	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("at least one of GROQ_API_KEY, OPENROUTER_API_KEY, GEMINI_API_KEY is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive")
	}
	switch c.SeenStore {
	case StoreFile, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for SEEN_STORE=postgres")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for SEEN_STORE=redis")
		}
	default:
		return fmt.Errorf("SEEN_STORE must be one of file, memory, postgres, redis")
	}
	if _, err := news.NewVocabulary(c.Topics, c.CatchAll); err != nil {
		return err
	}
	return nil
}

// ValidateDelivery checks the settings of every configured channel. Only
// the run command delivers, so preview skips it.
func (c *Config) ValidateDelivery() error {
	if len(c.Delivery) == 0 {
		return fmt.Errorf("no delivery channel configured")
	}
	for _, ch := range c.Delivery {
		switch ch {
		case ChannelEmail:
			if err := c.Email().Validate(); err != nil {
				return err
			}
		case ChannelTelegram:
			if c.TelegramToken == "" {
				return fmt.Errorf("TELEGRAM_TOKEN is required")
			}
			if c.TelegramChatID == "" {
				return fmt.Errorf("TELEGRAM_CHAT_ID is required")
			}
		case ChannelStdout:
		default:
			return fmt.Errorf("unknown delivery channel %q", ch)
		}
	}
	return nil
}
