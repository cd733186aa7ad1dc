// Package news holds the digest domain: feed items, the events they are
// merged into, text fingerprinting and keyword topic detection.
package news

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"
)

// FingerprintWords is how many normalized leading words identify an event.
const FingerprintWords = 10

// Item is a single entry produced by a feed source.
type Item struct {
	Title     string
	Link      string
	Summary   string
	Published time.Time
	Source    string
}

// Text is the title and body the pipeline reasons about.
func (it Item) Text() string {
	return strings.TrimSpace(it.Title + " " + it.Summary)
}

// Event is one real-world occurrence reported by one or more items.
type Event struct {
	Fingerprint string
	Title       string
	Text        string // first-seen item text, used for summarization
	Normalized  string
	Links       []string
	Topic       string

	mu         sync.Mutex
	summary    string
	summarized bool
}

// SetSummary stores the brief once. Later calls are ignored and return false.
func (e *Event) SetSummary(s string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summarized {
		return false
	}
	e.summary = s
	e.summarized = true
	return true
}

// Summary returns the brief, empty until SetSummary ran.
func (e *Event) Summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary
}

// Summarized reports whether SetSummary has been called.
func (e *Event) Summarized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summarized
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Normalize lower-cases text and collapses every run of non-word
// characters into a single space.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Fingerprint hashes the first FingerprintWords normalized words of text.
// Items about the same event with near-identical lead text share it.
func Fingerprint(text string) string {
	words := strings.Fields(Normalize(text))
	if len(words) > FingerprintWords {
		words = words[:FingerprintWords]
	}
	sum := sha256.Sum256([]byte(strings.Join(words, " ")))
	return hex.EncodeToString(sum[:])
}
