package news

import (
	"fmt"
	"regexp"
	"strings"
)

// CatchAllTopic collects events no keyword matched.
const CatchAllTopic = "Other Policy Issues"

// TopicRule maps one keyword onto a topic label.
type TopicRule struct {
	Keyword string `yaml:"keyword"`
	Topic   string `yaml:"topic"`
}

// DefaultTopicRules is the built-in vocabulary. Order matters: overlapping
// keywords resolve to the rule declared first.
var DefaultTopicRules = []TopicRule{
	{Keyword: "energy", Topic: "Energy"},
	{Keyword: "transport", Topic: "Transport"},
	{Keyword: "ict", Topic: "ICT"},
	{Keyword: "housing", Topic: "Housing"},
	{Keyword: "infrastructure", Topic: "Infrastructure"},
	{Keyword: "building", Topic: "Urban Planning and Development"},
	{Keyword: "construction", Topic: "Urban Planning and Development"},
	{Keyword: "urban development", Topic: "Urban Planning and Development"},
	{Keyword: "roads", Topic: "Roads"},
	{Keyword: "water", Topic: "Water and Sanitation"},
}

type compiledRule struct {
	keyword string
	topic   string
	re      *regexp.Regexp
}

// Vocabulary is an ordered keyword to topic mapping plus a catch-all label.
type Vocabulary struct {
	rules    []compiledRule
	labels   []string
	catchAll string
}

// NewVocabulary compiles rules into case-insensitive whole-word matchers.
func NewVocabulary(rules []TopicRule, catchAll string) (*Vocabulary, error) {
	if catchAll == "" {
		catchAll = CatchAllTopic
	}

	v := &Vocabulary{catchAll: catchAll}
	seen := make(map[string]bool)
	for i, r := range rules {
		kw := strings.TrimSpace(r.Keyword)
		topic := strings.TrimSpace(r.Topic)
		if kw == "" || topic == "" {
			return nil, fmt.Errorf("topic rule %d: keyword and topic are required", i)
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("topic rule %q: %w", kw, err)
		}
		v.rules = append(v.rules, compiledRule{keyword: kw, topic: topic, re: re})
		if topic != catchAll && !seen[topic] {
			seen[topic] = true
			v.labels = append(v.labels, topic)
		}
	}
	v.labels = append(v.labels, catchAll)
	return v, nil
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultTopicRules, CatchAllTopic)
	if err != nil {
		panic(err)
	}
	return v
}

// Detect returns the topic of the first keyword found in text, or the
// catch-all label when none matches.
func (v *Vocabulary) Detect(text string) string {
	for _, r := range v.rules {
		if r.re.MatchString(text) {
			return r.topic
		}
	}
	return v.catchAll
}

// Matches reports whether any keyword occurs in text.
func (v *Vocabulary) Matches(text string) bool {
	for _, r := range v.rules {
		if r.re.MatchString(text) {
			return true
		}
	}
	return false
}

// Labels lists topics in declaration order with the catch-all last.
func (v *Vocabulary) Labels() []string {
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

// Keywords lists the configured keywords in declaration order.
func (v *Vocabulary) Keywords() []string {
	out := make([]string, 0, len(v.rules))
	for _, r := range v.rules {
		out = append(out, r.keyword)
	}
	return out
}

// CatchAll returns the label used when no keyword matches.
func (v *Vocabulary) CatchAll() string {
	return v.catchAll
}
