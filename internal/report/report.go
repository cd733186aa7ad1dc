// Package report renders events as a plain-text digest grouped by topic.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/deusflow/policydigest/internal/news"
)

const TimeLayout = "2006-01-02 15:04 MST"

// Section is one topic heading and its events in arrival order.
type Section struct {
	Topic  string
	Events []*news.Event
}

type Builder struct {
	title string
	vocab *news.Vocabulary
}

// NewBuilder returns a builder ordering sections by vocab.
func NewBuilder(title string, vocab *news.Vocabulary) *Builder {
	if vocab == nil {
		vocab = news.DefaultVocabulary()
	}
	return &Builder{title: title, vocab: vocab}
}

// Title is the digest heading, also used as the delivery subject.
func (b *Builder) Title() string { return b.title }

// Sections groups events by topic. Known topics come in vocabulary order,
// unknown ones after them in first-seen order, the catch-all last. Empty
// topics are left out.
func (b *Builder) Sections(events []*news.Event) []Section {
	byTopic := make(map[string][]*news.Event)
	var unknown []string
	known := make(map[string]bool)
	for _, label := range b.vocab.Labels() {
		known[label] = true
	}

	for _, ev := range events {
		if !known[ev.Topic] {
			if _, ok := byTopic[ev.Topic]; !ok {
				unknown = append(unknown, ev.Topic)
			}
		}
		byTopic[ev.Topic] = append(byTopic[ev.Topic], ev)
	}

	labels := b.vocab.Labels()
	catchAll := labels[len(labels)-1]
	order := append(labels[:len(labels)-1:len(labels)-1], unknown...)
	order = append(order, catchAll)

	var sections []Section
	for _, topic := range order {
		if evs := byTopic[topic]; len(evs) > 0 {
			sections = append(sections, Section{Topic: topic, Events: evs})
		}
	}
	return sections
}

// Build renders events. Output depends only on events and now.
func (b *Builder) Build(events []*news.Event, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(b.title)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Generated: %s\n", now.Format(TimeLayout))

	for _, sec := range b.Sections(events) {
		heading := strings.ToUpper(sec.Topic)
		fmt.Fprintf(&sb, "\n%s\n%s\n", heading, strings.Repeat("=", len([]rune(heading))))
		for _, ev := range sec.Events {
			fmt.Fprintf(&sb, "\n* %s\n", ev.Title)
			if s := ev.Summary(); s != "" {
				fmt.Fprintf(&sb, "  %s\n", s)
			}
			for _, link := range ev.Links {
				fmt.Fprintf(&sb, "  - %s\n", link)
			}
		}
	}
	return sb.String()
}
