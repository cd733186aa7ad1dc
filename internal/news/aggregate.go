package news

import "sync"

// Aggregator folds items into events keyed by fingerprint.
//
// The first item seen for a fingerprint fixes the event's title, text and
// topic. Later items only append their link; the topic is never recomputed.
type Aggregator struct {
	vocab *Vocabulary

	mu     sync.Mutex
	index  map[string]*Event
	events []*Event
}

// NewAggregator returns an empty aggregator classifying with vocab.
func NewAggregator(vocab *Vocabulary) *Aggregator {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Aggregator{
		vocab: vocab,
		index: make(map[string]*Event),
	}
}

// Add merges item and returns its event and whether the event was created.
func (a *Aggregator) Add(item Item) (*Event, bool) {
	text := item.Text()
	fp := Fingerprint(text)

	a.mu.Lock()
	defer a.mu.Unlock()

	if ev, ok := a.index[fp]; ok {
		ev.Links = append(ev.Links, item.Link)
		return ev, false
	}

	ev := &Event{
		Fingerprint: fp,
		Title:       item.Title,
		Text:        text,
		Normalized:  Normalize(text),
		Links:       []string{item.Link},
		Topic:       a.vocab.Detect(text),
	}
	a.index[fp] = ev
	a.events = append(a.events, ev)
	return ev, true
}

// Events returns events in creation order.
func (a *Aggregator) Events() []*Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Event, len(a.events))
	copy(out, a.events)
	return out
}

// Len is the number of distinct events.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// Aggregate folds items in order into events.
func Aggregate(items []Item, vocab *Vocabulary) []*Event {
	agg := NewAggregator(vocab)
	for _, it := range items {
		agg.Add(it)
	}
	return agg.Events()
}
