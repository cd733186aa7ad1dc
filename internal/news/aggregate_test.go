package news

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leadText = "Kenya Roads Board releases funds for rural roads maintenance across counties"

func TestAggregateMergesByFingerprint(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d items", n), func(t *testing.T) {
			items := make([]Item, n)
			for i := range items {
				items[i] = Item{
					Title:   leadText,
					Summary: fmt.Sprintf("tail %d", i),
					Link:    fmt.Sprintf("https://example.com/%d", i),
				}
			}

			events := Aggregate(items, DefaultVocabulary())
			require.Len(t, events, 1)

			ev := events[0]
			assert.Equal(t, leadText, ev.Title)
			assert.Equal(t, leadText+" tail 0", ev.Text)
			assert.Len(t, ev.Links, n)
			for i, link := range ev.Links {
				assert.Equal(t, fmt.Sprintf("https://example.com/%d", i), link)
			}
		})
	}
}

func TestAggregateFirstWriteWins(t *testing.T) {
	items := []Item{
		{Title: "Nairobi county approves housing plan for Eastlands estates redevelopment now", Link: "a"},
		{Title: "Nairobi county approves housing plan for Eastlands estates redevelopment now, energy", Summary: "updated", Link: "b"},
	}

	events := Aggregate(items, DefaultVocabulary())
	require.Len(t, events, 1)
	assert.Equal(t, items[0].Title, events[0].Title)
	assert.Equal(t, Normalize(items[0].Text()), events[0].Normalized)
	assert.Equal(t, "Housing", events[0].Topic)
	assert.Equal(t, []string{"a", "b"}, events[0].Links)
}

func TestAggregateTopicSetOnce(t *testing.T) {
	agg := NewAggregator(DefaultVocabulary())

	first, created := agg.Add(Item{Title: "Ministry statement on the budget for next year was issued today", Link: "1"})
	require.True(t, created)
	require.Equal(t, CatchAllTopic, first.Topic)

	// Shares the first ten words, but mentions a keyword later on.
	second, created := agg.Add(Item{Title: "Ministry statement on the budget for next year was issued today: water", Link: "2"})
	require.False(t, created)
	assert.Same(t, first, second)
	assert.Equal(t, CatchAllTopic, second.Topic)
}

func TestAggregateKeepsDuplicateLinks(t *testing.T) {
	item := Item{Title: leadText, Link: "https://example.com/same"}
	events := Aggregate([]Item{item, item}, nil)
	require.Len(t, events, 1)
	assert.Equal(t, []string{item.Link, item.Link}, events[0].Links)
}

func TestAggregatePreservesCreationOrder(t *testing.T) {
	items := []Item{
		{Title: "Energy regulator approves new electricity tariffs", Link: "1"},
		{Title: "Transport authority bans night buses", Link: "2"},
		{Title: "Energy regulator approves new electricity tariffs", Link: "3"},
		{Title: "ICT ministry launches e-citizen upgrade", Link: "4"},
	}

	events := Aggregate(items, DefaultVocabulary())
	require.Len(t, events, 3)
	assert.Equal(t, "Energy", events[0].Topic)
	assert.Equal(t, "Transport", events[1].Topic)
	assert.Equal(t, "ICT", events[2].Topic)
	assert.Equal(t, []string{"1", "3"}, events[0].Links)
}

func TestAggregatorConcurrentAdd(t *testing.T) {
	agg := NewAggregator(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agg.Add(Item{Title: leadText, Link: fmt.Sprintf("%d", i)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, agg.Len())
	assert.Len(t, agg.Events()[0].Links, 50)
}
