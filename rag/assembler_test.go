package rag

import (
	"strings"
	"testing"

	"github.com/poiesic/intentdb/core"
	"github.com/stretchr/testify/assert"
)

func hit(tag, text string, score float32, responses ...string) core.SearchHit {
	return core.SearchHit{
		Record: core.Record{
			Text:      text,
			Tag:       tag,
			Responses: responses,
			Kind:      core.RecordKindPattern,
		},
		Score: score,
	}
}

func TestAssembleContext_Empty(t *testing.T) {
	assert.Equal(t, NoContextFound, AssembleContext(nil))
	assert.Equal(t, NoContextFound, AssembleContext([]core.SearchHit{}))
}

func TestAssembleContext_SingleHit(t *testing.T) {
	got := AssembleContext([]core.SearchHit{
		hit("hours_info", "store hours", 0.87, "We are open 9-5."),
	})

	assert.Contains(t, got, "[Context 1] (Relevance: 0.87)")
	assert.Contains(t, got, "Topic: hours_info")
	assert.Contains(t, got, "Related Query: store hours")
	assert.Contains(t, got, "Information: We are open 9-5.")
}

func TestAssembleContext_OmitsEmptyRelatedQuery(t *testing.T) {
	got := AssembleContext([]core.SearchHit{
		hit("hours_info", "", 0.9, "We are open 9-5."),
	})

	assert.NotContains(t, got, "Related Query:")
	assert.Contains(t, got, "Topic: hours_info")
}

func TestAssembleContext_DeduplicatesAcrossHits(t *testing.T) {
	hits := []core.SearchHit{
		hit("hours_info", "store hours", 0.9, "We are open 9-5.", "Weekdays only."),
		// Same responses under another pattern: fully shadowed, dropped.
		hit("hours_alt", "opening times", 0.8, "We are open 9-5.", "Weekdays only."),
		hit("location_info", "where are you", 0.7, "Main campus."),
	}

	got := AssembleContext(hits)

	assert.Equal(t, 1, strings.Count(got, "We are open 9-5."))
	assert.NotContains(t, got, "hours_alt")
	assert.Contains(t, got, "Main campus.")
	// Dropped hits keep their retrieval rank number.
	assert.Contains(t, got, "[Context 3]")
	assert.NotContains(t, got, "[Context 2]")
}

func TestAssembleContext_PartialOverlapStillEmits(t *testing.T) {
	hits := []core.SearchHit{
		hit("a", "first", 0.9, "shared answer"),
		hit("b", "second", 0.8, "shared answer", "fresh answer"),
	}

	got := AssembleContext(hits)

	// The second hit survives on its unseen response.
	assert.Contains(t, got, "[Context 2]")
	assert.Contains(t, got, "Information: fresh answer")
	assert.Equal(t, 1, strings.Count(got, "shared answer"))
}

func TestAssembleContext_AllShadowed(t *testing.T) {
	hits := []core.SearchHit{
		hit("a", "first", 0.9, "only answer"),
		hit("b", "second", 0.8, "only answer"),
	}
	first := AssembleContext(hits)
	assert.Contains(t, first, "[Context 1]")
	assert.NotContains(t, first, "[Context 2]")

	// Assembling the same hits again starts from a clean seen set.
	assert.Equal(t, first, AssembleContext(hits))
}
