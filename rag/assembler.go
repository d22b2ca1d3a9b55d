package rag

import (
	"fmt"
	"strings"

	"github.com/poiesic/intentdb/core"
)

// NoContextFound is the context string used when retrieval produced no
// usable information.
const NoContextFound = "No specific information found in the knowledge base for this query."

// AssembleContext formats retrieved hits into a single grounding block
// for the system prompt. Each hit contributes at most one block:
//
//	[Context N] (Relevance: 0.87)
//	Topic: hours_info
//	Related Query: store hours
//	Information: We are open 9-5.
//
// Responses already emitted by an earlier hit are never repeated. A hit
// whose responses were all seen before is dropped entirely, though it
// still consumes its context number, so numbering reflects retrieval
// rank. When every hit is dropped, NoContextFound is returned.
func AssembleContext(hits []core.SearchHit) string {
	if len(hits) == 0 {
		return NoContextFound
	}

	var parts []string
	seen := make(map[string]bool)

	for i, hit := range hits {
		var unique []string
		for _, response := range hit.Record.Responses {
			if !seen[response] {
				unique = append(unique, response)
			}
		}
		if len(unique) == 0 {
			continue
		}

		parts = append(parts, fmt.Sprintf("\n[Context %d] (Relevance: %.2f)", i+1, hit.Score))
		parts = append(parts, "Topic: "+hit.Record.Tag)
		if hit.Record.Text != "" {
			parts = append(parts, "Related Query: "+hit.Record.Text)
		}
		parts = append(parts, "Information: "+unique[0])

		for _, response := range unique {
			seen[response] = true
		}
	}

	if len(parts) == 0 {
		return NoContextFound
	}
	return strings.Join(parts, "\n")
}
