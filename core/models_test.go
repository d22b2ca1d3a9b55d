package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestRecord_Clone(t *testing.T) {
	original := Record{
		Text:      "what are your opening hours",
		Tag:       "hours_info",
		Responses: []string{"We are open 9-5.", "Weekdays only."},
		Kind:      RecordKindPattern,
	}

	clone := original.Clone()

	if clone.Text != original.Text || clone.Tag != original.Tag {
		t.Errorf("Clone() changed scalar fields: %+v", clone)
	}
	if len(clone.Responses) != len(original.Responses) {
		t.Fatalf("Clone() responses length = %d, want %d", len(clone.Responses), len(original.Responses))
	}

	// Mutating the clone must not affect the original.
	clone.Responses[0] = "mutated"
	if original.Responses[0] != "We are open 9-5." {
		t.Errorf("mutating clone responses changed original: %q", original.Responses[0])
	}
}
