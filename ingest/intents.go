package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/poiesic/intentdb/core"
)

// Intent is one entry of an intent definition file: a tag, the pattern
// texts users might type, and the canned responses for all of them.
type Intent struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

type intentFile struct {
	Intents []Intent `json:"intents"`
}

// ParseIntents decodes an intent definition file.
func ParseIntents(data []byte) ([]Intent, error) {
	var file intentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing intent file: %w", err)
	}
	return file.Intents, nil
}

// LoadIntents reads and decodes the intent definition file at path.
func LoadIntents(path string) ([]Intent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading intent file: %w", err)
	}
	return ParseIntents(data)
}

// FlattenIntents expands intents into one record per pattern, preserving
// file order. Every produced record is validated; a malformed intent
// fails the whole flatten with an error naming it.
func FlattenIntents(intents []Intent) ([]core.Record, error) {
	var records []core.Record
	for _, intent := range intents {
		for _, pattern := range intent.Patterns {
			record := core.Record{
				Text:      pattern,
				Tag:       intent.Tag,
				Responses: intent.Responses,
				Kind:      core.RecordKindPattern,
			}
			if err := core.ValidateRecord(&record); err != nil {
				return nil, fmt.Errorf("intent %q, pattern %q: %w", intent.Tag, pattern, err)
			}
			records = append(records, record)
		}
	}
	return records, nil
}
