package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RecordKind identifies what the indexed text of a Record represents.
type RecordKind int

const (
	// RecordKindPattern represents an example phrasing of an intent.
	RecordKindPattern RecordKind = iota + 1
)

// Record is a single indexed entry: an example phrasing of an intent
// together with its category tag and candidate responses.
// Records are immutable once added to an index; the i-th record in a
// bundle corresponds to the i-th vector of its index.
type Record struct {
	Text      string     // The indexed pattern text
	Tag       string     // Intent category label
	Responses []string   // Candidate replies, in preference order
	Kind      RecordKind // What Text represents
}

// Clone returns a deep copy of the record.
// Search results hand out copies so callers cannot mutate the store.
func (r Record) Clone() Record {
	out := r
	out.Responses = make([]string, len(r.Responses))
	copy(out.Responses, r.Responses)
	return out
}

// SearchHit is a single ranked result from a similarity search.
// It carries a copy of the matched record, never a live reference.
type SearchHit struct {
	Rank     int     // 1-based position in the result list
	Record   Record  // Copy of the matched record
	Distance float32 // Squared L2 distance, >= 0
	Score    float32 // 1/(1+Distance), in (0, 1]
}

// BundleConfig describes a persisted index bundle.
// Dimension must equal the embedding width produced by the model named
// by ModelName; TotalVectors must equal the index's actual vector count.
type BundleConfig struct {
	ModelName    string `json:"model_name"`
	Dimension    int    `json:"dimension"`
	TotalVectors int    `json:"total_vectors"`
}

// Speaker identifies the source of a conversation turn.
type Speaker int

const (
	// SpeakerUser represents the human user.
	SpeakerUser Speaker = iota + 1
	// SpeakerAssistant represents the assistant.
	SpeakerAssistant
)

// Turn is a single message within a conversation session.
type Turn struct {
	Id        ID
	SessionId ID
	Speaker   Speaker
	Content   string
	Timestamp time.Time
}
