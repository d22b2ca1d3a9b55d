package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// Embeddings must be stable: the same text with the same model produces the
// same vector for the lifetime of the process. Implementations never return
// partial results; a batch either yields one vector per input text or fails.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times;
	// batching affects throughput only, never the resulting vectors.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a prompt, optionally grounded by a system
// context and prior conversation turns. The retrieval engine hands it
// assembled grounding context and never inspects its internals.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate produces a reply to userMessage. The system string carries
	// instructions and grounding context; history carries prior turns in
	// chronological order and may be empty.
	Generate(ctx context.Context, system string, history []Message, userMessage string) (string, error)
}

// Role identifies the author of a conversation message.
type Role int

const (
	// RoleUser is the human side of the conversation.
	RoleUser Role = iota + 1
	// RoleAssistant is the generated side of the conversation.
	RoleAssistant
)

// Message is a single conversation turn passed to a Generator.
type Message struct {
	Role    Role
	Content string
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// EmbedderFactory creates an Embedder for a given model identifier. A loaded
// bundle is authoritative for its own encoding, so loading re-instantiates
// the embedder named by the bundle's config rather than reusing whatever the
// caller happens to have configured.
type EmbedderFactory func(modelName string) (Embedder, error)
