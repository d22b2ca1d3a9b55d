// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/intentdb/ai"
	"github.com/poiesic/intentdb/core"
	"github.com/poiesic/intentdb/match"
)

const (
	// DefaultTopK is how many intents retrieval considers per query.
	DefaultTopK = 5

	// DefaultThreshold is the minimum similarity score for a retrieved
	// intent to enter the grounding context.
	DefaultThreshold = 0.3

	// DirectMatchThreshold is the confidence at which DirectMatch answers
	// from the index without invoking the generator.
	DirectMatchThreshold = 0.85
)

// Fallback replies used when generation is impossible.
const (
	fallbackNoContext = "I apologize, but I don't have specific information about your query " +
		"in my knowledge base. Please try rephrasing your question."
	fallbackNoResponse = "I apologize, but I'm unable to generate a response at the moment. " +
		"Please try again."
)

const systemPromptFormat = `You are %[1]s, a professional and knowledgeable virtual assistant for %[2]s.

Your role is to:
1. Provide accurate, professional, and formal responses to user queries
2. Use the provided context information to answer questions accurately
3. Be helpful, courteous, and informative
4. If you don't have specific information in the context, politely acknowledge this and provide general guidance

Guidelines:
- Provide clear, well-structured answers
- If the context doesn't contain relevant information, say so honestly
- Be concise but comprehensive

Context Information:
%[3]s

Based on the above context, please provide a professional and accurate response to the user's query.`

// Options contains configuration options for a Service.
type Options struct {
	// TopK is the retrieval depth. Default DefaultTopK.
	TopK int

	// Threshold is the minimum score for retrieved context.
	// Default DefaultThreshold.
	Threshold float32

	// AssistantName and Organization fill the system prompt.
	AssistantName string
	Organization  string

	// Logger receives retrieval and generation events. Default slog.Default().
	Logger *slog.Logger
}

// Option configures a Service at construction.
type Option func(*Options)

// WithTopK sets the retrieval depth.
func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

// WithThreshold sets the minimum score for retrieved context.
func WithThreshold(threshold float32) Option {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

// WithAssistantName sets the assistant persona used in the system prompt.
func WithAssistantName(name string) Option {
	return func(o *Options) {
		o.AssistantName = name
	}
}

// WithOrganization sets the organization the assistant speaks for.
func WithOrganization(org string) Option {
	return func(o *Options) {
		o.Organization = org
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Service generates grounded replies by retrieving similar intents and
// handing their responses to a Generator as context.
type Service struct {
	matcher   *match.Matcher
	generator ai.Generator

	topK          int
	threshold     float32
	assistantName string
	organization  string
	logger        *slog.Logger
}

// NewService creates a Service over a loaded matcher and a generator.
func NewService(matcher *match.Matcher, generator ai.Generator, opts ...Option) (*Service, error) {
	if matcher == nil {
		return nil, fmt.Errorf("matcher is nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is nil")
	}

	options := Options{
		TopK:          DefaultTopK,
		Threshold:     DefaultThreshold,
		AssistantName: "Assistant",
		Organization:  "this knowledge base",
		Logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-k %d must be positive", core.ErrInvalidConfig, options.TopK)
	}
	if options.Threshold < 0 || options.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0, 1]", core.ErrInvalidConfig, options.Threshold)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Service{
		matcher:       matcher,
		generator:     generator,
		topK:          options.TopK,
		threshold:     options.Threshold,
		assistantName: options.AssistantName,
		organization:  options.Organization,
		logger:        options.Logger,
	}, nil
}

// RetrieveContext returns the intents scoring at least the service
// threshold, ranked by descending similarity.
func (s *Service) RetrieveContext(ctx context.Context, query string) ([]core.SearchHit, error) {
	hits, err := s.matcher.SearchIntents(ctx, query, s.topK, s.threshold)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("retrieved grounding context",
		"query_len", len(query),
		"hits", len(hits))
	return hits, nil
}

// GenerateResponse answers the query with retrieval-augmented
// generation. History carries prior turns in chronological order and may
// be nil. When the generator fails, the reply degrades to the best
// retrieved response, or an apology when retrieval found nothing; only
// retrieval failures surface as errors.
func (s *Service) GenerateResponse(ctx context.Context, query string, history []ai.Message) (string, error) {
	hits, err := s.RetrieveContext(ctx, query)
	if err != nil {
		return "", err
	}

	system := fmt.Sprintf(systemPromptFormat,
		s.assistantName, s.organization, AssembleContext(hits))

	reply, err := s.generator.Generate(ctx, system, history, query)
	if err != nil {
		s.logger.Warn("generation failed, falling back to retrieved response", "error", err)
		return s.fallbackResponse(hits), nil
	}
	return reply, nil
}

// DirectMatch answers from the index alone when the nearest intent is a
// near-certain hit. The boolean reports whether a direct answer exists.
func (s *Service) DirectMatch(ctx context.Context, query string) (string, bool, error) {
	hits, err := s.matcher.Search(ctx, query, 1)
	if err != nil {
		return "", false, err
	}

	if len(hits) == 0 || hits[0].Score < DirectMatchThreshold {
		return "", false, nil
	}
	if len(hits[0].Record.Responses) == 0 {
		return "", false, nil
	}

	s.logger.Debug("direct match", "tag", hits[0].Record.Tag, "score", hits[0].Score)
	return hits[0].Record.Responses[0], true, nil
}

func (s *Service) fallbackResponse(hits []core.SearchHit) string {
	if len(hits) == 0 {
		return fallbackNoContext
	}
	if responses := hits[0].Record.Responses; len(responses) > 0 {
		return responses[0]
	}
	return fallbackNoResponse
}
