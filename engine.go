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


package intentdb

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/intentdb/ai"
	"github.com/poiesic/intentdb/ai/openai"
	"github.com/poiesic/intentdb/core"
	"github.com/poiesic/intentdb/ingest"
	"github.com/poiesic/intentdb/match"
	"github.com/poiesic/intentdb/rag"
	"github.com/poiesic/intentdb/session"
)

// DefaultHistoryTurns is how many prior turns Respond hands to the
// generator as conversation history.
const DefaultHistoryTurns = 6

// Engine composes the matcher, the RAG service, the session store, and
// the AI provider into one conversational retrieval engine.
type Engine struct {
	backend  *session.Backend
	sessions *session.Store
	provider ai.Provider
	matcher  *match.Matcher
	rag      *rag.Service

	config       *ai.Config
	historyTurns int
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig     *ai.Config
	provider     ai.Provider
	factory      ai.EmbedderFactory
	matchOpts    []match.Option
	ragOpts      []rag.Option
	historyTurns int
	inMemory     bool
}

// WithAIConfig sets the AI service configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithMatcherOptions passes options through to the engine's matcher.
func WithMatcherOptions(opts ...match.Option) EngineOption {
	return func(o *engineOptions) {
		o.matchOpts = append(o.matchOpts, opts...)
	}
}

// WithRAGOptions passes options through to the engine's RAG service.
func WithRAGOptions(opts ...rag.Option) EngineOption {
	return func(o *engineOptions) {
		o.ragOpts = append(o.ragOpts, opts...)
	}
}

// WithHistoryTurns sets how many prior turns Respond includes as
// conversation history. Default is DefaultHistoryTurns.
func WithHistoryTurns(n int) EngineOption {
	return func(o *engineOptions) {
		o.historyTurns = n
	}
}

// WithInMemorySessions keeps conversations in memory instead of on disk.
func WithInMemorySessions() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithProvider supplies a pre-built AI provider instead of constructing
// one from the AI config.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithEmbedderFactory overrides how the matcher re-creates embedders for
// loaded bundles.
func WithEmbedderFactory(factory ai.EmbedderFactory) EngineOption {
	return func(o *engineOptions) {
		o.factory = factory
	}
}

// NewEngine creates an engine rooted at dataDir. Sessions live under
// dataDir/sessions unless in-memory sessions are requested. The matcher
// starts unloaded; call LoadBundle or BuildBundle before querying.
func NewEngine(dataDir string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig:     ai.DefaultConfig(),
		historyTurns: DefaultHistoryTurns,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := session.OpenBackend(filepath.Join(dataDir, "sessions"), options.inMemory)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			sessions.Close()
			backend.Close()
			return nil, err
		}
	}

	factory := options.factory
	if factory == nil {
		factory = openai.EmbedderFactory(options.aiConfig)
	}

	matcher, err := match.NewMatcher(factory, options.matchOpts...)
	if err != nil {
		provider.Close()
		sessions.Close()
		backend.Close()
		return nil, err
	}

	ragService, err := rag.NewService(matcher, provider.Generator(), options.ragOpts...)
	if err != nil {
		provider.Close()
		sessions.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:      backend,
		sessions:     sessions,
		provider:     provider,
		matcher:      matcher,
		rag:          ragService,
		config:       options.aiConfig,
		historyTurns: options.historyTurns,
		logger:       slog.Default(),
	}, nil
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.sessions.Close(); err != nil {
		e.logger.Error("error closing session store", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing session backend", "err", err)
		return err
	}
	return nil
}

// LoadBundle loads the bundle at dir into the matcher.
func (e *Engine) LoadBundle(dir string) error {
	return e.matcher.Load(dir)
}

// BuildBundle builds a bundle from an intent definition file, saves it
// to outputDir, and installs it in the matcher.
func (e *Engine) BuildBundle(ctx context.Context, intentPath, outputDir string, opts ...ingest.Option) error {
	builder, err := ingest.NewBuilder(e.provider.Embedder(), e.EmbeddingModel(), opts...)
	if err != nil {
		return err
	}
	defer builder.Release()

	built, err := builder.BuildFromFile(ctx, intentPath, outputDir)
	if err != nil {
		return err
	}
	return e.matcher.SetBundle(built, e.provider.Embedder())
}

// NewSession registers a new conversation and returns its ID.
func (e *Engine) NewSession(ctx context.Context) (core.ID, error) {
	return e.sessions.CreateSession(ctx)
}

// Respond answers a query within a session. High-confidence pattern hits
// answer directly from the index; everything else goes through
// retrieval-augmented generation with the session's recent turns as
// history. Both the query and the reply are appended to the session.
func (e *Engine) Respond(ctx context.Context, sessionID core.ID, query string) (string, error) {
	recent, err := e.sessions.RecentTurns(ctx, sessionID, e.historyTurns)
	if err != nil {
		return "", err
	}

	reply, direct, err := e.rag.DirectMatch(ctx, query)
	if err != nil {
		return "", err
	}
	if !direct {
		reply, err = e.rag.GenerateResponse(ctx, query, historyMessages(recent))
		if err != nil {
			return "", err
		}
	}

	if _, err := e.sessions.AppendTurn(ctx, sessionID, core.SpeakerUser, query); err != nil {
		return "", err
	}
	if _, err := e.sessions.AppendTurn(ctx, sessionID, core.SpeakerAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// Matcher returns the engine's intent matcher.
func (e *Engine) Matcher() *match.Matcher {
	return e.matcher
}

// RAG returns the engine's retrieval-augmented generation service.
func (e *Engine) RAG() *rag.Service {
	return e.rag
}

// Sessions returns the engine's session store.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Stats returns the matcher's current statistics.
func (e *Engine) Stats() match.Stats {
	return e.matcher.Stats()
}

// EmbeddingModel returns the configured embedding model identifier.
func (e *Engine) EmbeddingModel() string {
	return e.config.EmbeddingModel
}

// historyMessages converts stored turns into generator history.
func historyMessages(turns []core.Turn) []ai.Message {
	if len(turns) == 0 {
		return nil
	}
	messages := make([]ai.Message, len(turns))
	for i, turn := range turns {
		role := ai.RoleUser
		if turn.Speaker == core.SpeakerAssistant {
			role = ai.RoleAssistant
		}
		messages[i] = ai.Message{Role: role, Content: turn.Content}
	}
	return messages
}
