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


package match

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"github.com/poiesic/intentdb/ai"
	"github.com/poiesic/intentdb/bundle"
	"github.com/poiesic/intentdb/core"
	"github.com/poiesic/intentdb/index"
)

const (
	// DefaultThreshold is the minimum similarity score for MatchIntent to
	// report a match.
	DefaultThreshold = 0.5

	// DefaultFallback is returned by GetResponse when no intent matches.
	DefaultFallback = "I'm not sure how to help with that. Can you rephrase?"
)

// snapshot is one immutable view of a loaded bundle. All query paths read
// exactly one snapshot for their whole duration.
type snapshot struct {
	index    *index.Flat
	records  []core.Record
	config   core.BundleConfig
	embedder ai.Embedder
}

// Stats describes the matcher's current snapshot.
type Stats struct {
	Loaded       bool    `json:"loaded"`
	TotalVectors int     `json:"total_vectors,omitempty"`
	Dimension    int     `json:"dimension,omitempty"`
	ModelName    string  `json:"model_name,omitempty"`
	Threshold    float32 `json:"threshold"`
}

// Options contains configuration options for a Matcher.
type Options struct {
	// Threshold is the minimum score for a match. Default DefaultThreshold.
	Threshold float32

	// Fallback is the GetResponse reply when nothing matches.
	Fallback string

	// Logger receives load and match events. Default slog.Default().
	Logger *slog.Logger
}

// Option configures a Matcher at construction.
type Option func(*Options)

// WithThreshold sets the minimum similarity score for intent matching.
func WithThreshold(threshold float32) Option {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

// WithFallback sets the reply GetResponse gives when no intent matches.
func WithFallback(fallback string) Option {
	return func(o *Options) {
		o.Fallback = fallback
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Matcher resolves query text to indexed intents. It starts unloaded;
// Load or SetBundle installs a snapshot, after which any number of
// goroutines may query concurrently.
type Matcher struct {
	factory   ai.EmbedderFactory
	threshold float32
	fallback  string
	logger    *slog.Logger

	state atomic.Pointer[snapshot]
}

// NewMatcher creates an unloaded Matcher. The factory is invoked on each
// Load with the model name recorded in the bundle's config, so a bundle
// is always queried with the embedder it was built with.
func NewMatcher(factory ai.EmbedderFactory, opts ...Option) (*Matcher, error) {
	if factory == nil {
		return nil, fmt.Errorf("embedder factory is nil")
	}

	options := Options{
		Threshold: DefaultThreshold,
		Fallback:  DefaultFallback,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Threshold < 0 || options.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0, 1]",
			core.ErrInvalidConfig, options.Threshold)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Matcher{
		factory:   factory,
		threshold: options.Threshold,
		fallback:  options.Fallback,
		logger:    options.Logger,
	}, nil
}

// Load reads the bundle at dir and swaps it in as the active snapshot.
// On failure the previous snapshot, or the unloaded state, is untouched.
func (m *Matcher) Load(dir string) error {
	b, err := bundle.Load(dir)
	if err != nil {
		return err
	}

	embedder, err := m.factory(b.Config.ModelName)
	if err != nil {
		return fmt.Errorf("creating embedder for model %q: %w", b.Config.ModelName, err)
	}

	m.state.Store(&snapshot{
		index:    b.Index,
		records:  b.Records,
		config:   b.Config,
		embedder: embedder,
	})

	m.logger.Info("matcher loaded bundle",
		"dir", dir,
		"vectors", b.Config.TotalVectors,
		"model", b.Config.ModelName)
	return nil
}

// SetBundle installs an already-constructed bundle with the embedder it
// was built with, bypassing the filesystem. Used after in-process builds.
func (m *Matcher) SetBundle(b *bundle.Bundle, embedder ai.Embedder) error {
	if b == nil || embedder == nil {
		return fmt.Errorf("bundle and embedder must be non-nil")
	}
	if b.Index.Count() != len(b.Records) {
		return fmt.Errorf("%w: index has %d vectors, %d records",
			core.ErrCorruptedBundle, b.Index.Count(), len(b.Records))
	}

	m.state.Store(&snapshot{
		index:    b.Index,
		records:  b.Records,
		config:   b.Config,
		embedder: embedder,
	})
	return nil
}

// Loaded reports whether a snapshot is installed.
func (m *Matcher) Loaded() bool {
	return m.state.Load() != nil
}

// Threshold returns the configured matching threshold.
func (m *Matcher) Threshold() float32 {
	return m.threshold
}

// Search returns the min(k, indexed) nearest intents to the query, ranked
// by descending similarity score. Rank is 1-based. The returned records
// are copies; callers may mutate them freely.
func (m *Matcher) Search(ctx context.Context, query string, k int) ([]core.SearchHit, error) {
	snap, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	return m.search(ctx, snap, query, k)
}

func (m *Matcher) search(ctx context.Context, snap *snapshot, query string, k int) ([]core.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}

	vector, err := snap.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := snap.index.Search(vector, k)
	if err != nil {
		return nil, err
	}

	hits := make([]core.SearchHit, len(candidates))
	for i, c := range candidates {
		hits[i] = core.SearchHit{
			Rank:     i + 1,
			Record:   snap.records[c.Position].Clone(),
			Distance: c.Distance,
			Score:    index.Score(c.Distance),
		}
	}
	return hits, nil
}

// MatchIntent returns the best intent for the query if its score meets
// the threshold, or nil when nothing matches. No match is not an error.
func (m *Matcher) MatchIntent(ctx context.Context, query string) (*core.SearchHit, error) {
	snap, err := m.snapshot()
	if err != nil {
		return nil, err
	}

	hits, err := m.search(ctx, snap, query, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 || hits[0].Score < m.threshold {
		return nil, nil
	}
	return &hits[0], nil
}

// SearchIntents returns up to k intents scoring at least minScore, ranked
// by descending score. A negative minScore disables the filter.
func (m *Matcher) SearchIntents(ctx context.Context, query string, k int, minScore float32) ([]core.SearchHit, error) {
	snap, err := m.snapshot()
	if err != nil {
		return nil, err
	}

	hits, err := m.search(ctx, snap, query, k)
	if err != nil {
		return nil, err
	}
	if minScore < 0 {
		return hits, nil
	}

	filtered := hits[:0]
	for _, hit := range hits {
		if hit.Score >= minScore {
			filtered = append(filtered, hit)
		}
	}
	return filtered, nil
}

// GetResponse returns a canned response for the best matching intent, or
// the configured fallback when nothing meets the threshold. With
// randomize set, the response is picked uniformly from the intent's
// responses; otherwise the first one is returned.
func (m *Matcher) GetResponse(ctx context.Context, query string, randomize bool) (string, error) {
	hit, err := m.MatchIntent(ctx, query)
	if err != nil {
		return "", err
	}
	if hit == nil {
		return m.fallback, nil
	}

	responses := hit.Record.Responses
	if randomize && len(responses) > 1 {
		return responses[rand.IntN(len(responses))], nil
	}
	return responses[0], nil
}

// GetIntentTag returns the tag of the best matching intent, or the empty
// string when nothing meets the threshold.
func (m *Matcher) GetIntentTag(ctx context.Context, query string) (string, error) {
	hit, err := m.MatchIntent(ctx, query)
	if err != nil {
		return "", err
	}
	if hit == nil {
		return "", nil
	}
	return hit.Record.Tag, nil
}

// Stats returns a description of the current snapshot. When unloaded,
// only Loaded and Threshold carry information.
func (m *Matcher) Stats() Stats {
	stats := Stats{Threshold: m.threshold}
	snap := m.state.Load()
	if snap == nil {
		return stats
	}

	stats.Loaded = true
	stats.TotalVectors = snap.config.TotalVectors
	stats.Dimension = snap.config.Dimension
	stats.ModelName = snap.config.ModelName
	return stats
}

func (m *Matcher) snapshot() (*snapshot, error) {
	snap := m.state.Load()
	if snap == nil {
		return nil, core.ErrNotLoaded
	}
	return snap, nil
}
