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


package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/intentdb/ai"
	"github.com/poiesic/intentdb/bundle"
	"github.com/poiesic/intentdb/core"
	"github.com/poiesic/intentdb/index"
)

// Builder defaults.
const (
	// DefaultBatchSize is how many texts are embedded per request.
	DefaultBatchSize = 32

	// DefaultMaxRetries is how many times a failed embedding batch is
	// attempted before the build fails.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the base delay between retry attempts.
	DefaultRetryDelay = 1 * time.Second
)

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrNoRecords is returned when a build has nothing to index.
	ErrNoRecords = errors.New("no records to index")
)

// Builder embeds record texts and assembles them into a bundle.
type Builder struct {
	embedder   ai.Embedder
	modelName  string
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	progressTo io.Writer
	pool       *ants.Pool
	logger     *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithBatchSize sets how many texts are embedded per request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			return fmt.Errorf("batch size %d must be positive", size)
		}
		b.batchSize = size
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithMaxRetries sets how many times a failed embedding batch is
// attempted. Default is DefaultMaxRetries.
func WithMaxRetries(attempts int) Option {
	return func(b *Builder) error {
		if attempts < 1 {
			return ErrInvalidMaxAttempts
		}
		b.maxRetries = attempts
		return nil
	}
}

// WithRetryDelay sets the base delay for exponential backoff between
// retry attempts. Default is DefaultRetryDelay.
func WithRetryDelay(delay time.Duration) Option {
	return func(b *Builder) error {
		if delay <= 0 {
			return fmt.Errorf("retry delay must be positive")
		}
		b.retryDelay = delay
		return nil
	}
}

// WithProgress writes embedding progress to w, typically os.Stderr.
func WithProgress(w io.Writer) Option {
	return func(b *Builder) error {
		b.progressTo = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a Builder. The model name is recorded in built
// bundle configs so loads can re-create the matching embedder.
func NewBuilder(embedder ai.Embedder, modelName string, opts ...Option) (*Builder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if modelName == "" {
		return nil, fmt.Errorf("%w: model name is empty", core.ErrInvalidConfig)
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		embedder:   embedder,
		modelName:  modelName,
		batchSize:  DefaultBatchSize,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		pool:       pool,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	return b, nil
}

// Build embeds the records' texts and assembles a bundle. Batches run
// concurrently on the pool; the i-th vector always belongs to the i-th
// record. Any batch failure fails the whole build.
func (b *Builder) Build(ctx context.Context, records []core.Record) (*bundle.Bundle, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	for i := range records {
		if err := core.ValidateRecord(&records[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	texts := make([]string, len(records))
	for i := range records {
		texts[i] = records[i].Text
	}

	b.logger.Info("embedding records", "records", len(texts), "batch_size", b.batchSize)

	var progress *progressTracker
	if b.progressTo != nil {
		progress = newProgressTracker(b.progressTo, len(texts), b.batchSize)
	}

	vectors := make([][]float32, len(texts))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		start, chunk := start, texts[start:end]

		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			err := retryWithBackoff(ctx, func() error {
				embeddings, embedErr := b.embedder.EmbedTexts(ctx, chunk)
				if embedErr != nil {
					return embedErr
				}
				if len(embeddings) != len(chunk) {
					return fmt.Errorf("%w: %d texts produced %d vectors",
						core.ErrEmbeddingFailed, len(chunk), len(embeddings))
				}
				copy(vectors[start:], embeddings)
				return nil
			}, b.maxRetries, b.retryDelay)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if progress != nil {
				progress.Increment(len(chunk))
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if progress != nil {
		progress.Finish()
	}

	dimension := len(vectors[0])
	idx, err := index.New(dimension)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(vectors...); err != nil {
		return nil, err
	}

	b.logger.Info("built index", "vectors", idx.Count(), "dimension", dimension)
	return bundle.New(idx, records, b.modelName)
}

// BuildFromFile loads an intent definition file, builds its bundle, and
// saves it to outputDir.
func (b *Builder) BuildFromFile(ctx context.Context, intentPath, outputDir string) (*bundle.Bundle, error) {
	intents, err := LoadIntents(intentPath)
	if err != nil {
		return nil, err
	}
	b.logger.Info("loaded intent file", "path", intentPath, "intents", len(intents))

	records, err := FlattenIntents(intents)
	if err != nil {
		return nil, err
	}

	built, err := b.Build(ctx, records)
	if err != nil {
		return nil, err
	}

	if err := bundle.Save(built, outputDir); err != nil {
		return nil, err
	}
	return built, nil
}

// Release releases the worker pool. The builder should not be used after
// calling Release.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
