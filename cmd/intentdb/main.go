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


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/intentdb"
	"github.com/poiesic/intentdb/ai"
	"github.com/poiesic/intentdb/ai/openai"
	"github.com/poiesic/intentdb/ingest"
	"github.com/poiesic/intentdb/match"
	"github.com/poiesic/intentdb/rag"
	"github.com/urfave/cli/v2"
)

func main() {
	// Optional .env file; absence is not an error.
	godotenv.Load()

	app := &cli.App{
		Name:  "intentdb",
		Usage: "Embedding-indexed intent retrieval engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build a bundle from an intent definition file",
				Action: buildCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "intents",
						Aliases:  []string{"i"},
						Usage:    "Path to intents JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Bundle output directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of texts to embed per request",
						Value: ingest.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding batches",
						Value: ingest.DefaultMaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: ingest.DefaultRetryDelay,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search a bundle for the intents nearest a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(aiFlags(),
					bundleFlag(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
						Value:   5,
					},
					&cli.Float64Flag{
						Name:  "min-score",
						Usage: "Minimum similarity score (negative disables filtering)",
						Value: -1,
					},
				),
			},
			{
				Name:      "match",
				Usage:     "Match a query against a bundle and print the response",
				ArgsUsage: "<query>",
				Action:    matchCommand,
				Flags: append(aiFlags(),
					bundleFlag(),
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score for a match",
						Value: match.DefaultThreshold,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Print bundle statistics",
				Action: statsCommand,
				Flags:  append(aiFlags(), bundleFlag()),
			},
			{
				Name:   "chat",
				Usage:  "Interactive retrieval-augmented chat session",
				Action: chatCommand,
				Flags: append(aiFlags(),
					bundleFlag(),
					&cli.StringFlag{
						Name:  "data",
						Usage: "Data directory for session storage",
						Value: "data",
					},
					&cli.StringFlag{
						Name:  "assistant-name",
						Usage: "Assistant persona used in the system prompt",
						Value: "Assistant",
					},
					&cli.StringFlag{
						Name:  "organization",
						Usage: "Organization the assistant speaks for",
						Value: "this knowledge base",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "OpenAI-compatible service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"INTENTDB_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "all-minilm",
			EnvVars: []string{"INTENTDB_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "generator-model",
			Usage:   "Generation model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"INTENTDB_GENERATOR_MODEL"},
		},
	}
}

func bundleFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "bundle",
		Aliases:  []string{"b"},
		Usage:    "Path to bundle directory",
		Required: true,
	}
}

func aiConfig(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
	)
}

func loadMatcher(c *cli.Context, opts ...match.Option) (*match.Matcher, error) {
	config := aiConfig(c)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	matcher, err := match.NewMatcher(openai.EmbedderFactory(config), opts...)
	if err != nil {
		return nil, err
	}
	if err := matcher.Load(c.String("bundle")); err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}
	return matcher, nil
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", fmt.Errorf("query argument is required")
	}
	return query, nil
}

func buildCommand(c *cli.Context) error {
	ctx := context.Background()

	config := aiConfig(c)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(config)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	builder, err := ingest.NewBuilder(embedder, config.EmbeddingModel,
		ingest.WithBatchSize(c.Int("batch-size")),
		ingest.WithMaxRetries(c.Int("max-retries")),
		ingest.WithRetryDelay(c.Duration("retry-delay")),
		ingest.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer builder.Release()

	built, err := builder.BuildFromFile(ctx, c.String("intents"), c.String("output"))
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Bundle: %s\n", c.String("output"))
	fmt.Fprintf(os.Stderr, "Vectors: %d\n", built.Config.TotalVectors)
	fmt.Fprintf(os.Stderr, "Dimension: %d\n", built.Config.Dimension)
	fmt.Fprintf(os.Stderr, "Model: %s\n", built.Config.ModelName)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query, err := queryArg(c)
	if err != nil {
		return err
	}

	matcher, err := loadMatcher(c)
	if err != nil {
		return err
	}

	hits, err := matcher.SearchIntents(ctx, query, c.Int("top-k"), float32(c.Float64("min-score")))
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for _, hit := range hits {
		fmt.Printf("%2d. %.4f  %-20s %s\n", hit.Rank, hit.Score, hit.Record.Tag, hit.Record.Text)
	}
	return nil
}

func matchCommand(c *cli.Context) error {
	ctx := context.Background()

	query, err := queryArg(c)
	if err != nil {
		return err
	}

	matcher, err := loadMatcher(c, match.WithThreshold(float32(c.Float64("threshold"))))
	if err != nil {
		return err
	}

	hit, err := matcher.MatchIntent(ctx, query)
	if err != nil {
		return err
	}
	if hit == nil {
		fmt.Println("No match.")
		return nil
	}

	fmt.Printf("Tag: %s (score %.4f)\n", hit.Record.Tag, hit.Score)
	fmt.Printf("Response: %s\n", hit.Record.Responses[0])
	return nil
}

func statsCommand(c *cli.Context) error {
	matcher, err := loadMatcher(c)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(matcher.Stats(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := intentdb.NewEngine(c.String("data"),
		intentdb.WithAIConfig(aiConfig(c)),
		intentdb.WithRAGOptions(
			rag.WithAssistantName(c.String("assistant-name")),
			rag.WithOrganization(c.String("organization")),
		),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.LoadBundle(c.String("bundle")); err != nil {
		return fmt.Errorf("failed to load bundle: %w", err)
	}

	sessionID, err := engine.NewSession(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Session %d. Type a question, or /quit to exit.\n", sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		reply, err := engine.Respond(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
