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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/notewell"
	"github.com/poiesic/notewell/ai"
	"github.com/poiesic/notewell/ai/openai"
	"github.com/poiesic/notewell/core"
	"github.com/poiesic/notewell/ingestion"
	"github.com/poiesic/notewell/reembed"
	"github.com/poiesic/notewell/resolve"
	"github.com/poiesic/notewell/search"
	"github.com/poiesic/notewell/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
	hostFlag := &cli.StringFlag{
		Name:  "host",
		Usage: "AI service host URL (embedding and extraction)",
		Value: "http://localhost:11434/v1",
	}
	embeddingModelFlag := &cli.StringFlag{
		Name:  "embedding-model",
		Usage: "Embedding model name",
		Value: "embeddinggemma",
	}
	extractorModelFlag := &cli.StringFlag{
		Name:  "extractor-model",
		Usage: "Entity extraction model name",
		Value: "qwen2.5:3b",
	}

	app := &cli.App{
		Name:  "notewell",
		Usage: "Entity-aware work note store with hybrid search",
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
				Name:      "ingest",
				Usage:     "Ingest a note, extracting and linking entities",
				ArgsUsage: "<note text>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					dbFlag, hostFlag, embeddingModelFlag, extractorModelFlag,
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Tag to attach to the note (repeatable)",
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session identifier grouping related notes",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search notes by blended keyword and semantic relevance",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					dbFlag, hostFlag, embeddingModelFlag, extractorModelFlag,
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: search.DefaultLimit,
					},
					&cli.IntFlag{
						Name:  "days-back",
						Usage: "Only include notes from the trailing N days",
					},
					&cli.StringFlag{
						Name:  "entity",
						Usage: "Only include notes mentioning this entity",
					},
				},
			},
			{
				Name:   "entities",
				Usage:  "List registry entities with mention counts and aliases",
				Action: entitiesCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "type",
						Usage: "Filter by entity type (person, project, technology, concept)",
					},
					&cli.StringFlag{
						Name:  "find",
						Usage: "Fuzzy-search entities by name",
					},
				},
			},
			{
				Name:      "merge-entities",
				Usage:     "Merge two entities that refer to the same thing",
				ArgsUsage: "<entity-id> <entity-id>",
				Action:    mergeEntitiesCommand,
				Flags:     []cli.Flag{dbFlag},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all notes with new embeddings",
				Action: reembedCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of notes to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N notes",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "relink",
				Usage:  "Re-extract entities and fill in missing mention links",
				Action: relinkCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:     "extractor-host",
						Usage:    "Extraction service host URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "extractor-model",
						Usage:    "Extraction model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of notes to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N notes",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openDatabase builds a Database from the shared CLI flags.
func openDatabase(c *cli.Context) (*notewell.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithExtractorModel(c.String("extractor-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return notewell.NewDatabase(c.String("db"), notewell.WithAIConfig(aiConfig))
}

func ingestCommand(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("note text is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	result, err := pipeline.Ingest(context.Background(), &ingestion.IngestRequest{
		Text:      text,
		SessionId: c.String("session"),
		Tags:      c.StringSlice("tag"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Stored note %d\n", result.NoteId)
	for _, linked := range result.LinkedEntities {
		marker := ""
		if linked.IsNew {
			marker = " (new)"
		}
		fmt.Printf("  linked %s %q%s [%.2f]\n", linked.Type, linked.Name, marker, linked.Confidence)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  warning (%s): %s\n", warning.Kind, warning.Message)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	results, err := searcher.Search(context.Background(), query, search.SearchOptions{
		Limit:        c.Int("limit"),
		DaysBack:     c.Int("days-back"),
		EntityFilter: c.String("entity"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		similarity := "-"
		if hit.SimilarityScore != nil {
			similarity = fmt.Sprintf("%.3f", *hit.SimilarityScore)
		}
		fmt.Printf("%d: [%.3f] (text %.3f, vector %s) %s  %s\n",
			i, hit.FinalScore, hit.TextRank, similarity,
			hit.Note.Timestamp.Format("2006-01-02"), hit.Note.Text)
	}
	return nil
}

func entitiesCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	entityRepo, err := badger.NewEntityRepository(backend)
	if err != nil {
		return err
	}
	defer entityRepo.Close()

	ctx := context.Background()

	var entities []*core.Entity
	if query := c.String("find"); query != "" {
		resolver, resolverErr := resolve.NewResolver(entityRepo, resolve.DefaultConfig())
		if resolverErr != nil {
			return resolverErr
		}
		matches, searchErr := resolver.SearchEntities(ctx, query, 20)
		if searchErr != nil {
			return searchErr
		}
		for _, match := range matches {
			entities = append(entities, match.Entity)
		}
	} else if typeName := c.String("type"); typeName != "" {
		entityType, parseErr := core.ParseEntityType(typeName)
		if parseErr != nil {
			return parseErr
		}
		entities, err = entityRepo.GetEntitiesByType(ctx, entityType)
	} else {
		entities, err = entityRepo.GetAllEntities(ctx)
	}
	if err != nil {
		return err
	}

	for _, entity := range entities {
		fmt.Printf("%d  %-12s %q  mentions=%d  confidence=%.2f  seen=%s..%s\n",
			entity.Id, entity.Type, entity.CanonicalName, entity.MentionCount,
			entity.Confidence,
			entity.FirstSeen.Format("2006-01-02"), entity.LastSeen.Format("2006-01-02"))
		if len(entity.Aliases) > 0 {
			fmt.Printf("    aliases: %s\n", strings.Join(entity.Aliases, ", "))
		}
	}
	return nil
}

func mergeEntitiesCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("exactly two entity IDs are required")
	}
	a, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entity id %q: %w", c.Args().Get(0), err)
	}
	b, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entity id %q: %w", c.Args().Get(1), err)
	}

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	entityRepo, err := badger.NewEntityRepository(backend)
	if err != nil {
		return err
	}
	defer entityRepo.Close()

	resolver, err := resolve.NewResolver(entityRepo, resolve.DefaultConfig())
	if err != nil {
		return err
	}

	survivor, err := resolver.Merge(context.Background(), core.ID(a), core.ID(b))
	if err != nil {
		return err
	}

	fmt.Printf("Merged into %d %q (mentions=%d)\n",
		survivor.Id, survivor.CanonicalName, survivor.MentionCount)
	if len(survivor.Aliases) > 0 {
		fmt.Printf("  aliases: %s\n", strings.Join(survivor.Aliases, ", "))
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	// Validate flags
	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	// Open database
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewNoteRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	// Create AI config
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		// Use dummy extractor values (not needed for reembedding)
		ai.WithExtractorHost(c.String("embedding-host")),
		ai.WithExtractorModel("dummy"),
	)

	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	// Create embedder
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig, err := maintenanceConfig(c)
	if err != nil {
		return err
	}

	// Create reembedder
	reembedder := reembed.NewReembedder(repo, embedder, reembedConfig, os.Stderr)

	// Run reembedding
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}

func relinkCommand(c *cli.Context) error {
	ctx := context.Background()

	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	noteRepo, err := badger.NewNoteRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create note repository: %w", err)
	}
	defer noteRepo.Close()

	entityRepo, err := badger.NewEntityRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create entity repository: %w", err)
	}
	defer entityRepo.Close()

	// Create AI config
	aiConfig := ai.NewConfig(
		ai.WithExtractorHost(c.String("extractor-host")),
		ai.WithExtractorModel(c.String("extractor-model")),
		// Use dummy embedding values (not needed for relinking)
		ai.WithEmbeddingHost(c.String("extractor-host")),
		ai.WithEmbeddingModel("dummy"),
	)

	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	extractor, err := openai.NewEntityExtractor(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create entity extractor: %w", err)
	}

	resolver, err := resolve.NewResolver(entityRepo, resolve.DefaultConfig())
	if err != nil {
		return err
	}

	relinkConfig, err := maintenanceConfig(c)
	if err != nil {
		return err
	}

	relinker := reembed.NewRelinker(noteRepo, resolver, extractor, relinkConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Extractor host: %s\n", c.String("extractor-host"))
	fmt.Fprintf(os.Stderr, "Extractor model: %s\n", c.String("extractor-model"))
	fmt.Fprintln(os.Stderr)

	if err := relinker.Run(ctx); err != nil {
		return fmt.Errorf("relinking failed: %w", err)
	}

	return nil
}

// maintenanceConfig builds and validates the shared batch-job config.
func maintenanceConfig(c *cli.Context) (*reembed.Config, error) {
	config := reembed.DefaultConfig()
	config.BatchSize = c.Int("batch-size")
	config.ReportInterval = c.Int("report-interval")
	config.MaxRetries = c.Int("max-retries")
	config.RetryDelay = c.Duration("retry-delay")

	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return nil, fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return nil, fmt.Errorf("max-retries must be greater than 0")
	}
	return config, nil
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
