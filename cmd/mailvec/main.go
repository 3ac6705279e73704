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

	"github.com/poiesic/mailvec"
	"github.com/poiesic/mailvec/ai"
	"github.com/poiesic/mailvec/ai/openai"
	"github.com/poiesic/mailvec/core"
	"github.com/poiesic/mailvec/reindex"
	"github.com/poiesic/mailvec/search"
	"github.com/poiesic/mailvec/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "mailvec",
		Usage: "Semantic search over ingested email",
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
				Name:   "ingest",
				Usage:  "Ingest an email into the store",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "subject",
						Usage:    "Email subject line",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Sender address",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "to",
						Usage:    "Primary recipient address (repeatable)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "cc",
						Usage: "Cc address (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "bcc",
						Usage: "Bcc address (repeatable)",
					},
					&cli.StringFlag{
						Name:  "body",
						Usage: "Email body text",
					},
					&cli.StringFlag{
						Name:  "body-file",
						Usage: "Read the email body from a file",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "embeddinggemma",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search email chunks by semantic similarity",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "identity",
						Aliases:  []string{"i"},
						Usage:    "Participant address to scope the search to",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score (exclusive)",
						Value: search.DefaultThreshold,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "embeddinggemma",
					},
				},
			},
			{
				Name:      "show",
				Usage:     "Show a stored email and its chunk count",
				ArgsUsage: "EMAIL_ID",
				Action:    showCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an email and all of its chunks",
				ArgsUsage: "EMAIL_ID",
				Action:    deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed all stored chunks with new embeddings",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
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
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
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

// openDatabase opens the database named by --db, configuring the embedding
// service from the command's flags when present.
func openDatabase(c *cli.Context) (*mailvec.Database, error) {
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	var opts []ai.ConfigOption
	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, ai.WithHost(host))
	}
	if model := c.String("embedding-model"); model != "" {
		opts = append(opts, ai.WithModel(model))
	}

	db, err := mailvec.NewDatabase(dbPath, mailvec.WithAIConfig(ai.NewConfig(opts...)))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	body, err := resolveBody(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator, err := db.NewIngestionOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Release()

	receipt, err := orchestrator.Ingest(ctx, &core.EmailDraft{
		Subject:    c.String("subject"),
		Sender:     c.String("from"),
		Recipients: c.StringSlice("to"),
		Cc:         c.StringSlice("cc"),
		Bcc:        c.StringSlice("bcc"),
		Body:       body,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested email %d (%d chunks)\n", receipt.EmailID, receipt.ChunkCount)
	return nil
}

// resolveBody returns the email body from --body or --body-file.
func resolveBody(c *cli.Context) (string, error) {
	body := c.String("body")
	bodyFile := c.String("body-file")

	switch {
	case body != "" && bodyFile != "":
		return "", fmt.Errorf("use either --body or --body-file, not both")
	case bodyFile != "":
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read body file: %w", err)
		}
		return string(data), nil
	case body != "":
		return body, nil
	default:
		return "", fmt.Errorf("email body is required (--body or --body-file)")
	}
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search query is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.SearchText(ctx, query, c.Float64("threshold"), c.Int("limit"), c.String("identity"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (email %d, chunk %d)[%0.3f]\n", i, hit.Chunk.Content, hit.Chunk.EmailId, hit.Chunk.Id, hit.Score)
	}
	return nil
}

func showCommand(c *cli.Context) error {
	ctx := context.Background()

	id, err := parseEmailID(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	email, err := db.EmailRepository().GetEmail(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load email: %w", err)
	}

	chunks, err := db.EmailRepository().GetChunks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	fmt.Printf("Email %d\n", email.Id)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("From: %s\n", email.Sender)
	fmt.Printf("To: %s\n", strings.Join(email.Recipients, ", "))
	if len(email.Cc) > 0 {
		fmt.Printf("Cc: %s\n", strings.Join(email.Cc, ", "))
	}
	if len(email.Bcc) > 0 {
		fmt.Printf("Bcc: %s\n", strings.Join(email.Bcc, ", "))
	}
	fmt.Printf("Created: %s\n", email.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Chunks: %d\n", len(chunks))
	fmt.Println()
	fmt.Println(email.Body)
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	id, err := parseEmailID(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EmailRepository().DeleteEmail(ctx, id); err != nil {
		return fmt.Errorf("failed to delete email: %w", err)
	}

	fmt.Printf("Deleted email %d\n", id)
	return nil
}

// parseEmailID reads the first positional argument as a decimal email ID.
func parseEmailID(c *cli.Context) (core.ID, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, fmt.Errorf("email ID argument is required")
	}

	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid email ID %q: %w", arg, err)
	}
	return core.ID(id), nil
}

func reindexCommand(c *cli.Context) error {
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

	repo, err := badger.NewEmailRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	// Create AI config
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
	)

	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	// Create embedder
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	// Create reindexing config
	reindexConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if err := reindexConfig.Validate(); err != nil {
		return err
	}

	// Create reindexer
	reindexer := reindex.NewReindexer(repo, embedder, reindexConfig, os.Stderr)

	// Run reindexing
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reindexer.Run(ctx); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	return nil
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
