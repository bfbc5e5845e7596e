// Copyright 2026 Auro Systems
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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/aurosystems/ragkit/ai"
	"github.com/aurosystems/ragkit/ai/openai"
	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/ingestion"
	"github.com/aurosystems/ragkit/learning"
	"github.com/aurosystems/ragkit/reembed"
	"github.com/aurosystems/ragkit/search"
	"github.com/aurosystems/ragkit/storage"
	badgerstore "github.com/aurosystems/ragkit/storage/badger"
	"github.com/aurosystems/ragkit/storage/postgres"
)

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Usage: "Storage backend (badger, postgres)",
			Value: "badger",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
		},
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "PostgreSQL connection string",
			EnvVars: []string{"DATABASE_URL"},
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
			EnvVars:  []string{"EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "Bearer token for the embedding service",
			Value:   "unused",
			EnvVars: []string{"EMBEDDING_API_TOKEN", "OPENAI_API_KEY"},
		},
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "client",
			Usage:    "Client identifier that owns the knowledge",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "folder",
			Usage: "Folder within the client's knowledge base (empty means all folders)",
		},
	}
}

func main() {
	// Env vars may come from a .env file; missing is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "ragkit",
		Usage: "Tenant-scoped knowledge pipeline: ingest, learn, retrieve",
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
				Usage:  "Ingest a document into the knowledge base",
				Action: ingestCommand,
				Flags: joinFlags(storeFlags(), embeddingFlags(), scopeFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:     "source-name",
						Usage:    "Human-readable source label stored on each chunk",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Source type (text, json, url, pdf)",
						Value: "text",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Read content from this file instead of --content",
					},
					&cli.StringFlag{
						Name:  "content",
						Usage: "Inline content for text and json sources",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Fetch target for url sources",
					},
					&cli.StringFlag{
						Name:  "document-id",
						Usage: "Pin the document identity (empty means a fresh UUID)",
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Dashboard-sync mode: replace the scope's previous synced document",
					},
					&cli.Int64Flag{
						Name:  "tenant",
						Usage: "Numeric tenant identifier recorded on the document",
					},
				}),
			},
			{
				Name:   "process",
				Usage:  "Process pending documents that have no chunks yet",
				Action: processCommand,
				Flags: joinFlags(storeFlags(), embeddingFlags(), []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of pending documents to process",
						Value: 10,
					},
				}),
			},
			{
				Name:   "learn",
				Usage:  "Learn reusable knowledge from recently closed conversations",
				Action: learnCommand,
				Flags: joinFlags(storeFlags(), embeddingFlags(), scopeFlags(), []cli.Flag{
					&cli.DurationFlag{
						Name:  "since",
						Usage: "Look back this far for closed conversations",
						Value: 24 * time.Hour,
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Learn a single conversation from a JSON file instead of the store",
					},
					&cli.Float64Flag{
						Name:  "dedup-threshold",
						Usage: "Cosine similarity above which a candidate is a duplicate",
						Value: learning.DefaultDedupThreshold,
					},
				}),
			},
			{
				Name:      "query",
				Usage:     "Retrieve knowledge relevant to a query",
				ArgsUsage: "<query text>",
				Action:    queryCommand,
				Flags: joinFlags(storeFlags(), embeddingFlags(), scopeFlags(), []cli.Flag{
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
						Value: search.DefaultTopK,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity for a result",
						Value: search.DefaultThreshold,
					},
				}),
			},
			{
				Name:   "delete",
				Usage:  "Delete a document and all of its chunks",
				Action: deleteCommand,
				Flags: joinFlags(storeFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:     "document",
						Usage:    "Document identifier to delete",
						Required: true,
					},
				}),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every chunk in a scope with new embeddings",
				Action: reembedCommand,
				Flags: joinFlags(storeFlags(), embeddingFlags(), scopeFlags(), []cli.Flag{
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
				}),
			},
			{
				Name:   "init",
				Usage:  "Create the PostgreSQL schema (tables, indexes, pgvector extension)",
				Action: initCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dsn",
						Usage:    "PostgreSQL connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
					&cli.IntFlag{
						Name:  "dimensions",
						Usage: "Embedding vector dimensions",
						Value: 768,
					},
				},
			},
			{
				Name:   "schedule",
				Usage:  "Run pending-document processing and conversation learning on a cron schedule",
				Action: scheduleCommand,
				Flags: joinFlags(storeFlags(), embeddingFlags(), scopeFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:  "process-cron",
						Usage: "Cron expression for processing pending documents",
						Value: "*/5 * * * *",
					},
					&cli.StringFlag{
						Name:  "learn-cron",
						Usage: "Cron expression for learning from closed conversations",
						Value: "@hourly",
					},
					&cli.DurationFlag{
						Name:  "since",
						Usage: "Look back this far on each learning tick",
						Value: 24 * time.Hour,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum pending documents per processing tick",
						Value: 50,
					},
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func joinFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

// stores bundles the opened storage backends. conversations is nil when the
// backend has no conversation history to learn from (badger).
type stores struct {
	chunks        storage.ChunkStore
	documents     storage.DocumentStore
	conversations storage.ConversationSource
	close         func()
}

func openStores(c *cli.Context) (*stores, error) {
	switch c.String("store") {
	case "badger":
		dbPath := c.String("db")
		if dbPath == "" {
			return nil, fmt.Errorf("the badger store requires --db")
		}
		backend, err := badgerstore.OpenBackend(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return &stores{
			chunks:    badgerstore.NewChunkStore(backend),
			documents: badgerstore.NewDocumentStore(backend),
			close:     func() { backend.Close() },
		}, nil
	case "postgres":
		dsn := c.String("dsn")
		if dsn == "" {
			return nil, fmt.Errorf("the postgres store requires --dsn or DATABASE_URL")
		}
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store := postgres.NewStore(db)
		return &stores{
			chunks:        store,
			documents:     store,
			conversations: postgres.NewConversationSource(db),
			close:         func() { db.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q: must be badger or postgres", c.String("store"))
	}
}

func newAIConfig(c *cli.Context) (*ai.Config, error) {
	config := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIToken(c.String("api-token")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return config, nil
}

func newProvider(c *cli.Context) (ai.Provider, error) {
	config, err := newAIConfig(c)
	if err != nil {
		return nil, err
	}
	provider, err := openai.NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	return provider, nil
}

func scopeFrom(c *cli.Context) core.Scope {
	return core.NewScope(c.String("client"), c.String("folder"))
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	provider, err := newProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	pipeline, err := ingestion.NewPipeline(st.chunks, st.documents, provider)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	req := ingestion.IngestRequest{
		Scope:      scopeFrom(c),
		TenantID:   c.Int64("tenant"),
		SourceName: c.String("source-name"),
		SourceType: c.String("type"),
		Content:    c.String("content"),
		URL:        c.String("url"),
		DocumentID: c.String("document-id"),
		Replace:    c.Bool("replace"),
	}

	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if req.SourceType == "pdf" {
			req.Data = data
		} else {
			req.Content = string(data)
		}
	}

	report, err := pipeline.Ingest(ctx, req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if report.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped: content below the minimum length\n")
		return nil
	}
	fmt.Fprintf(os.Stderr, "Document: %s\n", report.DocumentID)
	fmt.Fprintf(os.Stderr, "Chunks: %d (succeeded %d, errored %d)\n",
		report.Chunks, report.Succeeded, report.Errored)
	return nil
}

func processCommand(c *cli.Context) error {
	ctx := context.Background()

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	provider, err := newProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	pipeline, err := ingestion.NewPipeline(st.chunks, st.documents, provider)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	report, err := pipeline.ProcessPending(ctx, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Processed: %d\n", report.Processed)
	fmt.Fprintf(os.Stderr, "Errored: %d\n", report.Errored)
	return nil
}

func learnCommand(c *cli.Context) error {
	ctx := context.Background()

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	provider, err := newProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	opts := []learning.LearnerOption{
		learning.WithDedupThreshold(c.Float64("dedup-threshold")),
	}
	if st.conversations != nil {
		opts = append(opts, learning.WithConversationSource(st.conversations))
	}
	learner, err := learning.NewLearner(st.chunks, provider, opts...)
	if err != nil {
		return fmt.Errorf("failed to create learner: %w", err)
	}

	if path := c.String("file"); path != "" {
		conv, err := readConversation(path, scopeFrom(c))
		if err != nil {
			return err
		}
		learned, err := learner.LearnConversation(ctx, conv)
		if err != nil {
			return fmt.Errorf("learning failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Learned: %d\n", learned)
		return nil
	}

	if st.conversations == nil {
		return fmt.Errorf("batch learning requires the postgres store: conversation history lives there")
	}

	since := time.Now().Add(-c.Duration("since"))
	report, err := learner.ProcessClosed(ctx, scopeFrom(c), since)
	if err != nil {
		return fmt.Errorf("learning failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Conversations: %d\n", report.Conversations)
	fmt.Fprintf(os.Stderr, "Learned: %d\n", report.Learned)
	fmt.Fprintf(os.Stderr, "Errored: %d\n", report.Errored)
	for topic, count := range report.Topics {
		fmt.Fprintf(os.Stderr, "  %s: %d\n", topic, count)
	}
	return nil
}

// readConversation parses a conversation JSON file for single-shot
// learning. Scope falls back to the CLI flags when the file omits it.
func readConversation(path string, fallback core.Scope) (core.Conversation, error) {
	var payload struct {
		ID       string `json:"id"`
		ClientID string `json:"client_id"`
		FolderID string `json:"folder_id"`
		Outcome  string `json:"outcome"`
		Messages []struct {
			Speaker string `json:"speaker"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.Conversation{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.Conversation{}, fmt.Errorf("invalid conversation file %s: %w", path, err)
	}

	scope := core.NewScope(payload.ClientID, payload.FolderID)
	if payload.ClientID == "" {
		scope = fallback
	}

	conv := core.Conversation{
		ID:      payload.ID,
		Scope:   scope,
		Outcome: core.Outcome(payload.Outcome),
	}
	for _, m := range payload.Messages {
		var speaker core.Speaker
		switch strings.ToLower(m.Speaker) {
		case "lead", "user":
			speaker = core.SpeakerLead
		case "assistant", "ai":
			speaker = core.SpeakerAssistant
		default:
			speaker = core.SpeakerSystem
		}
		conv.Messages = append(conv.Messages, core.Message{Speaker: speaker, Content: m.Content})
	}
	return conv, nil
}

func queryCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	provider, err := newProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	retriever, err := search.NewRetriever(st.chunks, provider,
		search.WithThreshold(c.Float64("threshold")))
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}

	results, err := retriever.Retrieve(ctx, query, scopeFrom(c), c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No results above the similarity threshold")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Similarity, r.Source)
		fmt.Printf("%s\n\n", r.Content)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	report := storage.DeleteDocumentCascade(ctx, st.chunks, st.documents, c.String("document"))

	fmt.Fprintf(os.Stderr, "Chunks deleted: %d\n", report.ChunksDeleted)
	if report.ChunkErr != nil {
		fmt.Fprintf(os.Stderr, "Chunk deletion error: %v\n", report.ChunkErr)
	}
	if report.DocumentErr != nil {
		return fmt.Errorf("document deletion failed: %w", report.DocumentErr)
	}
	fmt.Fprintln(os.Stderr, "Document deleted")
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	config, err := newAIConfig(c)
	if err != nil {
		return err
	}
	embedder, err := openai.NewEmbedder(config)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder := reembed.NewReembedder(st.chunks, embedder, scopeFrom(c), reembedConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	report, err := reembedder.Run(ctx)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Processed: %d, errored: %d\n", report.Processed, report.Errored)
	return nil
}

func initCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := postgres.Open(c.String("dsn"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx, c.Int("dimensions")); err != nil {
		return fmt.Errorf("schema setup failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Schema ready")
	return nil
}

func scheduleCommand(c *cli.Context) error {
	st, err := openStores(c)
	if err != nil {
		return err
	}
	defer st.close()

	provider, err := newProvider(c)
	if err != nil {
		return err
	}
	defer provider.Close()

	pipeline, err := ingestion.NewPipeline(st.chunks, st.documents, provider)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	scope := scopeFrom(c)
	limit := c.Int("limit")
	lookback := c.Duration("since")

	scheduler := cron.New()
	_, err = scheduler.AddFunc(c.String("process-cron"), func() {
		report, err := pipeline.ProcessPending(context.Background(), limit)
		if err != nil {
			slog.Error("scheduled processing failed", "error", err)
			return
		}
		if report.Processed > 0 || report.Errored > 0 {
			slog.Info("scheduled processing done",
				"processed", report.Processed, "errored", report.Errored)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid process-cron expression: %w", err)
	}

	if st.conversations != nil {
		learner, err := learning.NewLearner(st.chunks, provider,
			learning.WithConversationSource(st.conversations))
		if err != nil {
			return fmt.Errorf("failed to create learner: %w", err)
		}
		_, err = scheduler.AddFunc(c.String("learn-cron"), func() {
			since := time.Now().Add(-lookback)
			report, err := learner.ProcessClosed(context.Background(), scope, since)
			if err != nil {
				slog.Error("scheduled learning failed", "error", err)
				return
			}
			if report.Conversations > 0 {
				slog.Info("scheduled learning done",
					"conversations", report.Conversations,
					"learned", report.Learned, "errored", report.Errored)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid learn-cron expression: %w", err)
		}
	} else {
		slog.Warn("learning disabled: the badger store has no conversation history")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start()
	slog.Info("scheduler running",
		"processCron", c.String("process-cron"), "learnCron", c.String("learn-cron"))
	<-ctx.Done()

	slog.Info("shutting down")
	<-scheduler.Stop().Done()
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
