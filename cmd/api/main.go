// Package main implements the askdocs API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/askdocs/askdocs/engine/answer"
	"github.com/askdocs/askdocs/engine/chunker"
	"github.com/askdocs/askdocs/engine/embedding"
	"github.com/askdocs/askdocs/engine/index"
	"github.com/askdocs/askdocs/engine/qa"
	"github.com/askdocs/askdocs/engine/registry"
	"github.com/askdocs/askdocs/pkg/docstore"
	"github.com/askdocs/askdocs/pkg/metrics"
	"github.com/askdocs/askdocs/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	DataDir      string
	DBPath       string
	IndexBackend string // "file" or "qdrant"
	QdrantURL    string
	EmbedBackend string // "ollama" or "openai"
	OllamaURL    string
	EmbedModel   string
	EmbedDims    int
	EmbedRPS     float64
	OpenAIKey    string
	ChatModel    string
	NATSURL      string
	CORSOrigin   string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	MinScore     float64
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		DataDir:      envOr("DATA_DIR", "data"),
		DBPath:       envOr("DB_PATH", "data/askdocs.db"),
		IndexBackend: envOr("INDEX_BACKEND", "file"),
		QdrantURL:    envOr("QDRANT_URL", "localhost:6334"),
		EmbedBackend: envOr("EMBED_BACKEND", "ollama"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:   envOr("EMBED_MODEL", ""),
		EmbedDims:    envIntOr("EMBED_DIMENSIONS", 0),
		EmbedRPS:     envFloatOr("EMBED_RPS", 10),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		ChatModel:    envOr("CHAT_MODEL", "gpt-3.5-turbo"),
		NATSURL:      os.Getenv("NATS_URL"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		ChunkSize:    envIntOr("CHUNK_SIZE", 1000),
		ChunkOverlap: envIntOr("CHUNK_OVERLAP", 200),
		TopK:         envIntOr("RETRIEVAL_TOP_K", 4),
		MinScore:     envFloatOr("RETRIEVAL_MIN_SCORE", 0),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Embedding provider ---
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	limited := embedding.Limit(embedder, cfg.EmbedRPS, 1)

	// --- Vector index backend ---
	var opener index.Opener
	switch cfg.IndexBackend {
	case "qdrant":
		qo, err := index.NewQdrantOpener(cfg.QdrantURL, limited.Dimensions())
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer qo.Close()
		opener = qo
	case "file":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		opener = &index.FileOpener{
			Root:       cfg.DataDir,
			Model:      limited.ModelName(),
			Dimensions: limited.Dimensions(),
			MinScore:   float32(cfg.MinScore),
		}
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q", cfg.IndexBackend)
	}

	// --- Document metadata store ---
	store, err := docstore.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// --- NATS (optional) ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
	}

	// --- QA service ---
	splitter := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	retriever := registry.New(opener, limited, splitter, logger)

	var backend answer.Backend
	if cfg.OpenAIKey != "" {
		backend, err = answer.NewOpenAIBackend(cfg.OpenAIKey, cfg.ChatModel)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no OPENAI_API_KEY set, answers use keyword fallback")
	}
	synth := answer.New(backend, logger)

	reg := metrics.New()
	opts := qa.DefaultOptions()
	opts.TopK = cfg.TopK
	svc := qa.New(retriever, synth, opts, nc, reg, logger)

	// --- HTTP server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes(svc, store, reg, cfg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting",
			"port", cfg.Port,
			"index_backend", cfg.IndexBackend,
			"embed_model", limited.ModelName(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func buildEmbedder(cfg Config) (embedding.Provider, error) {
	switch cfg.EmbedBackend {
	case "openai":
		return embedding.NewOpenAIProvider(cfg.OpenAIKey, cfg.EmbedModel)
	case "ollama":
		opts := []embedding.OllamaOption{embedding.WithBaseURL(cfg.OllamaURL)}
		if cfg.EmbedModel != "" && cfg.EmbedDims > 0 {
			opts = append(opts, embedding.WithModel(cfg.EmbedModel, cfg.EmbedDims))
		}
		return embedding.NewOllamaProvider(opts...), nil
	default:
		return nil, fmt.Errorf("unknown EMBED_BACKEND %q", cfg.EmbedBackend)
	}
}

func routes(svc *qa.Service, store *docstore.Store, reg *metrics.Registry, cfg Config, logger *slog.Logger) http.Handler {
	srv := &server{qa: svc, store: store, logger: logger}
	tenant := mid.RequireTenant()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", reg.Handler())
	mux.Handle("POST /api/documents/upload", tenant(http.HandlerFunc(srv.handleUpload)))
	mux.Handle("GET /api/documents", tenant(http.HandlerFunc(srv.handleListDocuments)))
	mux.Handle("POST /api/qa/ask", tenant(http.HandlerFunc(srv.handleAsk)))
	mux.Handle("GET /api/qa/history", tenant(http.HandlerFunc(srv.handleHistory)))
	mux.Handle("GET /api/qa/debug/collection", tenant(http.HandlerFunc(srv.handleCollectionInfo)))
	mux.Handle("POST /api/qa/debug/reload", http.HandlerFunc(srv.handleReload))

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("askdocs-api"),
		mid.CORS(cfg.CORSOrigin),
	)
}
