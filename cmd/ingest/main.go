// Command ingest bulk-loads a directory of .txt and .pdf files into one
// tenant's index, recording document metadata alongside.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/askdocs/askdocs/engine/chunker"
	"github.com/askdocs/askdocs/engine/embedding"
	"github.com/askdocs/askdocs/engine/index"
	"github.com/askdocs/askdocs/engine/registry"
	"github.com/askdocs/askdocs/pkg/docstore"
	"github.com/askdocs/askdocs/pkg/extract"
)

func main() {
	var (
		dir        = flag.String("dir", ".", "directory of documents to ingest")
		tenant     = flag.String("tenant", "", "tenant to ingest into (required)")
		dataDir    = flag.String("data", "data", "index root directory")
		dbPath     = flag.String("db", "data/askdocs.db", "document metadata database")
		ollamaURL  = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		embedModel = flag.String("model", "", "embedding model (default all-minilm:l6-v2)")
		embedDims  = flag.Int("dims", 0, "embedding dimensions for -model")
		embedRPS   = flag.Float64("rps", 10, "embedding requests per second")
		chunkSize  = flag.Int("chunk-size", 1000, "chunk size in characters")
		overlap    = flag.Int("chunk-overlap", 200, "chunk overlap in characters")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -tenant <id> -dir <docs>")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []embedding.OllamaOption{embedding.WithBaseURL(*ollamaURL)}
	if *embedModel != "" && *embedDims > 0 {
		opts = append(opts, embedding.WithModel(*embedModel, *embedDims))
	}
	embedder := embedding.Limit(embedding.NewOllamaProvider(opts...), *embedRPS, 1)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Error("creating data dir failed", "error", err)
		os.Exit(1)
	}
	opener := &index.FileOpener{
		Root:       *dataDir,
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
	}
	retriever := registry.New(opener, embedder, chunker.New(*chunkSize, *overlap), log)

	store, err := docstore.Open(*dbPath)
	if err != nil {
		log.Error("opening docstore failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	start := time.Now()
	var files, chunks, skipped int

	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".pdf" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("reading file failed", "file", path, "error", err)
			skipped++
			return nil
		}
		res, err := extract.FromBytes(content)
		if err != nil {
			log.Warn("skipping file", "file", path, "error", err)
			skipped++
			return nil
		}

		name := filepath.Base(path)
		id, err := store.SaveDocument(ctx, docstore.Document{
			TenantID: *tenant,
			Filename: name,
			FileType: res.FileType,
			Content:  res.Text,
		})
		if err != nil {
			return fmt.Errorf("saving %s: %w", name, err)
		}

		ids, err := retriever.AddDocument(ctx, *tenant, strconv.FormatInt(id, 10), name, res.Text)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", name, err)
		}

		files++
		chunks += len(ids)
		log.Info("indexed", "file", name, "chunks", len(ids))
		return nil
	})
	if err != nil {
		log.Error("ingest failed", "error", err)
		os.Exit(1)
	}

	log.Info("ingest complete",
		"tenant", *tenant,
		"files", files,
		"chunks", chunks,
		"skipped", skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}
