// Command backfill rebuilds vector indexes from the document store. Use it
// after switching embedding models or when an index directory is lost: the
// documents table is the source of truth, the index is derived state.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/askdocs/askdocs/engine/chunker"
	"github.com/askdocs/askdocs/engine/embedding"
	"github.com/askdocs/askdocs/engine/index"
	"github.com/askdocs/askdocs/engine/registry"
	"github.com/askdocs/askdocs/pkg/docstore"
)

func main() {
	var (
		tenant     = flag.String("tenant", "", "tenant to rebuild (required)")
		dataDir    = flag.String("data", "data", "index root directory to rebuild into")
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
		log.Error("missing -tenant")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := docstore.Open(*dbPath)
	if err != nil {
		log.Error("opening docstore failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	opts := []embedding.OllamaOption{embedding.WithBaseURL(*ollamaURL)}
	if *embedModel != "" && *embedDims > 0 {
		opts = append(opts, embedding.WithModel(*embedModel, *embedDims))
	}
	embedder := embedding.Limit(embedding.NewOllamaProvider(opts...), *embedRPS, 1)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Error("creating data dir failed", "error", err)
		os.Exit(1)
	}

	// Refuse to append onto an existing index; the rebuild must start clean.
	collectionDir := *dataDir + "/" + index.CollectionName(*tenant)
	if _, err := os.Stat(collectionDir); err == nil {
		log.Error("index already exists, remove it before backfilling", "dir", collectionDir)
		os.Exit(1)
	}

	opener := &index.FileOpener{
		Root:       *dataDir,
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
	}
	retriever := registry.New(opener, embedder, chunker.New(*chunkSize, *overlap), log)

	docs, err := store.ListDocuments(ctx, *tenant)
	if err != nil {
		log.Error("listing documents failed", "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		log.Info("no documents to backfill", "tenant", *tenant)
		return
	}

	var chunks int
	for _, meta := range docs {
		doc, err := store.GetDocument(ctx, *tenant, meta.ID)
		if err != nil {
			log.Error("loading document failed", "id", meta.ID, "error", err)
			os.Exit(1)
		}
		ids, err := retriever.AddDocument(ctx, *tenant, strconv.FormatInt(doc.ID, 10), doc.Filename, doc.Content)
		if err != nil {
			log.Error("indexing document failed", "id", doc.ID, "error", err)
			os.Exit(1)
		}
		chunks += len(ids)
		log.Info("reindexed", "file", doc.Filename, "chunks", len(ids))
	}

	log.Info("backfill complete", "tenant", *tenant, "documents", len(docs), "chunks", chunks)
}
