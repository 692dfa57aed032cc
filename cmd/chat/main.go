// Command chat is an interactive terminal client for asking questions
// against a tenant's indexed documents. It talks to the engine directly,
// no API server required.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/engine/answer"
	"github.com/askdocs/askdocs/engine/chunker"
	"github.com/askdocs/askdocs/engine/embedding"
	"github.com/askdocs/askdocs/engine/index"
	"github.com/askdocs/askdocs/engine/qa"
	"github.com/askdocs/askdocs/engine/registry"
	"github.com/askdocs/askdocs/pkg/extract"
	"github.com/askdocs/askdocs/pkg/metrics"
)

func main() {
	var (
		tenant     = flag.String("tenant", "local", "tenant whose documents to query")
		dataDir    = flag.String("data", "data", "index root directory")
		ollamaURL  = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		embedModel = flag.String("model", "", "embedding model (default all-minilm:l6-v2)")
		embedDims  = flag.Int("dims", 0, "embedding dimensions for -model")
		chatModel  = flag.String("chat-model", "gpt-3.5-turbo", "chat completion model")
		topK       = flag.Int("k", 4, "chunks to retrieve per question")
		verbose    = flag.Bool("v", false, "log engine activity to stderr")
	)
	flag.Parse()

	logOut := io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	opts := []embedding.OllamaOption{embedding.WithBaseURL(*ollamaURL)}
	if *embedModel != "" && *embedDims > 0 {
		opts = append(opts, embedding.WithModel(*embedModel, *embedDims))
	}
	embedder := embedding.NewOllamaProvider(opts...)

	opener := &index.FileOpener{
		Root:       *dataDir,
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
	}
	retriever := registry.New(opener, embedder, chunker.New(chunker.DefaultChunkSize, chunker.DefaultOverlap), logger)

	var backend answer.Backend
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		var err error
		backend, err = answer.NewOpenAIBackend(key, *chatModel)
		if err != nil {
			fmt.Fprintln(os.Stderr, "openai:", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintln(os.Stderr, "note: OPENAI_API_KEY not set, answers use keyword fallback")
	}
	synth := answer.New(backend, logger)

	qaOpts := qa.DefaultOptions()
	qaOpts.TopK = *topK
	svc := qa.New(retriever, synth, qaOpts, nil, metrics.New(), logger)

	fmt.Printf("askdocs chat, tenant %q. Type a question, /load <file>, /info, or /quit.\n", *tenant)
	repl(svc, *tenant)
}

func repl(svc *qa.Service, tenant string) {
	ctx := context.Background()
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !sc.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return
		case line == "/info":
			info, err := svc.CollectionInfo(ctx, tenant)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("collection %s, has documents: %v, sample sources: %s\n",
				info.Collection, info.HasDocuments, strings.Join(info.SampleSources, ", "))
		case strings.HasPrefix(line, "/load "):
			loadFile(ctx, svc, tenant, strings.TrimSpace(strings.TrimPrefix(line, "/load ")))
		default:
			askOnce(ctx, svc, tenant, line)
		}
	}
}

func loadFile(ctx context.Context, svc *qa.Service, tenant, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	res, err := extract.FromBytes(content)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	ids, err := svc.Upload(ctx, tenant, uuid.NewString(), filepath.Base(path), res.Text)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("indexed %s (%d chunks)\n", filepath.Base(path), len(ids))
}

func askOnce(ctx context.Context, svc *qa.Service, tenant, question string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	ans, err := svc.Ask(ctx, tenant, question)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Printf("[sources: %s] (%.2fs)\n", strings.Join(ans.Sources, ", "), ans.ElapsedSeconds)
	}
}
