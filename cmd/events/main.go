// Command events tails the QA event subjects on NATS, keeps running
// per-tenant totals, and periodically writes a JSON snapshot for dashboards.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/askdocs/askdocs/engine/qa"
	"github.com/askdocs/askdocs/pkg/natsutil"
)

// TenantStats accumulates per-tenant activity.
type TenantStats struct {
	DocumentsIndexed int     `json:"documents_indexed"`
	ChunksIndexed    int     `json:"chunks_indexed"`
	Questions        int     `json:"questions"`
	TotalAnswerSecs  float64 `json:"total_answer_seconds"`
}

// Snapshot is the JSON document written to disk.
type Snapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Tenants   map[string]TenantStats `json:"tenants"`
}

type collector struct {
	mu      sync.Mutex
	tenants map[string]TenantStats
}

func newCollector() *collector {
	return &collector{tenants: make(map[string]TenantStats)}
}

func (c *collector) onDocumentIndexed(_ context.Context, ev qa.DocumentIndexed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.tenants[ev.TenantID]
	st.DocumentsIndexed++
	st.ChunksIndexed += ev.Chunks
	c.tenants[ev.TenantID] = st
}

func (c *collector) onQuestionAnswered(_ context.Context, ev qa.QuestionAnswered) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.tenants[ev.TenantID]
	st.Questions++
	st.TotalAnswerSecs += ev.ElapsedSeconds
	c.tenants[ev.TenantID] = st
}

func (c *collector) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	tenants := make(map[string]TenantStats, len(c.tenants))
	for k, v := range c.tenants {
		tenants[k] = v
	}
	return Snapshot{Timestamp: time.Now().UTC(), Tenants: tenants}
}

func main() {
	var (
		natsURL  = flag.String("nats", nats.DefaultURL, "NATS server URL")
		outFile  = flag.String("out", "qa-activity.json", "snapshot output file")
		interval = flag.Duration("interval", time.Minute, "snapshot write interval")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	c := newCollector()
	if _, err := natsutil.Subscribe(nc, qa.SubjectDocumentIndexed, c.onDocumentIndexed); err != nil {
		log.Error("subscribe failed", "subject", qa.SubjectDocumentIndexed, "error", err)
		os.Exit(1)
	}
	if _, err := natsutil.Subscribe(nc, qa.SubjectQuestionAnswered, c.onQuestionAnswered); err != nil {
		log.Error("subscribe failed", "subject", qa.SubjectQuestionAnswered, "error", err)
		os.Exit(1)
	}
	log.Info("listening", "nats", *natsURL, "out", *outFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tick := time.NewTicker(*interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if err := writeSnapshot(*outFile, c.snapshot()); err != nil {
				log.Warn("writing snapshot failed", "error", err)
			}
		case <-ctx.Done():
			if err := writeSnapshot(*outFile, c.snapshot()); err != nil {
				log.Warn("writing snapshot failed", "error", err)
			}
			return
		}
	}
}

func writeSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
