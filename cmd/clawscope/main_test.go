package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stellarlinkco/clawscope/internal/config"
	"github.com/stellarlinkco/clawscope/internal/event"
	"github.com/stellarlinkco/clawscope/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Extract.LogsDir = t.TempDir()
	cfg.Extract.DataDir = t.TempDir()
	cfg.Extract.WatchFiles = []string{"SOUL.md", "AGENTS.md"}
	return cfg
}

func TestRefreshOncePersistsCollection(t *testing.T) {
	cfg := testConfig(t)
	lines := `{"time":"2025-06-01T09:00:00Z","level":"info","message":"agent run started"}
{"time":"2025-06-01T10:00:00Z","level":"info","message":"Wrote 512 bytes to SOUL.md"}
`
	if err := os.WriteFile(filepath.Join(cfg.Extract.LogsDir, "agent.log"), []byte(lines), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	report, err := refreshOnce(cfg)
	if err != nil {
		t.Fatalf("refreshOnce: %v", err)
	}
	if !strings.Contains(report, "2 events") || !strings.Contains(report, "1 files") {
		t.Fatalf("report=%q", report)
	}

	col, err := store.New(cfg.Extract.DataDir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(col.Events) != 2 {
		t.Fatalf("persisted %d events, want 2", len(col.Events))
	}
	if col.Summary.MDWriteCounts["SOUL.md"] != 1 {
		t.Fatalf("summary=%+v", col.Summary)
	}
}

func TestRefreshOnceCarriesEnrichmentForward(t *testing.T) {
	cfg := testConfig(t)
	line := `{"time":"2025-06-01T11:59:00Z","message":{"role":"user","content":[{"type":"text","text":"please water the plants"}]}}` + "\n"
	if err := os.WriteFile(filepath.Join(cfg.Extract.LogsDir, "session.jsonl"), []byte(line), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	if _, err := refreshOnce(cfg); err != nil {
		t.Fatalf("first refreshOnce: %v", err)
	}

	// Simulate an external enrichment pass on the persisted collection.
	st := store.New(cfg.Extract.DataDir)
	col, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(col.Events) != 1 {
		t.Fatalf("events=%d, want 1", len(col.Events))
	}
	col.Events[0].Sentiment = event.SentimentDelighted
	col.Events[0].Summary = "asks for watering"
	if err := st.Save(col); err != nil {
		t.Fatalf("Save: %v", err)
	}

	report, err := refreshOnce(cfg)
	if err != nil {
		t.Fatalf("second refreshOnce: %v", err)
	}
	if !strings.Contains(report, "1 enriched carried forward") {
		t.Fatalf("report=%q", report)
	}

	col, err = st.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if col.Events[0].Sentiment != event.SentimentDelighted || col.Events[0].Summary != "asks for watering" {
		t.Fatalf("enrichment lost on re-extraction: %+v", col.Events[0])
	}
}

func TestEmbedBasis(t *testing.T) {
	withBasis := &event.LogEvent{Message: "User: hi", EmbeddingText: "hi"}
	if got := embedBasis(withBasis); got != "hi" {
		t.Fatalf("embedBasis=%q, want cleaned basis", got)
	}
	withoutBasis := &event.LogEvent{Message: "plain message"}
	if got := embedBasis(withoutBasis); got != "plain message" {
		t.Fatalf("embedBasis=%q, want message fallback", got)
	}
}
