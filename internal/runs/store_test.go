package runs

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/releasegate/riskadvisor/internal/models"
)

func storeLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStoreAddListGet(t *testing.T) {
	store := NewStore("", 10, storeLogger())

	store.Add(models.Report{RunID: "run-1", RiskScore: 12})
	store.Add(models.Report{RunID: "run-2", RiskScore: 64})

	reports := store.List()
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].RunID != "run-2" {
		t.Errorf("expected newest first, got %s", reports[0].RunID)
	}

	got, ok := store.Get("run-1")
	if !ok || got.RiskScore != 12 {
		t.Errorf("lookup failed: %v %v", got, ok)
	}
	if _, ok := store.Get("missing"); ok {
		t.Error("expected a miss for an unknown run ID")
	}
}

func TestStoreEviction(t *testing.T) {
	store := NewStore("", 2, storeLogger())

	store.Add(models.Report{RunID: "run-1"})
	store.Add(models.Report{RunID: "run-2"})
	store.Add(models.Report{RunID: "run-3"})

	if len(store.List()) != 2 {
		t.Fatalf("expected retention limit 2, got %d", len(store.List()))
	}
	if _, ok := store.Get("run-1"); ok {
		t.Error("oldest run should have been evicted")
	}
	if _, ok := store.Get("run-3"); !ok {
		t.Error("newest run should be retained")
	}
}

func TestStoreDumpsToEvalsDir(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, 10, storeLogger())

	store.Add(models.Report{RunID: "run-7", Service: "playback-api"})

	raw, err := os.ReadFile(filepath.Join(dir, "run_run-7.json"))
	if err != nil {
		t.Fatalf("expected a dump file: %v", err)
	}
	if len(raw) == 0 {
		t.Error("dump file should not be empty")
	}
}
