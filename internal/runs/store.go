package runs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/releasegate/riskadvisor/internal/models"
)

// Store keeps recent assessment reports in memory for the runs API and
// dumps each one to the evals directory for offline review. The dump is
// best-effort: a full disk never fails an assessment.
type Store struct {
	mu       sync.RWMutex
	order    []string
	byID     map[string]models.Report
	limit    int
	evalsDir string
	logger   *slog.Logger
}

// NewStore creates a store retaining at most limit reports. An empty
// evalsDir disables the on-disk dump.
func NewStore(evalsDir string, limit int, logger *slog.Logger) *Store {
	if limit <= 0 {
		limit = 100
	}
	return &Store{
		order:    make([]string, 0, limit),
		byID:     make(map[string]models.Report, limit),
		limit:    limit,
		evalsDir: evalsDir,
		logger:   logger,
	}
}

// Add records a completed run, evicting the oldest beyond the limit.
func (s *Store) Add(report models.Report) {
	s.mu.Lock()
	s.order = append(s.order, report.RunID)
	s.byID[report.RunID] = report
	for len(s.order) > s.limit {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	s.mu.Unlock()

	s.dump(report)
}

// List returns retained reports, newest first.
func (s *Store) List() []models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]models.Report, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		reports = append(reports, s.byID[s.order[i]])
	}
	return reports
}

// Get fetches one report by run ID.
func (s *Store) Get(runID string) (models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.byID[runID]
	return report, ok
}

func (s *Store) dump(report models.Report) {
	if s.evalsDir == "" {
		return
	}
	if err := os.MkdirAll(s.evalsDir, 0o755); err != nil {
		s.logger.Warn("evals dir unavailable", "dir", s.evalsDir, "error", err)
		return
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		s.logger.Warn("report marshal failed", "run_id", report.RunID, "error", err)
		return
	}
	path := filepath.Join(s.evalsDir, fmt.Sprintf("run_%s.json", report.RunID))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		s.logger.Warn("report dump failed", "path", path, "error", err)
	}
}
