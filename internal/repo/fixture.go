package repo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/releasegate/riskadvisor/internal/models"
	"github.com/releasegate/riskadvisor/internal/utils"
)

// fixtureFile is the on-disk shape of the revert-history corpus. The
// optional current section pins post-deploy SLI values so demo runs stay
// deterministic.
type fixtureFile struct {
	Reverts   []models.RevertRecord         `yaml:"reverts"`
	Baselines map[string]map[string]float64 `yaml:"baselines"`
	Current   map[string]map[string]float64 `yaml:"current"`
}

// FixtureRepo serves revert history and synthetic SLI telemetry from a
// YAML file. It stands in for the monitoring backend in local and demo
// deployments and implements the same Backend contract.
type FixtureRepo struct {
	path                  string
	anomalousDeviationPct float64
	logger                *slog.Logger

	mu   sync.RWMutex
	data fixtureFile
}

// NewFixtureRepo loads the corpus from path. A file that fails to parse
// is rejected outright rather than partially loaded.
func NewFixtureRepo(path string, anomalousDeviationPct float64, logger *slog.Logger) (*FixtureRepo, error) {
	r := &FixtureRepo{
		path:                  path,
		anomalousDeviationPct: anomalousDeviationPct,
		logger:                logger,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FixtureRepo) load() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return utils.NewAppError("fixture.load", fmt.Sprintf("read revert history %s", r.path), err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return utils.NewAppError("fixture.load", "parse revert history", err)
	}

	r.mu.Lock()
	r.data = file
	r.mu.Unlock()

	r.logger.Info("revert history loaded",
		"path", r.path,
		"reverts", len(file.Reverts),
		"services", len(file.Baselines))
	return nil
}

// Watch reloads the corpus whenever the file changes on disk, until ctx
// is cancelled. A reload failure keeps the previous corpus in place.
func (r *FixtureRepo) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return utils.NewAppError("fixture.watch", "create watcher", err)
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return utils.NewAppError("fixture.watch", "watch fixture directory", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := r.load(); err != nil {
					r.logger.Warn("revert history reload failed", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("fixture watcher error", "error", err)
			}
		}
	}()
	return nil
}

// FetchRevertEvents filters the corpus by service, platform, and lookback
// window. A record matches the service when the names are equal or when
// one of its tags is a substring of the service name (teams tag reverts
// with the owning component, not always the full service name).
func (r *FixtureRepo) FetchRevertEvents(ctx context.Context, service, platform string, windowDays int) ([]models.RevertRecord, error) {
	r.mu.RLock()
	reverts := r.data.Reverts
	r.mu.RUnlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)

	matched := make([]models.RevertRecord, 0, len(reverts))
	for _, rec := range reverts {
		if service != "" && !matchesService(rec, service) {
			continue
		}
		if platform != "" && rec.Platform != "" && rec.Platform != "all" && rec.Platform != platform {
			continue
		}
		if rec.Date != "" {
			when, err := utils.ParseRFC3339(rec.Date)
			if err != nil {
				return nil, utils.NewAppError("fixture.events",
					fmt.Sprintf("revert %s has malformed date %q", rec.ID, rec.Date), err)
			}
			if when.Before(cutoff) {
				continue
			}
		}
		matched = append(matched, rec)
	}
	return matched, nil
}

func matchesService(rec models.RevertRecord, service string) bool {
	if rec.Service == service {
		return true
	}
	for _, tag := range rec.Tags {
		if tag != "" && strings.Contains(service, tag) {
			return true
		}
	}
	return false
}

// FetchBaseline synthesises a plausible distribution around the pinned
// baseline average. The multipliers keep p95 < p99 and a moderate spread
// so volatility classification has something to chew on.
func (r *FixtureRepo) FetchBaseline(ctx context.Context, service, sli string, windowDays int) (models.SLIBaseline, error) {
	r.mu.RLock()
	base := r.data.Baselines[service][sli]
	r.mu.RUnlock()

	if base == 0 {
		return models.SLIBaseline{SLI: sli, Service: service, WindowDays: windowDays}, nil
	}
	return models.SLIBaseline{
		SLI:        sli,
		Service:    service,
		WindowDays: windowDays,
		Avg:        fixtureRound(base),
		P95:        fixtureRound(base * 1.3),
		P99:        fixtureRound(base * 1.8),
		StdDev:     fixtureRound(base * 0.15),
	}, nil
}

// FetchCurrentHealth reports the pinned current value against the pinned
// baseline. With no current entry the SLI sits exactly on its baseline.
func (r *FixtureRepo) FetchCurrentHealth(ctx context.Context, service, sli string, windowMinutes int) (models.SLICurrentHealth, error) {
	r.mu.RLock()
	base := r.data.Baselines[service][sli]
	current, pinned := r.data.Current[service][sli]
	r.mu.RUnlock()

	if base == 0 {
		return models.SLICurrentHealth{SLI: sli, Service: service, WindowMinutes: windowMinutes}, nil
	}
	if !pinned {
		current = base
	}

	denom := base
	if denom < 1 {
		denom = 1
	}
	deviation := (current - base) / denom * 100
	deviation = math.Round(deviation*10) / 10

	return models.SLICurrentHealth{
		SLI:           sli,
		Service:       service,
		CurrentValue:  current,
		BaselineAvg:   base,
		DeviationPct:  deviation,
		IsAnomalous:   math.Abs(deviation) > r.anomalousDeviationPct,
		WindowMinutes: windowMinutes,
	}, nil
}

// SLIsFor lists the SLIs with pinned baselines for a service, used when a
// request does not name its own.
func (r *FixtureRepo) SLIsFor(service string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.data.Baselines[service]))
	for sli := range r.data.Baselines[service] {
		names = append(names, sli)
	}
	sort.Strings(names)
	return names
}

func fixtureRound(v float64) float64 {
	return math.Round(v*1000) / 1000
}
