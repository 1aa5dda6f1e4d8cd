package repo

import (
	"context"
	"testing"
	"time"

	"github.com/releasegate/riskadvisor/internal/cache"
	"github.com/releasegate/riskadvisor/internal/models"
)

type memoryProvider struct {
	entries map[string][]byte
	sets    int
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{entries: make(map[string][]byte)}
}

func (m *memoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	if raw, ok := m.entries[key]; ok {
		return raw, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *memoryProvider) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.entries[key] = value
	m.sets++
	return nil
}

func (m *memoryProvider) Del(_ context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memoryProvider) Close() error { return nil }

type countingBackend struct {
	baselineCalls int
	healthCalls   int
	eventCalls    int
}

func (c *countingBackend) FetchRevertEvents(context.Context, string, string, int) ([]models.RevertRecord, error) {
	c.eventCalls++
	return nil, nil
}

func (c *countingBackend) FetchBaseline(_ context.Context, service, sli string, windowDays int) (models.SLIBaseline, error) {
	c.baselineCalls++
	return models.SLIBaseline{SLI: sli, Service: service, WindowDays: windowDays, Avg: 1.5}, nil
}

func (c *countingBackend) FetchCurrentHealth(_ context.Context, service, sli string, windowMinutes int) (models.SLICurrentHealth, error) {
	c.healthCalls++
	return models.SLICurrentHealth{SLI: sli, Service: service, WindowMinutes: windowMinutes}, nil
}

func TestCachedBackendBaselineHit(t *testing.T) {
	backend := &countingBackend{}
	cached := NewCachedBackend(backend, newMemoryProvider(), time.Minute, time.Minute, testFixtureLogger())

	ctx := context.Background()
	first, err := cached.FetchBaseline(ctx, "svc", "error_rate", 30)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := cached.FetchBaseline(ctx, "svc", "error_rate", 30)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if backend.baselineCalls != 1 {
		t.Errorf("expected 1 backend call, got %d", backend.baselineCalls)
	}
	if first.Avg != second.Avg || second.Avg != 1.5 {
		t.Errorf("cached value mismatch: %v vs %v", first.Avg, second.Avg)
	}
}

func TestCachedBackendKeysVaryByWindow(t *testing.T) {
	backend := &countingBackend{}
	cached := NewCachedBackend(backend, newMemoryProvider(), time.Minute, time.Minute, testFixtureLogger())

	ctx := context.Background()
	if _, err := cached.FetchBaseline(ctx, "svc", "error_rate", 30); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.FetchBaseline(ctx, "svc", "error_rate", 120); err != nil {
		t.Fatal(err)
	}
	if backend.baselineCalls != 2 {
		t.Errorf("different windows should not share entries, got %d calls", backend.baselineCalls)
	}
}

func TestCachedBackendEventsPassThrough(t *testing.T) {
	backend := &countingBackend{}
	provider := newMemoryProvider()
	cached := NewCachedBackend(backend, provider, time.Minute, time.Minute, testFixtureLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := cached.FetchRevertEvents(ctx, "svc", "", 30); err != nil {
			t.Fatal(err)
		}
	}
	if backend.eventCalls != 2 {
		t.Errorf("events should bypass the cache, got %d calls", backend.eventCalls)
	}
	if provider.sets != 0 {
		t.Errorf("events should not populate the cache, got %d sets", provider.sets)
	}
}

func TestCachedBackendCorruptEntry(t *testing.T) {
	backend := &countingBackend{}
	provider := newMemoryProvider()
	cached := NewCachedBackend(backend, provider, time.Minute, time.Minute, testFixtureLogger())

	provider.entries["riskadvisor:health:svc:error_rate:60"] = []byte("{not json")

	health, err := cached.FetchCurrentHealth(context.Background(), "svc", "error_rate", 60)
	if err != nil {
		t.Fatalf("corrupt entry should fall through: %v", err)
	}
	if backend.healthCalls != 1 {
		t.Errorf("expected a backend call after discarding the entry, got %d", backend.healthCalls)
	}
	if health.SLI != "error_rate" {
		t.Errorf("unexpected health: %+v", health)
	}
}

func TestCachedBackendNoopProvider(t *testing.T) {
	backend := &countingBackend{}
	cached := NewCachedBackend(backend, cache.NoopProvider{}, time.Minute, time.Minute, testFixtureLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := cached.FetchBaseline(ctx, "svc", "error_rate", 30); err != nil {
			t.Fatal(err)
		}
	}
	if backend.baselineCalls != 2 {
		t.Errorf("noop cache should always miss, got %d calls", backend.baselineCalls)
	}
}
