package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockStorageHealthChecker struct {
	mu                    sync.Mutex
	checkStorageHealthCnt int
	updateDBMetricsCnt    int
}

func (m *mockStorageHealthChecker) CheckStorageHealth() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkStorageHealthCnt++
}

func (m *mockStorageHealthChecker) UpdateDBMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateDBMetricsCnt++
}

func TestCollectorCollectsImmediately(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		PhotosBySlot: map[string]int{"undercarriage": 4},
		TotalPhotos:  4,
	}}
	health := &mockStorageHealthChecker{}

	c := NewCollector(provider, health, time.Hour)
	c.Start()
	defer c.Stop()

	gauge := PhotosCurrent.WithLabelValues("undercarriage")
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(gauge) != 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := testutil.ToFloat64(gauge); got != 4 {
		t.Fatalf("PhotosCurrent{undercarriage} = %v, want 4", got)
	}
	health.mu.Lock()
	defer health.mu.Unlock()
	if health.updateDBMetricsCnt == 0 || health.checkStorageHealthCnt == 0 {
		t.Errorf("health checker not called: %+v", health)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, nil, time.Hour)
	c.collect()
}

func TestCollectorStop(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, nil, 10*time.Millisecond)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()

	stopped := provider.callCount()
	time.Sleep(40 * time.Millisecond)
	if provider.callCount() > stopped+1 {
		t.Errorf("collector kept running after Stop: %d -> %d calls", stopped, provider.callCount())
	}
}
