package metrics

import (
	"time"

	"inspection-capture/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// StorageHealthChecker refreshes database and storage gauges.
type StorageHealthChecker interface {
	UpdateDBMetrics()
	CheckStorageHealth()
}

// Stats holds the current statistics
type Stats struct {
	PhotosBySlot     map[string]int
	TotalPhotos      int
	DeletedPhotos    int
	TelemetryEntries int
	FailedEntries    int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	health        StorageHealthChecker
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. health may be nil.
func NewCollector(provider StatsProvider, health StorageHealthChecker, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		health:        health,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.health != nil {
		c.health.UpdateDBMetrics()
		c.health.CheckStorageHealth()
	}

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()
	for name, count := range stats.PhotosBySlot {
		PhotosCurrent.WithLabelValues(name).Set(float64(count))
	}

	logging.Debug("Metrics collected: photos=%d, deleted=%d, telemetry=%d, failed=%d",
		stats.TotalPhotos, stats.DeletedPhotos, stats.TelemetryEntries, stats.FailedEntries)
}
