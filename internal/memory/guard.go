package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"inspection-capture/internal/logging"
)

// Observer records heap pressure.
type Observer interface {
	ObserveMemory(usage float64, critical bool)
	ObserveRejectedUpload()
}

// Config tunes a Guard.
type Config struct {
	// LimitBytes is the heap budget. Zero uses GOMEMLIMIT; without either
	// the guard admits everything.
	LimitBytes int64
	// HighWaterMark re-opens admission after a critical period (0..1).
	HighWaterMark float64
	// CriticalWaterMark stops admission (0..1).
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Guard samples heap usage and refuses new uploads while it is critical.
// The gap between the two water marks keeps it from flapping.
type Guard struct {
	config   Config
	limit    int64
	observer Observer
	heap     func() uint64

	mu       sync.RWMutex
	current  uint64
	critical bool
	started  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewGuard creates a guard. A nil observer disables metric recording.
func NewGuard(config Config, observer Observer) *Guard {
	d := DefaultConfig()
	if config.HighWaterMark <= 0 || config.HighWaterMark > 1 {
		config.HighWaterMark = d.HighWaterMark
	}
	if config.CriticalWaterMark <= 0 || config.CriticalWaterMark > 1 {
		config.CriticalWaterMark = d.CriticalWaterMark
	}
	if config.HighWaterMark > config.CriticalWaterMark {
		config.HighWaterMark = config.CriticalWaterMark
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = d.CheckInterval
	}

	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Info("No memory limit configured, upload admission control disabled")
	} else {
		logging.Info("Upload admission control: critical at %.0f%% of %s", config.CriticalWaterMark*100, FormatBytes(limit))
	}

	return &Guard{
		config:   config,
		limit:    limit,
		observer: observer,
		heap:     heapAlloc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins sampling. It is a no-op without a limit.
func (g *Guard) Start() {
	if g.limit == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return
	}
	g.started = true
	go g.loop()
}

// Stop ends sampling and waits for the loop to exit.
func (g *Guard) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
	g.mu.RLock()
	started := g.started
	g.mu.RUnlock()
	if started {
		<-g.done
	}
}

func (g *Guard) loop() {
	defer close(g.done)
	ticker := time.NewTicker(g.config.CheckInterval)
	defer ticker.Stop()

	g.sample()
	for {
		select {
		case <-ticker.C:
			g.sample()
		case <-g.stop:
			return
		}
	}
}

func (g *Guard) sample() {
	alloc := g.heap()
	usage := float64(alloc) / float64(g.limit)

	g.mu.Lock()
	g.current = alloc
	was := g.critical
	switch {
	case usage >= g.config.CriticalWaterMark:
		g.critical = true
	case usage < g.config.HighWaterMark:
		g.critical = false
	}
	critical := g.critical
	g.mu.Unlock()

	if critical != was {
		if critical {
			logging.Warn("Memory critical (%.1f%% of limit), refusing uploads", usage*100)
			go runtime.GC()
		} else {
			logging.Info("Memory recovered (%.1f%% of limit), accepting uploads", usage*100)
		}
	}
	if g.observer != nil {
		g.observer.ObserveMemory(usage, critical)
	}
}

// Admit reports whether a new upload may be buffered. Refusals are
// counted.
func (g *Guard) Admit() bool {
	if g == nil || g.limit == 0 {
		return true
	}
	g.mu.RLock()
	critical := g.critical
	g.mu.RUnlock()

	if critical && g.observer != nil {
		g.observer.ObserveRejectedUpload()
	}
	return !critical
}

// Usage returns the last sampled heap usage as a share of the limit.
func (g *Guard) Usage() float64 {
	if g == nil || g.limit == 0 {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return float64(g.current) / float64(g.limit)
}
