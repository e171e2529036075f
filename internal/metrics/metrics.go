package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID uint16

const (
	MetricScanAuthenticated MetricID = iota
	MetricScanRejectedDisabled
	MetricScanInvalidPayload
	MetricScanIgnored
	MetricScanDebounced
	MetricPresenceDenied
	MetricElevationPrompted
	MetricElevationApproved
	MetricElevationDenied
	MetricLinkIssued
	MetricExpiryAdjusted
	MetricRecordTerminated
	MetricRemoteToggled
	MetricLoginSuccess
	MetricLoginFailure
	MetricScanLatency // histogram

	MetricIDCount
)

// Histogram bucket upper bounds for scan latency.
var latencyBuckets = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	time.Second,
	// +Inf
}

const histogramBucketCount = len(latencyBuckets) + 1

// Config controls metric collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

type paddedCounter struct {
	value uint64
	_     [7]uint64 // cache-line padding
}

// Metrics holds atomic counters and optional latency histograms. A nil
// *Metrics or a disabled instance is a no-op on every method.
type Metrics struct {
	cfg        Config
	counters   [MetricIDCount]paddedCounter
	histograms [MetricIDCount][histogramBucketCount]paddedCounter
}

// Snapshot is a point-in-time deep copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New creates a Metrics instance. When cfg.Enabled is false, all operations
// are no-ops.
func New(cfg Config) *Metrics {
	return &Metrics{cfg: cfg}
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.cfg.Enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample into the histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.cfg.Enabled || !m.cfg.EnableLatency || id >= MetricIDCount {
		return
	}
	bucket := len(latencyBuckets)
	for i, bound := range latencyBuckets {
		if d <= bound {
			bucket = i
			break
		}
	}
	atomic.AddUint64(&m.histograms[id][bucket].value, 1)
}

// Snapshot returns a deep copy of all non-zero counters and histograms.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   make(map[MetricID]uint64),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil || !m.cfg.Enabled {
		return snap
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := atomic.LoadUint64(&m.counters[id].value); v != 0 {
			snap.Counters[id] = v
		}

		var buckets []uint64
		for b := 0; b < histogramBucketCount; b++ {
			if v := atomic.LoadUint64(&m.histograms[id][b].value); v != 0 {
				if buckets == nil {
					buckets = make([]uint64, histogramBucketCount)
				}
				buckets[b] = v
			}
		}
		if buckets != nil {
			snap.Histograms[id] = buckets
		}
	}
	return snap
}
