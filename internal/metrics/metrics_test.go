package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersConcurrent(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	const workers = 8
	const perWorker = 1000

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricScanAuthenticated)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if got := snap.Counters[MetricScanAuthenticated]; got != workers*perWorker {
		t.Fatalf("counter = %d, want %d", got, workers*perWorker)
	}
}

func TestDisabledIsNoOp(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricLinkIssued)
	m.Observe(MetricScanLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled metrics recorded data: %+v", snap)
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLinkIssued)
	m.Observe(MetricScanLatency, time.Second)
	snap := m.Snapshot()
	if len(snap.Counters) != 0 {
		t.Fatal("nil metrics should snapshot empty")
	}
}

func TestHistogramBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})

	m.Observe(MetricScanLatency, 2*time.Millisecond)  // bucket 0
	m.Observe(MetricScanLatency, 30*time.Millisecond) // bucket 3
	m.Observe(MetricScanLatency, 5*time.Second)       // +Inf bucket

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricScanLatency]
	if buckets == nil {
		t.Fatal("expected histogram data")
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[len(buckets)-1] != 1 {
		t.Fatalf("unexpected bucket layout: %v", buckets)
	}
}
