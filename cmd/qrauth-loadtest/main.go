package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/thecodeprism/qrauth/record"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 50000, "number of pending sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		queries     = flag.Int("queries", 20000, "active-view queries in the query phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "qa", "record key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *queries <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and queries must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := record.NewStore(client, *prefix)

	ids := make([]string, *sessions)
	fmt.Printf("seeding %d pending sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		ids[i] = fmt.Sprintf("qr-%d", i)
		if err := store.CreateSession(ctx, ids[i]); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runAuthorizePhase(ctx, store, ids, *concurrency)
	queryStats := runQueryPhase(ctx, store, *queries, *concurrency)

	active, err := store.FindActiveSessions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "final view query failed: %v\n", err)
		os.Exit(1)
	}
	if len(active) != *sessions {
		fmt.Fprintf(os.Stderr, "view integrity failed: %d active, want %d\n",
			len(active), *sessions)
		os.Exit(1)
	}
	for i := 1; i < len(active); i++ {
		prev, cur := active[i-1], active[i]
		if cur.ExpiresAt.Before(prev.ExpiresAt) ||
			(cur.ExpiresAt.Equal(prev.ExpiresAt) && cur.ID < prev.ID) {
			fmt.Fprintf(os.Stderr, "view ordering failed at index %d\n", i)
			os.Exit(1)
		}
	}
	fmt.Printf("view integrity ok: %d active sessions, sorted\n", len(active))

	fmt.Println("---- results ----")
	printStats("authorize", authStats)
	printStats("query", queryStats)
}

// runAuthorizePhase drives every seeded session through the authenticated
// transition, each exactly once, from concurrent workers.
func runAuthorizePhase(ctx context.Context, store *record.Store, ids []string, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(ids))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(ids) {
					return
				}
				principal := fmt.Sprintf("op-%d@example.com", worker)
				t0 := time.Now()
				err := store.SetAuthenticated(ctx, record.KindSession, ids[i], principal, time.Hour)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runQueryPhase(ctx context.Context, store *record.Store, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				var err error
				if r.Intn(2) == 0 {
					_, err = store.FindActiveSessions(ctx)
				} else {
					_, err = store.AdminStatus(ctx)
				}
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-10s ops=%d failures=%d total=%s p50=%s p95=%s p99=%s rate=%.0f ops/s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond),
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
		s.opsPerS)
}
