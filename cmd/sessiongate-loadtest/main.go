// Command sessiongate-loadtest measures token exchange against the dev
// backend and session persistence over the Redis storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/deeptutor/sessiongate/authapi"
	"github.com/deeptutor/sessiongate/internal/devserver"
	"github.com/deeptutor/sessiongate/session"
	"github.com/deeptutor/sessiongate/storage"
)

func main() {
	var (
		users       = flag.Int("users", 50, "number of accounts to register")
		instances   = flag.Int("instances", 10000, "number of client instances for the persist phase")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sgload", "key prefix")
	)
	flag.Parse()

	if *users <= 0 || *instances <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, instances, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := devserver.DefaultConfig()
	cfg.KeyPrefix = *prefix
	cfg.TokenRate = 0
	cfg.MaxFailedLogins = 0
	srv, err := devserver.New(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = httpSrv.Serve(ln) }()
	defer httpSrv.Close()

	api, err := authapi.New("http://"+ln.Addr().String(), authapi.WithHTTPClient(&http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{MaxIdleConnsPerHost: *concurrency},
	}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}

	accounts := make([]string, *users)
	fmt.Printf("registering %d accounts...\n", *users)
	startSeed := time.Now()
	for i := range accounts {
		accounts[i] = fmt.Sprintf("load-%d", i)
		if err := api.Register(ctx, authapi.Registration{Username: accounts[i], Password: passwordFor(i)}); err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	exchangeStats := runExchangePhase(ctx, api, accounts, *ops, *concurrency)
	persistStats := runPersistPhase(ctx, client, *prefix, *instances, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("exchange", exchangeStats)
	printStats("persist", persistStats)
}

func runExchangePhase(ctx context.Context, api *authapi.Client, accounts []string, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) error {
		idx := r.Intn(len(accounts))
		_, err := api.RequestToken(ctx, accounts[idx], passwordFor(idx))
		return err
	})
}

// runPersistPhase stores a token for a random instance, then restores it the
// way a fresh client start would and checks the value survived.
func runPersistPhase(ctx context.Context, client *redis.Client, prefix string, instances, ops, concurrency int) phaseStats {
	backends := make([]*storage.Redis, instances)
	for i := range backends {
		b, err := storage.NewRedis(client, prefix, fmt.Sprintf("inst-%d", i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "storage: %v\n", err)
			os.Exit(1)
		}
		backends[i] = b
	}
	locks := make([]sync.Mutex, instances)

	return runPhase(ops, concurrency, 6151, func(r *rand.Rand, _ int) error {
		idx := r.Intn(instances)
		locks[idx].Lock()
		defer locks[idx].Unlock()

		token := uuid.NewString()
		if err := session.NewStore(backends[idx]).Set(ctx, token); err != nil {
			return err
		}
		restored := session.NewStore(backends[idx])
		if err := restored.Initialize(ctx); err != nil {
			return err
		}
		if got, _ := restored.Token(); got != token {
			return fmt.Errorf("instance %d restored %q, want %q", idx, got, token)
		}
		return nil
	})
}

func runPhase(ops, concurrency int, seedStride int64, op func(r *rand.Rand, i int) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedStride))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
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
	total := time.Since(start)
	return computeStats(total, latencies, failures)
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
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func passwordFor(i int) string {
	return fmt.Sprintf("load-password-%d", i)
}
