// Command tokenkeeper-loadtest measures Authenticate and Refresh throughput
// against a real Redis or an embedded miniredis.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"log/slog"
	mrand "math/rand"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenkeeper"
	"github.com/MrEthical07/tokenkeeper/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type userState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of users to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (authenticate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "tkload:", "redis key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]userState, *users)
	fmt.Printf("registering %d users...\n", *users)
	startSeed := time.Now()
	for i := range states {
		resp, err := engine.Register(ctx, tokenkeeper.RegisterRequest{
			Email:    fmt.Sprintf("load-%d@example.com", i),
			Username: fmt.Sprintf("load%d", i),
			Password: "load-test-password",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		states[i].access = resp.AccessToken
		states[i].refresh = resp.RefreshToken
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase("authenticate", *ops, *concurrency, 7919, func(r *mrand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		token := st.access
		st.mu.Unlock()
		_, err := engine.Authenticate(ctx, token)
		return err
	})
	refreshStats := runPhase("refresh", *ops, *concurrency, 6151, func(r *mrand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		resp, err := engine.Refresh(ctx, st.refresh)
		if err != nil {
			return err
		}
		st.access = resp.AccessToken
		st.refresh = resp.RefreshToken
		return nil
	})

	fmt.Println()
	if err := writeReports(os.Stdout, authStats, refreshStats); err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
	}
	snap := engine.MetricsSnapshot()
	fmt.Printf("refresh_reuse_detected=%d\n", snap.Counters[tokenkeeper.MetricRefreshReuseDetected])
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func buildEngine(client redis.UniversalClient, prefix string) (*tokenkeeper.Engine, error) {
	cfg := tokenkeeper.DefaultConfig()
	cfg.JWT.AccessSecret = randomSecret()
	cfg.JWT.RefreshSecret = randomSecret()
	cfg.Session.KeyPrefix = prefix
	cfg.Password.Algorithm = tokenkeeper.PasswordBcrypt
	cfg.Password.BcryptCost = 4
	// Repeated refreshes of one user would trip the per-user throttle.
	cfg.RateLimit.Enabled = false

	return tokenkeeper.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(userstore.NewMemory()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
}

func randomSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// runPhase spreads ops calls of op over concurrency workers. Each worker
// records into its own slice so the hot loop takes no lock.
func runPhase(name string, ops, concurrency int, seed int64, op func(*mrand.Rand) error) phaseReport {
	var (
		wg      sync.WaitGroup
		claimed atomic.Int64
		failed  atomic.Int64
	)
	perWorker := make([][]time.Duration, concurrency)

	start := time.Now()
	for w := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(seed + int64(w)))
			own := make([]time.Duration, 0, ops/concurrency+1)
			for claimed.Add(1) <= int64(ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					failed.Add(1)
				}
				own = append(own, time.Since(t0))
			}
			perWorker[w] = own
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	return summarize(name, elapsed, slices.Concat(perWorker...), failed.Load())
}
