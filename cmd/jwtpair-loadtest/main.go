// Command jwtpair-loadtest issues token pairs and hammers rotation against a
// tracking backend, then reports latency percentiles and any renewal token
// that more than one concurrent Refresh managed to consume.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/jwtpair"
	"github.com/MrEthical07/jwtpair/tracking/memory"
	"github.com/MrEthical07/jwtpair/tracking/pgstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type options struct {
	chains      int
	concurrency int
	ops         int
	racers      int
	races       int
	backend     string
	redisAddr   string
	postgresDSN string
	configPath  string
}

type chain struct {
	mu      sync.Mutex
	renewal string
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "jwtpair-loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("jwtpair-loadtest", pflag.ContinueOnError)
	flagSet.IntVar(&opts.chains, "chains", 10000, "number of token pairs to seed")
	flagSet.IntVar(&opts.concurrency, "concurrency", 128, "number of concurrent workers")
	flagSet.IntVar(&opts.ops, "ops", 100000, "rotations in the throughput phase")
	flagSet.IntVar(&opts.racers, "racers", 16, "concurrent Refresh calls per token in the race phase")
	flagSet.IntVar(&opts.races, "races", 1000, "tokens contended in the race phase")
	flagSet.StringVar(&opts.backend, "backend", "redis", "tracking backend: memory, redis or postgres")
	flagSet.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flagSet.StringVar(&opts.postgresDSN, "postgres-dsn", "", "postgres connection string; if empty, DATABASE_URL env is used")
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "YAML config file; defaults to the built-in test config")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if opts.chains <= 0 || opts.concurrency <= 0 || opts.ops <= 0 || opts.racers <= 1 || opts.races <= 0 {
		return errors.New("chains, concurrency, ops and races must be > 0 and racers > 1")
	}

	ctx := context.Background()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := jwtpair.TestConfig()
	if opts.configPath != "" {
		loaded, err := jwtpair.LoadConfigFile(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := jwtpair.New[int64]().WithConfig(cfg).WithLogger(logger)
	cleanup, err := attachBackend(ctx, builder, cfg, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	auth, err := builder.Build()
	if err != nil {
		return err
	}
	defer auth.Close()

	chains := make([]chain, opts.chains)
	fmt.Printf("seeding %d pairs...\n", opts.chains)
	startSeed := time.Now()
	for i := range chains {
		pair, err := auth.CreateTokenPair(ctx, int64(i))
		if err != nil {
			return fmt.Errorf("seed pair %d: %w", i, err)
		}
		chains[i].renewal = pair.Renewal
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	rotateStats := runRotatePhase(ctx, auth, chains, opts.ops, opts.concurrency)
	raceStats, violations, err := runRacePhase(ctx, auth, opts.races, opts.racers)
	if err != nil {
		return err
	}

	snapshot := auth.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("rotate", rotateStats)
	printStats("race", raceStats)
	fmt.Printf("reuse detected: %d, store failures: %d\n",
		snapshot.Counters[jwtpair.MetricRefreshReuseDetected],
		snapshot.Counters[jwtpair.MetricStoreFailure],
	)
	if violations > 0 {
		return fmt.Errorf("%d renewal tokens were consumed more than once", violations)
	}
	fmt.Println("single-winner rotation held for every contended token")
	return nil
}

func attachBackend(ctx context.Context, builder *jwtpair.Builder[int64], cfg jwtpair.Config, opts options) (func(), error) {
	switch opts.backend {
	case "memory":
		builder.WithStore(memory.NewStore())
		fmt.Println("using in-memory store")
		return func() {}, nil

	case "redis":
		addr := opts.redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start miniredis: %w", err)
			}
			client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
			builder.WithRedis(client)
			fmt.Printf("using miniredis at %s\n", mr.Addr())
			return func() {
				_ = client.Close()
				mr.Close()
			}, nil
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
		}
		builder.WithRedis(client)
		fmt.Printf("using redis at %s\n", addr)
		return func() { _ = client.Close() }, nil

	case "postgres":
		dsn := opts.postgresDSN
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		if dsn == "" {
			return nil, errors.New("postgres backend needs --postgres-dsn or DATABASE_URL")
		}
		pool, err := pgxpool.Connect(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgstore.NewStore(pool, cfg.Tracking.PostgresTable).EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		builder.WithPostgres(pool)
		fmt.Println("using postgres")
		return pool.Close, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", opts.backend)
	}
}

// runRotatePhase refreshes random chains; a per-chain lock keeps each
// chain's renewal token presented exactly once.
func runRotatePhase(ctx context.Context, auth *jwtpair.Authenticator[int64], chains []chain, ops, concurrency int) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := &chains[r.Intn(len(chains))]

				c.mu.Lock()
				t0 := time.Now()
				pair, err := auth.Refresh(ctx, c.renewal)
				d := time.Since(t0)
				if err == nil {
					c.renewal = pair.Renewal
				} else {
					atomic.AddInt64(&failures, 1)
				}
				c.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runRacePhase presents each fresh renewal token from racers goroutines at
// once and counts tokens with other than exactly one winner.
func runRacePhase(ctx context.Context, auth *jwtpair.Authenticator[int64], races, racers int) (phaseStats, int, error) {
	var (
		latencies  = make([]time.Duration, 0, races*racers)
		failures   int64
		violations int
		mu         sync.Mutex
	)

	start := time.Now()
	for i := 0; i < races; i++ {
		pair, err := auth.CreateTokenPair(ctx, int64(i))
		if err != nil {
			return phaseStats{}, 0, fmt.Errorf("race pair %d: %w", i, err)
		}

		var (
			wg      sync.WaitGroup
			winners int64
			gate    = make(chan struct{})
		)
		for r := 0; r < racers; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-gate
				t0 := time.Now()
				_, err := auth.Refresh(ctx, pair.Renewal)
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&winners, 1)
				case !errors.Is(err, jwtpair.ErrAlreadyUsed):
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		close(gate)
		wg.Wait()

		if winners != 1 {
			violations++
		}
	}
	return computeStats(time.Since(start), latencies, failures), violations, nil
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
