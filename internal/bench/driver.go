// Package bench implements the benchmark driver: task enumeration,
// seeded shuffling, semaphore-bounded concurrent execution with
// inter-query launch spacing, and per-(resolver, set) result
// collection.
package bench

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/taihen/resolvrank/internal/model"
)

// QueryFunc performs a single DNS transaction; production code passes
// dnscore.Query, tests substitute a fake to avoid real network I/O.
type QueryFunc func(ctx context.Context, resolverAddr, domain string, qtype model.QType, timeout time.Duration, dnssec bool) model.QueryResult

// DomainSets holds the three workloads. TLD may be empty.
type DomainSets struct {
	Warm []string
	Cold []string
	TLD  []string
}

// Config parametrizes one benchmark run.
type Config struct {
	Rounds      int
	Timeout     time.Duration
	Concurrency int
	Spacing     time.Duration
	AAAA        bool
	DNSSEC      bool
	Seed        uint64
}

// Driver schedules and executes all query tasks for a benchmark run.
type Driver struct {
	QueryFunc QueryFunc
}

// NewDriver builds a Driver that executes every task through queryFunc.
func NewDriver(queryFunc QueryFunc) *Driver {
	return &Driver{QueryFunc: queryFunc}
}

// Buckets is the per-resolver, per-set collection of query results.
// The resolver key is always the canonical address string, used
// identically regardless of whether the task succeeded, timed out, or
// errored.
type Buckets map[string]map[model.SetName][]model.QueryResult

// Run enumerates, shuffles, and executes every (resolver, set, domain,
// qtype, round) task, respecting the global concurrency permit and
// inter-launch spacing, and returns the collected result buckets.
func (d *Driver) Run(ctx context.Context, resolvers []model.Resolver, sets DomainSets, cfg Config) Buckets {
	tasks := EnumerateTasks(resolvers, sets, cfg)
	ShuffleTasks(tasks, cfg.Seed)

	buckets := make(Buckets, len(resolvers))
	for _, r := range resolvers {
		buckets[r.Addr] = make(map[model.SetName][]model.QueryResult)
	}
	var mu sync.Mutex

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))

	var limiter *rate.Limiter
	if cfg.Spacing > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Spacing), 1)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	var wg conc.WaitGroup
	for _, task := range tasks {
		task := task

		_ = limiter.Wait(ctx)
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled (process shutdown): abandon remaining tasks.
			break
		}

		wg.Go(func() {
			defer sem.Release(1)
			res := d.QueryFunc(ctx, task.ResolverAddr, task.Domain, task.QType, cfg.Timeout, cfg.DNSSEC)
			mu.Lock()
			buckets[task.ResolverAddr][task.SetName] = append(buckets[task.ResolverAddr][task.SetName], res)
			mu.Unlock()
		})
	}
	wg.Wait()

	return buckets
}

// EnumerateTasks produces one QueryTask per (resolver, set, domain,
// qtype, round). A and AAAA are both emitted per (domain, round) when
// cfg.AAAA is set; otherwise only A.
func EnumerateTasks(resolvers []model.Resolver, sets DomainSets, cfg Config) []model.QueryTask {
	named := []struct {
		name    model.SetName
		domains []string
	}{
		{model.SetWarm, sets.Warm},
		{model.SetCold, sets.Cold},
		{model.SetTLD, sets.TLD},
	}

	qtypes := []model.QType{model.QTypeA}
	if cfg.AAAA {
		qtypes = append(qtypes, model.QTypeAAAA)
	}

	var tasks []model.QueryTask
	for _, r := range resolvers {
		for _, set := range named {
			if len(set.domains) == 0 {
				continue
			}
			for round := 0; round < cfg.Rounds; round++ {
				for _, domain := range set.domains {
					for _, qt := range qtypes {
						tasks = append(tasks, model.QueryTask{
							ResolverAddr: r.Addr,
							Domain:       domain,
							QType:        qt,
							SetName:      set.name,
							RoundIndex:   round,
						})
					}
				}
			}
		}
	}
	return tasks
}

// ShuffleTasks deterministically reorders tasks using a seeded RNG, so
// no single resolver is bursted and repeated runs with the same seed
// produce bit-identical task order.
func ShuffleTasks(tasks []model.QueryTask, seed uint64) {
	rng := rand.New(rand.NewSource(int64(seed)))
	rng.Shuffle(len(tasks), func(i, j int) {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	})
}
