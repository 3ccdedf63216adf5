// Package discover implements the two-phase discovery prefilter: a
// fast reachability screen followed by a short warm-only benchmark
// that ranks and shortlists survivors.
package discover

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"

	"github.com/taihen/resolvrank/internal/bench"
	"github.com/taihen/resolvrank/internal/model"
	"github.com/taihen/resolvrank/internal/stats"
)

// Mode controls whether discovery activates.
type Mode int

const (
	Auto Mode = iota
	On
	Off
)

// DefaultThreshold is the resolver-count above which Auto activates
// discovery.
const DefaultThreshold = 20

// DefaultTopN is the default survivor cap after phase 2.
const DefaultTopN = 50

// phase1Timeout is fixed regardless of the user's benchmark timeout.
const phase1Timeout = 1 * time.Second

// ShouldActivate decides whether discovery runs for this resolver count.
func ShouldActivate(mode Mode, resolverCount, threshold int) bool {
	switch mode {
	case On:
		return true
	case Off:
		return false
	default:
		return resolverCount > threshold
	}
}

// Config parametrizes a discovery run.
type Config struct {
	Concurrency int
	Timeout     time.Duration // normal benchmark timeout, used in phase 2
	TopN        int
}

// Run executes phase 1 then phase 2 and returns the surviving,
// ranked resolvers (at most TopN, possibly fewer).
func Run(ctx context.Context, resolvers []model.Resolver, warmDomains []string, queryFunc bench.QueryFunc, cfg Config) []model.Resolver {
	survivors := phase1(ctx, resolvers, warmDomains, queryFunc, cfg.Concurrency)
	return phase2(ctx, survivors, warmDomains, queryFunc, cfg)
}

// phase1 is the fast reachability screen: up to 2 A queries per
// resolver against warm domains at a strict 1s timeout; a resolver
// survives if at least one response validates, and its second query
// is skipped once the first one validates.
func phase1(ctx context.Context, resolvers []model.Resolver, warmDomains []string, queryFunc bench.QueryFunc, concurrency int) []model.Resolver {
	if len(warmDomains) == 0 || len(resolvers) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	var mu sync.Mutex
	var survivors []model.Resolver

	var wg conc.WaitGroup
	for _, r := range resolvers {
		r := r
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Go(func() {
			defer sem.Release(1)
			ok := false
			for i := 0; i < 2; i++ {
				domain := warmDomains[i%len(warmDomains)]
				res := queryFunc(ctx, r.Addr, domain, model.QTypeA, phase1Timeout, false)
				if res.Kind == model.OutcomeOk && res.Validated {
					ok = true
					break
				}
			}
			if ok {
				mu.Lock()
				survivors = append(survivors, r)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return survivors
}

// phase2 runs one warm-only round against survivors at the normal
// timeout, ranks them by warm p50 ascending, and returns the top N.
// Resolvers with zero successful queries are dropped regardless of N.
func phase2(ctx context.Context, resolvers []model.Resolver, warmDomains []string, queryFunc bench.QueryFunc, cfg Config) []model.Resolver {
	if len(resolvers) == 0 || len(warmDomains) == 0 {
		return nil
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	var mu sync.Mutex
	results := make(map[string][]model.QueryResult, len(resolvers))

	var wg conc.WaitGroup
	for _, r := range resolvers {
		r := r
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Go(func() {
			defer sem.Release(1)
			var bucket []model.QueryResult
			for _, domain := range warmDomains {
				res := queryFunc(ctx, r.Addr, domain, model.QTypeA, cfg.Timeout, false)
				bucket = append(bucket, res)
			}
			mu.Lock()
			results[r.Addr] = bucket
			mu.Unlock()
		})
	}
	wg.Wait()

	type ranked struct {
		resolver model.Resolver
		p50      float64
	}
	var survivors []ranked
	for _, r := range resolvers {
		s := stats.ComputeSetStats(results[r.Addr], float64(cfg.Timeout.Milliseconds()))
		if !s.HasPercentiles {
			continue // no successful queries in phase 2: dropped regardless of N
		}
		survivors = append(survivors, ranked{resolver: r, p50: s.P50})
	}

	sort.SliceStable(survivors, func(i, j int) bool { return survivors[i].p50 < survivors[j].p50 })

	topN := cfg.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(survivors) > topN {
		survivors = survivors[:topN]
	}

	out := make([]model.Resolver, len(survivors))
	for i, s := range survivors {
		out[i] = s.resolver
	}
	return out
}
