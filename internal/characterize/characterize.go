// Package characterize detects resolvers that hijack NXDOMAIN
// responses by issuing one A query per reserved-TLD test domain and
// checking for synthesized answers.
package characterize

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"

	"github.com/taihen/resolvrank/internal/bench"
	"github.com/taihen/resolvrank/internal/model"
)

// DefaultConcurrency is the recommended dedicated permit count so
// characterization does not saturate the local network stack.
const DefaultConcurrency = 32

// DefaultTestDomains are names under the reserved .invalid TLD that
// must always yield NXDOMAIN from a non-hijacking resolver.
var DefaultTestDomains = []string{
	"resolvrank-nxdomain-check-1.invalid.",
	"resolvrank-nxdomain-check-2.invalid.",
}

// Config parametrizes a characterization run.
type Config struct {
	Concurrency int
	Timeout     time.Duration
	TestDomains []string
}

// Run probes each resolver once per test domain, stopping at the first
// synthesized answer, and returns a map from canonical resolver address
// to whether it intercepts NXDOMAIN.
// Characterization produces no latency data used for scoring and
// should run only against resolvers that already survived discovery.
func Run(ctx context.Context, resolvers []model.Resolver, queryFunc bench.QueryFunc, cfg Config) map[string]bool {
	domains := cfg.TestDomains
	if len(domains) == 0 {
		domains = DefaultTestDomains
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	var mu sync.Mutex
	intercepts := make(map[string]bool, len(resolvers))

	var wg conc.WaitGroup
	for _, r := range resolvers {
		r := r
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Go(func() {
			defer sem.Release(1)
			hijacks := false
			for _, domain := range domains {
				res := queryFunc(ctx, r.Addr, domain, model.QTypeA, cfg.Timeout, false)
				if res.Kind == model.OutcomeOk && res.Validated && res.Rcode == model.RcodeSuccess && res.HasARecords {
					hijacks = true
					break
				}
			}
			mu.Lock()
			intercepts[r.Addr] = hijacks
			mu.Unlock()
		})
	}
	wg.Wait()

	return intercepts
}
