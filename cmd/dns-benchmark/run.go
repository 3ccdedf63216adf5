package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/taihen/resolvrank/internal/bench"
	"github.com/taihen/resolvrank/internal/characterize"
	"github.com/taihen/resolvrank/internal/config"
	"github.com/taihen/resolvrank/internal/discover"
	"github.com/taihen/resolvrank/internal/dnscore"
	"github.com/taihen/resolvrank/internal/model"
	"github.com/taihen/resolvrank/internal/report"
	"github.com/taihen/resolvrank/internal/resolverfile"
	"github.com/taihen/resolvrank/internal/stats"
	"github.com/taihen/resolvrank/internal/sysresolv"
)

func run(args []string, stdout io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "resolvrank version %s\n", version)
		return 0
	}

	resolvers, err := collectResolvers(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(resolvers) == 0 {
		fmt.Fprintln(os.Stderr, "resolvrank: no resolver candidates (use --servers and/or --system)")
		return 1
	}

	warmDomains, err := loadDomains(cfg.WarmDomainsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	coldDomains, err := loadDomains(cfg.ColdDomainsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	tldDomains, err := loadDomains(cfg.TLDDomainsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx := context.Background()

	candidates := resolvers
	if discover.ShouldActivate(cfg.Discover, len(resolvers), discover.DefaultThreshold) && len(warmDomains) > 0 {
		fmt.Fprintf(stdout, "Discovering reachable resolvers among %d candidates...\n", len(resolvers))
		candidates = discover.Run(ctx, resolvers, warmDomains, dnscore.Query, discover.Config{
			Concurrency: cfg.Concurrency,
			Timeout:     cfg.Timeout(),
			TopN:        cfg.TopN,
		})
		fmt.Fprintf(stdout, "%d resolvers survived discovery.\n", len(candidates))
	}

	intercepts := characterize.Run(ctx, candidates, dnscore.Query, characterize.Config{
		Concurrency: characterize.DefaultConcurrency,
		Timeout:     cfg.Timeout(),
	})

	fmt.Fprintln(stdout, "Running benchmark...")
	driver := bench.NewDriver(dnscore.Query)
	buckets := driver.Run(ctx, candidates, bench.DomainSets{
		Warm: warmDomains,
		Cold: coldDomains,
		TLD:  tldDomains,
	}, bench.Config{
		Rounds:      cfg.Rounds,
		Timeout:     cfg.Timeout(),
		Concurrency: cfg.Concurrency,
		Spacing:     cfg.Spacing(),
		AAAA:        cfg.AAAA,
		DNSSEC:      cfg.DNSSEC,
		Seed:        cfg.Seed,
	})
	fmt.Fprintln(stdout, "Benchmark finished.")

	results := buildResults(candidates, buckets, intercepts, cfg)
	results = filterSlowResolvers(results, cfg.MaxResolverMS)
	rankResults(results)

	outputWriter, cleanup, err := openOutput(cfg.OutputFile, stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	switch cfg.OutputFormat {
	case "csv":
		err = report.WriteCSV(outputWriter, results)
	default:
		err = report.WriteTable(outputWriter, results)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

// collectResolvers merges explicit resolver-file entries with system
// resolvers (best-effort; a failed system lookup is a warning, not a
// fatal error as long as some other source produced candidates).
func collectResolvers(cfg *config.Config) ([]model.Resolver, error) {
	var all []model.Resolver

	if cfg.ServersFile != "" {
		fromFile, err := resolverfile.Parse(cfg.ServersFile)
		if err != nil {
			return nil, err
		}
		all = append(all, fromFile...)
	}

	if cfg.IncludeSystemDNS {
		sys, err := sysresolv.Discover()
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolvrank: system resolver discovery skipped: %v\n", err)
		} else {
			all = append(all, sys...)
		}
	}

	return resolverfile.Dedup(all), nil
}

func buildResults(resolvers []model.Resolver, buckets bench.Buckets, intercepts map[string]bool, cfg *config.Config) []model.ResolverStats {
	penalty := float64(cfg.TimeoutMS)
	out := make([]model.ResolverStats, 0, len(resolvers))
	for _, r := range resolvers {
		sets := buckets[r.Addr]

		var warm, cold, tld *model.SetStats
		if s, ok := sets[model.SetWarm]; ok && len(s) > 0 {
			ss := stats.ComputeSetStats(s, penalty)
			warm = &ss
		}
		if s, ok := sets[model.SetCold]; ok && len(s) > 0 {
			ss := stats.ComputeSetStats(s, penalty)
			cold = &ss
		}
		if s, ok := sets[model.SetTLD]; ok && len(s) > 0 {
			ss := stats.ComputeSetStats(s, penalty)
			tld = &ss
		}

		out = append(out, model.ResolverStats{
			Resolver:           r,
			Addr:               r.Addr,
			Warm:               warm,
			Cold:               cold,
			TLD:                tld,
			InterceptsNXDOMAIN: intercepts[r.Addr],
			OverallScore:       stats.OverallScore(warm, cold),
			Uncertainty:        stats.OverallUncertainty(warm, cold),
		})
	}
	return out
}

// filterSlowResolvers drops resolvers whose warm p50 exceeds
// maxResolverMS. Resolvers with no warm data are kept; the benchmark
// simply had nothing to measure for them.
func filterSlowResolvers(results []model.ResolverStats, maxResolverMS float64) []model.ResolverStats {
	if maxResolverMS <= 0 {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.Warm != nil && r.Warm.HasPercentiles && r.Warm.P50 > maxResolverMS {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func rankResults(results []model.ResolverStats) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore < results[j].OverallScore
	})

	ptrs := make([]*model.ResolverStats, len(results))
	for i := range results {
		results[i].Rank = i + 1
		ptrs[i] = &results[i]
	}
	stats.AssignTieGroups(ptrs)
}

func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
