// Package stats computes per-set percentiles and composite scores,
// and groups resolvers into ties via robust uncertainty bands.
package stats

import (
	"math"
	"sort"
	"strconv"

	"github.com/taihen/resolvrank/internal/model"
)

// madScale converts MAD to an approximate normal-distribution sigma.
const madScale = 1.4826

// ComputeSetStats aggregates the outcomes of one (resolver, set)
// bucket into a model.SetStats. timeoutPenaltyMS is the configured
// query timeout in milliseconds, used both as the full-timeout score
// sentinel and as the per-timeout scoring penalty.
func ComputeSetStats(results []model.QueryResult, timeoutPenaltyMS float64) model.SetStats {
	var latencies []float64
	var nOk, nTimeout, nError int

	for _, r := range results {
		switch r.Kind {
		case model.OutcomeOk:
			nOk++
			latencies = append(latencies, r.LatencyMS)
		case model.OutcomeTimeout:
			nTimeout++
		case model.OutcomeProtocolError:
			nError++
		}
	}

	total := nOk + nTimeout + nError
	var timeoutRate float64
	if total > 0 {
		timeoutRate = float64(nTimeout) / float64(total)
	}

	s := model.SetStats{
		NOk:         nOk,
		NTimeout:    nTimeout,
		NError:      nError,
		TimeoutRate: timeoutRate,
	}

	if nOk == 0 {
		s.SetScore = timeoutPenaltyMS
		return s
	}

	sort.Float64s(latencies)
	s.HasPercentiles = true
	s.P50 = percentile(latencies, 50)
	s.P95 = percentile(latencies, 95)
	s.Mean = mean(latencies)
	s.StdDev = stddev(latencies, s.Mean)
	s.MAD = mad(latencies, s.P50)
	s.SetScore = s.P50 + 0.5*(s.P95-s.P50) + timeoutPenaltyMS*timeoutRate
	return s
}

// percentile returns the nearest-rank percentile p (0-100) of a
// sorted, non-empty slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Ceil(p*float64(n)/100.0)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// mad computes the median absolute deviation around center, scaled by
// 1.4826 to approximate a normal-distribution sigma.
func mad(xs []float64, center float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	devs := make([]float64, len(xs))
	for i, x := range xs {
		devs[i] = math.Abs(x - center)
	}
	sort.Float64s(devs)
	return madScale * percentile(devs, 50)
}

// OverallScore is the arithmetic mean of the warm and cold set scores;
// the TLD set is informational only and never enters it.
func OverallScore(warm, cold *model.SetStats) float64 {
	var w, c float64
	if warm != nil {
		w = warm.SetScore
	}
	if cold != nil {
		c = cold.SetScore
	}
	return (w + c) / 2.0
}

// OverallUncertainty is the mean of the warm and cold scaled MADs.
func OverallUncertainty(warm, cold *model.SetStats) float64 {
	var w, c float64
	if warm != nil {
		w = warm.MAD
	}
	if cold != nil {
		c = cold.MAD
	}
	return (w + c) / 2.0
}

// AssignTieGroups sorts resolvers by overall score ascending and walks
// the list, joining a resolver to the current tie group when its score
// falls within the combined uncertainty band of itself and the
// group's minimum-score member. Tie membership is written back into
// each ResolverStats' TieGroup and Rank fields.
func AssignTieGroups(resolvers []*model.ResolverStats) {
	sort.SliceStable(resolvers, func(i, j int) bool {
		return resolvers[i].OverallScore < resolvers[j].OverallScore
	})

	n := len(resolvers)
	groupStart := 0
	for i := 1; i <= n; i++ {
		if i < n {
			cur := resolvers[i]
			groupMin := resolvers[groupStart]
			if math.Abs(cur.OverallScore-groupMin.OverallScore) <= cur.Uncertainty+groupMin.Uncertainty {
				continue // cur joins the current group
			}
		}
		labelGroup(resolvers, groupStart, i-1)
		groupStart = i
	}
}

// labelGroup assigns rank/tie-group labels to resolvers[start:end]
// (inclusive), using 1-based ranks.
func labelGroup(resolvers []*model.ResolverStats, start, end int) {
	lo, hi := start+1, end+1
	label := strconv.Itoa(lo)
	if lo != hi {
		label += "-" + strconv.Itoa(hi)
	}
	for i := start; i <= end; i++ {
		resolvers[i].TieGroup = label
		resolvers[i].Rank = lo
	}
}
