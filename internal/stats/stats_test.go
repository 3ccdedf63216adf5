package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taihen/resolvrank/internal/model"
)

func okResult(ms float64) model.QueryResult {
	return model.QueryResult{Kind: model.OutcomeOk, LatencyMS: ms, Validated: true}
}

func TestComputeSetStats_AllTimeouts(t *testing.T) {
	results := []model.QueryResult{
		{Kind: model.OutcomeTimeout},
		{Kind: model.OutcomeTimeout},
	}
	s := ComputeSetStats(results, 2000)
	assert.Equal(t, 0, s.NOk)
	assert.False(t, s.HasPercentiles)
	assert.Equal(t, 1.0, s.TimeoutRate)
	assert.Equal(t, 2000.0, s.SetScore)
}

func TestComputeSetStats_SingleSuccess(t *testing.T) {
	s := ComputeSetStats([]model.QueryResult{okResult(42)}, 2000)
	require.True(t, s.HasPercentiles)
	assert.Equal(t, 42.0, s.P50)
	assert.Equal(t, 42.0, s.P95)
	assert.Equal(t, 0.0, s.MAD)
}

func TestComputeSetStats_ScoringExample(t *testing.T) {
	// p50=10, p95=20, timeout_rate=0, timeout penalty=2000 => score 15
	results := make([]model.QueryResult, 0, 10)
	latencies := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 20}
	for _, l := range latencies {
		results = append(results, okResult(l))
	}
	s := ComputeSetStats(results, 2000)
	assert.InDelta(t, 10.0, s.P50, 0.001)
	assert.InDelta(t, 20.0, s.P95, 0.001)
	assert.InDelta(t, 15.0, s.SetScore, 0.001)
}

func TestComputeSetStats_TimeoutPenaltyExample(t *testing.T) {
	// p50=50, p95=80, 1/10 timeouts, timeout penalty=2000 => score 265
	var results []model.QueryResult
	for i := 0; i < 8; i++ {
		results = append(results, okResult(50))
	}
	results = append(results, okResult(80))
	// 9 ok (p50=50,p95=80 approx) + 1 timeout => total 10
	results = append(results, model.QueryResult{Kind: model.OutcomeTimeout})

	s := ComputeSetStats(results, 2000)
	assert.InDelta(t, 0.1, s.TimeoutRate, 0.0001)
	assert.InDelta(t, 50.0, s.P50, 0.001)
	assert.InDelta(t, 80.0, s.P95, 0.001)
	expected := 50.0 + 0.5*(80.0-50.0) + 2000.0*0.1
	assert.InDelta(t, expected, s.SetScore, 0.001)
}

func TestComputeSetStats_Invariant_NCounts(t *testing.T) {
	results := []model.QueryResult{
		okResult(1), okResult(2),
		{Kind: model.OutcomeTimeout},
		{Kind: model.OutcomeProtocolError},
	}
	s := ComputeSetStats(results, 1000)
	assert.Equal(t, 4, s.NOk+s.NTimeout+s.NError)
}

func TestComputeSetStats_P50LessThanOrEqualP95(t *testing.T) {
	results := []model.QueryResult{okResult(5), okResult(15), okResult(25), okResult(100)}
	s := ComputeSetStats(results, 1000)
	assert.LessOrEqual(t, s.P50, s.P95)
}

func TestComputeSetStats_Monotonicity(t *testing.T) {
	base := []model.QueryResult{okResult(10), okResult(10), okResult(10), okResult(10)}
	low := ComputeSetStats(base, 1000)

	withTimeout := append(append([]model.QueryResult{}, base[:3]...), model.QueryResult{Kind: model.OutcomeTimeout})
	high := ComputeSetStats(withTimeout, 1000)

	assert.Greater(t, high.SetScore, low.SetScore)
}

func TestAssignTieGroups_TieExample(t *testing.T) {
	// scores {20,21,22}, uncertainties {2,2,2} => all tie, ranked "1-3"
	rs := []*model.ResolverStats{
		{Resolver: model.Resolver{Addr: "a"}, OverallScore: 22, Uncertainty: 2},
		{Resolver: model.Resolver{Addr: "b"}, OverallScore: 20, Uncertainty: 2},
		{Resolver: model.Resolver{Addr: "c"}, OverallScore: 21, Uncertainty: 2},
	}
	AssignTieGroups(rs)
	for _, r := range rs {
		assert.Equal(t, "1-3", r.TieGroup)
	}
}

func TestAssignTieGroups_Singletons(t *testing.T) {
	rs := []*model.ResolverStats{
		{Resolver: model.Resolver{Addr: "a"}, OverallScore: 10, Uncertainty: 0.1},
		{Resolver: model.Resolver{Addr: "b"}, OverallScore: 500, Uncertainty: 0.1},
	}
	AssignTieGroups(rs)
	assert.Equal(t, "1", rs[0].TieGroup)
	assert.Equal(t, "2", rs[1].TieGroup)
}

func TestAssignTieGroups_Symmetric(t *testing.T) {
	// If A ties B, B ties A: verify by checking group membership is
	// consistent regardless of initial slice order.
	mk := func() []*model.ResolverStats {
		return []*model.ResolverStats{
			{Resolver: model.Resolver{Addr: "a"}, OverallScore: 10, Uncertainty: 3},
			{Resolver: model.Resolver{Addr: "b"}, OverallScore: 12, Uncertainty: 3},
		}
	}
	rs1 := mk()
	AssignTieGroups(rs1)
	assert.Equal(t, rs1[0].TieGroup, rs1[1].TieGroup)

	rs2 := []*model.ResolverStats{mk()[1], mk()[0]}
	AssignTieGroups(rs2)
	assert.Equal(t, rs2[0].TieGroup, rs2[1].TieGroup)
}

func TestOverallScore_IsMeanOfWarmAndCold_ExcludesTLD(t *testing.T) {
	warm := &model.SetStats{SetScore: 10}
	cold := &model.SetStats{SetScore: 20}
	assert.Equal(t, 15.0, OverallScore(warm, cold))
}
