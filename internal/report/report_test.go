package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taihen/resolvrank/internal/model"
)

func sampleResults() []model.ResolverStats {
	return []model.ResolverStats{
		{
			Resolver:     model.Resolver{Addr: "1.1.1.1:53", Label: "Cloudflare"},
			Addr:         "1.1.1.1:53",
			Warm:         &model.SetStats{P50: 10, P95: 20, TimeoutRate: 0, HasPercentiles: true},
			Cold:         &model.SetStats{P50: 30, P95: 40, TimeoutRate: 0, HasPercentiles: true},
			OverallScore: 15,
			Uncertainty:  1,
			TieGroup:     "1",
			Rank:         1,
		},
		{
			Resolver:           model.Resolver{Addr: "9.9.9.9:53", Label: "Quad9"},
			Addr:               "9.9.9.9:53",
			Warm:               &model.SetStats{P50: 12, P95: 22, TimeoutRate: 0.05, HasPercentiles: true},
			Cold:               nil,
			InterceptsNXDOMAIN: true,
			OverallScore:       18,
			Uncertainty:        1,
			TieGroup:           "2",
			Rank:               2,
		},
	}
}

func TestWriteTable_ContainsAllResolvers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResults()))
	out := buf.String()
	assert.Contains(t, out, "Cloudflare")
	assert.Contains(t, out, "Quad9")
	assert.Contains(t, out, "Hijacks")
}

func TestWriteTable_MissingSetRendersNA(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResults()))
	lines := strings.Split(buf.String(), "\n")
	found := false
	for _, l := range lines {
		if strings.Contains(l, "Quad9") {
			assert.Contains(t, l, "N/A")
			found = true
		}
	}
	assert.True(t, found, "expected a row for Quad9")
}

func TestWriteCSV_HeaderAndRowCount(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3) // header + 2 rows
	assert.Contains(t, lines[0], "Rank")
	assert.Contains(t, lines[1], "1.1.1.1:53")
}

func TestWriteCSV_EmptyResultsStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Contains(t, buf.String(), "Rank")
}
