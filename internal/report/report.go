// Package report renders ranked resolver statistics as an aligned
// console table or as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/taihen/resolvrank/internal/model"
)

// WriteTable renders results as an aligned, tab-separated table.
func WriteTable(w io.Writer, results []model.ResolverStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"Rank", "Resolver", "Warm p50", "Warm p95", "Cold p50", "Cold p95", "Timeout%", "Score", "Tie", "NXDOMAIN"}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Repeat("-\t", len(header)))

	for _, res := range results {
		row := []string{
			strconv.Itoa(res.Rank),
			res.Resolver.String(),
			formatSetLatency(res.Warm, func(s *model.SetStats) float64 { return s.P50 }),
			formatSetLatency(res.Warm, func(s *model.SetStats) float64 { return s.P95 }),
			formatSetLatency(res.Cold, func(s *model.SetStats) float64 { return s.P50 }),
			formatSetLatency(res.Cold, func(s *model.SetStats) float64 { return s.P95 }),
			formatTimeoutRate(res),
			fmt.Sprintf("%.1f", res.OverallScore),
			res.TieGroup,
			formatBool(res.InterceptsNXDOMAIN, "Hijacks", "No"),
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

// WriteCSV renders results as CSV, one row per resolver, preserving
// rank order.
func WriteCSV(w io.Writer, results []model.ResolverStats) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"Rank", "Resolver", "Address",
		"WarmP50Ms", "WarmP95Ms", "WarmTimeoutRate",
		"ColdP50Ms", "ColdP95Ms", "ColdTimeoutRate",
		"OverallScore", "Uncertainty", "TieGroup", "InterceptsNXDOMAIN",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}

	for _, res := range results {
		row := []string{
			strconv.Itoa(res.Rank),
			res.Resolver.Label,
			res.Addr,
			formatCSVFloat(res.Warm, func(s *model.SetStats) float64 { return s.P50 }),
			formatCSVFloat(res.Warm, func(s *model.SetStats) float64 { return s.P95 }),
			formatCSVFloat(res.Warm, func(s *model.SetStats) float64 { return s.TimeoutRate }),
			formatCSVFloat(res.Cold, func(s *model.SetStats) float64 { return s.P50 }),
			formatCSVFloat(res.Cold, func(s *model.SetStats) float64 { return s.P95 }),
			formatCSVFloat(res.Cold, func(s *model.SetStats) float64 { return s.TimeoutRate }),
			strconv.FormatFloat(res.OverallScore, 'f', 3, 64),
			strconv.FormatFloat(res.Uncertainty, 'f', 3, 64),
			res.TieGroup,
			strconv.FormatBool(res.InterceptsNXDOMAIN),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write csv row for %s: %w", res.Addr, err)
		}
	}
	return cw.Error()
}

func formatSetLatency(s *model.SetStats, pick func(*model.SetStats) float64) string {
	if s == nil || !s.HasPercentiles {
		return "N/A"
	}
	return fmt.Sprintf("%.1fms", pick(s))
}

func formatCSVFloat(s *model.SetStats, pick func(*model.SetStats) float64) string {
	if s == nil {
		return ""
	}
	return strconv.FormatFloat(pick(s), 'f', 3, 64)
}

func formatTimeoutRate(res model.ResolverStats) string {
	if res.Warm == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", res.Warm.TimeoutRate*100)
}

func formatBool(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
