package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/ledgermark/internal/result"
)

type MethodSummary struct {
	Contract     string  `json:"contract"`
	Method       string  `json:"method"`
	ReadOnly     bool    `json:"readonly"`
	Invocations  int     `json:"invocations"`
	SuccessRate  float64 `json:"success_rate"`
	VerifiedRate float64 `json:"verified_rate"`
	MeanMS       float64 `json:"mean_ms"`
	P95MS        int64   `json:"p95_ms"`
	MeanPolls    float64 `json:"mean_polls"`
}

// Generate aggregates invocation records per contract method and writes a
// summary in the requested format.
func Generate(records []*result.Record, format string, w io.Writer) error {
	summaries := aggregate(records)
	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func aggregate(records []*result.Record) []MethodSummary {
	type accum struct {
		readOnly  bool
		count     int
		succeeded int
		verified  int
		totalMS   int64
		polls     int
		durations []int64
	}
	byMethod := map[string]*accum{}

	for _, r := range records {
		key := r.Contract + "." + r.Method
		a, ok := byMethod[key]
		if !ok {
			a = &accum{readOnly: r.ReadOnly}
			byMethod[key] = a
		}
		a.count++
		a.totalMS += r.DurationMS
		a.polls += r.Polls
		a.durations = append(a.durations, r.DurationMS)
		if r.Succeeded {
			a.succeeded++
		}
		if r.Verified {
			a.verified++
		}
	}

	var summaries []MethodSummary
	for key, a := range byMethod {
		contract, method, _ := strings.Cut(key, ".")
		summaries = append(summaries, MethodSummary{
			Contract:     contract,
			Method:       method,
			ReadOnly:     a.readOnly,
			Invocations:  a.count,
			SuccessRate:  float64(a.succeeded) / float64(a.count),
			VerifiedRate: float64(a.verified) / float64(a.count),
			MeanMS:       float64(a.totalMS) / float64(a.count),
			P95MS:        percentile(a.durations, 0.95),
			MeanPolls:    float64(a.polls) / float64(a.count),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Contract != summaries[j].Contract {
			return summaries[i].Contract < summaries[j].Contract
		}
		return summaries[i].Method < summaries[j].Method
	})
	return summaries
}

func percentile(durations []int64, p float64) int64 {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]int64, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func mode(readOnly bool) string {
	if readOnly {
		return "read"
	}
	return "write"
}

func writeTable(summaries []MethodSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTRACT\tMETHOD\tMODE\tCALLS\tSUCCESS\tVERIFIED\tMEAN MS\tP95 MS\tMEAN POLLS")
	fmt.Fprintln(tw, strings.Repeat("-", 90))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.0f%%\t%.0f%%\t%.1f\t%d\t%.1f\n",
			s.Contract, s.Method, mode(s.ReadOnly), s.Invocations,
			s.SuccessRate*100, s.VerifiedRate*100, s.MeanMS, s.P95MS, s.MeanPolls)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []MethodSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Contract | Method | Mode | Calls | Success | Verified | Mean ms | p95 ms | Mean polls |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s | %d | %.0f%% | %.0f%% | %.1f | %d | %.1f |\n",
			s.Contract, s.Method, mode(s.ReadOnly), s.Invocations,
			s.SuccessRate*100, s.VerifiedRate*100, s.MeanMS, s.P95MS, s.MeanPolls)
	}
	return nil
}

func writeJSON(summaries []MethodSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
