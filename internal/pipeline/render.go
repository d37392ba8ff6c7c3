package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// formatKPI renders v with thousands separators and the KPI's precision.
func formatKPI(k KPI, v float64) string {
	return k.Prefix + commaf(v, k.Precision) + k.Suffix
}

func commaf(v float64, precision int) string {
	switch {
	case precision <= 0:
		return humanize.FormatFloat("#,###.", v)
	case precision == 1:
		return humanize.FormatFloat("#,###.#", v)
	default:
		return humanize.FormatFloat("#,###.##", v)
	}
}

// Markdown renders the result as bracketed sections suitable for a terminal
// or a report file.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[BUSINESS SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Dataset: %s (%s)\n", r.Dataset.Title, r.Dataset.Name))
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", filepath.Base(r.Source)))
	}
	if r.Rows() < r.Loaded {
		b.WriteString(fmt.Sprintf("Rows: %s of %s loaded\n", humanize.Comma(int64(r.Rows())), humanize.Comma(int64(r.Loaded))))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %s\n", humanize.Comma(int64(r.Rows()))))
	}
	b.WriteString(fmt.Sprintf("Filters: %s\n", describeFilters(r.Filters)))

	if len(r.KPIs) > 0 {
		b.WriteString("\n[KPIS]\n")
		for _, k := range r.KPIs {
			b.WriteString(fmt.Sprintf("- %s: %s\n", k.Name, k.Display))
		}
	}

	if len(r.Rollups) > 0 {
		b.WriteString("\n[ROLLUPS]\n")
		for _, ru := range r.Rollups {
			writeRollup(&b, ru)
		}
	}

	if r.Segments != nil {
		b.WriteString("\n[SEGMENTS]\n")
		b.WriteString(fmt.Sprintf("k=%d on %s (seed %d, %d iterations)\n",
			r.Segments.K, strings.Join(r.Segments.Features, " × "), r.Segments.Seed, r.Segments.Iterations))
		for _, s := range r.Segments.Groups {
			b.WriteString(fmt.Sprintf("- %s (cluster %d, n=%s)", s.Label, s.Cluster, humanize.Comma(int64(s.Size))))
			parts := make([]string, 0, len(r.Segments.Features))
			for _, f := range r.Segments.Features {
				parts = append(parts, fmt.Sprintf("%s %s", f, commaf(s.Centroid[f], 2)))
			}
			if len(parts) > 0 {
				b.WriteString(": mean " + strings.Join(parts, ", "))
			}
			b.WriteString("\n")
		}
	} else if r.SegmentError != nil {
		b.WriteString("\n[SEGMENTS]\n")
		b.WriteString(fmt.Sprintf("Skipped: %v\n", r.SegmentError))
	}

	if n := r.sampleSize(); n > 0 {
		cols := r.Table.Columns()
		b.WriteString(fmt.Sprintf("\n[SAMPLE ROWS] (first %d)\n", n))
		b.WriteString("| ")
		for i, c := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(c.Name)
		}
		b.WriteString(" |\n| ")
		for i := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for i := 0; i < n; i++ {
			b.WriteString("| ")
			for j, v := range r.Table.Row(i) {
				if j > 0 {
					b.WriteString(" | ")
				}
				val := v.String()
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeRollup(b *strings.Builder, ru RollupResult) {
	b.WriteString(fmt.Sprintf("- %s:\n", ru.Name))
	if len(ru.Groups) == 0 && len(ru.Breakdowns) == 0 {
		b.WriteString("  • (no rows)\n")
		return
	}
	for _, g := range ru.Groups {
		b.WriteString(fmt.Sprintf("  • %s: %s (n=%d)\n", safeVal(g.Key), commaf(g.Value, 2), g.Count))
	}
	for _, bd := range ru.Breakdowns {
		parts := make([]string, 0, len(bd.Counts))
		for _, c := range bd.Counts {
			parts = append(parts, fmt.Sprintf("%s %d", safeVal(c.Key), c.Count))
		}
		b.WriteString(fmt.Sprintf("  • %s: %s\n", safeVal(bd.Key), strings.Join(parts, ", ")))
	}
}

func (r *Result) sampleSize() int {
	n := r.SampleRows
	if n > r.Rows() {
		n = r.Rows()
	}
	if n < 0 {
		return 0
	}
	return n
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// Snapshot is the JSON form of a Result.
type Snapshot struct {
	Dataset      string              `json:"dataset"`
	Source       string              `json:"source"`
	LoadID       string              `json:"load_id"`
	Loaded       int                 `json:"loaded"`
	Dropped      int                 `json:"dropped"`
	Rows         int                 `json:"rows"`
	Filters      map[string][]string `json:"filters,omitempty"`
	KPIs         []KPIValue          `json:"kpis"`
	Rollups      []RollupResult      `json:"rollups"`
	Segments     *Segments           `json:"segments,omitempty"`
	SegmentError string              `json:"segment_error,omitempty"`
	Sample       []map[string]any    `json:"sample,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// Snapshot converts the result to a JSON-friendly value. Sample rows map
// column names to their rendered values, with missing cells as null.
func (r *Result) Snapshot() Snapshot {
	s := Snapshot{
		Dataset:  r.Dataset.Name,
		Source:   r.Source,
		LoadID:   r.LoadID,
		Loaded:   r.Loaded,
		Dropped:  r.Dropped,
		Rows:     r.Rows(),
		KPIs:     r.KPIs,
		Rollups:  r.Rollups,
		Segments: r.Segments,
		Warnings: r.Warnings,
	}
	if len(r.Filters) > 0 {
		s.Filters = map[string][]string(r.Filters)
	}
	if r.SegmentError != nil {
		s.SegmentError = r.SegmentError.Error()
	}
	cols := r.Table.Columns()
	for i := 0; i < r.sampleSize(); i++ {
		row := make(map[string]any, len(cols))
		for j, v := range r.Table.Row(i) {
			if v.Missing {
				row[cols[j].Name] = nil
				continue
			}
			if f, ok := v.Number(); ok {
				row[cols[j].Name] = f
				continue
			}
			row[cols[j].Name] = v.String()
		}
		s.Sample = append(s.Sample, row)
	}
	return s
}

// FilterColumns lists the columns of opts in sorted order.
func FilterColumns(opts map[string][]FilterOption) []string {
	cols := make([]string, 0, len(opts))
	for c := range opts {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
