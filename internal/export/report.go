package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
)

// reportTopRows caps the flagged rows listed in a report.
const reportTopRows = 10

// Report renders a markdown data quality report.
func Report(p *analysis.DatasetProfile, rs []rules.Rule, an anomaly.Result, h analysis.Health) string {
	var b strings.Builder
	b.WriteString("# Data Quality Report\n\n")
	if p.Name != "" {
		fmt.Fprintf(&b, "Source: `%s`\n\n", p.Name)
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Rows: %d\n", p.Rows)
	fmt.Fprintf(&b, "- Columns: %d\n", p.Cols)
	fmt.Fprintf(&b, "- Duplicate rows: %d (%.1f%%)\n\n", p.Duplicates, p.DuplicatePct)

	b.WriteString("## Health\n\n")
	fmt.Fprintf(&b, "- Score: %.1f / 100\n", h.Score)
	fmt.Fprintf(&b, "- Average missing: %.1f%%\n", h.MissingPct)
	fmt.Fprintf(&b, "- Duplicates: %.1f%%\n", h.DuplicatePct)
	fmt.Fprintf(&b, "- Anomalies: %.1f%%\n\n", h.AnomalyPct)

	b.WriteString("## Columns\n\n")
	b.WriteString("| Column | Type | Missing % | Unique | Min | Max | Mean |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|\n")
	for _, name := range p.Order {
		c := p.Columns[name]
		if c == nil {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %.1f | %d | %s | %s | %s |\n",
			analysis.SafeVal(analysis.SafeName(name)), c.Type, c.MissingPct, c.Unique, num(c.Min), num(c.Max), num(c.Mean))
	}
	b.WriteString("\n")

	b.WriteString("## Accepted Rules\n\n")
	if len(rs) == 0 {
		b.WriteString("No rules accepted.\n\n")
	} else {
		for _, r := range rs {
			fmt.Fprintf(&b, "- `%s`\n", r.String())
		}
		b.WriteString("\n")
	}

	b.WriteString("## Anomalies\n\n")
	if len(an.Flagged) == 0 {
		b.WriteString("No anomalies flagged.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Flagged %d of %d rows.\n\n", len(an.Flagged), len(an.Scores))
	top := append([]anomaly.FlaggedRow(nil), an.Flagged...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > reportTopRows {
		top = top[:reportTopRows]
	}
	b.WriteString("| Row | Score | Top deviation | Values |\n")
	b.WriteString("|---:|---:|---|---|\n")
	for _, f := range top {
		cells := make([]string, len(f.Values))
		for i, v := range f.Values {
			name := ""
			if i < len(an.Columns) {
				name = an.Columns[i] + "="
			}
			cells[i] = name + dataset.Format(v)
		}
		fmt.Fprintf(&b, "| %d | %.3f | %s | %s |\n", f.Row, f.Score, analysis.SafeVal(f.TopDeviationCol), analysis.SafeVal(strings.Join(cells, ", ")))
	}
	return b.String()
}

func num(f *float64) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%.4g", *f)
}

// WriteReport writes markdown to report.md under dir.
func WriteReport(dir, markdown string) (string, error) {
	path, err := writeFile(dir, ReportFile, []byte(markdown))
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
