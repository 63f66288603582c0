package rules

import (
	"strings"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
)

const (
	// maxAllowedValues is the largest top-values set turned into an allowed_values rule.
	maxAllowedValues = 10
	// fillMissingPct is the missing percentage above which a fill rule is suggested.
	fillMissingPct = 5.0
)

// Suggest derives candidate rules from a profile. Columns are visited in
// profile order; each heuristic fires independently so one column can yield
// several rules. Nothing is deduplicated.
func Suggest(p *analysis.DatasetProfile) []Rule {
	var out []Rule
	for _, name := range p.Order {
		meta := p.Columns[name]
		if meta == nil {
			continue
		}
		lower := strings.ToLower(name)

		if strings.Contains(lower, "id") || strings.Contains(lower, "email") {
			out = append(out, Rule{Column: name, Rule: NotNull})
		}
		if meta.Numeric() && meta.Min != nil && meta.Max != nil {
			out = append(out, Rule{Column: name, Rule: Between, Min: floatPtr(*meta.Min), Max: floatPtr(*meta.Max)})
		}
		if meta.Type == dataset.KindString && len(meta.TopValues) > 0 && len(meta.TopValues) <= maxAllowedValues {
			vals := make([]string, len(meta.TopValues))
			for i, kv := range meta.TopValues {
				vals[i] = kv.Value
			}
			out = append(out, Rule{Column: name, Rule: AllowedValues, Values: vals})
		}
		if strings.Contains(lower, "id") {
			out = append(out, Rule{Column: name, Rule: DedupeKey})
		}
		if meta.MissingPct > fillMissingPct {
			if meta.Numeric() {
				out = append(out, Rule{Column: name, Rule: FillNAMean})
			} else {
				out = append(out, Rule{Column: name, Rule: FillNAMode})
			}
		}
	}
	return out
}
