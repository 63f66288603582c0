package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/montanaflynn/stats"
)

// PreviewResult is a modified copy of a dataset plus notes describing each change.
type PreviewResult struct {
	Data  *dataset.Dataset
	Notes []string
}

// Preview applies rules in order to a working copy of ds. The source dataset
// is never modified. A rule naming a missing column is skipped with a note.
// between, allowed_values and not_null are informational here and never
// drop or alter rows.
func Preview(ds *dataset.Dataset, rules []Rule) PreviewResult {
	work := ds.Clone()
	var notes []string
	for _, r := range rules {
		col := work.Column(r.Column)
		if col == nil {
			notes = append(notes, fmt.Sprintf("Column '%s' not in dataframe; skipping %s.", r.Column, r.Rule))
			continue
		}
		switch r.Rule {
		case FillNAMean:
			if !col.Kind.Numeric() {
				continue
			}
			mean := fillMean(col)
			notes = append(notes, fmt.Sprintf("Filled NaNs in %s with mean %s.", r.Column, formatMean(mean)))
		case FillNAMode:
			fill := fillMode(col)
			notes = append(notes, fmt.Sprintf("Filled NaNs in %s with mode '%s'.", r.Column, noteValue(fill)))
		case DedupeKey:
			before := work.Rows()
			work = dedupe(work, col)
			notes = append(notes, fmt.Sprintf("Dropped %d duplicate rows based on key %s.", before-work.Rows(), r.Column))
		}
	}
	return PreviewResult{Data: work, Notes: notes}
}

// fillMean replaces missing cells with the mean of present cells. An int
// column that receives fills becomes float. Returns NaN for an empty column.
func fillMean(col *dataset.Column) float64 {
	mean, err := stats.Mean(col.Floats())
	if err != nil {
		return math.NaN()
	}
	if col.Missing() == 0 {
		return mean
	}
	if col.Kind == dataset.KindInt {
		for i, v := range col.Values {
			if f, ok := dataset.AsFloat(v); ok {
				col.Values[i] = f
			}
		}
		col.Kind = dataset.KindFloat
	}
	for i, v := range col.Values {
		if v == nil {
			col.Values[i] = mean
		}
	}
	return mean
}

// fillMode replaces missing cells with the most frequent present value,
// choosing the smallest value on ties. With no present values the column
// becomes a string column of empty strings.
func fillMode(col *dataset.Column) any {
	counts := map[string]int{}
	first := map[string]any{}
	for _, v := range col.Values {
		if v == nil {
			continue
		}
		k := dataset.CellKey(v)
		if _, ok := first[k]; !ok {
			first[k] = v
		}
		counts[k]++
	}
	var mode any
	best := 0
	for k, n := range counts {
		v := first[k]
		if n > best || (n == best && lessCell(v, mode)) {
			mode, best = v, n
		}
	}
	if mode == nil {
		for i := range col.Values {
			col.Values[i] = ""
		}
		col.Kind = dataset.KindString
		return ""
	}
	for i, v := range col.Values {
		if v == nil {
			col.Values[i] = mode
		}
	}
	return mode
}

// dedupe keeps the first row for every distinct key value. Missing keys
// count as one value.
func dedupe(ds *dataset.Dataset, key *dataset.Column) *dataset.Dataset {
	seen := map[string]struct{}{}
	keep := make([]int, 0, len(key.Values))
	for i, v := range key.Values {
		k := dataset.CellKey(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	if len(keep) == len(key.Values) {
		return ds
	}
	out := ds.Take(keep)
	out.Warnings = ds.Warnings
	return out
}

func lessCell(a, b any) bool {
	switch x := a.(type) {
	case int64, float64:
		fa, _ := dataset.AsFloat(x)
		fb, ok := dataset.AsFloat(b)
		return ok && fa < fb
	case bool:
		y, ok := b.(bool)
		return ok && !x && y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Before(y)
	case string:
		y, ok := b.(string)
		return ok && x < y
	}
	return false
}

func formatMean(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	return strconv.FormatFloat(f, 'f', 3, 64)
}

// noteValue renders fill values the way they read in a dataframe: floats
// always keep a decimal point.
func noteValue(v any) string {
	if f, ok := v.(float64); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	return dataset.Format(v)
}
