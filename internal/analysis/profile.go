package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/montanaflynn/stats"
)

// TopValuesLimit bounds how many frequent values a column profile keeps.
const TopValuesLimit = 5

// DatasetProfile summarizes a dataset: shape, duplicates and per-column stats.
type DatasetProfile struct {
	Name         string                    `json:"name,omitempty"`
	Rows         int                       `json:"n_rows"`
	Cols         int                       `json:"n_cols"`
	Duplicates   int                       `json:"duplicates"`
	DuplicatePct float64                   `json:"duplicate_pct"`
	Order        []string                  `json:"column_order"`
	Columns      map[string]*ColumnProfile `json:"columns"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

// ColumnProfile captures the inferred type and statistics of one column.
// Numeric fields are nil for non-numeric columns and for numeric columns
// without values.
type ColumnProfile struct {
	Type       dataset.Kind `json:"type"`
	Missing    int          `json:"missing"`
	MissingPct float64      `json:"missing_pct"`
	Unique     int          `json:"unique"`
	Min        *float64     `json:"min,omitempty"`
	Max        *float64     `json:"max,omitempty"`
	Mean       *float64     `json:"mean,omitempty"`
	Std        *float64     `json:"std,omitempty"`
	TopValues  TopValues    `json:"top_values,omitempty"`
}

// Numeric reports whether the column is int or float.
func (c *ColumnProfile) Numeric() bool { return c.Type.Numeric() }

// CategoryCount is one frequent value and its count.
type CategoryCount struct {
	Value string
	Count int
}

// TopValues keeps most-frequent-first order and encodes as a JSON object.
type TopValues []CategoryCount

// MarshalJSON writes {"value": count, ...} in slice order.
func (tv TopValues) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, kv := range tv {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		fmt.Fprintf(&b, "%d", kv.Count)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads an object while preserving key order.
func (tv *TopValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("top_values: expected object")
	}
	out := TopValues{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("top_values[%s]: %w", key, err)
		}
		out = append(out, CategoryCount{Value: key, Count: n})
	}
	*tv = out
	return nil
}

// Column returns the profile for name or nil.
func (p *DatasetProfile) Column(name string) *ColumnProfile {
	if p == nil || p.Columns == nil {
		return nil
	}
	return p.Columns[name]
}

// Profile computes the dataset profile. Statistics only consider non-missing cells.
func Profile(ds *dataset.Dataset) *DatasetProfile {
	rows := ds.Rows()
	p := &DatasetProfile{
		Name:     ds.Name,
		Rows:     rows,
		Cols:     len(ds.Columns),
		Order:    ds.Header(),
		Columns:  make(map[string]*ColumnProfile, len(ds.Columns)),
		Warnings: append([]string(nil), ds.Warnings...),
	}
	for _, c := range ds.Columns {
		p.Columns[c.Name] = profileColumn(c, rows)
	}
	p.Duplicates = duplicateRows(ds)
	p.DuplicatePct = percent(p.Duplicates, rows)
	return p
}

func profileColumn(c *dataset.Column, rows int) *ColumnProfile {
	cp := &ColumnProfile{Type: c.Kind}
	cp.Missing = c.Missing()
	cp.MissingPct = percent(cp.Missing, rows)

	distinct := map[string]struct{}{}
	for _, v := range c.Values {
		if v != nil {
			distinct[dataset.CellKey(v)] = struct{}{}
		}
	}
	cp.Unique = len(distinct)

	if c.Kind.Numeric() {
		vals := stats.Float64Data(c.Floats())
		if len(vals) > 0 {
			cp.Min = statPtr(vals.Min())
			cp.Max = statPtr(vals.Max())
			cp.Mean = statPtr(vals.Mean())
			cp.Std = statPtr(vals.StandardDeviationPopulation())
		}
		return cp
	}
	cp.TopValues = topValues(c.Values, TopValuesLimit)
	return cp
}

// topValues counts non-missing cells and keeps the n most frequent.
// Ties keep first-appearance order.
func topValues(values []any, n int) TopValues {
	counts := map[string]int{}
	var order []string
	for _, v := range values {
		if v == nil {
			continue
		}
		k := dataset.Format(v)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	out := make(TopValues, 0, len(order))
	for _, k := range order {
		out = append(out, CategoryCount{Value: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// duplicateRows counts rows identical to an earlier row across all columns.
func duplicateRows(ds *dataset.Dataset) int {
	seen := make(map[string]struct{}, ds.Rows())
	dups := 0
	for i := 0; i < ds.Rows(); i++ {
		k := ds.RowKey(i)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// statPtr drops failed and non-finite statistics; JSON cannot carry them.
func statPtr(v float64, err error) *float64 {
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
