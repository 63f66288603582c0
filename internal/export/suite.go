package export

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/google/uuid"
)

// Expectation types emitted into the suite.
const (
	ExpectNotNull = "expect_column_values_to_not_be_null"
	ExpectBetween = "expect_column_values_to_be_between"
	ExpectInSet   = "expect_column_values_to_be_in_set"
	ExpectUnique  = "expect_column_values_to_be_unique"
)

var now = time.Now

// Expectation is one check in a validation suite.
type Expectation struct {
	Type   string         `json:"expectation_type"`
	Kwargs map[string]any `json:"kwargs"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// SuiteMeta records where a suite came from.
type SuiteMeta struct {
	GeneratedBy string            `json:"generated_by"`
	GeneratedAt time.Time         `json:"generated_at"`
	Source      string            `json:"source,omitempty"`
	Rows        int               `json:"n_rows"`
	Cols        int               `json:"n_cols"`
	Duplicates  int               `json:"duplicates"`
	ColumnTypes map[string]string `json:"column_types"`
}

// Suite is a Great Expectations style expectation suite.
type Suite struct {
	Name         string        `json:"expectation_suite_name"`
	CloudID      string        `json:"ge_cloud_id"`
	Expectations []Expectation `json:"expectations"`
	Meta         SuiteMeta     `json:"meta"`
}

// BuildSuite maps each rule to exactly one expectation. Fill rules become
// not-null checks that hold after the fill is applied.
func BuildSuite(p *analysis.DatasetProfile, rs []rules.Rule, name string) Suite {
	s := Suite{
		Name:         name,
		CloudID:      uuid.NewString(),
		Expectations: make([]Expectation, 0, len(rs)),
		Meta: SuiteMeta{
			GeneratedBy: "dqguard",
			GeneratedAt: now().UTC(),
			ColumnTypes: map[string]string{},
		},
	}
	if p != nil {
		s.Meta.Source = p.Name
		s.Meta.Rows, s.Meta.Cols, s.Meta.Duplicates = p.Rows, p.Cols, p.Duplicates
		for _, col := range p.Order {
			if c := p.Columns[col]; c != nil {
				s.Meta.ColumnTypes[col] = string(c.Type)
			}
		}
	}
	for _, r := range rs {
		if e, ok := expectationFor(r); ok {
			s.Expectations = append(s.Expectations, e)
		}
	}
	return s
}

func expectationFor(r rules.Rule) (Expectation, bool) {
	kw := map[string]any{"column": r.Column}
	switch r.Rule {
	case rules.NotNull:
		return Expectation{Type: ExpectNotNull, Kwargs: kw}, true
	case rules.Between:
		if r.Min != nil {
			kw["min_value"] = *r.Min
		}
		if r.Max != nil {
			kw["max_value"] = *r.Max
		}
		return Expectation{Type: ExpectBetween, Kwargs: kw}, true
	case rules.AllowedValues:
		set := r.Values
		if set == nil {
			set = []string{}
		}
		kw["value_set"] = set
		return Expectation{Type: ExpectInSet, Kwargs: kw}, true
	case rules.DedupeKey:
		return Expectation{Type: ExpectUnique, Kwargs: kw}, true
	case rules.FillNAMean, rules.FillNAMode:
		return Expectation{
			Type:   ExpectNotNull,
			Kwargs: kw,
			Meta:   map[string]any{"notes": fmt.Sprintf("post-fill check (%s)", r.Rule)},
		}, true
	}
	return Expectation{}, false
}

// WriteSuite writes the suite as indented JSON to ge_suite.json under dir.
func WriteSuite(dir string, s Suite) (string, error) {
	b, err := utils.PrettyJSON(s)
	if err != nil {
		return "", fmt.Errorf("write suite: %w", err)
	}
	path, err := writeFile(dir, SuiteFile, b)
	if err != nil {
		return "", fmt.Errorf("write suite: %w", err)
	}
	return path, nil
}
