package analysis

import (
	"encoding/json"
	"testing"

	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customers() *dataset.Dataset {
	return dataset.New("customers.csv",
		dataset.NewColumn("CustomerID", dataset.KindInt, 1, 2, 2),
		dataset.NewColumn("Email", dataset.KindString, "a@x.com", nil, "b@x.com"),
		dataset.NewColumn("Age", dataset.KindInt, 10, 20, 30),
		dataset.NewColumn("Country", dataset.KindString, "USA", "USA", "India"),
	)
}

func TestProfileColumns(t *testing.T) {
	p := Profile(customers())
	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 4, p.Cols)
	assert.Equal(t, []string{"CustomerID", "Email", "Age", "Country"}, p.Order)

	email := p.Column("Email")
	require.NotNil(t, email)
	assert.Equal(t, dataset.KindString, email.Type)
	assert.Equal(t, 1, email.Missing)
	assert.InDelta(t, 33.333, email.MissingPct, 1e-3)
	assert.Equal(t, 2, email.Unique)
	assert.Nil(t, email.Min)

	age := p.Column("Age")
	require.NotNil(t, age.Min)
	assert.Equal(t, 10.0, *age.Min)
	assert.Equal(t, 30.0, *age.Max)
	assert.Equal(t, 20.0, *age.Mean)
	assert.InDelta(t, 8.16497, *age.Std, 1e-5)
	assert.Empty(t, age.TopValues)

	country := p.Column("Country")
	assert.Equal(t, TopValues{{Value: "USA", Count: 2}, {Value: "India", Count: 1}}, country.TopValues)
	assert.Equal(t, 0, p.Duplicates)
}

func TestProfileEmptyDatasetHasZeroPercentages(t *testing.T) {
	ds := dataset.New("empty", dataset.NewColumn("a", dataset.KindFloat))
	p := Profile(ds)
	assert.Equal(t, 0, p.Rows)
	assert.Equal(t, 0.0, p.Column("a").MissingPct)
	assert.Equal(t, 0.0, p.DuplicatePct)
	assert.Nil(t, p.Column("a").Mean)
}

func TestMissingPercentBounds(t *testing.T) {
	ds := dataset.New("t",
		dataset.NewColumn("full", dataset.KindInt, 1, 2, 3, 4),
		dataset.NewColumn("gappy", dataset.KindFloat, nil, nil, 1.5, nil),
		dataset.NewColumn("void", dataset.KindFloat, nil, nil, nil, nil),
	)
	p := Profile(ds)
	assert.Equal(t, 0.0, p.Column("full").MissingPct)
	assert.Equal(t, 75.0, p.Column("gappy").MissingPct)
	assert.Equal(t, 100.0, p.Column("void").MissingPct)
	for _, c := range p.Columns {
		assert.GreaterOrEqual(t, c.MissingPct, 0.0)
		assert.LessOrEqual(t, c.MissingPct, 100.0)
	}
}

func TestDuplicateRowsIncludeMissingCells(t *testing.T) {
	ds := dataset.New("t",
		dataset.NewColumn("a", dataset.KindInt, 1, 1, 2, 1),
		dataset.NewColumn("b", dataset.KindString, nil, nil, "x", "y"),
	)
	p := Profile(ds)
	assert.Equal(t, 1, p.Duplicates)
	assert.Equal(t, 25.0, p.DuplicatePct)
}

func TestTopValuesLimitAndTies(t *testing.T) {
	vals := []any{"f", "e", "d", "c", "b", "a", "a", "b"}
	tv := topValues(vals, TopValuesLimit)
	require.Len(t, tv, 5)
	assert.Equal(t, "b", tv[0].Value)
	assert.Equal(t, "a", tv[1].Value)
	assert.Equal(t, []string{"f", "e", "d"}, []string{tv[2].Value, tv[3].Value, tv[4].Value})
}

func TestTopValuesJSONKeepsOrder(t *testing.T) {
	tv := TopValues{{Value: "USA", Count: 2}, {Value: "India", Count: 1}}
	b, err := json.Marshal(tv)
	require.NoError(t, err)
	assert.Equal(t, `{"USA":2,"India":1}`, string(b))

	var back TopValues
	require.NoError(t, json.Unmarshal([]byte(`{"z":3,"a":1}`), &back))
	assert.Equal(t, TopValues{{Value: "z", Count: 3}, {Value: "a", Count: 1}}, back)
}

func TestProfileJSONShape(t *testing.T) {
	b, err := json.Marshal(Profile(customers()))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, 3.0, m["n_rows"])
	cols := m["columns"].(map[string]any)
	age := cols["Age"].(map[string]any)
	assert.Equal(t, "int", age["type"])
	assert.Equal(t, 10.0, age["min"])
	country := cols["Country"].(map[string]any)
	assert.Equal(t, map[string]any{"USA": 2.0, "India": 1.0}, country["top_values"])
}

func TestComputeHealth(t *testing.T) {
	p := &DatasetProfile{
		Order:        []string{"a", "b"},
		Columns:      map[string]*ColumnProfile{"a": {MissingPct: 10}, "b": {MissingPct: 30}},
		DuplicatePct: 5,
	}
	h := ComputeHealth(p, 0.05)
	// 100 - (0.5*20 + 0.8*5 + 0.7*5) = 82.5
	assert.Equal(t, 82.5, h.Score)
	assert.Equal(t, 20.0, h.MissingPct)
	assert.Equal(t, 5.0, h.DuplicatePct)
	assert.InDelta(t, 5.0, h.AnomalyPct, 1e-9)
}

func TestComputeHealthClampsAndRounds(t *testing.T) {
	bad := &DatasetProfile{
		Order:        []string{"a"},
		Columns:      map[string]*ColumnProfile{"a": {MissingPct: 100}},
		DuplicatePct: 90,
	}
	assert.Equal(t, 0.0, ComputeHealth(bad, 1).Score)

	clean := &DatasetProfile{}
	assert.Equal(t, 100.0, ComputeHealth(clean, 0).Score)

	p := &DatasetProfile{Order: []string{"a"}, Columns: map[string]*ColumnProfile{"a": {MissingPct: 33.3333}}}
	assert.Equal(t, 83.3, ComputeHealth(p, 0).Score)
}

func TestMarkdownSummary(t *testing.T) {
	md := Profile(customers()).Markdown()
	assert.Contains(t, md, "[DATASET SUMMARY]")
	assert.Contains(t, md, "File: customers.csv")
	assert.Contains(t, md, "- Age: int (missing 0, 0.0%; unique 3) — min 10, max 30")
	assert.Contains(t, md, "top: USA(2), India(1)")
}

func TestProfileDropsOverflowingStats(t *testing.T) {
	ds := dataset.New("big.csv", dataset.NewColumn("v", dataset.KindFloat, 1e308, -1e308, 1e308, -1e308))
	p := Profile(ds)
	c := p.Column("v")
	require.NotNil(t, c.Min)
	require.NotNil(t, c.Max)
	assert.Nil(t, c.Std)
	_, err := json.Marshal(p)
	require.NoError(t, err)
}
