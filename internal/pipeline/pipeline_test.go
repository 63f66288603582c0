package pipeline

import (
	"testing"

	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orders() *dataset.Dataset {
	return dataset.New("orders.csv",
		dataset.NewColumn("order_id", dataset.KindInt, 1, 2, 3, 4, 5, 6, 7, 8),
		dataset.NewColumn("amount", dataset.KindFloat, 10.0, 11.0, 9.0, 10.5, nil, 12.0, 10.0, 500.0),
	)
}

func TestRunSuggestsWhenNoRules(t *testing.T) {
	res, err := Run(orders(), nil, anomaly.DefaultOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Rules)
	assert.Len(t, res.Anomalies.Flagged, 1)
	assert.InDelta(t, 12.5, res.Health.AnomalyPct, 1e-9)
	assert.Contains(t, res.Report, "# Data Quality Report")

	run := res.HistoryRun("orders.csv", "analyze")
	assert.Equal(t, 8, run.Rows)
	assert.Equal(t, 1, run.Flagged)
	assert.Equal(t, res.Health.Score, run.Health)
}

func TestRunKeepsExplicitRules(t *testing.T) {
	rs := []rules.Rule{}
	res, err := Run(orders(), rs, anomaly.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Rules)
	assert.Contains(t, res.Report, "No rules accepted.")
}

func TestRunPropagatesInvalidOptions(t *testing.T) {
	_, err := Run(orders(), nil, anomaly.Options{Contamination: 2})
	assert.ErrorIs(t, err, anomaly.ErrInvalidContamination)
}
