// Package pipeline runs the full data quality flow over one dataset.
package pipeline

import (
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/export"
	"github.com/KaramelBytes/dqguard-cli/internal/history"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
)

// Result bundles every artifact of one run.
type Result struct {
	Profile   *analysis.DatasetProfile
	Rules     []rules.Rule
	Anomalies anomaly.Result
	Health    analysis.Health
	Report    string
	Elapsed   time.Duration
}

// Run profiles ds, detects anomalies and renders a report. When rs is nil
// every suggested rule is treated as accepted.
func Run(ds *dataset.Dataset, rs []rules.Rule, opt anomaly.Options) (*Result, error) {
	start := time.Now()
	prof := analysis.Profile(ds)
	if rs == nil {
		rs = rules.Suggest(prof)
	}
	an, err := anomaly.Detect(ds, opt)
	if err != nil {
		return nil, err
	}
	h := analysis.ComputeHealth(prof, an.Rate())
	return &Result{
		Profile:   prof,
		Rules:     rs,
		Anomalies: an,
		Health:    h,
		Report:    export.Report(prof, rs, an, h),
		Elapsed:   time.Since(start),
	}, nil
}

// HistoryRun converts a result into a history record for file and command.
func (r *Result) HistoryRun(file, command string) *history.Run {
	return &history.Run{
		File:         file,
		Command:      command,
		Rows:         r.Profile.Rows,
		Cols:         r.Profile.Cols,
		Health:       r.Health.Score,
		MissingPct:   r.Health.MissingPct,
		DuplicatePct: r.Health.DuplicatePct,
		AnomalyPct:   r.Health.AnomalyPct,
		Flagged:      len(r.Anomalies.Flagged),
	}
}
