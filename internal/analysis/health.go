package analysis

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Health score weights applied to each penalty percentage.
const (
	missingWeight   = 0.5
	duplicateWeight = 0.8
	anomalyWeight   = 0.7
)

// Health is a 0-100 score plus the component percentages it was derived from.
type Health struct {
	Score        float64 `json:"score"`
	MissingPct   float64 `json:"missing_pct"`
	DuplicatePct float64 `json:"duplicate_pct"`
	AnomalyPct   float64 `json:"anomaly_pct"`
}

// ComputeHealth scores a profile given the fraction of rows flagged as anomalous.
// The score is clamped to [0, 100] and rounded to one decimal.
func ComputeHealth(p *DatasetProfile, anomalyRate float64) Health {
	var missing []float64
	for _, name := range p.Order {
		if c := p.Columns[name]; c != nil {
			missing = append(missing, c.MissingPct)
		}
	}
	avgMissing, err := stats.Mean(missing)
	if err != nil {
		avgMissing = 0
	}
	anomalyPct := anomalyRate * 100
	score := 100 - (missingWeight*avgMissing + duplicateWeight*p.DuplicatePct + anomalyWeight*anomalyPct)
	score = math.Max(0, math.Min(100, score))
	rounded, err := stats.Round(score, 1)
	if err != nil {
		rounded = score
	}
	return Health{
		Score:        rounded,
		MissingPct:   avgMissing,
		DuplicatePct: p.DuplicatePct,
		AnomalyPct:   anomalyPct,
	}
}
