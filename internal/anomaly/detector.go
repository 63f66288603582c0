package anomaly

import (
	"errors"
	"math"
	"sort"

	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidContamination is returned when the contamination fraction is
// outside (0, 1).
var ErrInvalidContamination = errors.New("contamination must be between 0 and 1 (exclusive)")

const (
	minRows       = 3
	madFloor      = 1e-9
	defaultTrees  = 200
	defaultSample = 256
	defaultSeed   = 42
	defaultContam = 0.05
)

// Options tunes detection. Zero Trees and SampleSize fall back to defaults.
type Options struct {
	Contamination float64
	Trees         int
	SampleSize    int
	Seed          uint64
}

// DefaultOptions returns contamination 0.05, 200 trees, sample size 256 and seed 42.
func DefaultOptions() Options {
	return Options{Contamination: defaultContam, Trees: defaultTrees, SampleSize: defaultSample, Seed: defaultSeed}
}

// RowScore is the outlier score of one input row.
type RowScore struct {
	Row             int     `json:"row"`
	Score           float64 `json:"anomaly_score"`
	Flagged         bool    `json:"is_flagged"`
	TopDeviationCol string  `json:"top_deviation_col"`
}

// FlaggedRow carries the original cells of a flagged row.
type FlaggedRow struct {
	Row             int     `json:"row"`
	Values          []any   `json:"values"`
	Score           float64 `json:"anomaly_score"`
	TopDeviationCol string  `json:"top_deviation_col"`
}

// Result holds per-row scores and the flagged subset in row order.
type Result struct {
	Columns  []string     `json:"columns"`
	Features []string     `json:"features"`
	Scores   []RowScore   `json:"scores"`
	Flagged  []FlaggedRow `json:"flagged"`
}

// Empty reports whether detection had too little data to run.
func (r Result) Empty() bool { return len(r.Scores) == 0 }

// Rate is the flagged fraction of scored rows, 0 for an empty result.
func (r Result) Rate() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	return float64(len(r.Flagged)) / float64(len(r.Scores))
}

func (o Options) normalize() (Options, error) {
	if !(o.Contamination > 0 && o.Contamination < 1) {
		return o, ErrInvalidContamination
	}
	if o.Trees <= 0 {
		o.Trees = defaultTrees
	}
	if o.SampleSize <= 0 {
		o.SampleSize = defaultSample
	}
	return o, nil
}

// Detect scores every row on the numeric columns of ds and flags the top
// k = max(1, ceil(contamination*n)) rows. Datasets with no numeric column
// or fewer than three rows give an empty result.
func Detect(ds *dataset.Dataset, opt Options) (Result, error) {
	opt, err := opt.normalize()
	if err != nil {
		return Result{}, err
	}
	res := Result{Columns: ds.Header()}
	var feats []*dataset.Column
	for _, c := range ds.Columns {
		if c.Kind.Numeric() {
			feats = append(feats, c)
			res.Features = append(res.Features, c.Name)
		}
	}
	n := ds.Rows()
	if len(feats) == 0 || n < minRows {
		return res, nil
	}

	x := featureMatrix(feats, n)
	forest := Fit(x, ForestConfig{Trees: opt.Trees, SampleSize: opt.SampleSize, Seed: opt.Seed})
	scores := forest.Score(x)
	topCols := topDeviation(x, res.Features)

	k := int(math.Ceil(opt.Contamination * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	flagged := make([]bool, n)
	for _, i := range topK(scores, k) {
		flagged[i] = true
	}

	res.Scores = make([]RowScore, n)
	for i := 0; i < n; i++ {
		res.Scores[i] = RowScore{Row: i, Score: scores[i], Flagged: flagged[i], TopDeviationCol: topCols[i]}
		if flagged[i] {
			res.Flagged = append(res.Flagged, FlaggedRow{Row: i, Values: ds.Row(i), Score: scores[i], TopDeviationCol: topCols[i]})
		}
	}
	return res, nil
}

// featureMatrix lays numeric columns into an n x d matrix, imputing missing
// cells with the column median (0 when the column has no values).
func featureMatrix(cols []*dataset.Column, n int) *mat.Dense {
	x := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		med, err := stats.Median(c.Floats())
		if err != nil {
			med = 0
		}
		for i := 0; i < n; i++ {
			v, ok := dataset.AsFloat(c.Values[i])
			if !ok {
				v = med
			}
			x.Set(i, j, v)
		}
	}
	return x
}

// topDeviation names, per row, the column with the largest robust z-score
// |x - median| / MAD. The first column wins ties.
func topDeviation(x *mat.Dense, names []string) []string {
	n, d := x.Dims()
	meds := make([]float64, d)
	mads := make([]float64, d)
	for j := 0; j < d; j++ {
		col := stats.Float64Data(mat.Col(nil, j, x))
		meds[j], _ = col.Median()
		mad, _ := col.MedianAbsoluteDeviationPopulation()
		if mad == 0 {
			mad = madFloor
		}
		mads[j] = mad
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		best, bestDev := 0, -1.0
		for j := 0; j < d; j++ {
			dev := math.Abs(x.At(i, j)-meds[j]) / mads[j]
			if dev > bestDev {
				best, bestDev = j, dev
			}
		}
		out[i] = names[best]
	}
	return out
}

// topK returns the indices of the k highest scores. Ties go to the later index.
func topK(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })
	return idx[len(idx)-k:]
}
