package anomaly

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const eulerGamma = 0.5772156649

// ForestConfig sizes an isolation forest.
type ForestConfig struct {
	Trees      int
	SampleSize int
	Seed       uint64
}

// Forest is an isolation forest: an ensemble of random trees where anomalous
// points are isolated in fewer splits than normal ones.
type Forest struct {
	trees []*node
	psi   int
	cpsi  float64
}

type node struct {
	feature     int
	threshold   float64
	left, right *node
	size        int
}

func (n *node) leaf() bool { return n.left == nil }

// Fit grows cfg.Trees trees, each on a random subsample of min(SampleSize, rows)
// rows drawn without replacement. Tree depth is capped at ceil(log2(psi)).
func Fit(x mat.Matrix, cfg ForestConfig) *Forest {
	rows, _ := x.Dims()
	psi := cfg.SampleSize
	if psi <= 0 || psi > rows {
		psi = rows
	}
	f := &Forest{psi: psi, cpsi: averagePathLength(psi)}
	if rows == 0 || cfg.Trees <= 0 {
		return f
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))
	f.trees = make([]*node, cfg.Trees)
	for t := range f.trees {
		idx := rng.Perm(rows)[:psi]
		f.trees[t] = grow(x, idx, 0, maxDepth, rng)
	}
	return f
}

// grow splits on a random non-constant feature at a uniform threshold
// between its min and max within the node.
func grow(x mat.Matrix, idx []int, depth, maxDepth int, rng *rand.Rand) *node {
	n := &node{size: len(idx)}
	if len(idx) <= 1 || depth >= maxDepth {
		return n
	}
	_, cols := x.Dims()
	for _, feat := range rng.Perm(cols) {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			v := x.At(i, feat)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi <= lo {
			continue
		}
		thr := lo + rng.Float64()*(hi-lo)
		var left, right []int
		for _, i := range idx {
			if x.At(i, feat) <= thr {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		n.feature, n.threshold = feat, thr
		n.left = grow(x, left, depth+1, maxDepth, rng)
		n.right = grow(x, right, depth+1, maxDepth, rng)
		return n
	}
	return n
}

// Score returns s(x) = 2^(-E[h(x)]/c(psi)) per row. Values near 1 are
// anomalous; values well below 0.5 are normal.
func (f *Forest) Score(x mat.Matrix) []float64 {
	rows, cols := x.Dims()
	out := make([]float64, rows)
	buf := make([]float64, cols)
	for i := range out {
		for j := range buf {
			buf[j] = x.At(i, j)
		}
		out[i] = f.ScoreRow(buf)
	}
	return out
}

// ScoreRow scores a single observation.
func (f *Forest) ScoreRow(row []float64) float64 {
	if len(f.trees) == 0 || f.cpsi == 0 {
		return 0.5
	}
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, row, 0)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/f.cpsi)
}

func pathLength(n *node, row []float64, depth int) float64 {
	for !n.leaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the mean path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n)
	return 2*(math.Log(m-1)+eulerGamma) - 2*(m-1)/m
}
