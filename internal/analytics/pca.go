package analytics

import (
	"math"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MaxComponents is the number of principal components returned.
const MaxComponents = 3

// PCAResult is the principal component decomposition of a set of curves.
// Components[k][j] is the loading of Maturities[j] on component k.
// Scores[i][k] is curve i projected onto component k.
type PCAResult struct {
	Maturities        []domain.Maturity `json:"maturities"`
	Components        [][]float64       `json:"components"`
	ExplainedVariance []float64         `json:"explainedVariance"`
	Scores            [][]float64       `json:"scores"`
}

// PCA eigendecomposes the sample covariance of the mean-centred yield matrix
// (rows are curves, columns maturities). Only maturities valid on every curve are
// used. Returns nil for fewer than 2 curves or when no maturity is shared.
func PCA(curves []domain.YieldCurveData) *PCAResult {
	if len(curves) < 2 {
		return nil
	}
	mats := sharedMaturities(curves)
	if len(mats) == 0 {
		return nil
	}

	n, m := len(curves), len(mats)
	x := mat.NewDense(n, m, nil)
	for i, c := range curves {
		for j, mt := range mats {
			v, _ := c.Yield(mt)
			x.Set(i, j, v)
		}
	}

	centered := mat.NewDense(n, m, nil)
	col := make([]float64, n)
	for j := 0; j < m; j++ {
		mat.Col(col, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, col[i]-mean)
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return nil
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}

	k := min(MaxComponents, m)
	res := &PCAResult{
		Maturities:        mats,
		Components:        make([][]float64, 0, k),
		ExplainedVariance: make([]float64, 0, k),
		Scores:            make([][]float64, n),
	}
	// Values come back in ascending order.
	for c := m - 1; c >= m-k; c-- {
		comp := mat.Col(nil, c, &vecs)
		orient(comp)
		res.Components = append(res.Components, comp)

		ev := 0.0
		if total > 0 {
			ev = values[c] / total
		}
		res.ExplainedVariance = append(res.ExplainedVariance, clamp01(ev))
	}

	row := make([]float64, m)
	for i := 0; i < n; i++ {
		mat.Row(row, i, centered)
		scores := make([]float64, k)
		for c, comp := range res.Components {
			s := 0.0
			for j := range comp {
				s += row[j] * comp[j]
			}
			scores[c] = s
		}
		res.Scores[i] = scores
	}
	return res
}

// sharedMaturities keeps the maturities, in canonical day order, that are valid
// on every curve.
func sharedMaturities(curves []domain.YieldCurveData) []domain.Maturity {
	var out []domain.Maturity
	for _, mt := range domain.AllMaturities() {
		all := true
		for _, c := range curves {
			if _, ok := c.Yield(mt); !ok {
				all = false
				break
			}
		}
		if all {
			out = append(out, mt)
		}
	}
	return out
}

// orient flips an eigenvector so its loadings sum to a non-negative value.
// Eigenvectors are defined up to sign; this keeps output stable across runs.
func orient(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
