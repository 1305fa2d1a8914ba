package normalize

import (
	"context"
	"fmt"
	"math"
	"strings"

	tellus "github.com/tellusgeo/tellus-go"
)

// Options tunes the iteratively reweighted MAD loop.
type Options struct {
	// MaxIterations caps the reweighting loop. Default 30.
	MaxIterations int
	// Tolerance is the convergence threshold on the largest change of any
	// canonical correlation between rounds. Default 1e-4.
	Tolerance float64
	// Scale is the reduction scale in meters. Default 30.
	Scale float64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 30
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-4
	}
	if o.Scale <= 0 {
		o.Scale = 30
	}
	return o
}

// Result holds the outcome of the iteratively reweighted MAD transform.
// The image handles reference the final iteration's graph and stay lazy.
type Result struct {
	// MAD holds one change band per input band, named MAD1..MADn and
	// ordered by descending canonical correlation.
	MAD tellus.Image
	// ChiSquare is the single-band sum of standardized squared MAD values,
	// chi-square distributed with n degrees of freedom under no change.
	ChiSquare tellus.Image
	// Weight is the per-pixel no-change probability, 1 - P(chi2, n).
	Weight tellus.Image
	// Correlations are the final canonical correlations, descending.
	Correlations []float64
	// History records the correlations of every iteration.
	History [][]float64
	Iterations int
	Converged  bool
}

// MAD runs the iteratively reweighted Multivariate Alteration Detection
// transform between two co-registered scenes over the given bands and
// region.
//
// Each round issues two remote calls: a weighted mean+covariance reduction
// over the stacked bands, and one linear-algebra graph (Cholesky, solves,
// products, eigen-decomposition) that turns the covariance blocks into
// canonical transformation vectors. Pixels are then reweighted by their
// no-change probability and the loop repeats until the canonical
// correlations stop moving.
func MAD(ctx context.Context, c *tellus.Client, reference, target tellus.Image, bands []string, region tellus.Geometry, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	n := len(bands)
	if n == 0 {
		return nil, fmt.Errorf("normalize: no bands given")
	}

	refBands := prefixed("ref_", bands)
	tgtBands := prefixed("tgt_", bands)
	refSel := reference.Select(bands...).Rename(refBands...)
	tgtSel := target.Select(bands...).Rename(tgtBands...)

	weight := tellus.Constant(1).Rename("weight")

	res := &Result{}
	var mad, chi2 tellus.Image
	var prevRho []float64

	for it := 1; it <= opts.MaxIterations; it++ {
		stacked := refSel.AddBands(tgtSel).AddBands(weight)

		stats, err := fetchStats(ctx, c, stacked, region, opts.Scale)
		if err != nil {
			return nil, fmt.Errorf("normalize: iteration %d: %w", it, err)
		}
		if len(stats.cov) != 2*n {
			return nil, fmt.Errorf("normalize: iteration %d: covariance is %dx%d, want %dx%d",
				it, len(stats.cov), len(stats.cov), 2*n, 2*n)
		}
		sxx, sxy, syy := partition(stats.cov, n)

		vecs, err := solveCanonical(ctx, c, sxx, sxy, syy)
		if err != nil {
			return nil, fmt.Errorf("normalize: iteration %d: %w", it, err)
		}

		rho, a, b := orient(vecs, sxy)
		res.History = append(res.History, rho)
		res.Iterations = it

		muRef, err := bandMeans(stats.means, refBands)
		if err != nil {
			return nil, fmt.Errorf("normalize: iteration %d: %w", it, err)
		}
		muTgt, err := bandMeans(stats.means, tgtBands)
		if err != nil {
			return nil, fmt.Errorf("normalize: iteration %d: %w", it, err)
		}

		mad = madImage(refSel, tgtSel, refBands, tgtBands, a, b, muRef, muTgt)
		chi2 = chiSquareImage(mad, rho)
		weight = tellus.Constant(1).Subtract(chi2.ChiSquareCDF(n)).Rename("weight")

		res.Correlations = rho
		if prevRho != nil && maxDelta(rho, prevRho) < opts.Tolerance {
			res.Converged = true
			break
		}
		prevRho = rho
	}

	res.MAD = mad
	res.ChiSquare = chi2
	res.Weight = weight
	return res, nil
}

func prefixed(prefix string, bands []string) []string {
	out := make([]string, len(bands))
	for i, b := range bands {
		out[i] = prefix + b
	}
	return out
}

type regionStats struct {
	means map[string]float64
	cov   [][]float64
}

// fetchStats materializes the weighted per-band means and the weighted
// covariance matrix of the stacked image in one round trip.
func fetchStats(ctx context.Context, c *tellus.Client, stacked tellus.Image, region tellus.Geometry, scale float64) (*regionStats, error) {
	mean := stacked.ReduceRegion(tellus.Mean().Weighted("weight"), region, scale)
	cov := stacked.ReduceRegion(tellus.Covariance().Weighted("weight"), region, scale)
	res, err := c.Compute(ctx, tellus.Tuple(mean, cov))
	if err != nil {
		return nil, err
	}
	parts, err := res.Tuple()
	if err != nil {
		return nil, err
	}
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected 2 stats values, got %d", len(parts))
	}
	st := &regionStats{}
	if st.means, err = parts[0].FloatMap(); err != nil {
		return nil, fmt.Errorf("decoding means: %w", err)
	}
	if st.cov, err = parts[1].Matrix(); err != nil {
		return nil, fmt.Errorf("decoding covariance: %w", err)
	}
	return st, nil
}

func partition(cov [][]float64, n int) (sxx, sxy, syy [][]float64) {
	sxx = block(cov, 0, 0, n)
	sxy = block(cov, 0, n, n)
	syy = block(cov, n, n, n)
	return
}

func block(m [][]float64, row, col, n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = append([]float64(nil), m[row+i][col:col+n]...)
	}
	return out
}

// canonicalVectors holds the raw remote solution of the coupled
// eigenproblem: columns ordered by ascending eigenvalue, not yet
// normalized or sign-fixed.
type canonicalVectors struct {
	lambda []float64 // squared canonical correlations, ascending
	a, b   [][]float64
	na, nb [][]float64 // aᵀ Sxx a and bᵀ Syy b, for unit-variance scaling
}

// solveCanonical assembles the generalized eigenproblem
//
//	Sxy Syy⁻¹ Syx a = ρ² Sxx a
//
// from remote primitives. With Sxx = L Lᵀ the problem reduces to the
// symmetric eigen-decomposition of C = L⁻¹ Sxy Syy⁻¹ Syx L⁻ᵀ; the b
// vectors follow from b ∝ Syy⁻¹ Syx a. Everything runs on the platform in
// a single compute call.
func solveCanonical(ctx context.Context, c *tellus.Client, sxx, sxy, syy [][]float64) (*canonicalVectors, error) {
	mSxx := tellus.NewMatrix(sxx)
	mSxy := tellus.NewMatrix(sxy)
	mSyy := tellus.NewMatrix(syy)

	l := mSxx.Cholesky()
	a := l.Solve(mSxy)                  // L⁻¹ Sxy
	d := mSyy.Solve(a.Transpose())      // Syy⁻¹ Syx L⁻ᵀ
	sym := a.MatMul(d)                  // L⁻¹ Sxy Syy⁻¹ Syx L⁻ᵀ
	vectors := sym.EigenVectors()
	aMat := l.Transpose().Solve(vectors) // back-substitute a = L⁻ᵀ e
	bMat := mSyy.Solve(mSxy.Transpose().MatMul(aMat))
	normA := aMat.Transpose().MatMul(mSxx).MatMul(aMat)
	normB := bMat.Transpose().MatMul(mSyy).MatMul(bMat)

	res, err := c.Compute(ctx, tellus.Tuple(sym.EigenValues(), aMat, bMat, normA, normB))
	if err != nil {
		return nil, err
	}
	parts, err := res.Tuple()
	if err != nil {
		return nil, err
	}
	if len(parts) != 5 {
		return nil, fmt.Errorf("expected 5 eigenproblem values, got %d", len(parts))
	}
	v := &canonicalVectors{}
	if v.lambda, err = parts[0].Float64Slice(); err != nil {
		return nil, fmt.Errorf("decoding eigenvalues: %w", err)
	}
	for i, dst := range []*[][]float64{&v.a, &v.b, &v.na, &v.nb} {
		if *dst, err = parts[i+1].Matrix(); err != nil {
			return nil, fmt.Errorf("decoding eigenproblem matrix %d: %w", i+1, err)
		}
	}
	return v, nil
}

// orient scales the canonical vectors to unit variance, reorders them by
// descending correlation, and flips signs so every pair correlates
// positively. Returns the correlations and the a/b coefficient matrices
// indexed [band][variate].
func orient(v *canonicalVectors, sxy [][]float64) (rho []float64, a, b [][]float64) {
	n := len(v.lambda)
	rho = make([]float64, n)
	a = make([][]float64, n)
	b = make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		b[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		col := n - 1 - j // ascending eigenvalues -> descending correlation
		sa := math.Sqrt(math.Max(v.na[col][col], 1e-300))
		sb := math.Sqrt(math.Max(v.nb[col][col], 1e-300))
		for i := 0; i < n; i++ {
			a[i][j] = v.a[i][col] / sa
			b[i][j] = v.b[i][col] / sb
		}
		// Correlation of the unit-variance pair; flip b so it is positive.
		var r float64
		for i := 0; i < n; i++ {
			for k := 0; k < n; k++ {
				r += a[i][j] * sxy[i][k] * b[k][j]
			}
		}
		if r < 0 {
			r = -r
			for i := 0; i < n; i++ {
				b[i][j] = -b[i][j]
			}
		}
		rho[j] = math.Min(r, 1)
	}
	return rho, a, b
}

func bandMeans(means map[string]float64, bands []string) ([]float64, error) {
	out := make([]float64, len(bands))
	for i, b := range bands {
		v, ok := means[b]
		if !ok {
			return nil, fmt.Errorf("no mean for band %s", b)
		}
		out[i] = v
	}
	return out, nil
}

// madImage builds the MAD bands U_j - V_j as band math over the centered
// canonical variates.
func madImage(refSel, tgtSel tellus.Image, refBands, tgtBands []string, a, b [][]float64, muRef, muTgt []float64) tellus.Image {
	n := len(refBands)
	var mad tellus.Image
	for j := 0; j < n; j++ {
		vars := make(map[string]tellus.Image, 2*n)
		var f strings.Builder
		for i := 0; i < n; i++ {
			rv := fmt.Sprintf("r%d", i)
			tv := fmt.Sprintf("t%d", i)
			vars[rv] = refSel.Select(refBands[i])
			vars[tv] = tgtSel.Select(tgtBands[i])
			if i > 0 {
				f.WriteString(" + ")
			}
			fmt.Fprintf(&f, "%g * (%s - %g)", a[i][j], rv, muRef[i])
		}
		for i := 0; i < n; i++ {
			fmt.Fprintf(&f, " - %g * (t%d - %g)", b[i][j], i, muTgt[i])
		}
		band := tellus.Expression(f.String(), vars).Rename(fmt.Sprintf("MAD%d", j+1))
		if j == 0 {
			mad = band
		} else {
			mad = mad.AddBands(band)
		}
	}
	return mad
}

// chiSquareImage standardizes each MAD band by its no-change variance
// 2(1-ρ) and sums the squares.
func chiSquareImage(mad tellus.Image, rho []float64) tellus.Image {
	vars := make(map[string]tellus.Image, len(rho))
	var f strings.Builder
	for j := range rho {
		name := fmt.Sprintf("m%d", j+1)
		vars[name] = mad.Select(fmt.Sprintf("MAD%d", j+1))
		sigma2 := math.Max(2*(1-rho[j]), 1e-12)
		if j > 0 {
			f.WriteString(" + ")
		}
		fmt.Fprintf(&f, "%s ** 2 / %g", name, sigma2)
	}
	return tellus.Expression(f.String(), vars).Rename("chi2")
}

func maxDelta(a, b []float64) float64 {
	var d float64
	for i := range a {
		if diff := math.Abs(a[i] - b[i]); diff > d {
			d = diff
		}
	}
	return d
}
