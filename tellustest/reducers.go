package tellustest

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// reducerSpec describes one reduction. Combined reducers flatten into
// parts; splitWeights sets weightBand on the outermost spec.
type reducerSpec struct {
	parts      []reducerPart
	weightBand string
}

type reducerPart struct {
	kind       string
	percentile float64
	buckets    int
	min, max   float64
}

func applyReducerCtor(fn string, a args) (any, error) {
	kind := fn[len("Reducer."):]
	switch kind {
	case "mean", "min", "max", "sum", "count", "median", "stdDev", "variance",
		"covariance", "linearFit":
		return &reducerSpec{parts: []reducerPart{{kind: kind}}}, nil

	case "percentile":
		p, err := a.float("percentile")
		if err != nil {
			return nil, err
		}
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("percentile %g out of range", p)
		}
		return &reducerSpec{parts: []reducerPart{{kind: kind, percentile: p}}}, nil

	case "histogram":
		buckets, err := a.intArg("buckets")
		if err != nil {
			return nil, err
		}
		lo, err := a.float("min")
		if err != nil {
			return nil, err
		}
		hi, err := a.float("max")
		if err != nil {
			return nil, err
		}
		if buckets < 2 || hi <= lo {
			return nil, fmt.Errorf("histogram needs >= 2 buckets and max > min")
		}
		return &reducerSpec{parts: []reducerPart{{kind: kind, buckets: buckets, min: lo, max: hi}}}, nil

	case "combine":
		first, err := a.reducer("first")
		if err != nil {
			return nil, err
		}
		second, err := a.reducer("second")
		if err != nil {
			return nil, err
		}
		out := &reducerSpec{weightBand: first.weightBand}
		if second.weightBand != "" {
			if out.weightBand != "" && out.weightBand != second.weightBand {
				return nil, fmt.Errorf("combined reducers use different weight bands %q and %q",
					out.weightBand, second.weightBand)
			}
			out.weightBand = second.weightBand
		}
		out.parts = append(out.parts, first.parts...)
		out.parts = append(out.parts, second.parts...)
		return out, nil

	case "splitWeights":
		inner, err := a.reducer("reducer")
		if err != nil {
			return nil, err
		}
		band, err := a.str("weightBand")
		if err != nil {
			return nil, err
		}
		return &reducerSpec{parts: inner.parts, weightBand: band}, nil
	}
	return nil, fmt.Errorf("unknown function")
}

func (a args) reducer(name string) (*reducerSpec, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	r, ok := v.(*reducerSpec)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a reducer", name)
	}
	return r, nil
}

// regionSamples holds the unmasked pixel values inside the reduction
// window, one column per band, plus the per-pixel weights.
type regionSamples struct {
	bands   []string
	columns map[string][]float64
	weights []float64
}

func collectRegion(r *Raster, spec *reducerSpec, g *geomSpec) (*regionSamples, error) {
	x0, y0, x1, y1 := g.window(r.W, r.H)
	var bands []string
	for _, b := range r.Bands {
		if b != spec.weightBand {
			bands = append(bands, b)
		}
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("no bands to reduce")
	}
	var wpx []float64
	if spec.weightBand != "" {
		px, ok := r.Data[spec.weightBand]
		if !ok {
			return nil, fmt.Errorf("no weight band %q", spec.weightBand)
		}
		wpx = px
	}
	s := &regionSamples{bands: bands, columns: make(map[string][]float64, len(bands))}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := y*r.W + x
			if !r.Mask[i] {
				continue
			}
			w := 1.0
			if wpx != nil {
				w = wpx[i]
				if w <= 0 {
					continue
				}
			}
			s.weights = append(s.weights, w)
			for _, b := range bands {
				s.columns[b] = append(s.columns[b], r.Data[b][i])
			}
		}
	}
	if len(s.weights) == 0 {
		return nil, fmt.Errorf("region contains no valid pixels")
	}
	return s, nil
}

// reduceRegion evaluates a reducer over the pixels a geometry selects.
// Scalar reducers key results by band name, or "<band>_<kind>" when the
// reducer is a combination. Covariance returns a matrix in band order,
// histogram a bucketMeans/counts object.
func reduceRegion(r *Raster, spec *reducerSpec, g *geomSpec) (any, error) {
	s, err := collectRegion(r, spec, g)
	if err != nil {
		return nil, err
	}
	if len(spec.parts) == 1 {
		switch p := spec.parts[0]; p.kind {
		case "covariance":
			return covarianceMatrix(s)
		case "histogram":
			return histogramReduce(s, p)
		case "linearFit":
			return linearFitReduce(s)
		}
	}
	out := make(map[string]any, len(s.bands)*len(spec.parts))
	for _, p := range spec.parts {
		switch p.kind {
		case "covariance", "histogram", "linearFit":
			return nil, fmt.Errorf("%s cannot be combined with other reducers", p.kind)
		}
		for _, b := range s.bands {
			v, err := scalarReduce(p, s.columns[b], s.weights)
			if err != nil {
				return nil, fmt.Errorf("band %s: %w", b, err)
			}
			key := b
			if len(spec.parts) > 1 {
				key = b + "_" + p.kind
			}
			out[key] = v
		}
	}
	return out, nil
}

func scalarReduce(p reducerPart, vals, weights []float64) (float64, error) {
	switch p.kind {
	case "mean":
		return stat.Mean(vals, weights), nil
	case "sum":
		var sum float64
		for i, v := range vals {
			sum += v * weights[i]
		}
		return sum, nil
	case "count":
		var sum float64
		for _, w := range weights {
			sum += w
		}
		return sum, nil
	case "min":
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	case "stdDev":
		return stat.StdDev(vals, weights), nil
	case "variance":
		return stat.Variance(vals, weights), nil
	case "median":
		return weightedQuantile(vals, weights, 0.5), nil
	case "percentile":
		return weightedQuantile(vals, weights, p.percentile/100), nil
	}
	return 0, fmt.Errorf("unknown reducer %q", p.kind)
}

func weightedQuantile(vals, weights []float64, q float64) float64 {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })
	sx := make([]float64, len(vals))
	sw := make([]float64, len(vals))
	for i, j := range idx {
		sx[i] = vals[j]
		sw[i] = weights[j]
	}
	return stat.Quantile(q, stat.Empirical, sx, sw)
}

func covarianceMatrix(s *regionSamples) ([][]float64, error) {
	n := len(s.bands)
	rows := len(s.weights)
	if rows < 2 {
		return nil, fmt.Errorf("covariance needs at least 2 pixels")
	}
	x := mat.NewDense(rows, n, nil)
	for j, b := range s.bands {
		col := s.columns[b]
		for i := 0; i < rows; i++ {
			x.Set(i, j, col[i])
		}
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, s.weights)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = cov.At(i, j)
		}
	}
	return out, nil
}

func histogramReduce(s *regionSamples, p reducerPart) (map[string]any, error) {
	if len(s.bands) != 1 {
		return nil, fmt.Errorf("histogram reducer needs a single band, got %d", len(s.bands))
	}
	width := (p.max - p.min) / float64(p.buckets)
	means := make([]any, p.buckets)
	counts := make([]any, p.buckets)
	countsF := make([]float64, p.buckets)
	for i := 0; i < p.buckets; i++ {
		means[i] = p.min + (float64(i)+0.5)*width
	}
	for i, v := range s.columns[s.bands[0]] {
		if v < p.min || v > p.max {
			continue
		}
		bi := int((v - p.min) / width)
		if bi >= p.buckets {
			bi = p.buckets - 1
		}
		countsF[bi] += s.weights[i]
	}
	for i, c := range countsF {
		counts[i] = c
	}
	return map[string]any{"bucketMeans": means, "counts": counts}, nil
}

// linearFitReduce regresses the second band on the first by weighted
// ordinary least squares.
func linearFitReduce(s *regionSamples) (map[string]any, error) {
	if len(s.bands) != 2 {
		return nil, fmt.Errorf("linearFit needs exactly 2 bands, got %d", len(s.bands))
	}
	x := s.columns[s.bands[0]]
	y := s.columns[s.bands[1]]
	offset, scale := stat.LinearRegression(x, y, s.weights, false)
	return map[string]any{"scale": scale, "offset": offset}, nil
}
