package normalize

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tellus "github.com/tellusgeo/tellus-go"
)

// HistogramMatch transforms one band of target so its cumulative histogram
// over region matches the reference's, using buckets fixed-width bins. The
// lookup is applied as a remote piecewise-linear interpolation, so the
// returned image stays lazy. Two remote calls: one for the shared value
// range, one for both histograms.
func HistogramMatch(ctx context.Context, c *tellus.Client, target, reference tellus.Image, band string, region tellus.Geometry, buckets int, scale float64) (tellus.Image, error) {
	if buckets < 2 {
		return tellus.Image{}, fmt.Errorf("normalize: need at least 2 histogram buckets, got %d", buckets)
	}
	t := target.Select(band)
	r := reference.Select(band)

	// Shared range so the two histograms use identical bin edges.
	rangeReducer := tellus.Min().Combine(tellus.Max())
	res, err := c.Compute(ctx, tellus.Tuple(
		t.ReduceRegion(rangeReducer, region, scale),
		r.ReduceRegion(rangeReducer, region, scale),
	))
	if err != nil {
		return tellus.Image{}, fmt.Errorf("normalize: fetching value range: %w", err)
	}
	lo, hi, err := sharedRange(res)
	if err != nil {
		return tellus.Image{}, err
	}

	hist := tellus.Histogram(buckets, lo, hi)
	res, err = c.Compute(ctx, tellus.Tuple(
		t.ReduceRegion(hist, region, scale),
		r.ReduceRegion(hist, region, scale),
	))
	if err != nil {
		return tellus.Image{}, fmt.Errorf("normalize: fetching histograms: %w", err)
	}
	parts, err := res.Tuple()
	if err != nil {
		return tellus.Image{}, fmt.Errorf("normalize: fetching histograms: %w", err)
	}
	if len(parts) != 2 {
		return tellus.Image{}, fmt.Errorf("normalize: expected 2 histograms, got %d", len(parts))
	}
	tHist, err := decodeHistogram(parts[0])
	if err != nil {
		return tellus.Image{}, fmt.Errorf("normalize: target histogram: %w", err)
	}
	rHist, err := decodeHistogram(parts[1])
	if err != nil {
		return tellus.Image{}, fmt.Errorf("normalize: reference histogram: %w", err)
	}

	x, y := matchCurve(tHist, rHist)
	return t.Interpolate(x, y).Rename(band), nil
}

type histogram struct {
	BucketMeans []float64 `json:"bucketMeans"`
	Counts      []float64 `json:"counts"`
}

func sharedRange(res tellus.Result) (lo, hi float64, err error) {
	parts, err := res.Tuple()
	if err != nil {
		return 0, 0, fmt.Errorf("normalize: fetching value range: %w", err)
	}
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("normalize: expected 2 range values, got %d", len(parts))
	}
	first := true
	for _, p := range parts {
		m, err := p.FloatMap()
		if err != nil {
			return 0, 0, fmt.Errorf("normalize: decoding value range: %w", err)
		}
		// Combined reducers key outputs as "<band>_min" / "<band>_max".
		for k, v := range m {
			switch {
			case strings.HasSuffix(k, "_min"):
				if first || v < lo {
					lo = v
				}
			case strings.HasSuffix(k, "_max"):
				if first || v > hi {
					hi = v
				}
			}
		}
		first = false
	}
	if hi <= lo {
		return 0, 0, fmt.Errorf("normalize: degenerate value range [%g, %g]", lo, hi)
	}
	return lo, hi, nil
}

func decodeHistogram(r tellus.Result) (*histogram, error) {
	var h histogram
	if err := r.Decode(&h); err != nil {
		return nil, err
	}
	if len(h.BucketMeans) != len(h.Counts) || len(h.Counts) == 0 {
		return nil, fmt.Errorf("malformed histogram: %d means, %d counts", len(h.BucketMeans), len(h.Counts))
	}
	return &h, nil
}

// matchCurve builds the lookup breakpoints: for each target bucket, the
// reference value at the same cumulative quantile.
func matchCurve(t, r *histogram) (x, y []float64) {
	tCDF := cdf(t.Counts)
	rCDF := cdf(r.Counts)
	x = make([]float64, len(t.BucketMeans))
	y = make([]float64, len(t.BucketMeans))
	for i, m := range t.BucketMeans {
		x[i] = m
		y[i] = quantileValue(rCDF, r.BucketMeans, tCDF[i])
	}
	// Interpolate requires strictly ascending breakpoints; empty leading
	// buckets can produce duplicates.
	return dedupe(x, y)
}

func cdf(counts []float64) []float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	var run float64
	for i, c := range counts {
		run += c
		if total > 0 {
			out[i] = run / total
		}
	}
	return out
}

// quantileValue inverts a bucketed CDF by linear interpolation.
func quantileValue(cdf, values []float64, q float64) float64 {
	i := sort.SearchFloat64s(cdf, q)
	if i == 0 {
		return values[0]
	}
	if i >= len(cdf) {
		return values[len(values)-1]
	}
	span := cdf[i] - cdf[i-1]
	if span <= 0 {
		return values[i]
	}
	frac := (q - cdf[i-1]) / span
	return values[i-1] + frac*(values[i]-values[i-1])
}

func dedupe(x, y []float64) ([]float64, []float64) {
	outX := x[:0:0]
	outY := y[:0:0]
	for i := range x {
		if len(outX) > 0 && x[i] <= outX[len(outX)-1] {
			continue
		}
		outX = append(outX, x[i])
		outY = append(outY, y[i])
	}
	return outX, outY
}
