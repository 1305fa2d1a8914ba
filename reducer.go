package tellus

// Reducer is an opaque handle to a server-side aggregation primitive.
// Reducers are applied over pixels with Image.ReduceRegion or over
// collections with ImageCollection.Reduce.
type Reducer struct {
	n *Node
}

func (r Reducer) node() *Node { return r.n }

func simpleReducer(kind string) Reducer {
	return Reducer{n: invoke("Reducer."+kind, map[string]any{})}
}

// Mean averages pixel values per band.
func Mean() Reducer { return simpleReducer("mean") }

// Min takes the minimum pixel value per band.
func Min() Reducer { return simpleReducer("min") }

// Max takes the maximum pixel value per band.
func Max() Reducer { return simpleReducer("max") }

// Sum totals pixel values per band.
func Sum() Reducer { return simpleReducer("sum") }

// Count counts unmasked pixels per band.
func Count() Reducer { return simpleReducer("count") }

// Median takes the per-band median.
func Median() Reducer { return simpleReducer("median") }

// StdDev computes the per-band standard deviation.
func StdDev() Reducer { return simpleReducer("stdDev") }

// Variance computes the per-band variance.
func Variance() Reducer { return simpleReducer("variance") }

// Covariance computes the band-by-band covariance matrix of a multi-band
// image. The result materializes as a square matrix in band order.
func Covariance() Reducer { return simpleReducer("covariance") }

// LinearFit performs an ordinary least-squares fit of the second band
// against the first, yielding {"scale", "offset"}.
func LinearFit() Reducer { return simpleReducer("linearFit") }

// Percentile computes the given per-band percentile (0-100).
func Percentile(p float64) Reducer {
	return Reducer{n: invoke("Reducer.percentile", map[string]any{"percentile": p})}
}

// Histogram builds a fixed-bucket per-band histogram over [min, max],
// yielding {"bucketMeans", "counts"} per band.
func Histogram(buckets int, min, max float64) Reducer {
	return Reducer{n: invoke("Reducer.histogram", map[string]any{
		"buckets": buckets, "min": min, "max": max,
	})}
}

// Combine pairs two reducers so both run in one pass. Outputs are keyed by
// each reducer's name.
func (r Reducer) Combine(other Reducer) Reducer {
	return Reducer{n: invoke("Reducer.combine", map[string]any{
		"first": r.n, "second": other.n,
	})}
}

// Weighted makes the reducer weight each pixel by the named band of the
// reduced image. The weight band itself is excluded from the aggregation.
func (r Reducer) Weighted(weightBand string) Reducer {
	return Reducer{n: invoke("Reducer.splitWeights", map[string]any{
		"reducer": r.n, "weightBand": weightBand,
	})}
}
