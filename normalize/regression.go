package normalize

import (
	"context"
	"fmt"
	"math"

	tellus "github.com/tellusgeo/tellus-go"
)

// Normalization holds per-band gain/offset coefficients mapping a target
// scene onto a reference scene's radiometric scale, plus the adjusted
// image graph.
type Normalization struct {
	Bands   []string
	Gains   []float64
	Offsets []float64
	// Normalized is target * gain + offset per band.
	Normalized tellus.Image
}

// Normalize fits an orthogonal regression of reference against target for
// each band, weighting every pixel by its no-change probability (usually
// Result.Weight from MAD). Orthogonal regression is used instead of
// ordinary least squares because both scenes carry measurement noise.
// One remote round trip fetches all per-band statistics.
func Normalize(ctx context.Context, c *tellus.Client, target, reference tellus.Image, bands []string, weight tellus.Image, region tellus.Geometry, scale float64) (*Normalization, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("normalize: no bands given")
	}
	w := weight.Rename("weight")

	// One mean + covariance reduction per band, all bundled in one call.
	ops := make([]tellus.Operand, 0, 2*len(bands))
	for _, b := range bands {
		pair := target.Select(b).Rename("t").
			AddBands(reference.Select(b).Rename("r")).
			AddBands(w)
		ops = append(ops,
			pair.ReduceRegion(tellus.Mean().Weighted("weight"), region, scale),
			pair.ReduceRegion(tellus.Covariance().Weighted("weight"), region, scale),
		)
	}
	res, err := c.Compute(ctx, tellus.Tuple(ops...))
	if err != nil {
		return nil, fmt.Errorf("normalize: fetching regression statistics: %w", err)
	}
	parts, err := res.Tuple()
	if err != nil {
		return nil, fmt.Errorf("normalize: fetching regression statistics: %w", err)
	}
	if len(parts) != 2*len(bands) {
		return nil, fmt.Errorf("normalize: expected %d statistics values, got %d", 2*len(bands), len(parts))
	}

	out := &Normalization{Bands: bands}
	var normalized tellus.Image
	for i, b := range bands {
		means, err := parts[2*i].FloatMap()
		if err != nil {
			return nil, fmt.Errorf("normalize: band %s means: %w", b, err)
		}
		cov, err := parts[2*i+1].Matrix()
		if err != nil {
			return nil, fmt.Errorf("normalize: band %s covariance: %w", b, err)
		}
		if len(cov) != 2 || len(cov[0]) != 2 {
			return nil, fmt.Errorf("normalize: band %s covariance is not 2x2", b)
		}
		gain, offset, err := orthogonalFit(means["t"], means["r"], cov[0][0], cov[1][1], cov[0][1])
		if err != nil {
			return nil, fmt.Errorf("normalize: band %s: %w", b, err)
		}
		out.Gains = append(out.Gains, gain)
		out.Offsets = append(out.Offsets, offset)

		adj := target.Select(b).MultiplyConstant(gain).AddConstant(offset).Rename(b)
		if i == 0 {
			normalized = adj
		} else {
			normalized = normalized.AddBands(adj)
		}
	}
	out.Normalized = normalized
	return out, nil
}

// orthogonalFit solves the total-least-squares line r = gain*t + offset
// from the first and second moments of the (t, r) pair.
func orthogonalFit(mt, mr, stt, srr, str float64) (gain, offset float64, err error) {
	if stt <= 0 {
		return 0, 0, fmt.Errorf("target band has no variance")
	}
	if str == 0 {
		return 0, 0, fmt.Errorf("bands are uncorrelated")
	}
	d := srr - stt
	gain = (d + math.Sqrt(d*d+4*str*str)) / (2 * str)
	offset = mr - gain*mt
	return gain, offset, nil
}
