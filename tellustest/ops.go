package tellustest

import (
	"fmt"
	"math"
)

// growTo expands a 1x1 constant raster to w*h. Any other shape must match
// exactly.
func growTo(r *Raster, w, h int) (*Raster, error) {
	if r.W == w && r.H == h {
		return r, nil
	}
	if r.W != 1 || r.H != 1 {
		return nil, fmt.Errorf("shape mismatch: %dx%d vs %dx%d", r.W, r.H, w, h)
	}
	out := NewRaster(w, h, r.Bands...)
	for _, b := range r.Bands {
		v := r.Data[b][0]
		px := out.Data[b]
		for i := range px {
			px[i] = v
		}
	}
	if !r.Mask[0] {
		for i := range out.Mask {
			out.Mask[i] = false
		}
	}
	return out, nil
}

// broadcast grows constants so both operands share a shape.
func broadcast(a, b *Raster) (*Raster, *Raster, error) {
	w, h := a.W, a.H
	if b.W*b.H > w*h {
		w, h = b.W, b.H
	}
	ga, err := growTo(a, w, h)
	if err != nil {
		return nil, nil, err
	}
	gb, err := growTo(b, w, h)
	if err != nil {
		return nil, nil, err
	}
	return ga, gb, nil
}

// mapPixels applies f to every band of every valid pixel.
func mapPixels(r *Raster, f func(float64) float64) *Raster {
	out := r.clone()
	for _, b := range out.Bands {
		px := out.Data[b]
		for i := range px {
			if out.Mask[i] {
				px[i] = f(px[i])
			}
		}
	}
	return out
}

func b2px(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// binaryOp evaluates pixelwise arithmetic between two images. A single-band
// operand is applied against every band of a multiband one; the result keeps
// the multiband operand's band names.
func binaryOp(fn string, left, right *Raster) (*Raster, error) {
	left, right, err := broadcast(left, right)
	if err != nil {
		return nil, err
	}
	out, la, ra := pairBands(left, right)
	if out == nil {
		return nil, fmt.Errorf("band count mismatch: %d vs %d", len(left.Bands), len(right.Bands))
	}
	for i := range out.Mask {
		out.Mask[i] = left.Mask[i] && right.Mask[i]
	}
	for bi, b := range out.Bands {
		lp := left.Data[la[bi]]
		rp := right.Data[ra[bi]]
		px := out.Data[b]
		for i := range px {
			if !out.Mask[i] {
				continue
			}
			l, r := lp[i], rp[i]
			switch fn {
			case "Image.add":
				px[i] = l + r
			case "Image.subtract":
				px[i] = l - r
			case "Image.multiply":
				px[i] = l * r
			case "Image.divide":
				if r == 0 {
					out.Mask[i] = false
					continue
				}
				px[i] = l / r
			case "Image.pow":
				px[i] = math.Pow(l, r)
			case "Image.lt":
				px[i] = b2px(l < r)
			case "Image.lte":
				px[i] = b2px(l <= r)
			case "Image.gt":
				px[i] = b2px(l > r)
			case "Image.gte":
				px[i] = b2px(l >= r)
			case "Image.eq":
				px[i] = b2px(l == r)
			case "Image.neq":
				px[i] = b2px(l != r)
			case "Image.and":
				px[i] = b2px(l != 0 && r != 0)
			case "Image.or":
				px[i] = b2px(l != 0 || r != 0)
			}
		}
	}
	return out, nil
}

// pairBands aligns the two operand band lists and allocates the output
// raster. Returns nil when the counts cannot be reconciled.
func pairBands(left, right *Raster) (out *Raster, la, ra []string) {
	switch {
	case len(left.Bands) == len(right.Bands):
		out = NewRaster(left.W, left.H, left.Bands...)
		return out, left.Bands, right.Bands
	case len(right.Bands) == 1:
		out = NewRaster(left.W, left.H, left.Bands...)
		ra = make([]string, len(left.Bands))
		for i := range ra {
			ra[i] = right.Bands[0]
		}
		return out, left.Bands, ra
	case len(left.Bands) == 1:
		out = NewRaster(left.W, left.H, right.Bands...)
		la = make([]string, len(right.Bands))
		for i := range la {
			la[i] = left.Bands[0]
		}
		return out, la, right.Bands
	}
	return nil, nil, nil
}

func unaryOp(fn string, r *Raster) (*Raster, error) {
	switch fn {
	case "Image.log":
		out := r.clone()
		for _, b := range out.Bands {
			px := out.Data[b]
			for i := range px {
				if !out.Mask[i] {
					continue
				}
				if px[i] <= 0 {
					out.Mask[i] = false
					continue
				}
				px[i] = math.Log(px[i])
			}
		}
		return out, nil
	case "Image.exp":
		return mapPixels(r, math.Exp), nil
	case "Image.sqrt":
		out := r.clone()
		for _, b := range out.Bands {
			px := out.Data[b]
			for i := range px {
				if !out.Mask[i] {
					continue
				}
				if px[i] < 0 {
					out.Mask[i] = false
					continue
				}
				px[i] = math.Sqrt(px[i])
			}
		}
		return out, nil
	case "Image.abs":
		return mapPixels(r, math.Abs), nil
	case "Image.not":
		return mapPixels(r, func(v float64) float64 { return b2px(v == 0) }), nil
	case "Image.mask":
		out := NewRaster(r.W, r.H, r.Bands...)
		for _, b := range out.Bands {
			px := out.Data[b]
			for i := range px {
				px[i] = b2px(r.Mask[i])
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown function")
}

// geomSpec is the emulator's geometry: coordinates are fractions of the
// grid in [0, 1].
type geomSpec struct {
	kind   string // "point", "rectangle", "polygon"
	coords []float64
}

// applyGeometry builds a geomSpec from a Geometry.* invocation.
func applyGeometry(fn string, a args) (any, error) {
	switch fn {
	case "Geometry.point":
		coords, err := a.floats("coordinates")
		if err != nil {
			return nil, err
		}
		if len(coords) != 2 {
			return nil, fmt.Errorf("point needs [x, y] coordinates")
		}
		return &geomSpec{kind: "point", coords: coords}, nil

	case "Geometry.rectangle":
		coords, err := a.floats("coordinates")
		if err != nil {
			return nil, err
		}
		if len(coords) != 4 {
			return nil, fmt.Errorf("rectangle needs [west, south, east, north] coordinates")
		}
		if coords[0] >= coords[2] || coords[1] >= coords[3] {
			return nil, fmt.Errorf("degenerate rectangle")
		}
		return &geomSpec{kind: "rectangle", coords: coords}, nil

	case "Geometry.polygon":
		ring, err := a.matrix("coordinates")
		if err != nil {
			return nil, err
		}
		if len(ring) < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 vertices")
		}
		flat := make([]float64, 0, len(ring)*2)
		for _, pt := range ring {
			if len(pt) != 2 {
				return nil, fmt.Errorf("polygon vertices must be [x, y] pairs")
			}
			flat = append(flat, pt[0], pt[1])
		}
		return &geomSpec{kind: "polygon", coords: flat}, nil
	}
	return nil, fmt.Errorf("unknown function")
}

// bounds returns the geometry's bounding box in fractional coordinates.
func (g *geomSpec) bounds() (x0, y0, x1, y1 float64) {
	switch g.kind {
	case "point":
		return g.coords[0], g.coords[1], g.coords[0], g.coords[1]
	case "rectangle":
		return g.coords[0], g.coords[1], g.coords[2], g.coords[3]
	}
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(g.coords); i += 2 {
		x0 = math.Min(x0, g.coords[i])
		x1 = math.Max(x1, g.coords[i])
		y0 = math.Min(y0, g.coords[i+1])
		y1 = math.Max(y1, g.coords[i+1])
	}
	return x0, y0, x1, y1
}

// window converts the bounding box to pixel indices on a w*h grid. A point
// selects the single pixel it lands on.
func (g *geomSpec) window(w, h int) (px0, py0, px1, py1 int) {
	x0, y0, x1, y1 := g.bounds()
	px0 = int(x0 * float64(w))
	py0 = int(y0 * float64(h))
	px1 = int(math.Ceil(x1 * float64(w)))
	py1 = int(math.Ceil(y1 * float64(h)))
	if px1 <= px0 {
		px1 = px0 + 1
	}
	if py1 <= py0 {
		py1 = py0 + 1
	}
	px0 = min(max(px0, 0), w)
	py0 = min(max(py0, 0), h)
	px1 = min(max(px1, 0), w)
	py1 = min(max(py1, 0), h)
	return px0, py0, px1, py1
}

// intersects reports whether the bounding boxes overlap.
func (g *geomSpec) intersects(fp [4]float64) bool {
	x0, y0, x1, y1 := g.bounds()
	return x0 <= fp[2] && x1 >= fp[0] && y0 <= fp[3] && y1 >= fp[1]
}
