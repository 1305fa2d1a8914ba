package spectral

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette is an ordered color ramp used to render single-band thumbnails.
type Palette []colorful.Color

// ParsePalette builds a palette from "#RRGGBB" hex stops.
func ParsePalette(hex []string) (Palette, error) {
	p := make(Palette, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("spectral: bad palette stop %q: %w", h, err)
		}
		p[i] = c
	}
	return p, nil
}

// Hex returns the wire form of the palette for thumbnail requests.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// At interpolates the ramp at t in [0,1] through Lab space, which keeps
// gradients perceptually even.
func (p Palette) At(t float64) colorful.Color {
	if len(p) == 0 {
		return colorful.Color{}
	}
	if len(p) == 1 || t <= 0 {
		return p[0]
	}
	if t >= 1 {
		return p[len(p)-1]
	}
	pos := t * float64(len(p)-1)
	i := int(pos)
	frac := pos - float64(i)
	return p[i].BlendLab(p[i+1], frac).Clamped()
}

// Gradient expands the ramp to n evenly spaced stops.
func (p Palette) Gradient(n int) Palette {
	if n <= 0 {
		return nil
	}
	out := make(Palette, n)
	if n == 1 {
		out[0] = p.At(0)
		return out
	}
	for i := range out {
		out[i] = p.At(float64(i) / float64(n-1))
	}
	return out
}

func mustPalette(hex ...string) Palette {
	p, err := ParsePalette(hex)
	if err != nil {
		panic(err)
	}
	return p
}

// Stock ramps for the common index visualizations.
var (
	// VegetationRamp runs soil brown through yellow to deep green, the
	// usual NDVI display.
	VegetationRamp = mustPalette("#a52a2a", "#d2b48c", "#ffff00", "#90ee90", "#006400")

	// WaterRamp runs dry white into deep blue, for NDWI/MNDWI.
	WaterRamp = mustPalette("#ffffff", "#add8e6", "#4169e1", "#00008b")

	// BurnRamp runs healthy green through orange to burned purple, for NBR
	// differences.
	BurnRamp = mustPalette("#006400", "#ffff00", "#ff8c00", "#ff0000", "#800080")
)
