package calibrate

import (
	"context"
	"fmt"
	"math"
	"sort"

	tellus "github.com/tellusgeo/tellus-go"
)

// Metadata carries the per-scene radiometric rescaling coefficients,
// normally parsed from the scene's delivery metadata (e.g. a Landsat MTL
// file).
type Metadata struct {
	// RadianceMult and RadianceAdd rescale DN to spectral radiance
	// (W/(m² sr µm)), keyed by band name.
	RadianceMult map[string]float64
	RadianceAdd  map[string]float64

	// ReflectanceMult and ReflectanceAdd rescale DN straight to TOA
	// reflectance before sun-angle correction, keyed by band name.
	ReflectanceMult map[string]float64
	ReflectanceAdd  map[string]float64

	// SunElevationDeg is the scene-center solar elevation in degrees.
	SunElevationDeg float64

	// K1 and K2 are the thermal conversion constants, keyed by thermal
	// band name.
	K1 map[string]float64
	K2 map[string]float64
}

// coeffs resolves per-band coefficients in band order.
func coeffs(m map[string]float64, bands []string, kind string) ([]float64, error) {
	out := make([]float64, len(bands))
	for i, b := range bands {
		v, ok := m[b]
		if !ok {
			return nil, fmt.Errorf("calibrate: no %s coefficient for band %s", kind, b)
		}
		out[i] = v
	}
	return out, nil
}

// Radiance converts the named DN bands to TOA spectral radiance:
// L = M_L * DN + A_L per band.
func Radiance(img tellus.Image, md Metadata, bands []string) (tellus.Image, error) {
	mult, err := coeffs(md.RadianceMult, bands, "radiance gain")
	if err != nil {
		return tellus.Image{}, err
	}
	add, err := coeffs(md.RadianceAdd, bands, "radiance bias")
	if err != nil {
		return tellus.Image{}, err
	}
	return img.Select(bands...).
		Multiply(tellus.ConstantList(mult)).
		Add(tellus.ConstantList(add)).
		Rename(bands...), nil
}

// Reflectance converts the named DN bands to TOA reflectance with
// sun-angle correction: ρ = (M_ρ * DN + A_ρ) / sin(θ_SE).
func Reflectance(img tellus.Image, md Metadata, bands []string) (tellus.Image, error) {
	mult, err := coeffs(md.ReflectanceMult, bands, "reflectance gain")
	if err != nil {
		return tellus.Image{}, err
	}
	add, err := coeffs(md.ReflectanceAdd, bands, "reflectance bias")
	if err != nil {
		return tellus.Image{}, err
	}
	sinElev := math.Sin(md.SunElevationDeg * math.Pi / 180)
	if sinElev <= 0 {
		return tellus.Image{}, fmt.Errorf("calibrate: sun elevation %.2f° leaves no illumination", md.SunElevationDeg)
	}
	return img.Select(bands...).
		Multiply(tellus.ConstantList(mult)).
		Add(tellus.ConstantList(add)).
		MultiplyConstant(1 / sinElev).
		Rename(bands...), nil
}

// BrightnessTemperature converts a thermal DN band to at-sensor brightness
// temperature in kelvin: T = K2 / ln(K1/L + 1).
func BrightnessTemperature(img tellus.Image, md Metadata, band string) (tellus.Image, error) {
	rad, err := Radiance(img, md, []string{band})
	if err != nil {
		return tellus.Image{}, err
	}
	k1, ok := md.K1[band]
	if !ok {
		return tellus.Image{}, fmt.Errorf("calibrate: no K1 constant for band %s", band)
	}
	k2, ok := md.K2[band]
	if !ok {
		return tellus.Image{}, fmt.Errorf("calibrate: no K2 constant for band %s", band)
	}
	formula := fmt.Sprintf("%g / log(%g / radiance + 1)", k2, k1)
	return tellus.Expression(formula, map[string]tellus.Image{
		"radiance": rad,
	}).Rename("BT"), nil
}

// DarkObjectSubtract approximates surface reflectance by subtracting each
// band's dark-object value, taken as the given percentile over region.
// Results are clamped at zero. This issues one remote reduction before
// returning the corrected graph.
func DarkObjectSubtract(ctx context.Context, c *tellus.Client, img tellus.Image, region tellus.Geometry, bands []string, percentile, scale float64) (tellus.Image, error) {
	sel := img.Select(bands...)
	res, err := c.Compute(ctx, sel.ReduceRegion(tellus.Percentile(percentile), region, scale))
	if err != nil {
		return tellus.Image{}, fmt.Errorf("calibrate: dark-object reduction: %w", err)
	}
	dark, err := res.FloatMap()
	if err != nil {
		return tellus.Image{}, fmt.Errorf("calibrate: dark-object reduction: %w", err)
	}
	// FloatMap keys are band names; keep the caller's band order.
	offsets := make([]float64, len(bands))
	for i, b := range bands {
		v, ok := dark[b]
		if !ok {
			keys := make([]string, 0, len(dark))
			for k := range dark {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return tellus.Image{}, fmt.Errorf("calibrate: reduction returned no value for band %s (got %v)", b, keys)
		}
		offsets[i] = v
	}
	sub := sel.Subtract(tellus.ConstantList(offsets))
	zero := tellus.Constant(0)
	return sub.Where(sub.Lt(zero), zero).Rename(bands...), nil
}
