package calibrate

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseMTL reads Landsat MTL-style "KEY = VALUE" metadata and extracts the
// radiometric rescaling coefficients into a Metadata. Keys like
// RADIANCE_MULT_BAND_4 map to band "B4". Unrecognized keys are ignored, so
// a full MTL file parses cleanly.
func ParseMTL(r io.Reader) (Metadata, error) {
	md := Metadata{
		RadianceMult:    map[string]float64{},
		RadianceAdd:     map[string]float64{},
		ReflectanceMult: map[string]float64{},
		ReflectanceAdd:  map[string]float64{},
		K1:              map[string]float64{},
		K2:              map[string]float64{},
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"`)

		var dst map[string]float64
		var prefix string
		switch {
		case strings.HasPrefix(key, "RADIANCE_MULT_BAND_"):
			dst, prefix = md.RadianceMult, "RADIANCE_MULT_BAND_"
		case strings.HasPrefix(key, "RADIANCE_ADD_BAND_"):
			dst, prefix = md.RadianceAdd, "RADIANCE_ADD_BAND_"
		case strings.HasPrefix(key, "REFLECTANCE_MULT_BAND_"):
			dst, prefix = md.ReflectanceMult, "REFLECTANCE_MULT_BAND_"
		case strings.HasPrefix(key, "REFLECTANCE_ADD_BAND_"):
			dst, prefix = md.ReflectanceAdd, "REFLECTANCE_ADD_BAND_"
		case strings.HasPrefix(key, "K1_CONSTANT_BAND_"):
			dst, prefix = md.K1, "K1_CONSTANT_BAND_"
		case strings.HasPrefix(key, "K2_CONSTANT_BAND_"):
			dst, prefix = md.K2, "K2_CONSTANT_BAND_"
		case key == "SUN_ELEVATION":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return md, fmt.Errorf("calibrate: bad SUN_ELEVATION %q: %w", val, err)
			}
			md.SunElevationDeg = v
			continue
		default:
			continue
		}

		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return md, fmt.Errorf("calibrate: bad value for %s: %w", key, err)
		}
		dst["B"+strings.TrimPrefix(key, prefix)] = v
	}
	if err := sc.Err(); err != nil {
		return md, fmt.Errorf("calibrate: reading metadata: %w", err)
	}
	return md, nil
}
