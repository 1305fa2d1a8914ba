package spectral

import (
	"fmt"
	"sort"
	"strings"

	tellus "github.com/tellusgeo/tellus-go"
)

// normDiff builds a normalized difference (a-b)/(a+b) renamed to the index
// name.
func normDiff(img tellus.Image, s Sensor, name string, a, b Role) (tellus.Image, error) {
	bands, err := s.bands(a, b)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("%s: %w", name, err)
	}
	return img.NormalizedDifference(bands[0], bands[1]).Rename(name), nil
}

// roleVars selects one single-band image per role for use in an expression.
func roleVars(img tellus.Image, s Sensor, roles ...Role) (map[string]tellus.Image, error) {
	vars := make(map[string]tellus.Image, len(roles))
	for _, r := range roles {
		b, err := s.Band(r)
		if err != nil {
			return nil, err
		}
		vars[string(r)] = img.Select(b)
	}
	return vars, nil
}

// NDVI computes the Normalized Difference Vegetation Index (nir-red)/(nir+red).
func NDVI(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "NDVI", NIR, Red)
}

// GNDVI computes the green NDVI variant (nir-green)/(nir+green).
func GNDVI(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "GNDVI", NIR, Green)
}

// NDWI computes McFeeters' water index (green-nir)/(green+nir).
func NDWI(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "NDWI", Green, NIR)
}

// MNDWI computes the modified water index (green-swir1)/(green+swir1).
func MNDWI(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "MNDWI", Green, SWIR1)
}

// NDBI computes the built-up index (swir1-nir)/(swir1+nir).
func NDBI(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "NDBI", SWIR1, NIR)
}

// NBR computes the burn ratio (nir-swir2)/(nir+swir2).
func NBR(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "NBR", NIR, SWIR2)
}

// NDSI computes the snow index (green-swir1)/(green+swir1).
func NDSI(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "NDSI", Green, SWIR1)
}

// NDRE computes the red-edge index (nir-rededge)/(nir+rededge). Requires a
// red-edge band (Sentinel-2).
func NDRE(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "NDRE", NIR, RedEdge)
}

// NDMI computes the moisture index (nir-swir1)/(nir+swir1).
func NDMI(img tellus.Image, s Sensor) (tellus.Image, error) {
	return normDiff(img, s, "NDMI", NIR, SWIR1)
}

// PSRI computes the plant senescence reflectance index (red-blue)/rededge.
// Requires a red-edge band (Sentinel-2).
func PSRI(img tellus.Image, s Sensor) (tellus.Image, error) {
	vars, err := roleVars(img, s, Red, Blue, RedEdge)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("PSRI: %w", err)
	}
	return tellus.Expression("(red - blue) / rededge", vars).Rename("PSRI"), nil
}

// SAVI computes the soil-adjusted vegetation index with soil factor l,
// conventionally 0.5.
func SAVI(img tellus.Image, s Sensor, l float64) (tellus.Image, error) {
	vars, err := roleVars(img, s, NIR, Red)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("SAVI: %w", err)
	}
	formula := fmt.Sprintf("((nir - red) / (nir + red + %g)) * (1 + %g)", l, l)
	return tellus.Expression(formula, vars).Rename("SAVI"), nil
}

// MSAVI computes the modified SAVI, which removes the manual soil factor.
func MSAVI(img tellus.Image, s Sensor) (tellus.Image, error) {
	vars, err := roleVars(img, s, NIR, Red)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("MSAVI: %w", err)
	}
	formula := "(2 * nir + 1 - sqrt((2 * nir + 1) ** 2 - 8 * (nir - red))) / 2"
	return tellus.Expression(formula, vars).Rename("MSAVI"), nil
}

// EVI computes the enhanced vegetation index with the standard MODIS
// coefficients (G=2.5, C1=6, C2=7.5, L=1).
func EVI(img tellus.Image, s Sensor) (tellus.Image, error) {
	vars, err := roleVars(img, s, NIR, Red, Blue)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("EVI: %w", err)
	}
	formula := "2.5 * (nir - red) / (nir + 6 * red - 7.5 * blue + 1)"
	return tellus.Expression(formula, vars).Rename("EVI"), nil
}

// EVI2 computes the two-band EVI approximation, for sensors without a
// reliable blue band.
func EVI2(img tellus.Image, s Sensor) (tellus.Image, error) {
	vars, err := roleVars(img, s, NIR, Red)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("EVI2: %w", err)
	}
	formula := "2.5 * (nir - red) / (nir + 2.4 * red + 1)"
	return tellus.Expression(formula, vars).Rename("EVI2"), nil
}

// ARVI computes the atmospherically resistant vegetation index.
func ARVI(img tellus.Image, s Sensor) (tellus.Image, error) {
	vars, err := roleVars(img, s, NIR, Red, Blue)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("ARVI: %w", err)
	}
	formula := "(nir - (2 * red - blue)) / (nir + (2 * red - blue))"
	return tellus.Expression(formula, vars).Rename("ARVI"), nil
}

// BSI computes the bare soil index.
func BSI(img tellus.Image, s Sensor) (tellus.Image, error) {
	vars, err := roleVars(img, s, SWIR1, Red, NIR, Blue)
	if err != nil {
		return tellus.Image{}, fmt.Errorf("BSI: %w", err)
	}
	formula := "((swir1 + red) - (nir + blue)) / ((swir1 + red) + (nir + blue))"
	return tellus.Expression(formula, vars).Rename("BSI"), nil
}

// indexFunc adapts the helpers that take no extra parameters.
type indexFunc func(tellus.Image, Sensor) (tellus.Image, error)

var indexRegistry = map[string]indexFunc{
	"ndvi":  NDVI,
	"gndvi": GNDVI,
	"ndwi":  NDWI,
	"mndwi": MNDWI,
	"ndbi":  NDBI,
	"nbr":   NBR,
	"ndsi":  NDSI,
	"ndre":  NDRE,
	"ndmi":  NDMI,
	"psri":  PSRI,
	"msavi": MSAVI,
	"evi":   EVI,
	"evi2":  EVI2,
	"arvi":  ARVI,
	"bsi":   BSI,
	// SAVI with the conventional soil factor.
	"savi": func(img tellus.Image, s Sensor) (tellus.Image, error) {
		return SAVI(img, s, 0.5)
	},
}

// Indices returns the canonical names accepted by Compute, sorted.
func Indices() []string {
	names := make([]string, 0, len(indexRegistry))
	for name := range indexRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compute looks up an index by its canonical lowercase name and builds it.
func Compute(img tellus.Image, s Sensor, name string) (tellus.Image, error) {
	fn, ok := indexRegistry[strings.ToLower(name)]
	if !ok {
		return tellus.Image{}, fmt.Errorf("spectral: unknown index %q (known: %s)",
			name, strings.Join(Indices(), ", "))
	}
	return fn(img, s)
}
