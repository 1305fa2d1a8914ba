package spectral

import "fmt"

// Role names a wavelength region independent of any sensor's band naming.
type Role string

// Wavelength roles used by the index formulas.
const (
	Blue    Role = "blue"
	Green   Role = "green"
	Red     Role = "red"
	RedEdge Role = "rededge"
	NIR     Role = "nir"
	SWIR1   Role = "swir1"
	SWIR2   Role = "swir2"
	Thermal Role = "thermal"
)

// Sensor maps wavelength roles to a platform's band names for one
// instrument.
type Sensor struct {
	Name  string
	Bands map[Role]string
}

// Built-in sensor band maps.
var (
	// Landsat5 covers the TM instrument (also valid for Landsat 4).
	Landsat5 = Sensor{
		Name: "landsat5",
		Bands: map[Role]string{
			Blue: "B1", Green: "B2", Red: "B3", NIR: "B4",
			SWIR1: "B5", Thermal: "B6", SWIR2: "B7",
		},
	}

	// Landsat7 covers the ETM+ instrument.
	Landsat7 = Sensor{
		Name: "landsat7",
		Bands: map[Role]string{
			Blue: "B1", Green: "B2", Red: "B3", NIR: "B4",
			SWIR1: "B5", Thermal: "B6_VCID_1", SWIR2: "B7",
		},
	}

	// Landsat8 covers OLI/TIRS (also valid for Landsat 9).
	Landsat8 = Sensor{
		Name: "landsat8",
		Bands: map[Role]string{
			Blue: "B2", Green: "B3", Red: "B4", NIR: "B5",
			SWIR1: "B6", SWIR2: "B7", Thermal: "B10",
		},
	}

	// Sentinel2 covers the MSI instrument at processing levels 1C and 2A.
	Sentinel2 = Sensor{
		Name: "sentinel2",
		Bands: map[Role]string{
			Blue: "B2", Green: "B3", Red: "B4", RedEdge: "B5",
			NIR: "B8", SWIR1: "B11", SWIR2: "B12",
		},
	}

	// MODIS covers the MOD09 surface reflectance products.
	MODIS = Sensor{
		Name: "modis",
		Bands: map[Role]string{
			Red: "sur_refl_b01", NIR: "sur_refl_b02", Blue: "sur_refl_b03",
			Green: "sur_refl_b04", SWIR1: "sur_refl_b06", SWIR2: "sur_refl_b07",
		},
	}
)

// SensorByName looks up a built-in sensor by its lowercase name.
func SensorByName(name string) (Sensor, error) {
	for _, s := range []Sensor{Landsat5, Landsat7, Landsat8, Sentinel2, MODIS} {
		if s.Name == name {
			return s, nil
		}
	}
	return Sensor{}, fmt.Errorf("spectral: unknown sensor %q", name)
}

// Band returns the sensor's band name for a role.
func (s Sensor) Band(r Role) (string, error) {
	b, ok := s.Bands[r]
	if !ok {
		return "", fmt.Errorf("spectral: sensor %s has no %s band", s.Name, r)
	}
	return b, nil
}

// bands resolves several roles at once, failing on the first missing one.
func (s Sensor) bands(roles ...Role) ([]string, error) {
	out := make([]string, len(roles))
	for i, r := range roles {
		b, err := s.Band(r)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
