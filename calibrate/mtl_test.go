package calibrate_test

import (
	"strings"
	"testing"

	"github.com/tellusgeo/tellus-go/calibrate"
)

const sampleMTL = `GROUP = LANDSAT_METADATA_FILE
  SPACECRAFT_ID = "LANDSAT_8"
  SUN_ELEVATION = 45.123
  RADIANCE_MULT_BAND_4 = 1.2052E-02
  RADIANCE_ADD_BAND_4 = -60.25889
  REFLECTANCE_MULT_BAND_4 = 2.0000E-05
  REFLECTANCE_ADD_BAND_4 = -0.100000
  K1_CONSTANT_BAND_10 = 774.8853
  K2_CONSTANT_BAND_10 = 1321.0789
END_GROUP = LANDSAT_METADATA_FILE
`

func TestParseMTL(t *testing.T) {
	md, err := calibrate.ParseMTL(strings.NewReader(sampleMTL))
	if err != nil {
		t.Fatalf("ParseMTL failed: %v", err)
	}
	if md.SunElevationDeg != 45.123 {
		t.Errorf("sun elevation: got %g", md.SunElevationDeg)
	}
	if got := md.RadianceMult["B4"]; got != 1.2052e-02 {
		t.Errorf("radiance mult B4: got %g", got)
	}
	if got := md.RadianceAdd["B4"]; got != -60.25889 {
		t.Errorf("radiance add B4: got %g", got)
	}
	if got := md.ReflectanceMult["B4"]; got != 2e-05 {
		t.Errorf("reflectance mult B4: got %g", got)
	}
	if got := md.K1["B10"]; got != 774.8853 {
		t.Errorf("K1 B10: got %g", got)
	}
	if got := md.K2["B10"]; got != 1321.0789 {
		t.Errorf("K2 B10: got %g", got)
	}
}

func TestParseMTL_BadValue(t *testing.T) {
	_, err := calibrate.ParseMTL(strings.NewReader("RADIANCE_MULT_BAND_4 = not-a-number\n"))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if _, err := calibrate.ParseMTL(strings.NewReader("SUN_ELEVATION = low\n")); err == nil {
		t.Fatal("expected a parse error for sun elevation")
	}
}
