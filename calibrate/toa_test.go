package calibrate_test

import (
	"context"
	"math"
	"net/http/httptest"
	"testing"

	tellus "github.com/tellusgeo/tellus-go"
	"github.com/tellusgeo/tellus-go/calibrate"
	"github.com/tellusgeo/tellus-go/tellustest"
)

func newFixture(t *testing.T, r *tellustest.Raster) *tellus.Client {
	t.Helper()
	srv := tellustest.NewServer()
	srv.Store().AddScene("scene", r)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	client, err := tellus.NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func constantScene(values map[string]float64) *tellustest.Raster {
	bands := make([]string, 0, len(values))
	for b := range values {
		bands = append(bands, b)
	}
	r := tellustest.NewRaster(4, 4, bands...)
	for b, v := range values {
		px := make([]float64, 16)
		for i := range px {
			px[i] = v
		}
		r.SetBand(b, px)
	}
	return r
}

func bandMean(t *testing.T, client *tellus.Client, img tellus.Image, band string) float64 {
	t.Helper()
	res, err := client.Compute(context.Background(),
		img.ReduceRegion(tellus.Mean(), tellus.Rectangle(0, 0, 1, 1), 30))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	m, err := res.FloatMap()
	if err != nil {
		t.Fatalf("FloatMap failed: %v", err)
	}
	v, ok := m[band]
	if !ok {
		t.Fatalf("no band %q in %v", band, m)
	}
	return v
}

func TestRadiance(t *testing.T) {
	client := newFixture(t, constantScene(map[string]float64{"B4": 100, "B5": 200}))
	md := calibrate.Metadata{
		RadianceMult: map[string]float64{"B4": 0.01, "B5": 0.02},
		RadianceAdd:  map[string]float64{"B4": 0.5, "B5": -1},
	}

	rad, err := calibrate.Radiance(tellus.NewImage("scene"), md, []string{"B4", "B5"})
	if err != nil {
		t.Fatalf("Radiance failed: %v", err)
	}
	if got := bandMean(t, client, rad, "B4"); math.Abs(got-1.5) > 1e-9 {
		t.Errorf("B4 radiance: got %g, want 1.5", got)
	}
	if got := bandMean(t, client, rad, "B5"); math.Abs(got-3) > 1e-9 {
		t.Errorf("B5 radiance: got %g, want 3", got)
	}
}

func TestRadiance_MissingCoefficient(t *testing.T) {
	md := calibrate.Metadata{RadianceMult: map[string]float64{"B4": 0.01}}
	if _, err := calibrate.Radiance(tellus.NewImage("scene"), md, []string{"B4", "B5"}); err == nil {
		t.Error("expected an error for the missing B5 coefficient")
	}
}

func TestReflectance_SunAngleCorrection(t *testing.T) {
	client := newFixture(t, constantScene(map[string]float64{"B4": 1000}))
	md := calibrate.Metadata{
		ReflectanceMult: map[string]float64{"B4": 2e-5},
		ReflectanceAdd:  map[string]float64{"B4": -0.1},
		SunElevationDeg: 30, // sin = 0.5, doubles the result
	}

	refl, err := calibrate.Reflectance(tellus.NewImage("scene"), md, []string{"B4"})
	if err != nil {
		t.Fatalf("Reflectance failed: %v", err)
	}
	want := (2e-5*1000 - 0.1) / 0.5
	if got := bandMean(t, client, refl, "B4"); math.Abs(got-want) > 1e-9 {
		t.Errorf("reflectance: got %g, want %g", got, want)
	}
}

func TestReflectance_NoIllumination(t *testing.T) {
	md := calibrate.Metadata{
		ReflectanceMult: map[string]float64{"B4": 2e-5},
		ReflectanceAdd:  map[string]float64{"B4": -0.1},
		SunElevationDeg: 0,
	}
	if _, err := calibrate.Reflectance(tellus.NewImage("scene"), md, []string{"B4"}); err == nil {
		t.Error("expected an error for zero sun elevation")
	}
}

func TestBrightnessTemperature(t *testing.T) {
	client := newFixture(t, constantScene(map[string]float64{"B10": 20000}))
	md := calibrate.Metadata{
		RadianceMult: map[string]float64{"B10": 3.342e-4},
		RadianceAdd:  map[string]float64{"B10": 0.1},
		K1:           map[string]float64{"B10": 774.8853},
		K2:           map[string]float64{"B10": 1321.0789},
	}

	bt, err := calibrate.BrightnessTemperature(tellus.NewImage("scene"), md, "B10")
	if err != nil {
		t.Fatalf("BrightnessTemperature failed: %v", err)
	}
	l := 3.342e-4*20000 + 0.1
	want := 1321.0789 / math.Log(774.8853/l+1)
	if got := bandMean(t, client, bt, "BT"); math.Abs(got-want) > 1e-6 {
		t.Errorf("brightness temperature: got %g, want %g", got, want)
	}
}

func TestDarkObjectSubtract(t *testing.T) {
	r := tellustest.NewRaster(4, 1, "B4")
	r.SetBand("B4", []float64{0.02, 0.12, 0.22, 0.32})
	client := newFixture(t, r)

	img, err := calibrate.DarkObjectSubtract(context.Background(), client,
		tellus.NewImage("scene"), tellus.Rectangle(0, 0, 1, 1), []string{"B4"}, 5, 30)
	if err != nil {
		t.Fatalf("DarkObjectSubtract failed: %v", err)
	}
	// The 5th percentile is the darkest pixel (0.02); after subtraction the
	// mean drops by it and nothing goes negative.
	want := (0.0 + 0.1 + 0.2 + 0.3) / 4
	if got := bandMean(t, client, img, "B4"); math.Abs(got-want) > 1e-9 {
		t.Errorf("corrected mean: got %g, want %g", got, want)
	}
}

func TestMaskLandsatQA(t *testing.T) {
	r := tellustest.NewRaster(4, 1, "B4", "QA_PIXEL")
	r.SetBand("B4", []float64{1, 2, 3, 4})
	r.SetBand("QA_PIXEL", []float64{
		0,
		1 << calibrate.QABitCloud,
		1 << calibrate.QABitCloudShadow,
		0,
	})
	client := newFixture(t, r)

	masked := calibrate.MaskLandsatQA(tellus.NewImage("scene"), "QA_PIXEL").Select("B4")
	res, err := client.Compute(context.Background(),
		masked.ReduceRegion(tellus.Count().Combine(tellus.Sum()), tellus.Rectangle(0, 0, 1, 1), 30))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	m, err := res.FloatMap()
	if err != nil {
		t.Fatalf("FloatMap failed: %v", err)
	}
	if m["B4_count"] != 2 {
		t.Errorf("count: got %g, want 2", m["B4_count"])
	}
	if m["B4_sum"] != 5 {
		t.Errorf("sum: got %g, want 5 (pixels 1 and 4)", m["B4_sum"])
	}
}

func TestMaskSentinel2SCL(t *testing.T) {
	r := tellustest.NewRaster(4, 1, "B4", "SCL")
	r.SetBand("B4", []float64{1, 2, 3, 4})
	r.SetBand("SCL", []float64{4, 9, 3, 5}) // 9 and 3 are cloud classes
	client := newFixture(t, r)

	masked := calibrate.MaskSentinel2SCL(tellus.NewImage("scene"), "SCL").Select("B4")
	res, err := client.Compute(context.Background(),
		masked.ReduceRegion(tellus.Sum(), tellus.Rectangle(0, 0, 1, 1), 30))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	m, err := res.FloatMap()
	if err != nil {
		t.Fatalf("FloatMap failed: %v", err)
	}
	if m["B4"] != 5 {
		t.Errorf("sum of clear pixels: got %g, want 5", m["B4"])
	}
}
