package tellustest

import (
	"math"
	"testing"

	tellus "github.com/tellusgeo/tellus-go"
)

func TestScalarReducers(t *testing.T) {
	store := NewSceneStore()
	r := NewRaster(4, 2, "B1")
	r.SetBand("B1", []float64{1, 2, 3, 4, 5, 6, 7, 8})
	store.AddScene("s", r)

	img := tellus.NewImage("s")
	region := tellus.Rectangle(0, 0, 1, 1)
	tests := []struct {
		name string
		red  tellus.Reducer
		want float64
	}{
		{"sum", tellus.Sum(), 36},
		{"median", tellus.Median(), 4},
		{"variance", tellus.Variance(), 6},
		{"stdDev", tellus.StdDev(), math.Sqrt(6)},
		{"p25", tellus.Percentile(25), 2},
		{"p100", tellus.Percentile(100), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := evalOp(t, store, img.ReduceRegion(tt.red, region, 30)).(map[string]any)
			got := m["B1"].(float64)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestCombinedWeightBands(t *testing.T) {
	store := NewSceneStore()
	r := NewRaster(2, 1, "B1", "w")
	r.SetBand("B1", []float64{1, 3})
	r.SetBand("w", []float64{1, 0})
	store.AddScene("s", r)

	img := tellus.NewImage("s")
	region := tellus.Rectangle(0, 0, 1, 1)

	// A weight band declared on either side applies to the whole combine.
	red := tellus.Mean().Combine(tellus.Max().Weighted("w"))
	m := evalOp(t, store, img.ReduceRegion(red, region, 30)).(map[string]any)
	if got := m["B1_mean"].(float64); got != 1 {
		t.Errorf("weighted mean: got %g, want 1", got)
	}
	if got := m["B1_max"].(float64); got != 1 {
		t.Errorf("weighted max: got %g, want 1", got)
	}

	// Two different weight bands in one combine is ambiguous.
	conflicting := tellus.Mean().Weighted("w").Combine(tellus.Max().Weighted("B1"))
	raw, err := tellus.MarshalGraph(img.ReduceRegion(conflicting, region, 30))
	if err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	if _, err := evalGraph(raw, store); err == nil {
		t.Error("conflicting weight bands: expected an error")
	}
}

func TestLinearFitReduce(t *testing.T) {
	store := NewSceneStore()
	r := NewRaster(4, 2, "x", "y")
	xs := make([]float64, 8)
	ys := make([]float64, 8)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = 3*float64(i) + 1
	}
	r.SetBand("x", xs)
	r.SetBand("y", ys)
	store.AddScene("s", r)

	img := tellus.NewImage("s")
	region := tellus.Rectangle(0, 0, 1, 1)
	m := evalOp(t, store, img.ReduceRegion(tellus.LinearFit(), region, 30)).(map[string]any)
	if got := m["scale"].(float64); math.Abs(got-3) > 1e-12 {
		t.Errorf("scale: got %g, want 3", got)
	}
	if got := m["offset"].(float64); math.Abs(got-1) > 1e-12 {
		t.Errorf("offset: got %g, want 1", got)
	}

	// linearFit is a fixed two-band shape and cannot join a combine chain.
	raw, err := tellus.MarshalGraph(
		img.ReduceRegion(tellus.LinearFit().Combine(tellus.Mean()), region, 30))
	if err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	if _, err := evalGraph(raw, store); err == nil {
		t.Error("combined linearFit: expected an error")
	}
}
