package tellustest

import (
	"testing"

	tellus "github.com/tellusgeo/tellus-go"
)

func TestSyntheticScene_Deterministic(t *testing.T) {
	a := SyntheticScene(16, 16, 7, "B1", "B2")
	b := SyntheticScene(16, 16, 7, "B1", "B2")
	for _, band := range a.Bands {
		for i := range a.Data[band] {
			if a.Data[band][i] != b.Data[band][i] {
				t.Fatalf("band %s pixel %d differs between identical seeds", band, i)
			}
		}
	}
	c := SyntheticScene(16, 16, 8, "B1", "B2")
	same := true
	for i := range a.Data["B1"] {
		if a.Data["B1"][i] != c.Data["B1"][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical scenes")
	}
}

func TestSyntheticScene_SpatiallySmooth(t *testing.T) {
	r := SyntheticScene(32, 32, 3, "B1")
	// Neighboring pixels should be far closer than the overall spread.
	var neighbor, spread float64
	lo, hi := r.At("B1", 0, 0), r.At("B1", 0, 0)
	var n int
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			v := r.At("B1", x, y)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			if x+1 < r.W {
				d := r.At("B1", x+1, y) - v
				if d < 0 {
					d = -d
				}
				neighbor += d
				n++
			}
		}
	}
	spread = hi - lo
	if spread <= 0 {
		t.Fatal("scene has no value spread")
	}
	if avg := neighbor / float64(n); avg > spread/4 {
		t.Errorf("mean neighbor delta %g vs spread %g: scene not smooth", avg, spread)
	}
}

func TestAggregates(t *testing.T) {
	store := NewSceneStore()
	store.AddFeatureTable("pts", []Feature{
		{X: 0.1, Y: 0.1, Props: map[string]float64{"v": 1}},
		{X: 0.5, Y: 0.5, Props: map[string]float64{"v": 2}},
		{X: 0.9, Y: 0.9, Props: map[string]float64{"v": 3}},
	})
	fc := tellus.LoadFeatures("pts")

	if got := evalOp(t, store, fc.AggregateMean("v")).(float64); got != 2 {
		t.Errorf("mean: got %g, want 2", got)
	}
	if got := evalOp(t, store, fc.AggregateSum("v")).(float64); got != 6 {
		t.Errorf("sum: got %g, want 6", got)
	}
	if _, err := tellus.MarshalGraph(fc.AggregateMean("missing")); err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	raw, _ := tellus.MarshalGraph(fc.AggregateMean("missing"))
	if _, err := evalGraph(raw, store); err == nil {
		t.Error("missing property: expected an error")
	}
}

func TestMosaicAndFirst(t *testing.T) {
	store := NewSceneStore()
	a := ConstantRaster(2, 2, 1, "B1")
	b := ConstantRaster(2, 2, 9, "B1")
	store.AddScene("a", a)
	store.AddScene("b", b)
	store.AddCollection("cat", "a", "b")

	col := tellus.LoadCollection("cat")
	if r := evalOp(t, store, col.First()).(*Raster); r.At("B1", 0, 0) != 1 {
		t.Errorf("first: got %g, want 1", r.At("B1", 0, 0))
	}
	// Later scenes sit on top of the mosaic.
	if r := evalOp(t, store, col.Mosaic()).(*Raster); r.At("B1", 0, 0) != 9 {
		t.Errorf("mosaic: got %g, want 9", r.At("B1", 0, 0))
	}
}
