package tellustest

import (
	"math"
	"testing"
	"time"

	tellus "github.com/tellusgeo/tellus-go"
)

// evalOp marshals a handle's graph and evaluates it against the store.
func evalOp(t *testing.T, store *SceneStore, op tellus.Operand) any {
	t.Helper()
	raw, err := tellus.MarshalGraph(op)
	if err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	v, err := evalGraph(raw, store)
	if err != nil {
		t.Fatalf("evalGraph failed: %v", err)
	}
	return v
}

func gradientRaster(w, h int, bands ...string) *Raster {
	r := NewRaster(w, h, bands...)
	for bi, b := range bands {
		px := r.Data[b]
		for i := range px {
			px[i] = float64(i) + 10*float64(bi)
		}
	}
	return r
}

func TestEval_SelectAndRename(t *testing.T) {
	store := NewSceneStore()
	store.AddScene("s", gradientRaster(4, 4, "B2", "B3", "B4"))

	v := evalOp(t, store, tellus.NewImage("s").Select("B4", "B2").Rename("red", "blue"))
	r := v.(*Raster)
	if len(r.Bands) != 2 || r.Bands[0] != "red" || r.Bands[1] != "blue" {
		t.Fatalf("bands: got %v, want [red blue]", r.Bands)
	}
	if r.At("red", 1, 0) != gradientRaster(4, 4, "B2", "B3", "B4").At("B4", 1, 0) {
		t.Error("rename changed pixel values")
	}
}

func TestEval_ExpressionBroadcastsConstants(t *testing.T) {
	store := NewSceneStore()
	store.AddScene("s", ConstantRaster(3, 3, 4, "B1"))

	img := tellus.NewImage("s").Select("B1")
	v := evalOp(t, store, tellus.Expression("sqrt(b) + c", map[string]tellus.Image{
		"b": img,
		"c": tellus.Constant(1),
	}))
	r := v.(*Raster)
	if got := r.At(r.Bands[0], 1, 1); got != 3 {
		t.Errorf("expression: got %g, want 3", got)
	}
	if r.W != 3 || r.H != 3 {
		t.Errorf("shape: got %dx%d, want 3x3", r.W, r.H)
	}
}

func TestEval_MaskPropagation(t *testing.T) {
	store := NewSceneStore()
	r := ConstantRaster(2, 2, 5, "B1")
	store.AddScene("s", r)

	// Divide by zero masks; Unmask fills.
	img := tellus.NewImage("s").Select("B1")
	v := evalOp(t, store, img.Divide(tellus.Constant(0)).Unmask(-1))
	out := v.(*Raster)
	for i := range out.Mask {
		if !out.Mask[i] {
			t.Fatal("unmask left masked pixels")
		}
		if out.Data[out.Bands[0]][i] != -1 {
			t.Fatalf("fill: got %g, want -1", out.Data[out.Bands[0]][i])
		}
	}
}

func TestEval_ReduceRegionMeanAndCount(t *testing.T) {
	store := NewSceneStore()
	store.AddScene("s", gradientRaster(4, 4, "B1"))

	// Left half of the grid: x in [0, 0.5).
	region := tellus.Rectangle(0, 0, 0.5, 1)
	v := evalOp(t, store, tellus.NewImage("s").ReduceRegion(
		tellus.Mean().Combine(tellus.Count()), region, 30))
	m := v.(map[string]any)

	// Pixels 0,1,4,5,8,9,12,13.
	wantMean := (0.0 + 1 + 4 + 5 + 8 + 9 + 12 + 13) / 8
	if got := m["B1_mean"].(float64); math.Abs(got-wantMean) > 1e-9 {
		t.Errorf("mean: got %g, want %g", got, wantMean)
	}
	if got := m["B1_count"].(float64); got != 8 {
		t.Errorf("count: got %g, want 8", got)
	}
}

func TestEval_WeightedCovarianceExcludesWeightBand(t *testing.T) {
	store := NewSceneStore()
	r := NewRaster(4, 1, "x", "y", "w")
	r.SetBand("x", []float64{1, 2, 3, 4})
	r.SetBand("y", []float64{2, 4, 6, 8})
	r.SetBand("w", []float64{1, 1, 1, 1})
	store.AddScene("s", r)

	v := evalOp(t, store, tellus.NewImage("s").ReduceRegion(
		tellus.Covariance().Weighted("w"), tellus.Rectangle(0, 0, 1, 1), 30))
	cov := v.([][]float64)
	if len(cov) != 2 {
		t.Fatalf("covariance: got %dx%d, want 2x2", len(cov), len(cov))
	}
	// y = 2x exactly, so cov(x,y) = 2 var(x).
	if math.Abs(cov[0][1]-2*cov[0][0]) > 1e-9 {
		t.Errorf("cov(x,y)=%g, var(x)=%g, want factor 2", cov[0][1], cov[0][0])
	}
	if math.Abs(cov[0][1]-cov[1][0]) > 1e-12 {
		t.Error("covariance matrix is not symmetric")
	}
}

func TestEval_CollectionComposites(t *testing.T) {
	store := NewSceneStore()
	for i, v := range []float64{1, 5, 9} {
		id := string(rune('a' + i))
		store.AddSceneMeta(id, &Scene{
			Raster: ConstantRaster(2, 2, v, "B1"),
			Time:   time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
		})
	}
	store.AddCollection("cat", "a", "b", "c")

	col := tellus.LoadCollection("cat")
	tests := []struct {
		name string
		img  tellus.Image
		want float64
	}{
		{"median", col.Median(), 5},
		{"mean", col.Mean(), 5},
		{"min", col.Min(), 1},
		{"max", col.Max(), 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := evalOp(t, store, tt.img).(*Raster)
			if got := r.At("B1", 0, 0); got != tt.want {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}

	// Date filter drops the January scene.
	filtered := col.FilterDate(
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	r := evalOp(t, store, filtered.Min()).(*Raster)
	if got := r.At("B1", 0, 0); got != 5 {
		t.Errorf("filtered min: got %g, want 5", got)
	}
}

func TestEval_CollectionFilters(t *testing.T) {
	store := NewSceneStore()
	store.AddSceneMeta("west", &Scene{
		Raster:    ConstantRaster(2, 2, 1, "B1"),
		Footprint: [4]float64{0, 0, 0.4, 1},
		Props:     map[string]float64{"cloud_cover": 10},
	})
	store.AddSceneMeta("east", &Scene{
		Raster:    ConstantRaster(2, 2, 2, "B1"),
		Footprint: [4]float64{0.6, 0, 1, 1},
		Props:     map[string]float64{"cloud_cover": 80},
	})
	// Zero footprint means full coverage; no props at all.
	store.AddSceneMeta("full", &Scene{Raster: ConstantRaster(2, 2, 3, "B1")})
	store.AddCollection("cat", "west", "east", "full")

	col := tellus.LoadCollection("cat")
	sizeOf := func(t *testing.T, ic tellus.ImageCollection) float64 {
		t.Helper()
		return evalOp(t, store, ic.Size()).(float64)
	}

	// A window over the west edge misses the eastern footprint.
	westRegion := tellus.Rectangle(0, 0, 0.3, 1)
	if got := sizeOf(t, col.FilterBounds(westRegion)); got != 2 {
		t.Errorf("west bounds: got %g scenes, want 2", got)
	}
	// A sliver between the two footprints touches only the full scene.
	gap := tellus.Rectangle(0.45, 0, 0.55, 1)
	if got := sizeOf(t, col.FilterBounds(gap)); got != 1 {
		t.Errorf("gap bounds: got %g scenes, want 1", got)
	}

	// Property filters skip scenes without the property.
	if got := sizeOf(t, col.FilterLt("cloud_cover", 50)); got != 1 {
		t.Errorf("cloud_cover < 50: got %g scenes, want 1", got)
	}
	if got := sizeOf(t, col.FilterGt("cloud_cover", 50)); got != 1 {
		t.Errorf("cloud_cover > 50: got %g scenes, want 1", got)
	}
	if got := sizeOf(t, col.FilterGt("cloud_cover", 80)); got != 0 {
		t.Errorf("cloud_cover > 80: got %g scenes, want 0", got)
	}
	if got := sizeOf(t, col.FilterEq("cloud_cover", 80)); got != 1 {
		t.Errorf("cloud_cover == 80: got %g scenes, want 1", got)
	}

	// Chained filters compose.
	chained := col.FilterBounds(westRegion).FilterLt("cloud_cover", 50)
	if got := sizeOf(t, chained); got != 1 {
		t.Errorf("chained filters: got %g scenes, want 1", got)
	}
}

func TestEval_MatrixPrimitives(t *testing.T) {
	store := NewSceneStore()
	// A = [[4, 2], [2, 3]] is symmetric positive definite.
	a := tellus.NewMatrix([][]float64{{4, 2}, {2, 3}})

	l := evalOp(t, store, a.Cholesky()).([][]float64)
	// L Lᵀ must reproduce A; L lower triangular.
	if math.Abs(l[0][1]) > 1e-12 {
		t.Errorf("L is not lower triangular: %v", l)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var sum float64
			for k := 0; k < 2; k++ {
				sum += l[i][k] * l[j][k]
			}
			want := [][]float64{{4, 2}, {2, 3}}[i][j]
			if math.Abs(sum-want) > 1e-9 {
				t.Errorf("(LLᵀ)[%d][%d] = %g, want %g", i, j, sum, want)
			}
		}
	}

	vals := evalOp(t, store, a.EigenValues()).([]any)
	lo, hi := vals[0].(float64), vals[1].(float64)
	if lo > hi {
		t.Errorf("eigenvalues not ascending: %g, %g", lo, hi)
	}
	// trace and determinant invariants
	if math.Abs(lo+hi-7) > 1e-9 || math.Abs(lo*hi-8) > 1e-9 {
		t.Errorf("eigenvalues %g, %g do not match trace 7 det 8", lo, hi)
	}

	inv := evalOp(t, store, a.Inverse().MatMul(a)).([][]float64)
	for i := range inv {
		for j := range inv[i] {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(inv[i][j]-want) > 1e-9 {
				t.Errorf("A⁻¹A[%d][%d] = %g, want %g", i, j, inv[i][j], want)
			}
		}
	}
}

func TestEval_SampleTrainClassify(t *testing.T) {
	store := NewSceneStore()
	r := NewRaster(4, 1, "B1")
	r.SetBand("B1", []float64{0, 0, 10, 10})
	store.AddScene("s", r)
	store.AddFeatureTable("truth", []Feature{
		{X: 0.1, Y: 0.4, Props: map[string]float64{"class": 0}},
		{X: 0.35, Y: 0.4, Props: map[string]float64{"class": 0}},
		{X: 0.6, Y: 0.4, Props: map[string]float64{"class": 1}},
		{X: 0.85, Y: 0.4, Props: map[string]float64{"class": 1}},
	})

	img := tellus.NewImage("s")
	samples := img.SampleRegions(tellus.LoadFeatures("truth"), []string{"class"}, 30)
	classifier := tellus.MinimumDistance().Train(samples, "class", []string{"B1"})
	classified := img.Classify(classifier)

	out := evalOp(t, store, classified).(*Raster)
	want := []float64{0, 0, 1, 1}
	for i, w := range want {
		if got := out.Data["classification"][i]; got != w {
			t.Errorf("pixel %d: got %g, want %g", i, got, w)
		}
	}

	// Error matrix over the validated samples must be perfect.
	validated := classified.SampleRegions(samples, []string{"class"}, 30)
	em := validated.ErrorMatrix("class", "classification")
	acc := evalOp(t, store, em.Accuracy()).(float64)
	if acc != 1 {
		t.Errorf("accuracy: got %g, want 1", acc)
	}
	kappa := evalOp(t, store, em.Kappa()).(float64)
	if kappa != 1 {
		t.Errorf("kappa: got %g, want 1", kappa)
	}
}

func TestEval_ClusterSeparatesGroups(t *testing.T) {
	store := NewSceneStore()
	r := NewRaster(4, 1, "B1")
	r.SetBand("B1", []float64{0, 0.1, 10, 10.1})
	store.AddScene("s", r)
	store.AddFeatureTable("pts", []Feature{
		{X: 0.1, Y: 0.4, Props: nil},
		{X: 0.35, Y: 0.4, Props: nil},
		{X: 0.6, Y: 0.4, Props: nil},
		{X: 0.85, Y: 0.4, Props: nil},
	})

	img := tellus.NewImage("s")
	samples := img.SampleRegions(tellus.LoadFeatures("pts"), nil, 30)
	clusterer := tellus.KMeans(2).TrainClusterer(samples, []string{"B1"})
	out := evalOp(t, store, img.Cluster(clusterer)).(*Raster)

	px := out.Data["cluster"]
	// Cluster labels are arbitrary; the two low pixels must share one label
	// and the two high pixels the other.
	if px[0] != px[1] || px[2] != px[3] || px[0] == px[2] {
		t.Errorf("cluster labels %v do not separate the two groups", px)
	}
}

func TestEval_UnknownAsset(t *testing.T) {
	store := NewSceneStore()
	raw, err := tellus.MarshalGraph(tellus.NewImage("missing").BandNames())
	if err != nil {
		t.Fatalf("MarshalGraph failed: %v", err)
	}
	_, err = evalGraph(raw, store)
	if err == nil {
		t.Fatal("expected an error for the missing asset")
	}
}

func TestHistogramReduce(t *testing.T) {
	s := &regionSamples{
		bands:   []string{"B1"},
		columns: map[string][]float64{"B1": {0.1, 0.1, 0.9, 0.5}},
		weights: []float64{1, 1, 1, 1},
	}
	out, err := histogramReduce(s, reducerPart{kind: "histogram", buckets: 2, min: 0, max: 1})
	if err != nil {
		t.Fatalf("histogramReduce failed: %v", err)
	}
	counts := out["counts"].([]any)
	if counts[0].(float64) != 3 || counts[1].(float64) != 1 {
		t.Errorf("counts: got %v, want [3 1]", counts)
	}
	means := out["bucketMeans"].([]any)
	if means[0].(float64) != 0.25 || means[1].(float64) != 0.75 {
		t.Errorf("bucketMeans: got %v, want [0.25 0.75]", means)
	}
}
