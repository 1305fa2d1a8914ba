package classify_test

import (
	"context"
	"net/http/httptest"
	"testing"

	tellus "github.com/tellusgeo/tellus-go"
	"github.com/tellusgeo/tellus-go/classify"
	"github.com/tellusgeo/tellus-go/tellustest"
)

// newFixture serves a two-band scene whose left half is "water" (low NIR)
// and right half "land" (high NIR), with labeled points over both halves.
func newFixture(t *testing.T) *tellus.Client {
	t.Helper()
	srv := tellustest.NewServer()

	const w, h = 8, 8
	r := tellustest.NewRaster(w, h, "B4", "B5")
	red := make([]float64, w*h)
	nir := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x < w/2 {
				red[i], nir[i] = 0.06, 0.04
			} else {
				red[i], nir[i] = 0.10, 0.35
			}
		}
	}
	r.SetBand("B4", red)
	r.SetBand("B5", nir)
	srv.Store().AddScene("scene", r)

	var feats []tellustest.Feature
	for i := 0; i < 10; i++ {
		y := 0.05 + 0.09*float64(i)
		feats = append(feats,
			tellustest.Feature{X: 0.25, Y: y, Props: map[string]float64{"class": 0}},
			tellustest.Feature{X: 0.75, Y: y, Props: map[string]float64{"class": 1}},
		)
	}
	srv.Store().AddFeatureTable("truth", feats)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	client, err := tellus.NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestSplit_ValidatesFraction(t *testing.T) {
	fc := tellus.LoadFeatures("truth")
	for _, bad := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := classify.Split(fc, bad, 42); err == nil {
			t.Errorf("fraction %g: expected an error", bad)
		}
	}
	if _, _, err := classify.Split(fc, 0.7, 42); err != nil {
		t.Errorf("fraction 0.7: unexpected error %v", err)
	}
}

func TestSplit_PartitionsCollection(t *testing.T) {
	client := newFixture(t)
	fc := tellus.LoadFeatures("truth")
	train, test, err := classify.Split(fc, 0.7, 42)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	res, err := client.Compute(context.Background(),
		tellus.Tuple(fc.Size(), train.Size(), test.Size()))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	parts, err := res.Tuple()
	if err != nil {
		t.Fatalf("Tuple failed: %v", err)
	}
	var sizes [3]float64
	for i, p := range parts {
		if sizes[i], err = p.Float64(); err != nil {
			t.Fatalf("decoding size %d: %v", i, err)
		}
	}
	if sizes[1]+sizes[2] != sizes[0] {
		t.Errorf("split sizes %g + %g != total %g", sizes[1], sizes[2], sizes[0])
	}
	if sizes[1] == 0 || sizes[2] == 0 {
		t.Errorf("degenerate split: train %g, test %g", sizes[1], sizes[2])
	}
}

func TestTrainPredictAssess(t *testing.T) {
	client := newFixture(t)
	img := tellus.NewImage("scene")
	truth := tellus.LoadFeatures("truth")

	samples := classify.Sample(img, truth, "class", 30)
	trained := classify.Train(tellus.MinimumDistance(), samples, "class", []string{"B4", "B5"})
	validated := classify.Predict(img, trained, samples, "class", 30)

	a, err := classify.Assess(context.Background(), client, validated, "class", "classification")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	// The classes are perfectly separable, so the minimum-distance
	// classifier must get everything right.
	if a.Accuracy != 1 {
		t.Errorf("accuracy: got %g, want 1", a.Accuracy)
	}
	if a.Kappa != 1 {
		t.Errorf("kappa: got %g, want 1", a.Kappa)
	}
	if len(a.Matrix) != 2 {
		t.Fatalf("confusion matrix: got %d rows, want 2", len(a.Matrix))
	}
	if a.Matrix[0][1] != 0 || a.Matrix[1][0] != 0 {
		t.Errorf("off-diagonal errors in %v", a.Matrix)
	}
}

func TestClusterImage(t *testing.T) {
	client := newFixture(t)
	img := tellus.NewImage("scene")
	truth := tellus.LoadFeatures("truth")

	clustered := classify.ClusterImage(img, tellus.KMeans(2), truth, []string{"B4", "B5"}, 30)
	res, err := client.Compute(context.Background(),
		clustered.ReduceRegion(tellus.Min().Combine(tellus.Max()), tellus.Rectangle(0, 0, 1, 1), 30))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	m, err := res.FloatMap()
	if err != nil {
		t.Fatalf("FloatMap failed: %v", err)
	}
	if m["cluster_min"] != 0 || m["cluster_max"] != 1 {
		t.Errorf("cluster labels: got min %g max %g, want 0 and 1", m["cluster_min"], m["cluster_max"])
	}
}
