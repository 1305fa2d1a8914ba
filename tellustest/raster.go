package tellustest

import (
	"fmt"
	"image"
	"math/rand"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/blur"
)

// Raster is a small in-memory multi-band image used by the emulator.
// Band data is stored row-major; Mask marks valid pixels.
type Raster struct {
	W, H  int
	Bands []string
	Data  map[string][]float64
	Mask  []bool
}

// NewRaster allocates an all-valid raster with zeroed bands.
func NewRaster(w, h int, bands ...string) *Raster {
	r := &Raster{
		W:     w,
		H:     h,
		Bands: append([]string(nil), bands...),
		Data:  make(map[string][]float64, len(bands)),
		Mask:  make([]bool, w*h),
	}
	for i := range r.Mask {
		r.Mask[i] = true
	}
	for _, b := range bands {
		r.Data[b] = make([]float64, w*h)
	}
	return r
}

// ConstantRaster fills every band with the same value.
func ConstantRaster(w, h int, value float64, bands ...string) *Raster {
	r := NewRaster(w, h, bands...)
	for _, b := range bands {
		px := r.Data[b]
		for i := range px {
			px[i] = value
		}
	}
	return r
}

// SetBand replaces the named band's data. The band is appended if new.
func (r *Raster) SetBand(name string, data []float64) error {
	if len(data) != r.W*r.H {
		return fmt.Errorf("tellustest: band %s: got %d values, want %d", name, len(data), r.W*r.H)
	}
	if _, ok := r.Data[name]; !ok {
		r.Bands = append(r.Bands, name)
	}
	r.Data[name] = append([]float64(nil), data...)
	return nil
}

// At returns the value of band b at pixel (x, y).
func (r *Raster) At(b string, x, y int) float64 {
	return r.Data[b][y*r.W+x]
}

func (r *Raster) clone() *Raster {
	out := &Raster{
		W:     r.W,
		H:     r.H,
		Bands: append([]string(nil), r.Bands...),
		Data:  make(map[string][]float64, len(r.Data)),
		Mask:  append([]bool(nil), r.Mask...),
	}
	for b, px := range r.Data {
		out.Data[b] = append([]float64(nil), px...)
	}
	return out
}

// shape checks that two rasters can be combined pixelwise.
func (r *Raster) sameShape(o *Raster) error {
	if r.W != o.W || r.H != o.H {
		return fmt.Errorf("tellustest: raster shapes differ: %dx%d vs %dx%d", r.W, r.H, o.W, o.H)
	}
	return nil
}

// SyntheticScene builds a deterministic, spatially correlated multi-band
// raster: seeded noise smoothed with a Gaussian blur, scaled into
// [offset, offset+spread) with a different offset per band. Good enough to
// exercise reducers, indices and MAD with non-trivial statistics.
func SyntheticScene(w, h int, seed int64, bands ...string) *Raster {
	r := NewRaster(w, h, bands...)
	for bi, b := range bands {
		rng := rand.New(rand.NewSource(seed + int64(bi)*7919))
		gray := image.NewGray(image.Rect(0, 0, w, h))
		for i := range gray.Pix {
			gray.Pix[i] = uint8(rng.Intn(256))
		}
		smooth := blur.Gaussian(gray, 2.0)
		px := r.Data[b]
		offset := 0.05 * float64(bi+1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := float64(smooth.RGBAAt(x, y).R) / 255.0
				px[y*w+x] = offset + 0.5*v
			}
		}
	}
	return r
}

// Scene couples a raster with catalog metadata used by collection filters.
type Scene struct {
	Raster *Raster
	// Time is the acquisition timestamp.
	Time time.Time
	// Footprint is west, south, east, north in grid-fraction coordinates.
	// The zero value means full coverage.
	Footprint [4]float64
	// Props holds numeric catalog properties such as cloud cover.
	Props map[string]float64
}

func (s *Scene) footprint() [4]float64 {
	if s.Footprint == [4]float64{} {
		return [4]float64{0, 0, 1, 1}
	}
	return s.Footprint
}

// Feature is a point feature with numeric properties, used for sampling
// and classifier training. X and Y are grid-fraction coordinates.
type Feature struct {
	X, Y  float64
	Props map[string]float64
}

// SceneStore holds the emulator's catalog: scenes, collections and feature
// tables. It is safe for concurrent use.
type SceneStore struct {
	mu          sync.RWMutex
	scenes      map[string]*Scene
	collections map[string][]string
	features    map[string][]Feature
}

// NewSceneStore creates an empty catalog.
func NewSceneStore() *SceneStore {
	return &SceneStore{
		scenes:      make(map[string]*Scene),
		collections: make(map[string][]string),
		features:    make(map[string][]Feature),
	}
}

// AddScene registers a raster as a standalone scene.
func (s *SceneStore) AddScene(id string, r *Raster) {
	s.AddSceneMeta(id, &Scene{Raster: r})
}

// AddSceneMeta registers a scene with full metadata.
func (s *SceneStore) AddSceneMeta(id string, sc *Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes[id] = sc
}

// AddCollection registers an ordered list of scene IDs under a catalog ID.
func (s *SceneStore) AddCollection(id string, sceneIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[id] = append([]string(nil), sceneIDs...)
}

// AddFeatureTable registers a feature table.
func (s *SceneStore) AddFeatureTable(id string, features []Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features[id] = append([]Feature(nil), features...)
}

func (s *SceneStore) scene(id string) (*Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenes[id]
	return sc, ok
}

func (s *SceneStore) collection(id string) ([]*Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.collections[id]
	if !ok {
		return nil, false
	}
	out := make([]*Scene, 0, len(ids))
	for _, sid := range ids {
		if sc, ok := s.scenes[sid]; ok {
			out = append(out, sc)
		}
	}
	return out, true
}

func (s *SceneStore) featureTable(id string) ([]Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.features[id]
	return f, ok
}
