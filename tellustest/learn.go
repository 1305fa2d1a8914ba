package tellustest

import (
	"fmt"
	"math"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// untrainedClassifier carries constructor parameters until train.
type untrainedClassifier struct {
	kind  string
	trees int
}

// trainedClassifier is a minimum-distance-to-class-mean model. The emulator
// trains only this kind; the richer kinds exist on the real platform.
type trainedClassifier struct {
	inputs  []string
	classes []float64
	means   [][]float64
}

type untrainedClusterer struct {
	clusters int
}

type trainedClusterer struct {
	inputs  []string
	centers [][]float64
}

// confusion is the evaluated error matrix, actual classes as rows.
type confusion struct {
	classes []float64
	counts  [][]float64
}

func applyLearner(fn string, a args) (any, error) {
	switch fn {
	case "Classifier.cart":
		return &untrainedClassifier{kind: "cart"}, nil
	case "Classifier.minimumDistance":
		return &untrainedClassifier{kind: "minimumDistance"}, nil
	case "Classifier.svm":
		return &untrainedClassifier{kind: "svm"}, nil
	case "Classifier.randomForest":
		trees, err := a.intArg("trees")
		if err != nil {
			return nil, err
		}
		return &untrainedClassifier{kind: "randomForest", trees: trees}, nil

	case "Classifier.train":
		clAny, err := a.any("classifier")
		if err != nil {
			return nil, err
		}
		cl, ok := clAny.(*untrainedClassifier)
		if !ok {
			return nil, fmt.Errorf("classifier argument is not an untrained classifier")
		}
		if cl.kind != "minimumDistance" {
			return nil, fmt.Errorf("emulator trains only minimumDistance classifiers, not %s", cl.kind)
		}
		feats, err := a.features("features")
		if err != nil {
			return nil, err
		}
		classProp, err := a.str("classProperty")
		if err != nil {
			return nil, err
		}
		inputs, err := a.strings("inputProperties")
		if err != nil {
			return nil, err
		}
		return trainMinimumDistance(feats, classProp, inputs)

	case "Clusterer.kmeans":
		k, err := a.intArg("clusters")
		if err != nil {
			return nil, err
		}
		if k < 2 {
			return nil, fmt.Errorf("kmeans needs at least 2 clusters")
		}
		return &untrainedClusterer{clusters: k}, nil

	case "Clusterer.train":
		clAny, err := a.any("clusterer")
		if err != nil {
			return nil, err
		}
		cl, ok := clAny.(*untrainedClusterer)
		if !ok {
			return nil, fmt.Errorf("clusterer argument is not an untrained clusterer")
		}
		feats, err := a.features("features")
		if err != nil {
			return nil, err
		}
		inputs, err := a.strings("inputProperties")
		if err != nil {
			return nil, err
		}
		return trainKMeans(feats, inputs, cl.clusters)
	}
	return nil, fmt.Errorf("unknown function")
}

func trainMinimumDistance(feats []Feature, classProp string, inputs []string) (*trainedClassifier, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input properties")
	}
	sums := make(map[float64][]float64)
	counts := make(map[float64]float64)
	for _, f := range feats {
		class, ok := f.Props[classProp]
		if !ok {
			continue
		}
		vec, ok := featureVector(f, inputs)
		if !ok {
			continue
		}
		if sums[class] == nil {
			sums[class] = make([]float64, len(inputs))
		}
		for i, v := range vec {
			sums[class][i] += v
		}
		counts[class]++
	}
	if len(sums) == 0 {
		return nil, fmt.Errorf("no trainable features")
	}
	cl := &trainedClassifier{inputs: inputs}
	for class := range sums {
		cl.classes = append(cl.classes, class)
	}
	sort.Float64s(cl.classes)
	for _, class := range cl.classes {
		mean := sums[class]
		for i := range mean {
			mean[i] /= counts[class]
		}
		cl.means = append(cl.means, mean)
	}
	return cl, nil
}

func featureVector(f Feature, inputs []string) ([]float64, bool) {
	vec := make([]float64, len(inputs))
	for i, p := range inputs {
		v, ok := f.Props[p]
		if !ok {
			return nil, false
		}
		vec[i] = v
	}
	return vec, true
}

// classify assigns each pixel the class with the nearest mean in input
// space.
func (cl *trainedClassifier) classify(r *Raster) (*Raster, error) {
	cols := make([][]float64, len(cl.inputs))
	for i, b := range cl.inputs {
		px, ok := r.Data[b]
		if !ok {
			return nil, fmt.Errorf("image lacks classifier input band %q", b)
		}
		cols[i] = px
	}
	out := NewRaster(r.W, r.H, "classification")
	copy(out.Mask, r.Mask)
	px := out.Data["classification"]
	vec := make([]float64, len(cols))
	for i := range px {
		if !out.Mask[i] {
			continue
		}
		for j, col := range cols {
			vec[j] = col[i]
		}
		px[i] = cl.classes[nearest(cl.means, vec)]
	}
	return out, nil
}

func nearest(centers [][]float64, vec []float64) int {
	best, bestDist := 0, math.Inf(1)
	for ci, c := range centers {
		var d float64
		for i, v := range vec {
			diff := v - c[i]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = ci, d
		}
	}
	return best
}

func trainKMeans(feats []Feature, inputs []string, k int) (*trainedClusterer, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input properties")
	}
	var obs clusters.Observations
	for _, f := range feats {
		vec, ok := featureVector(f, inputs)
		if !ok {
			continue
		}
		obs = append(obs, clusters.Coordinates(vec))
	}
	if len(obs) < k {
		return nil, fmt.Errorf("%d samples for %d clusters", len(obs), k)
	}
	km := kmeans.New()
	partitions, err := km.Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans: %w", err)
	}
	tc := &trainedClusterer{inputs: inputs}
	for _, p := range partitions {
		center := append([]float64(nil), p.Center...)
		tc.centers = append(tc.centers, center)
	}
	return tc, nil
}

// cluster labels each pixel with the index of the nearest cluster center.
// Labels are arbitrary but stable within one evaluation.
func (cl *trainedClusterer) cluster(r *Raster) (*Raster, error) {
	cols := make([][]float64, len(cl.inputs))
	for i, b := range cl.inputs {
		px, ok := r.Data[b]
		if !ok {
			return nil, fmt.Errorf("image lacks clusterer input band %q", b)
		}
		cols[i] = px
	}
	out := NewRaster(r.W, r.H, "cluster")
	copy(out.Mask, r.Mask)
	px := out.Data["cluster"]
	vec := make([]float64, len(cols))
	for i := range px {
		if !out.Mask[i] {
			continue
		}
		for j, col := range cols {
			vec[j] = col[i]
		}
		px[i] = float64(nearest(cl.centers, vec))
	}
	return out, nil
}

// errorMatrix tabulates actual vs predicted class labels over a sampled
// feature collection.
func errorMatrix(feats []Feature, actualProp, predictedProp string) (*confusion, error) {
	classSet := make(map[float64]bool)
	type pair struct{ actual, predicted float64 }
	var pairs []pair
	for _, f := range feats {
		av, okA := f.Props[actualProp]
		pv, okP := f.Props[predictedProp]
		if !okA || !okP {
			continue
		}
		classSet[av] = true
		classSet[pv] = true
		pairs = append(pairs, pair{av, pv})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no features carry both %q and %q", actualProp, predictedProp)
	}
	cm := &confusion{}
	for c := range classSet {
		cm.classes = append(cm.classes, c)
	}
	sort.Float64s(cm.classes)
	index := make(map[float64]int, len(cm.classes))
	for i, c := range cm.classes {
		index[c] = i
	}
	cm.counts = make([][]float64, len(cm.classes))
	for i := range cm.counts {
		cm.counts[i] = make([]float64, len(cm.classes))
	}
	for _, p := range pairs {
		cm.counts[index[p.actual]][index[p.predicted]]++
	}
	return cm, nil
}

func applyConfusion(fn string, a args) (any, error) {
	v, err := a.any("input")
	if err != nil {
		return nil, err
	}
	cm, ok := v.(*confusion)
	if !ok {
		return nil, fmt.Errorf("argument is not an error matrix")
	}
	switch fn {
	case "ConfusionMatrix.matrix":
		out := make([]any, len(cm.counts))
		for i, row := range cm.counts {
			out[i] = floatsToAny(row)
		}
		return out, nil
	case "ConfusionMatrix.accuracy":
		acc, _ := cm.stats()
		return acc, nil
	case "ConfusionMatrix.kappa":
		_, kappa := cm.stats()
		return kappa, nil
	}
	return nil, fmt.Errorf("unknown function")
}

func (cm *confusion) stats() (accuracy, kappa float64) {
	n := len(cm.classes)
	var total, trace float64
	rowSums := make([]float64, n)
	colSums := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := cm.counts[i][j]
			total += c
			rowSums[i] += c
			colSums[j] += c
		}
		trace += cm.counts[i][i]
	}
	if total == 0 {
		return 0, 0
	}
	accuracy = trace / total
	var expected float64
	for i := 0; i < n; i++ {
		expected += rowSums[i] * colSums[i] / (total * total)
	}
	if expected < 1 {
		kappa = (accuracy - expected) / (1 - expected)
	}
	return accuracy, kappa
}
