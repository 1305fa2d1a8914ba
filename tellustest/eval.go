package tellustest

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// wireGraph mirrors the serialized graph format of the client.
type wireGraph struct {
	Values map[string]json.RawMessage `json:"values"`
	Result string                     `json:"result"`
}

type wireNode struct {
	FunctionName string                     `json:"functionName"`
	Arguments    map[string]json.RawMessage `json:"arguments"`
}

// evaluator walks a decoded graph, memoizing node results so shared
// subgraphs evaluate once.
type evaluator struct {
	graph wireGraph
	store *SceneStore
	cache map[string]any
}

// evalGraph evaluates a serialized graph against the store and returns the
// root value in the emulator's internal representation.
func evalGraph(raw json.RawMessage, store *SceneStore) (any, error) {
	var g wireGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("malformed graph: %w", err)
	}
	ev := &evaluator{graph: g, store: store, cache: make(map[string]any)}
	return ev.value(g.Result)
}

func (ev *evaluator) value(id string) (any, error) {
	if v, ok := ev.cache[id]; ok {
		return v, nil
	}
	raw, ok := ev.graph.Values[id]
	if !ok {
		return nil, fmt.Errorf("graph references missing value %q", id)
	}
	var node wireNode
	if err := json.Unmarshal(raw, &node); err != nil || node.FunctionName == "" {
		return nil, fmt.Errorf("graph value %q is not an invocation", id)
	}
	v, err := ev.apply(&node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.FunctionName, err)
	}
	ev.cache[id] = v
	return v, nil
}

// arg decodes one argument, resolving value references recursively.
func (ev *evaluator) arg(raw json.RawMessage) (any, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		if ref, ok := obj["valueReference"]; ok {
			var id string
			if err := json.Unmarshal(ref, &id); err != nil {
				return nil, fmt.Errorf("malformed value reference")
			}
			return ev.value(id)
		}
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			dec, err := ev.arg(v)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && list != nil {
		out := make([]any, len(list))
		for i, v := range list {
			dec, err := ev.arg(v)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	}
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return nil, fmt.Errorf("malformed argument: %w", err)
	}
	return scalar, nil
}

// args is a tiny typed accessor over decoded arguments.
type args struct {
	node *wireNode
	ev   *evaluator
}

func (a args) any(name string) (any, error) {
	raw, ok := a.node.Arguments[name]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", name)
	}
	return a.ev.arg(raw)
}

func (a args) raster(name string) (*Raster, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	r, ok := v.(*Raster)
	if !ok {
		return nil, fmt.Errorf("argument %q is not an image", name)
	}
	return r, nil
}

func (a args) float(name string) (float64, error) {
	v, err := a.any(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("argument %q is not a number", name)
	}
	return f, nil
}

func (a args) intArg(name string) (int, error) {
	f, err := a.float(name)
	return int(f), err
}

func (a args) str(name string) (string, error) {
	v, err := a.any(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q is not a string", name)
	}
	return s, nil
}

func (a args) strings(name string) ([]string, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a string list", name)
	}
	out := make([]string, len(list))
	for i, el := range list {
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q is not a string list", name)
		}
		out[i] = s
	}
	return out, nil
}

func (a args) floats(name string) ([]float64, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	return toFloats(v, name)
}

func toFloats(v any, name string) ([]float64, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a number list", name)
	}
	out := make([]float64, len(list))
	for i, el := range list {
		f, ok := el.(float64)
		if !ok {
			return nil, fmt.Errorf("argument %q is not a number list", name)
		}
		out[i] = f
	}
	return out, nil
}

func (a args) matrix(name string) ([][]float64, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	if m, ok := v.([][]float64); ok {
		return m, nil
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a matrix", name)
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		r, err := toFloats(row, name)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (a args) geometry(name string) (*geomSpec, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	g, ok := v.(*geomSpec)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a geometry", name)
	}
	return g, nil
}

// apply dispatches a single remote function invocation.
func (ev *evaluator) apply(node *wireNode) (any, error) {
	a := args{node: node, ev: ev}
	fn := node.FunctionName
	switch {
	case fn == "List":
		return a.any("values")
	case strings.HasPrefix(fn, "Image."):
		return ev.applyImage(fn, a)
	case strings.HasPrefix(fn, "ImageCollection."):
		return ev.applyCollection(fn, a)
	case strings.HasPrefix(fn, "FeatureCollection."):
		return ev.applyFeatures(fn, a)
	case strings.HasPrefix(fn, "Reducer."):
		return applyReducerCtor(fn, a)
	case strings.HasPrefix(fn, "Geometry."):
		return applyGeometry(fn, a)
	case strings.HasPrefix(fn, "Matrix."):
		return applyMatrix(fn, a)
	case strings.HasPrefix(fn, "Classifier.") || strings.HasPrefix(fn, "Clusterer."):
		return applyLearner(fn, a)
	case strings.HasPrefix(fn, "ConfusionMatrix."):
		return applyConfusion(fn, a)
	}
	return nil, fmt.Errorf("unknown function")
}

func (ev *evaluator) applyImage(fn string, a args) (any, error) {
	switch fn {
	case "Image.load":
		id, err := a.str("id")
		if err != nil {
			return nil, err
		}
		sc, ok := ev.store.scene(id)
		if !ok {
			return nil, &evalError{code: codeNotFound, msg: fmt.Sprintf("no such asset %q", id)}
		}
		return sc.Raster, nil

	case "Image.constant":
		v, err := a.any("value")
		if err != nil {
			return nil, err
		}
		switch t := v.(type) {
		case float64:
			r := ConstantRaster(1, 1, t, "constant")
			return r, nil
		case []any:
			vals, err := toFloats(t, "value")
			if err != nil {
				return nil, err
			}
			bands := make([]string, len(vals))
			for i := range vals {
				bands[i] = fmt.Sprintf("constant_%d", i)
			}
			r := NewRaster(1, 1, bands...)
			for i, b := range bands {
				r.Data[b][0] = vals[i]
			}
			return r, nil
		}
		return nil, fmt.Errorf("constant value must be a number or list")

	case "Image.select":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		bands, err := a.strings("bands")
		if err != nil {
			return nil, err
		}
		out := &Raster{W: r.W, H: r.H, Mask: r.Mask, Data: make(map[string][]float64, len(bands))}
		for _, b := range bands {
			px, ok := r.Data[b]
			if !ok {
				return nil, fmt.Errorf("no band %q (have %v)", b, r.Bands)
			}
			out.Bands = append(out.Bands, b)
			out.Data[b] = px
		}
		return out, nil

	case "Image.rename":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		names, err := a.strings("names")
		if err != nil {
			return nil, err
		}
		if len(names) != len(r.Bands) {
			return nil, fmt.Errorf("rename: %d names for %d bands", len(names), len(r.Bands))
		}
		out := &Raster{W: r.W, H: r.H, Mask: r.Mask, Bands: names, Data: make(map[string][]float64, len(names))}
		for i, b := range r.Bands {
			out.Data[names[i]] = r.Data[b]
		}
		return out, nil

	case "Image.addBands":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		other, err := a.raster("other")
		if err != nil {
			return nil, err
		}
		r, other, err = broadcast(r, other)
		if err != nil {
			return nil, err
		}
		out := r.clone()
		for i := range out.Mask {
			out.Mask[i] = out.Mask[i] && other.Mask[i]
		}
		for _, b := range other.Bands {
			name := b
			if _, taken := out.Data[name]; taken {
				name = b + "_1"
			}
			out.Bands = append(out.Bands, name)
			out.Data[name] = append([]float64(nil), other.Data[b]...)
		}
		return out, nil

	case "Image.bandNames":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		out := make([]any, len(r.Bands))
		for i, b := range r.Bands {
			out[i] = b
		}
		return out, nil

	case "Image.normalizedDifference":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		bands, err := a.strings("bands")
		if err != nil {
			return nil, err
		}
		if len(bands) != 2 {
			return nil, fmt.Errorf("normalizedDifference needs exactly 2 bands")
		}
		pa, ok := r.Data[bands[0]]
		if !ok {
			return nil, fmt.Errorf("no band %q", bands[0])
		}
		pb, ok := r.Data[bands[1]]
		if !ok {
			return nil, fmt.Errorf("no band %q", bands[1])
		}
		out := NewRaster(r.W, r.H, "nd")
		copy(out.Mask, r.Mask)
		px := out.Data["nd"]
		for i := range px {
			den := pa[i] + pb[i]
			if den == 0 {
				out.Mask[i] = false
				continue
			}
			px[i] = (pa[i] - pb[i]) / den
		}
		return out, nil

	case "Image.expression":
		return ev.applyExpression(a)

	case "Image.add", "Image.subtract", "Image.multiply", "Image.divide", "Image.pow",
		"Image.lt", "Image.lte", "Image.gt", "Image.gte", "Image.eq", "Image.neq",
		"Image.and", "Image.or":
		left, err := a.raster("left")
		if err != nil {
			return nil, err
		}
		right, err := a.raster("right")
		if err != nil {
			return nil, err
		}
		return binaryOp(fn, left, right)

	case "Image.log", "Image.exp", "Image.sqrt", "Image.abs", "Image.not", "Image.mask":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		return unaryOp(fn, r)

	case "Image.bitwiseAnd":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		mask, err := a.intArg("mask")
		if err != nil {
			return nil, err
		}
		return mapPixels(r, func(v float64) float64 { return float64(int64(v) & int64(mask)) }), nil

	case "Image.rightShift":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		bits, err := a.intArg("bits")
		if err != nil {
			return nil, err
		}
		if bits < 0 || bits > 62 {
			return nil, fmt.Errorf("shift count %d out of range", bits)
		}
		return mapPixels(r, func(v float64) float64 { return float64(int64(v) >> uint(bits)) }), nil

	case "Image.updateMask":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		m, err := a.raster("mask")
		if err != nil {
			return nil, err
		}
		r2, m2, err := broadcast(r, m)
		if err != nil {
			return nil, err
		}
		out := r2.clone()
		mb := m2.Data[m2.Bands[0]]
		for i := range out.Mask {
			out.Mask[i] = out.Mask[i] && m2.Mask[i] && mb[i] != 0
		}
		return out, nil

	case "Image.unmask":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		fill, err := a.float("value")
		if err != nil {
			return nil, err
		}
		out := r.clone()
		for i, ok := range out.Mask {
			if !ok {
				for _, b := range out.Bands {
					out.Data[b][i] = fill
				}
				out.Mask[i] = true
			}
		}
		return out, nil

	case "Image.where":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		test, err := a.raster("test")
		if err != nil {
			return nil, err
		}
		repl, err := a.raster("replacement")
		if err != nil {
			return nil, err
		}
		r2, t2, err := broadcast(r, test)
		if err != nil {
			return nil, err
		}
		r2, repl2, err := broadcast(r2, repl)
		if err != nil {
			return nil, err
		}
		if len(t2.Bands) != len(r2.Bands) && len(test.Bands) != 1 {
			return nil, fmt.Errorf("where: test band count mismatch")
		}
		out := r2.clone()
		for bi, b := range out.Bands {
			tb := t2.Data[t2.Bands[min(bi, len(t2.Bands)-1)]]
			rb := repl2.Data[repl2.Bands[min(bi, len(repl2.Bands)-1)]]
			px := out.Data[b]
			for i := range px {
				if tb[i] != 0 {
					px[i] = rb[i]
				}
			}
		}
		return out, nil

	case "Image.clamp":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		lo, err := a.float("low")
		if err != nil {
			return nil, err
		}
		hi, err := a.float("high")
		if err != nil {
			return nil, err
		}
		return mapPixels(r, func(v float64) float64 { return math.Min(math.Max(v, lo), hi) }), nil

	case "Image.clip":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		g, err := a.geometry("geometry")
		if err != nil {
			return nil, err
		}
		x0, y0, x1, y1 := g.window(r.W, r.H)
		out := r.clone()
		for y := 0; y < r.H; y++ {
			for x := 0; x < r.W; x++ {
				if x < x0 || x >= x1 || y < y0 || y >= y1 {
					out.Mask[y*r.W+x] = false
				}
			}
		}
		return out, nil

	case "Image.interpolate":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		x, err := a.floats("x")
		if err != nil {
			return nil, err
		}
		y, err := a.floats("y")
		if err != nil {
			return nil, err
		}
		if len(x) != len(y) || len(x) < 2 {
			return nil, fmt.Errorf("interpolate needs matching x/y breakpoints, at least 2")
		}
		return mapPixels(r, func(v float64) float64 { return interp(x, y, v) }), nil

	case "Image.chiSquareCDF":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		df, err := a.intArg("df")
		if err != nil {
			return nil, err
		}
		if df < 1 {
			return nil, fmt.Errorf("chiSquareCDF needs df >= 1")
		}
		dist := distuv.ChiSquared{K: float64(df)}
		return mapPixels(r, func(v float64) float64 {
			if v <= 0 {
				return 0
			}
			return dist.CDF(v)
		}), nil

	case "Image.reduceRegion":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		redAny, err := a.any("reducer")
		if err != nil {
			return nil, err
		}
		red, ok := redAny.(*reducerSpec)
		if !ok {
			return nil, fmt.Errorf("reducer argument is not a reducer")
		}
		g, err := a.geometry("geometry")
		if err != nil {
			return nil, err
		}
		return reduceRegion(r, red, g)

	case "Image.sampleRegions":
		return ev.applySampleRegions(a)

	case "Image.classify":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		clAny, err := a.any("classifier")
		if err != nil {
			return nil, err
		}
		cl, ok := clAny.(*trainedClassifier)
		if !ok {
			return nil, fmt.Errorf("classifier is not trained")
		}
		return cl.classify(r)

	case "Image.cluster":
		r, err := a.raster("input")
		if err != nil {
			return nil, err
		}
		clAny, err := a.any("clusterer")
		if err != nil {
			return nil, err
		}
		cl, ok := clAny.(*trainedClusterer)
		if !ok {
			return nil, fmt.Errorf("clusterer is not trained")
		}
		return cl.cluster(r)
	}
	return nil, fmt.Errorf("unknown function")
}

func (ev *evaluator) applyExpression(a args) (any, error) {
	formula, err := a.str("expression")
	if err != nil {
		return nil, err
	}
	varsAny, err := a.any("vars")
	if err != nil {
		return nil, err
	}
	varMap, ok := varsAny.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("vars must be a map of images")
	}
	node, err := parseExpression(formula)
	if err != nil {
		return nil, err
	}

	var w, h int
	inputs := make(map[string]*Raster, len(varMap))
	for name, v := range varMap {
		r, ok := v.(*Raster)
		if !ok {
			return nil, fmt.Errorf("variable %q is not an image", name)
		}
		if len(r.Bands) != 1 {
			return nil, fmt.Errorf("variable %q has %d bands; expression variables must be single-band", name, len(r.Bands))
		}
		inputs[name] = r
		if r.W*r.H > w*h {
			w, h = r.W, r.H
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("expression has no variables")
	}
	grown := make(map[string][]float64, len(inputs))
	mask := make([]bool, w*h)
	for i := range mask {
		mask[i] = true
	}
	for name, r := range inputs {
		g, err := growTo(r, w, h)
		if err != nil {
			return nil, err
		}
		grown[name] = g.Data[g.Bands[0]]
		for i := range mask {
			mask[i] = mask[i] && g.Mask[i]
		}
	}

	out := NewRaster(w, h, "expression")
	copy(out.Mask, mask)
	px := out.Data["expression"]
	vars := make(map[string]float64, len(grown))
	for i := range px {
		if !mask[i] {
			continue
		}
		for name, data := range grown {
			vars[name] = data[i]
		}
		v, err := node.eval(vars)
		if err != nil {
			return nil, err
		}
		px[i] = v
	}
	return out, nil
}

func (ev *evaluator) applyCollection(fn string, a args) (any, error) {
	switch fn {
	case "ImageCollection.load":
		id, err := a.str("id")
		if err != nil {
			return nil, err
		}
		scenes, ok := ev.store.collection(id)
		if !ok {
			return nil, &evalError{code: codeNotFound, msg: fmt.Sprintf("no such catalog %q", id)}
		}
		return scenes, nil

	case "ImageCollection.filterDate":
		scenes, err := a.scenes("input")
		if err != nil {
			return nil, err
		}
		start, err := a.timeArg("start")
		if err != nil {
			return nil, err
		}
		end, err := a.timeArg("end")
		if err != nil {
			return nil, err
		}
		var out []*Scene
		for _, sc := range scenes {
			if !sc.Time.Before(start) && sc.Time.Before(end) {
				out = append(out, sc)
			}
		}
		return out, nil

	case "ImageCollection.filterBounds":
		scenes, err := a.scenes("input")
		if err != nil {
			return nil, err
		}
		g, err := a.geometry("geometry")
		if err != nil {
			return nil, err
		}
		var out []*Scene
		for _, sc := range scenes {
			if g.intersects(sc.footprint()) {
				out = append(out, sc)
			}
		}
		return out, nil

	case "ImageCollection.filter":
		scenes, err := a.scenes("input")
		if err != nil {
			return nil, err
		}
		prop, err := a.str("property")
		if err != nil {
			return nil, err
		}
		op, err := a.str("op")
		if err != nil {
			return nil, err
		}
		val, err := a.float("value")
		if err != nil {
			return nil, err
		}
		var out []*Scene
		for _, sc := range scenes {
			v, ok := sc.Props[prop]
			if ok && compareProp(op, v, val) {
				out = append(out, sc)
			}
		}
		return out, nil

	case "ImageCollection.size":
		scenes, err := a.scenes("input")
		if err != nil {
			return nil, err
		}
		return float64(len(scenes)), nil

	case "ImageCollection.first":
		scenes, err := a.scenes("input")
		if err != nil {
			return nil, err
		}
		if len(scenes) == 0 {
			return nil, fmt.Errorf("collection is empty")
		}
		return scenes[0].Raster, nil

	case "ImageCollection.median", "ImageCollection.mean", "ImageCollection.min",
		"ImageCollection.max", "ImageCollection.mosaic":
		scenes, err := a.scenes("input")
		if err != nil {
			return nil, err
		}
		return composite(strings.TrimPrefix(fn, "ImageCollection."), scenes)
	}
	return nil, fmt.Errorf("unknown function")
}

func (a args) scenes(name string) ([]*Scene, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	scenes, ok := v.([]*Scene)
	if !ok {
		return nil, fmt.Errorf("argument %q is not an image collection", name)
	}
	return scenes, nil
}

func (a args) timeArg(name string) (time.Time, error) {
	s, err := a.str(name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %q is not an RFC3339 time: %w", name, err)
	}
	return t, nil
}

func compareProp(op string, v, threshold float64) bool {
	switch op {
	case "less_than":
		return v < threshold
	case "greater_than":
		return v > threshold
	case "greater_or_equal":
		return v >= threshold
	case "equals":
		return v == threshold
	}
	return false
}

// composite folds a collection pixelwise. All scenes must share shape and
// band set.
func composite(kind string, scenes []*Scene) (*Raster, error) {
	if len(scenes) == 0 {
		return nil, fmt.Errorf("collection is empty")
	}
	first := scenes[0].Raster
	for _, sc := range scenes[1:] {
		if err := first.sameShape(sc.Raster); err != nil {
			return nil, err
		}
	}
	out := NewRaster(first.W, first.H, first.Bands...)
	samples := make([]float64, 0, len(scenes))
	for _, b := range out.Bands {
		px := out.Data[b]
		for i := range px {
			samples = samples[:0]
			for _, sc := range scenes {
				data, ok := sc.Raster.Data[b]
				if !ok {
					return nil, fmt.Errorf("scene missing band %q", b)
				}
				if sc.Raster.Mask[i] {
					samples = append(samples, data[i])
				}
			}
			if len(samples) == 0 {
				out.Mask[i] = false
				continue
			}
			switch kind {
			case "median":
				px[i] = median(samples)
			case "mean":
				var sum float64
				for _, v := range samples {
					sum += v
				}
				px[i] = sum / float64(len(samples))
			case "min":
				px[i] = samples[0]
				for _, v := range samples[1:] {
					px[i] = math.Min(px[i], v)
				}
			case "max":
				px[i] = samples[0]
				for _, v := range samples[1:] {
					px[i] = math.Max(px[i], v)
				}
			case "mosaic":
				px[i] = samples[len(samples)-1]
			}
		}
	}
	return out, nil
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func (ev *evaluator) applyFeatures(fn string, a args) (any, error) {
	switch fn {
	case "FeatureCollection.load":
		id, err := a.str("id")
		if err != nil {
			return nil, err
		}
		feats, ok := ev.store.featureTable(id)
		if !ok {
			return nil, &evalError{code: codeNotFound, msg: fmt.Sprintf("no such table %q", id)}
		}
		return feats, nil

	case "FeatureCollection.filter":
		feats, err := a.features("input")
		if err != nil {
			return nil, err
		}
		prop, err := a.str("property")
		if err != nil {
			return nil, err
		}
		op, err := a.str("op")
		if err != nil {
			return nil, err
		}
		val, err := a.float("value")
		if err != nil {
			return nil, err
		}
		var out []Feature
		for _, f := range feats {
			v, ok := f.Props[prop]
			if ok && compareProp(op, v, val) {
				out = append(out, f)
			}
		}
		return out, nil

	case "FeatureCollection.randomColumn":
		feats, err := a.features("input")
		if err != nil {
			return nil, err
		}
		seed, err := a.float("seed")
		if err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewSource(int64(seed)))
		out := make([]Feature, len(feats))
		for i, f := range feats {
			props := make(map[string]float64, len(f.Props)+1)
			for k, v := range f.Props {
				props[k] = v
			}
			props["random"] = rng.Float64()
			out[i] = Feature{X: f.X, Y: f.Y, Props: props}
		}
		return out, nil

	case "FeatureCollection.size":
		feats, err := a.features("input")
		if err != nil {
			return nil, err
		}
		return float64(len(feats)), nil

	case "FeatureCollection.aggregateMean", "FeatureCollection.aggregateSum":
		feats, err := a.features("input")
		if err != nil {
			return nil, err
		}
		prop, err := a.str("property")
		if err != nil {
			return nil, err
		}
		var sum float64
		var n int
		for _, f := range feats {
			if v, ok := f.Props[prop]; ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("no feature has property %q", prop)
		}
		if fn == "FeatureCollection.aggregateSum" {
			return sum, nil
		}
		return sum / float64(n), nil

	case "FeatureCollection.errorMatrix":
		feats, err := a.features("input")
		if err != nil {
			return nil, err
		}
		actual, err := a.str("actual")
		if err != nil {
			return nil, err
		}
		predicted, err := a.str("predicted")
		if err != nil {
			return nil, err
		}
		return errorMatrix(feats, actual, predicted)
	}
	return nil, fmt.Errorf("unknown function")
}

func (a args) features(name string) ([]Feature, error) {
	v, err := a.any(name)
	if err != nil {
		return nil, err
	}
	feats, ok := v.([]Feature)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a feature collection", name)
	}
	return feats, nil
}

func (ev *evaluator) applySampleRegions(a args) (any, error) {
	r, err := a.raster("input")
	if err != nil {
		return nil, err
	}
	feats, err := a.features("collection")
	if err != nil {
		return nil, err
	}
	keep, err := a.strings("properties")
	if err != nil {
		return nil, err
	}
	out := make([]Feature, 0, len(feats))
	for _, f := range feats {
		x := int(f.X * float64(r.W))
		y := int(f.Y * float64(r.H))
		x = min(max(x, 0), r.W-1)
		y = min(max(y, 0), r.H-1)
		if !r.Mask[y*r.W+x] {
			continue
		}
		props := make(map[string]float64, len(keep)+len(r.Bands))
		for _, k := range keep {
			if v, ok := f.Props[k]; ok {
				props[k] = v
			}
		}
		for _, b := range r.Bands {
			props[b] = r.At(b, x, y)
		}
		out = append(out, Feature{X: f.X, Y: f.Y, Props: props})
	}
	return out, nil
}

// interp evaluates a piecewise-linear curve with clamped ends.
func interp(x, y []float64, v float64) float64 {
	if v <= x[0] {
		return y[0]
	}
	if v >= x[len(x)-1] {
		return y[len(y)-1]
	}
	i := sort.SearchFloat64s(x, v)
	if x[i] == v {
		return y[i]
	}
	frac := (v - x[i-1]) / (x[i] - x[i-1])
	return y[i-1] + frac*(y[i]-y[i-1])
}
