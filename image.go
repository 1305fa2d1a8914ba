package tellus

// Image is an opaque handle to a multi-band raster on the platform. All
// methods are request builders: they append nodes to the remote computation
// graph and perform no local pixel work.
type Image struct {
	n *Node
}

func (img Image) node() *Node { return img.n }

// NewImage references a catalog scene by its asset ID, for example
// "LC08_L1TP_042034_20240615" or "S2B_MSIL1C_20240601T183919".
func NewImage(assetID string) Image {
	return Image{n: invoke("Image.load", map[string]any{"id": assetID})}
}

// Constant creates a single-band image where every pixel has the given value.
func Constant(value float64) Image {
	return Image{n: invoke("Image.constant", map[string]any{"value": value})}
}

// ConstantList creates a multi-band constant image, one band per value.
// Bands are named "constant_0", "constant_1", ... by the platform.
func ConstantList(values []float64) Image {
	return Image{n: invoke("Image.constant", map[string]any{"value": values})}
}

// Select keeps only the named bands, in the given order.
func (img Image) Select(bands ...string) Image {
	return Image{n: invoke("Image.select", map[string]any{
		"input": img.n, "bands": bands,
	})}
}

// Rename renames the image's bands. The number of names must match the
// band count; the platform rejects mismatches at evaluation time.
func (img Image) Rename(names ...string) Image {
	return Image{n: invoke("Image.rename", map[string]any{
		"input": img.n, "names": names,
	})}
}

// AddBands appends all bands of other to img. Duplicate band names get a
// "_1" suffix on the platform.
func (img Image) AddBands(other Image) Image {
	return Image{n: invoke("Image.addBands", map[string]any{
		"input": img.n, "other": other.n,
	})}
}

// BandNames evaluates to the list of band names.
func (img Image) BandNames() Value {
	return Value{n: invoke("Image.bandNames", map[string]any{"input": img.n})}
}

// NormalizedDifference computes (a-b)/(a+b) over two named bands, the
// building block of most spectral indices. The result is a single band
// named "nd".
func (img Image) NormalizedDifference(a, b string) Image {
	return Image{n: invoke("Image.normalizedDifference", map[string]any{
		"input": img.n, "bands": []string{a, b},
	})}
}

// Expression evaluates a band-math formula over named input images.
// Identifiers in the formula refer to keys of vars; each input must be a
// single-band image, so select a band before passing a multi-band scene.
// Supported syntax:
// + - * / **, unary minus, parentheses, comparisons, and the functions
// sqrt, log, exp, abs, pow, min, max.
//
//	ndvi := tellus.Expression("(nir - red) / (nir + red)", map[string]tellus.Image{
//		"nir": img.Select("B5"),
//		"red": img.Select("B4"),
//	})
func Expression(formula string, vars map[string]Image) Image {
	args := make(map[string]any, len(vars))
	for k, v := range vars {
		args[k] = v.n
	}
	return Image{n: invoke("Image.expression", map[string]any{
		"expression": formula, "vars": args,
	})}
}

func (img Image) binary(fn string, other Image) Image {
	return Image{n: invoke(fn, map[string]any{"left": img.n, "right": other.n})}
}

func (img Image) unary(fn string) Image {
	return Image{n: invoke(fn, map[string]any{"input": img.n})}
}

// Add returns img + other, band by band.
func (img Image) Add(other Image) Image { return img.binary("Image.add", other) }

// Subtract returns img - other, band by band.
func (img Image) Subtract(other Image) Image { return img.binary("Image.subtract", other) }

// Multiply returns img * other, band by band.
func (img Image) Multiply(other Image) Image { return img.binary("Image.multiply", other) }

// Divide returns img / other, band by band. Division by zero yields a
// masked pixel on the platform.
func (img Image) Divide(other Image) Image { return img.binary("Image.divide", other) }

// Pow raises img to the power of other, band by band.
func (img Image) Pow(other Image) Image { return img.binary("Image.pow", other) }

// AddConstant adds the same scalar to every band.
func (img Image) AddConstant(v float64) Image { return img.Add(Constant(v)) }

// MultiplyConstant scales every band by the same scalar.
func (img Image) MultiplyConstant(v float64) Image { return img.Multiply(Constant(v)) }

// Log returns the natural logarithm of each pixel.
func (img Image) Log() Image { return img.unary("Image.log") }

// Exp returns e raised to each pixel value.
func (img Image) Exp() Image { return img.unary("Image.exp") }

// Sqrt returns the square root of each pixel.
func (img Image) Sqrt() Image { return img.unary("Image.sqrt") }

// Abs returns the absolute value of each pixel.
func (img Image) Abs() Image { return img.unary("Image.abs") }

// Not returns 1 where img is 0 and 0 elsewhere.
func (img Image) Not() Image { return img.unary("Image.not") }

// Lt returns 1 where img < other, else 0.
func (img Image) Lt(other Image) Image { return img.binary("Image.lt", other) }

// Lte returns 1 where img <= other, else 0.
func (img Image) Lte(other Image) Image { return img.binary("Image.lte", other) }

// Gt returns 1 where img > other, else 0.
func (img Image) Gt(other Image) Image { return img.binary("Image.gt", other) }

// Gte returns 1 where img >= other, else 0.
func (img Image) Gte(other Image) Image { return img.binary("Image.gte", other) }

// Eq returns 1 where img == other, else 0.
func (img Image) Eq(other Image) Image { return img.binary("Image.eq", other) }

// Neq returns 1 where img != other, else 0.
func (img Image) Neq(other Image) Image { return img.binary("Image.neq", other) }

// And returns 1 where both img and other are nonzero.
func (img Image) And(other Image) Image { return img.binary("Image.and", other) }

// Or returns 1 where either img or other is nonzero.
func (img Image) Or(other Image) Image { return img.binary("Image.or", other) }

// BitwiseAnd applies a bitwise AND against a constant mask. Pixel values
// are truncated to integers first. Used for QA bit flags.
func (img Image) BitwiseAnd(mask int) Image {
	return Image{n: invoke("Image.bitwiseAnd", map[string]any{
		"input": img.n, "mask": mask,
	})}
}

// RightShift shifts integer pixel values right by n bits.
func (img Image) RightShift(n int) Image {
	return Image{n: invoke("Image.rightShift", map[string]any{
		"input": img.n, "bits": n,
	})}
}

// UpdateMask masks out pixels where mask is 0. Already-masked pixels stay
// masked.
func (img Image) UpdateMask(mask Image) Image {
	return Image{n: invoke("Image.updateMask", map[string]any{
		"input": img.n, "mask": mask.n,
	})}
}

// Mask evaluates to the image's mask as a 0/1 image.
func (img Image) Mask() Image { return img.unary("Image.mask") }

// Unmask replaces masked pixels with the given fill value and clears the
// mask.
func (img Image) Unmask(fill float64) Image {
	return Image{n: invoke("Image.unmask", map[string]any{
		"input": img.n, "value": fill,
	})}
}

// Where replaces pixels with replacement wherever test is nonzero.
func (img Image) Where(test, replacement Image) Image {
	return Image{n: invoke("Image.where", map[string]any{
		"input": img.n, "test": test.n, "replacement": replacement.n,
	})}
}

// Clamp limits every pixel to the range [lo, hi].
func (img Image) Clamp(lo, hi float64) Image {
	return Image{n: invoke("Image.clamp", map[string]any{
		"input": img.n, "low": lo, "high": hi,
	})}
}

// Clip masks out pixels outside the geometry.
func (img Image) Clip(g Geometry) Image {
	return Image{n: invoke("Image.clip", map[string]any{
		"input": img.n, "geometry": g.n,
	})}
}

// Interpolate maps pixel values through a piecewise-linear curve defined by
// breakpoints x (ascending) and outputs y. Values outside the breakpoints
// are clamped to the end segments.
func (img Image) Interpolate(x, y []float64) Image {
	return Image{n: invoke("Image.interpolate", map[string]any{
		"input": img.n, "x": x, "y": y,
	})}
}

// ChiSquareCDF evaluates the chi-square cumulative distribution function
// with df degrees of freedom at each pixel.
func (img Image) ChiSquareCDF(df int) Image {
	return Image{n: invoke("Image.chiSquareCDF", map[string]any{
		"input": img.n, "df": df,
	})}
}

// ReduceRegion aggregates all unmasked pixels inside region with the given
// reducer at the given scale in meters. The result shape depends on the
// reducer: per-band dictionaries for most, a matrix for Covariance.
func (img Image) ReduceRegion(r Reducer, region Geometry, scale float64) Value {
	return Value{n: invoke("Image.reduceRegion", map[string]any{
		"input": img.n, "reducer": r.n, "geometry": region.n, "scale": scale,
	})}
}

// SampleRegions samples the image's band values at every feature of fc,
// copying the named properties onto each output feature. Used to build
// classifier training sets.
func (img Image) SampleRegions(fc FeatureCollection, properties []string, scale float64) FeatureCollection {
	return FeatureCollection{n: invoke("Image.sampleRegions", map[string]any{
		"input": img.n, "collection": fc.n, "properties": properties, "scale": scale,
	})}
}

// Classify runs a trained classifier over the image, producing a single
// band named "classification".
func (img Image) Classify(c Classifier) Image {
	return Image{n: invoke("Image.classify", map[string]any{
		"input": img.n, "classifier": c.n,
	})}
}

// Cluster runs a trained clusterer over the image, producing a single band
// named "cluster".
func (img Image) Cluster(c Clusterer) Image {
	return Image{n: invoke("Image.cluster", map[string]any{
		"input": img.n, "clusterer": c.n,
	})}
}
