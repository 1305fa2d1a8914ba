package tellus

import "time"

// ImageCollection is an opaque handle to an ordered stack of images on the
// platform, usually a satellite catalog filtered by time and place.
type ImageCollection struct {
	n *Node
}

func (ic ImageCollection) node() *Node { return ic.n }

// LoadCollection references a platform catalog by ID, for example
// "LANDSAT/LC08/C02/T1_TOA" or "COPERNICUS/S2_HARMONIZED".
func LoadCollection(catalogID string) ImageCollection {
	return ImageCollection{n: invoke("ImageCollection.load", map[string]any{
		"id": catalogID,
	})}
}

// FilterDate keeps images acquired in [start, end).
func (ic ImageCollection) FilterDate(start, end time.Time) ImageCollection {
	return ImageCollection{n: invoke("ImageCollection.filterDate", map[string]any{
		"input": ic.n,
		"start": start.UTC().Format(time.RFC3339),
		"end":   end.UTC().Format(time.RFC3339),
	})}
}

// FilterBounds keeps images whose footprint intersects the geometry.
func (ic ImageCollection) FilterBounds(g Geometry) ImageCollection {
	return ImageCollection{n: invoke("ImageCollection.filterBounds", map[string]any{
		"input": ic.n, "geometry": g.n,
	})}
}

// FilterLt keeps images whose named property is below the threshold,
// typically cloud cover.
func (ic ImageCollection) FilterLt(property string, value float64) ImageCollection {
	return ic.filter(property, "less_than", value)
}

// FilterGt keeps images whose named property exceeds the threshold.
func (ic ImageCollection) FilterGt(property string, value float64) ImageCollection {
	return ic.filter(property, "greater_than", value)
}

// FilterEq keeps images whose named property equals the value exactly.
func (ic ImageCollection) FilterEq(property string, value float64) ImageCollection {
	return ic.filter(property, "equals", value)
}

func (ic ImageCollection) filter(property, op string, value float64) ImageCollection {
	return ImageCollection{n: invoke("ImageCollection.filter", map[string]any{
		"input": ic.n, "property": property, "op": op, "value": value,
	})}
}

func (ic ImageCollection) composite(kind string) Image {
	return Image{n: invoke("ImageCollection."+kind, map[string]any{"input": ic.n})}
}

// Median composites the collection per pixel and band.
func (ic ImageCollection) Median() Image { return ic.composite("median") }

// Mean composites the collection per pixel and band.
func (ic ImageCollection) Mean() Image { return ic.composite("mean") }

// Min composites the collection per pixel and band.
func (ic ImageCollection) Min() Image { return ic.composite("min") }

// Max composites the collection per pixel and band.
func (ic ImageCollection) Max() Image { return ic.composite("max") }

// Mosaic composites the collection: the last unmasked value wins.
func (ic ImageCollection) Mosaic() Image { return ic.composite("mosaic") }

// First takes the first image of the collection.
func (ic ImageCollection) First() Image { return ic.composite("first") }

// Size evaluates to the number of images in the collection.
func (ic ImageCollection) Size() Value {
	return Value{n: invoke("ImageCollection.size", map[string]any{"input": ic.n})}
}

// FeatureCollection is an opaque handle to a table of features (geometries
// plus properties) on the platform.
type FeatureCollection struct {
	n *Node
}

func (fc FeatureCollection) node() *Node { return fc.n }

// LoadFeatures references a platform feature table by ID.
func LoadFeatures(tableID string) FeatureCollection {
	return FeatureCollection{n: invoke("FeatureCollection.load", map[string]any{
		"id": tableID,
	})}
}

// FilterLt keeps features whose property is below the value.
func (fc FeatureCollection) FilterLt(property string, value float64) FeatureCollection {
	return fc.filter(property, "less_than", value)
}

// FilterGte keeps features whose property is at least the value.
func (fc FeatureCollection) FilterGte(property string, value float64) FeatureCollection {
	return fc.filter(property, "greater_or_equal", value)
}

// FilterEq keeps features whose property equals the value.
func (fc FeatureCollection) FilterEq(property string, value float64) FeatureCollection {
	return fc.filter(property, "equals", value)
}

func (fc FeatureCollection) filter(property, op string, value float64) FeatureCollection {
	return FeatureCollection{n: invoke("FeatureCollection.filter", map[string]any{
		"input": fc.n, "property": property, "op": op, "value": value,
	})}
}

// RandomColumn adds a uniform [0,1) property named "random", deterministic
// for a given seed. Pair with FilterLt/FilterGte for train/test splits.
func (fc FeatureCollection) RandomColumn(seed int64) FeatureCollection {
	return FeatureCollection{n: invoke("FeatureCollection.randomColumn", map[string]any{
		"input": fc.n, "seed": seed,
	})}
}

// Size evaluates to the number of features.
func (fc FeatureCollection) Size() Value {
	return Value{n: invoke("FeatureCollection.size", map[string]any{"input": fc.n})}
}

// AggregateMean evaluates to the mean of a numeric property.
func (fc FeatureCollection) AggregateMean(property string) Value {
	return Value{n: invoke("FeatureCollection.aggregateMean", map[string]any{
		"input": fc.n, "property": property,
	})}
}

// AggregateSum evaluates to the sum of a numeric property.
func (fc FeatureCollection) AggregateSum(property string) Value {
	return Value{n: invoke("FeatureCollection.aggregateSum", map[string]any{
		"input": fc.n, "property": property,
	})}
}

// ErrorMatrix builds a confusion matrix comparing two integer-class
// properties, typically the ground-truth class and a classifier output.
func (fc FeatureCollection) ErrorMatrix(actual, predicted string) ConfusionMatrix {
	return ConfusionMatrix{n: invoke("FeatureCollection.errorMatrix", map[string]any{
		"input": fc.n, "actual": actual, "predicted": predicted,
	})}
}
