package tellus

// Geometry is an opaque handle to a platform geometry. Coordinates are
// WGS84 longitude/latitude degrees.
type Geometry struct {
	n *Node
}

func (g Geometry) node() *Node { return g.n }

// Point creates a point geometry.
func Point(lon, lat float64) Geometry {
	return Geometry{n: invoke("Geometry.point", map[string]any{
		"coordinates": []float64{lon, lat},
	})}
}

// Rectangle creates an axis-aligned bounding box from its west, south,
// east and north edges.
func Rectangle(west, south, east, north float64) Geometry {
	return Geometry{n: invoke("Geometry.rectangle", map[string]any{
		"coordinates": []float64{west, south, east, north},
	})}
}

// Polygon creates a polygon from a single outer ring of [lon, lat] pairs.
// The ring need not be explicitly closed.
func Polygon(ring [][]float64) Geometry {
	coords := make([]any, len(ring))
	for i, pt := range ring {
		coords[i] = []float64{pt[0], pt[1]}
	}
	return Geometry{n: invoke("Geometry.polygon", map[string]any{
		"coordinates": coords,
	})}
}
