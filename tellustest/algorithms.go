package tellustest

// algorithm describes one remote function for algorithms.list. The real
// catalog is far larger; the emulator lists what it evaluates.
type algorithm struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Arguments   []argDef `json:"arguments,omitempty"`
}

type argDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func algorithmCatalog() []algorithm {
	return []algorithm{
		{
			Name:        "Image.load",
			Description: "Load a single scene by asset id.",
			Arguments:   []argDef{{Name: "id", Type: "string"}},
		},
		{
			Name:        "Image.constant",
			Description: "Create an image with constant band values.",
			Arguments:   []argDef{{Name: "value", Type: "number | number list"}},
		},
		{
			Name:        "Image.select",
			Description: "Keep only the named bands, in the given order.",
			Arguments: []argDef{
				{Name: "input", Type: "image"},
				{Name: "bands", Type: "string list"},
			},
		},
		{
			Name:        "Image.expression",
			Description: "Evaluate a band-math formula over named single-band variables.",
			Arguments: []argDef{
				{Name: "expression", Type: "string"},
				{Name: "vars", Type: "map of images"},
			},
		},
		{
			Name:        "Image.normalizedDifference",
			Description: "Compute (a - b) / (a + b) over two bands.",
			Arguments: []argDef{
				{Name: "input", Type: "image"},
				{Name: "bands", Type: "string list"},
			},
		},
		{
			Name:        "Image.reduceRegion",
			Description: "Reduce every band over the pixels a geometry selects.",
			Arguments: []argDef{
				{Name: "input", Type: "image"},
				{Name: "reducer", Type: "reducer"},
				{Name: "geometry", Type: "geometry"},
				{Name: "scale", Type: "number"},
			},
		},
		{
			Name:        "ImageCollection.load",
			Description: "Load a scene catalog by id.",
			Arguments:   []argDef{{Name: "id", Type: "string"}},
		},
		{
			Name:        "FeatureCollection.load",
			Description: "Load a feature table by id.",
			Arguments:   []argDef{{Name: "id", Type: "string"}},
		},
		{
			Name:        "Reducer.mean",
			Description: "Arithmetic mean of the unmasked pixels.",
		},
		{
			Name:        "Reducer.covariance",
			Description: "Band-by-band covariance matrix of the unmasked pixels.",
		},
		{
			Name:        "Matrix.cholesky",
			Description: "Lower-triangular Cholesky factor of a positive-definite matrix.",
			Arguments:   []argDef{{Name: "input", Type: "matrix"}},
		},
		{
			Name:        "Matrix.eigen",
			Description: "Eigen-decomposition of a symmetric matrix, eigenvalues ascending.",
			Arguments:   []argDef{{Name: "input", Type: "matrix"}},
		},
		{
			Name:        "Classifier.train",
			Description: "Fit a classifier on a sampled feature collection.",
			Arguments: []argDef{
				{Name: "classifier", Type: "classifier"},
				{Name: "features", Type: "feature collection"},
				{Name: "classProperty", Type: "string"},
				{Name: "inputProperties", Type: "string list"},
			},
		},
		{
			Name:        "Clusterer.kmeans",
			Description: "Untrained k-means clusterer.",
			Arguments:   []argDef{{Name: "clusters", Type: "integer"}},
		},
	}
}
