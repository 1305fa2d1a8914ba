package tellus

// Classifier is an opaque handle to a server-side supervised classifier,
// either untrained (fresh from a constructor) or trained (after Train).
type Classifier struct {
	n *Node
}

func (c Classifier) node() *Node { return c.n }

// CART creates an untrained classification-and-regression-tree classifier.
func CART() Classifier {
	return Classifier{n: invoke("Classifier.cart", map[string]any{})}
}

// RandomForest creates an untrained random forest with the given number of
// trees.
func RandomForest(trees int) Classifier {
	return Classifier{n: invoke("Classifier.randomForest", map[string]any{
		"trees": trees,
	})}
}

// MinimumDistance creates an untrained minimum-distance-to-class-mean
// classifier.
func MinimumDistance() Classifier {
	return Classifier{n: invoke("Classifier.minimumDistance", map[string]any{})}
}

// SVM creates an untrained support-vector-machine classifier with an RBF
// kernel.
func SVM() Classifier {
	return Classifier{n: invoke("Classifier.svm", map[string]any{})}
}

// Train fits the classifier on a feature collection whose features carry
// the class in classProperty and the predictors in inputProperties.
func (c Classifier) Train(features FeatureCollection, classProperty string, inputProperties []string) Classifier {
	return Classifier{n: invoke("Classifier.train", map[string]any{
		"classifier":      c.n,
		"features":        features.n,
		"classProperty":   classProperty,
		"inputProperties": inputProperties,
	})}
}

// Clusterer is an opaque handle to a server-side unsupervised clusterer.
type Clusterer struct {
	n *Node
}

func (c Clusterer) node() *Node { return c.n }

// KMeans creates an untrained k-means clusterer.
func KMeans(clusters int) Clusterer {
	return Clusterer{n: invoke("Clusterer.kmeans", map[string]any{
		"clusters": clusters,
	})}
}

// TrainClusterer fits the clusterer on samples drawn from a feature
// collection's numeric properties.
func (c Clusterer) TrainClusterer(features FeatureCollection, inputProperties []string) Clusterer {
	return Clusterer{n: invoke("Clusterer.train", map[string]any{
		"clusterer":       c.n,
		"features":        features.n,
		"inputProperties": inputProperties,
	})}
}

// ConfusionMatrix is an opaque handle to a class-by-class error matrix.
type ConfusionMatrix struct {
	n *Node
}

func (m ConfusionMatrix) node() *Node { return m.n }

// Accuracy evaluates to overall accuracy: trace / total.
func (m ConfusionMatrix) Accuracy() Value {
	return Value{n: invoke("ConfusionMatrix.accuracy", map[string]any{"input": m.n})}
}

// Kappa evaluates to Cohen's kappa coefficient.
func (m ConfusionMatrix) Kappa() Value {
	return Value{n: invoke("ConfusionMatrix.kappa", map[string]any{"input": m.n})}
}

// Matrix evaluates to the raw count matrix, actual classes as rows.
func (m ConfusionMatrix) Matrix() Value {
	return Value{n: invoke("ConfusionMatrix.matrix", map[string]any{"input": m.n})}
}
