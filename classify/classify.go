package classify

import (
	"context"
	"fmt"

	tellus "github.com/tellusgeo/tellus-go"
)

// Sample draws classifier training features by sampling img's bands at
// every feature of fc, carrying classProperty through to the output.
func Sample(img tellus.Image, fc tellus.FeatureCollection, classProperty string, scale float64) tellus.FeatureCollection {
	return img.SampleRegions(fc, []string{classProperty}, scale)
}

// Split partitions a sampled collection into train and test sets using a
// deterministic random column.
func Split(fc tellus.FeatureCollection, trainFraction float64, seed int64) (train, test tellus.FeatureCollection, err error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return train, test, fmt.Errorf("classify: train fraction must be in (0,1), got %g", trainFraction)
	}
	withRandom := fc.RandomColumn(seed)
	return withRandom.FilterLt("random", trainFraction),
		withRandom.FilterGte("random", trainFraction),
		nil
}

// Train fits a classifier on a sampled collection. bands name the feature
// properties holding predictor values, classProperty the label.
func Train(c tellus.Classifier, training tellus.FeatureCollection, classProperty string, bands []string) tellus.Classifier {
	return c.Train(training, classProperty, bands)
}

// Predict classifies test features by sampling the classified image at
// their locations, yielding a collection carrying both the ground truth
// and a "classification" property.
func Predict(img tellus.Image, c tellus.Classifier, test tellus.FeatureCollection, classProperty string, scale float64) tellus.FeatureCollection {
	return img.Classify(c).SampleRegions(test, []string{classProperty}, scale)
}

// Assessment holds materialized accuracy metrics for a classifier run.
type Assessment struct {
	Accuracy float64
	Kappa    float64
	// Matrix is the confusion matrix with actual classes as rows.
	Matrix [][]float64
}

// Assess materializes overall accuracy, kappa and the confusion matrix for
// a collection carrying ground-truth and predicted class properties. One
// Compute round trip fetches all three.
func Assess(ctx context.Context, c *tellus.Client, validated tellus.FeatureCollection, classProperty, predictedProperty string) (*Assessment, error) {
	em := validated.ErrorMatrix(classProperty, predictedProperty)
	res, err := c.Compute(ctx, tellus.Tuple(em.Accuracy(), em.Kappa(), em.Matrix()))
	if err != nil {
		return nil, fmt.Errorf("classify: assessing accuracy: %w", err)
	}
	parts, err := res.Tuple()
	if err != nil {
		return nil, fmt.Errorf("classify: assessing accuracy: %w", err)
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("classify: expected 3 assessment values, got %d", len(parts))
	}
	var a Assessment
	if a.Accuracy, err = parts[0].Float64(); err != nil {
		return nil, fmt.Errorf("classify: decoding accuracy: %w", err)
	}
	if a.Kappa, err = parts[1].Float64(); err != nil {
		return nil, fmt.Errorf("classify: decoding kappa: %w", err)
	}
	if a.Matrix, err = parts[2].Matrix(); err != nil {
		return nil, fmt.Errorf("classify: decoding confusion matrix: %w", err)
	}
	return &a, nil
}

// ClusterImage trains a clusterer on samples drawn from img over the
// training features and applies it to the image, producing a "cluster"
// band.
func ClusterImage(img tellus.Image, cl tellus.Clusterer, training tellus.FeatureCollection, bands []string, scale float64) tellus.Image {
	samples := img.Select(bands...).SampleRegions(training, nil, scale)
	trained := cl.TrainClusterer(samples, bands)
	return img.Select(bands...).Cluster(trained)
}
