// Package classify wraps the platform's classifier and clusterer training
// workflow: sampling training pixels from labeled regions, splitting into
// train/test sets, fitting a classifier, and assessing accuracy with a
// remote confusion matrix.
package classify
