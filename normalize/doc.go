// Package normalize provides relative radiometric normalization between
// two overlapping multi-band scenes: histogram matching, and the
// iteratively reweighted MAD (Multivariate Alteration Detection)
// transformation with orthogonal-regression normalization over
// no-change pixels.
//
// The MAD routine is an orchestrator, not a solver. Covariance matrices
// come from a remote weighted reducer, and the coupled eigenproblem is
// assembled from the platform's Cholesky, solve, multiply and
// eigen-decomposition primitives. The client only ferries small coefficient
// matrices between rounds and runs the convergence test on the canonical
// correlations.
package normalize
