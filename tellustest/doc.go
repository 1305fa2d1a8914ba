// Package tellustest is an in-process emulator of the Tellus platform for
// testing code built on the tellus client, in the spirit of
// net/http/httptest.
//
// Server implements http.Handler and speaks the same JSON-RPC protocol as
// a real deployment, evaluating computation graphs over small in-memory
// rasters. It exists so helper-library tests produce real numbers without
// network access; it is emphatically not a reimplementation of the
// platform.
//
// # Coordinates
//
// The emulator has no map projections. Geometry coordinates are
// interpreted as fractions of the scene grid: Rectangle(0, 0, 0.5, 0.5)
// covers the top-left quadrant and Point(0.5, 0.5) the center pixel.
//
// # Limits
//
// Expression variables must be single-band. Histogram reductions require a
// single-band image. Of the classifier kinds, only minimumDistance is
// trainable; cart, randomForest and svm evaluate to an error. These limits
// keep the emulator honest about being a test double.
package tellustest
