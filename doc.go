// Package tellus is the Go client library for the Tellus hosted
// geospatial image-processing platform.
//
// Nothing in this package touches pixels. Every Image, ImageCollection,
// FeatureCollection and Matrix is an opaque handle to a node in a remote
// computation graph. Helper methods compose new graph nodes; the platform
// evaluates the graph lazily when a Client materializes a value, renders a
// thumbnail, or starts an export.
//
// # Handles
//
// Handles are immutable. Every operation returns a new handle sharing
// structure with its inputs, so graphs are cheap to build and safe to reuse:
//
//	img := tellus.NewImage("LC08_L1TP_042034_20240615")
//	nir := img.Select("B5")
//	red := img.Select("B4")
//	ndvi := nir.Subtract(red).Divide(nir.Add(red)).Rename("NDVI")
//
// # Materializing values
//
// A Client sends serialized graphs to the platform and decodes results:
//
//	c, err := tellus.NewClient("https://api.tellus.example", tellus.WithToken(tok))
//	if err != nil { ... }
//	res, err := c.Compute(ctx, ndvi.ReduceRegion(tellus.Mean(), region, 30))
//
// # Errors
//
// Remote failures are reported as *APIError with the platform's error code.
// Transport failures are returned as wrapped errors from net/http. Use
// IsNotFound and IsUnauthorized to classify remote errors.
package tellus
