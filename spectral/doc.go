// Package spectral builds remote-sensing spectral index computations on
// top of the tellus graph API.
//
// Index helpers know nothing about pixels: each one selects the right bands
// for a sensor and composes a band-math expression the platform evaluates
// lazily. Band wavelength roles (blue, red, nir, swir1, ...) are mapped per
// sensor so the same helper works across Landsat, Sentinel-2 and MODIS.
//
//	img := tellus.NewImage("LC08_L1TP_042034_20240615")
//	ndvi, err := spectral.NDVI(img, spectral.Landsat8)
//
// The package also provides display palettes for rendering index thumbnails.
package spectral
