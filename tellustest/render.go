package tellustest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/tellusgeo/tellus-go/spectral"
)

// renderOptions mirrors the thumbnail params the client sends.
type renderOptions struct {
	Dimensions int      `json:"dimensions"`
	Bands      []string `json:"bands,omitempty"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	Palette    []string `json:"palette,omitempty"`
}

type renderResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// renderThumbnail rasterizes an evaluated image as a PNG quicklook. One
// band renders through a palette ramp (grayscale when none is given),
// three bands render as RGB. Masked pixels come out transparent.
func renderThumbnail(r *Raster, opts renderOptions) (*renderResult, error) {
	bands := opts.Bands
	if len(bands) == 0 {
		bands = r.Bands
		if len(bands) > 3 {
			bands = bands[:3]
		}
	}
	if len(bands) != 1 && len(bands) != 3 {
		return nil, fmt.Errorf("thumbnail needs 1 or 3 bands, got %d", len(bands))
	}
	for _, b := range bands {
		if _, ok := r.Data[b]; !ok {
			return nil, fmt.Errorf("no band %q (have %v)", b, r.Bands)
		}
	}
	lo, hi := opts.Min, opts.Max
	if hi <= lo {
		lo, hi = rasterRange(r, bands)
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	var ramp spectral.Palette
	if len(bands) == 1 && len(opts.Palette) > 0 {
		var err error
		ramp, err = spectral.ParsePalette(opts.Palette)
		if err != nil {
			return nil, fmt.Errorf("bad palette: %w", err)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.W, r.H))
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			i := y*r.W + x
			if !r.Mask[i] {
				continue
			}
			if len(bands) == 3 {
				img.SetNRGBA(x, y, color.NRGBA{
					R: stretch(r.Data[bands[0]][i], lo, span),
					G: stretch(r.Data[bands[1]][i], lo, span),
					B: stretch(r.Data[bands[2]][i], lo, span),
					A: 255,
				})
				continue
			}
			t := (r.Data[bands[0]][i] - lo) / span
			if ramp != nil {
				c := ramp.At(t)
				cr, cg, cb := c.RGB255()
				img.SetNRGBA(x, y, color.NRGBA{R: cr, G: cg, B: cb, A: 255})
			} else {
				g := stretch(r.Data[bands[0]][i], lo, span)
				img.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: 255})
			}
		}
	}

	out := image.Image(img)
	if opts.Dimensions > 0 && (r.W > opts.Dimensions || r.H > opts.Dimensions) {
		if r.W >= r.H {
			out = imaging.Resize(img, opts.Dimensions, 0, imaging.Lanczos)
		} else {
			out = imaging.Resize(img, 0, opts.Dimensions, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return &renderResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

func stretch(v, lo, span float64) uint8 {
	t := (v - lo) / span * 255
	if t < 0 {
		t = 0
	}
	if t > 255 {
		t = 255
	}
	return uint8(t)
}

func rasterRange(r *Raster, bands []string) (lo, hi float64) {
	first := true
	for _, b := range bands {
		px := r.Data[b]
		for i, v := range px {
			if !r.Mask[i] {
				continue
			}
			if first || v < lo {
				lo = v
			}
			if first || v > hi {
				hi = v
			}
			first = false
		}
	}
	if first {
		return 0, 1
	}
	return lo, hi
}
