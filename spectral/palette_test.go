package spectral

import "testing"

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette([]string{"#000000", "#ffffff"})
	if err != nil {
		t.Fatalf("ParsePalette failed: %v", err)
	}
	if len(p) != 2 {
		t.Fatalf("got %d stops, want 2", len(p))
	}
	hex := p.Hex()
	if hex[0] != "#000000" || hex[1] != "#ffffff" {
		t.Errorf("round trip: got %v", hex)
	}

	if _, err := ParsePalette([]string{"not-a-color"}); err == nil {
		t.Error("expected an error for a bad hex stop")
	}
}

func TestPaletteAt_Endpoints(t *testing.T) {
	p := mustPalette("#000000", "#808080", "#ffffff")

	if got := p.At(-0.5); got != p[0] {
		t.Errorf("At(-0.5): got %v, want first stop", got)
	}
	if got := p.At(0); got != p[0] {
		t.Errorf("At(0): got %v, want first stop", got)
	}
	if got := p.At(1); got != p[2] {
		t.Errorf("At(1): got %v, want last stop", got)
	}
	if got := p.At(2); got != p[2] {
		t.Errorf("At(2): got %v, want last stop", got)
	}

	// Midpoints land near the middle stop.
	mid := p.At(0.5)
	if mid.DistanceLab(p[1]) > 0.01 {
		t.Errorf("At(0.5) = %v, too far from middle stop %v", mid, p[1])
	}
}

func TestPaletteGradient(t *testing.T) {
	p := mustPalette("#000000", "#ffffff")
	g := p.Gradient(5)
	if len(g) != 5 {
		t.Fatalf("got %d stops, want 5", len(g))
	}
	if g[0] != p[0] || g[4] != p[1] {
		t.Error("gradient endpoints do not match the ramp")
	}
	// Luminance must be monotonic on a black-to-white ramp.
	prev := -1.0
	for i, c := range g {
		l, _, _ := c.Lab()
		if l < prev {
			t.Errorf("stop %d: luminance %g decreased", i, l)
		}
		prev = l
	}

	if g := p.Gradient(0); g != nil {
		t.Error("Gradient(0) should be nil")
	}
}

func TestStockRamps(t *testing.T) {
	for name, ramp := range map[string]Palette{
		"vegetation": VegetationRamp,
		"water":      WaterRamp,
		"burn":       BurnRamp,
	} {
		if len(ramp) < 2 {
			t.Errorf("%s ramp has %d stops", name, len(ramp))
		}
	}
}
