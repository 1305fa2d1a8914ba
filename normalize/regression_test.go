package normalize

import (
	"math"
	"testing"
)

func TestOrthogonalFit(t *testing.T) {
	tests := []struct {
		name               string
		mt, mr             float64
		stt, srr, str      float64
		wantGain, wantOff  float64
	}{
		{
			// Moments of the exact line r = 2t + 1 with var(t) = 4.
			name: "steep line",
			mt:   5, mr: 11,
			stt: 4, srr: 16, str: 8,
			wantGain: 2, wantOff: 1,
		},
		{
			// r = 0.5t - 3 with var(t) = 4.
			name: "shallow line",
			mt:   10, mr: 2,
			stt: 4, srr: 1, str: 2,
			wantGain: 0.5, wantOff: -3,
		},
		{
			// r = -t + 4: negative correlation flips the gain sign.
			name: "negative slope",
			mt:   1, mr: 3,
			stt: 2, srr: 2, str: -2,
			wantGain: -1, wantOff: 4,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gain, offset, err := orthogonalFit(tc.mt, tc.mr, tc.stt, tc.srr, tc.str)
			if err != nil {
				t.Fatalf("orthogonalFit failed: %v", err)
			}
			if math.Abs(gain-tc.wantGain) > 1e-12 {
				t.Errorf("gain: got %g, want %g", gain, tc.wantGain)
			}
			if math.Abs(offset-tc.wantOff) > 1e-12 {
				t.Errorf("offset: got %g, want %g", offset, tc.wantOff)
			}
		})
	}
}

func TestOrthogonalFit_Errors(t *testing.T) {
	if _, _, err := orthogonalFit(0, 0, 0, 1, 1); err == nil {
		t.Error("zero target variance: expected an error")
	}
	if _, _, err := orthogonalFit(0, 0, 1, 1, 0); err == nil {
		t.Error("zero covariance: expected an error")
	}
}

func TestOrthogonalFit_SymmetricInNoise(t *testing.T) {
	// Equal noise on both axes must leave the slope of the underlying
	// identity line at exactly 1, where ordinary least squares would
	// shrink it.
	gain, offset, err := orthogonalFit(0, 0, 1.5, 1.5, 1.0)
	if err != nil {
		t.Fatalf("orthogonalFit failed: %v", err)
	}
	if math.Abs(gain-1) > 1e-12 || math.Abs(offset) > 1e-12 {
		t.Errorf("got gain %g offset %g, want 1 and 0", gain, offset)
	}
}

func TestMaxDelta(t *testing.T) {
	if d := maxDelta([]float64{1, 2, 3}, []float64{1.1, 2, 2.5}); math.Abs(d-0.5) > 1e-15 {
		t.Errorf("got %g, want 0.5", d)
	}
	if d := maxDelta(nil, nil); d != 0 {
		t.Errorf("empty slices: got %g, want 0", d)
	}
}
