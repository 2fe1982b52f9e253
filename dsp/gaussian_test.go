package dsp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-imppg/imppg/imgbuf"
)

func uniformRandomPlane(w, h int, seed int64) *imgbuf.FloatPlane {
	r := rand.New(rand.NewSource(seed))
	p := imgbuf.NewFloatPlane(w, h)
	for y := 0; y < h; y++ {
		row := p.Row(y)
		for x := range row {
			row[x] = float32(r.Float64())
		}
	}
	return p
}

func rms(a, b *imgbuf.FloatPlane) float64 {
	var sum float64
	n := a.Width * a.Height
	for y := 0; y < a.Height; y++ {
		ar, br := a.Row(y), b.Row(y)
		for x := range ar {
			d := float64(ar[x] - br[x])
			sum += d * d
		}
	}
	return math.Sqrt(sum / float64(n))
}

func TestGaussianSeparability(t *testing.T) {
	for _, sigma := range []float64{0.5, 1, 2, 5} {
		src := uniformRandomPlane(64, 64, int64(sigma*1000))
		direct := Gaussian(src, sigma, Standard)
		recursive := Gaussian(src, sigma, YoungVanVliet)
		if d := rms(direct, recursive); d >= 0.01 {
			t.Errorf("sigma=%v: RMS difference = %v, want < 0.01", sigma, d)
		}
	}
}

func TestGaussianAutoPicksExpectedMethod(t *testing.T) {
	src := uniformRandomPlane(32, 32, 1)
	small := Gaussian(src, 1, Auto)
	wantSmall := Gaussian(src, 1, Standard)
	if rms(small, wantSmall) != 0 {
		t.Error("Auto with sigma < threshold did not match Standard")
	}

	large := Gaussian(src, 5, Auto)
	wantLarge := Gaussian(src, 5, YoungVanVliet)
	if rms(large, wantLarge) != 0 {
		t.Error("Auto with sigma >= threshold did not match YoungVanVliet")
	}
}
