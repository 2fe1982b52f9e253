package dsp

import (
	"math"
	"math/rand"
	"testing"
)

func TestFFT2RoundTrip(t *testing.T) {
	for _, n := range []int{16, 32, 64, 128, 256, 1024} {
		r := rand.New(rand.NewSource(int64(n)))
		data := make([][]float64, n)
		for y := range data {
			data[y] = make([]float64, n)
			for x := range data[y] {
				data[y][x] = r.Float64()
			}
		}

		freq, err := FFT2Real(data)
		if err != nil {
			t.Fatalf("n=%d: FFT2Real: %v", n, err)
		}
		back := RealPart(IFFT2(freq))

		var maxDiff float64
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				d := math.Abs(back[y][x] - data[y][x])
				if d > maxDiff {
					maxDiff = d
				}
			}
		}
		if maxDiff >= 1e-4 {
			t.Errorf("n=%d: max element-wise diff %v, want < 1e-4", n, maxDiff)
		}
	}
}

func TestFFT2RealRejectsNonPowerOfTwo(t *testing.T) {
	data := make([][]float64, 10)
	for y := range data {
		data[y] = make([]float64, 10)
	}
	if _, err := FFT2Real(data); err == nil {
		t.Fatal("FFT2Real: want error for non-power-of-two size")
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 5: 8, 17: 32, 1024: 1024, 1025: 2048}
	for n, want := range cases {
		if got := NextPow2(n); got != want {
			t.Errorf("NextPow2(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestIsPow2(t *testing.T) {
	for _, n := range []int{1, 2, 4, 1024} {
		if !IsPow2(n) {
			t.Errorf("IsPow2(%d) = false, want true", n)
		}
	}
	for _, n := range []int{0, 3, 5, 1023} {
		if IsPow2(n) {
			t.Errorf("IsPow2(%d) = true, want false", n)
		}
	}
}
