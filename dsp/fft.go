package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/go-imppg/imppg/ierr"
)

// NextPow2 returns the smallest power of two >= n (spec §4.2.2: the
// alignment engine pads to the next power of two before transforming).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// IsPow2 reports whether n is a power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// transpose returns a new w x h grid transposed from an h x w grid.
func transpose(m [][]complex128) [][]complex128 {
	h := len(m)
	if h == 0 {
		return nil
	}
	w := len(m[0])
	out := make([][]complex128, w)
	for x := 0; x < w; x++ {
		out[x] = make([]complex128, h)
		for y := 0; y < h; y++ {
			out[x][y] = m[y][x]
		}
	}
	return out
}

// FFT2Real computes the forward 2-D complex FFT of a real-valued, power-
// of-two-sized grid, as 1-D row FFTs followed by 1-D column FFTs of the
// complex row results (spec §4.2.2). data is indexed [y][x].
func FFT2Real(data [][]float64) ([][]complex128, error) {
	h := len(data)
	if h == 0 || len(data[0]) == 0 {
		return nil, ierr.New(ierr.InvalidInput, "dsp.FFT2Real", nil)
	}
	w := len(data[0])
	if !IsPow2(w) || !IsPow2(h) {
		return nil, ierr.New(ierr.InvalidInput, "dsp.FFT2Real", nil)
	}
	rows := make([][]complex128, h)
	for y := 0; y < h; y++ {
		row := make([]complex128, w)
		for x, v := range data[y] {
			row[x] = complex(v, 0)
		}
		rows[y] = fft.FFT(row)
	}
	cols := transpose(rows)
	for x := range cols {
		cols[x] = fft.FFT(cols[x])
	}
	return transpose(cols), nil
}

// IFFT2 computes the inverse 2-D FFT. The underlying 1-D IFFT normalizes
// by 1/len per axis; composing a column pass and a row pass therefore
// divides by W*H exactly once over the total element count, matching
// spec §4.2.2's inverse-normalization requirement.
func IFFT2(data [][]complex128) [][]complex128 {
	cols := transpose(data)
	for x := range cols {
		cols[x] = fft.IFFT(cols[x])
	}
	rows := transpose(cols)
	for y := range rows {
		rows[y] = fft.IFFT(rows[y])
	}
	return rows
}

// crossPowerGuard is the small-magnitude threshold below which the cross
// power spectrum is left unnormalized (spec §4.2.2).
const crossPowerGuard = 1e-8

// CrossPowerSpectrum computes conj(F1)*F2 / |conj(F1)*F2| element-wise,
// leaving the product unnormalized wherever its magnitude is below
// crossPowerGuard.
func CrossPowerSpectrum(f1, f2 [][]complex128) [][]complex128 {
	h := len(f1)
	out := make([][]complex128, h)
	for y := 0; y < h; y++ {
		w := len(f1[y])
		out[y] = make([]complex128, w)
		for x := 0; x < w; x++ {
			c := cmplx.Conj(f1[y][x]) * f2[y][x]
			mag := cmplx.Abs(c)
			if mag < crossPowerGuard {
				out[y][x] = c
			} else {
				out[y][x] = c / complex(mag, 0)
			}
		}
	}
	return out
}

// RealPart extracts the real component of every element, the quantity
// searched for a maximum by phase correlation's translation estimator.
func RealPart(data [][]complex128) [][]float64 {
	out := make([][]float64, len(data))
	for y, row := range data {
		out[y] = make([]float64, len(row))
		for x, c := range row {
			out[y][x] = real(c)
		}
	}
	return out
}

// ArgMax2D returns the (x,y) index of the maximum value in data.
func ArgMax2D(data [][]float64) (x, y int, max float64) {
	max = math.Inf(-1)
	for j, row := range data {
		for i, v := range row {
			if v > max {
				max = v
				x, y = i, j
			}
		}
	}
	return
}
