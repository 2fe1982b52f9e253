// Package histogram computes the binned brightness histogram used by the
// tone-curve stretch operation and the interactive histogram display
// (spec §3, §4.5).
package histogram

import (
	"gonum.org/v1/gonum/stat"

	"github.com/go-imppg/imppg/imgbuf"
)

// DefaultBins is a reasonable default bin count for interactive use.
const DefaultBins = 256

// Histogram is the binned brightness distribution over a rectangle of a
// Mono32F plane (spec §3).
type Histogram struct {
	Bins     []uint64
	Min, Max float64
	Peak     int // bin index of the highest count.
}

// bin returns the bin index for v in [0,1], clamped, per spec §3:
// floor(v*(N-1)).
func bin(v float64, n int) int {
	idx := int(v * float64(n-1))
	if idx < 0 {
		idx = 0
	} else if idx >= n {
		idx = n - 1
	}
	return idx
}

// Compute builds a histogram with n bins over the whole plane p.
func Compute(p *imgbuf.FloatPlane, n int) Histogram {
	if n <= 0 {
		n = DefaultBins
	}
	h := Histogram{Bins: make([]uint64, n), Min: 1, Max: 0}
	for y := 0; y < p.Height; y++ {
		for _, v := range p.Row(y) {
			fv := float64(v)
			if fv < h.Min {
				h.Min = fv
			}
			if fv > h.Max {
				h.Max = fv
			}
			h.Bins[bin(fv, n)]++
		}
	}
	if p.Width == 0 || p.Height == 0 {
		h.Min, h.Max = 0, 0
	}
	var peakCount uint64
	for i, c := range h.Bins {
		if c > peakCount {
			peakCount = c
			h.Peak = i
		}
	}
	return h
}

// Mean and StdDev summarize the histogram's underlying samples, weighted
// by bin count and computed with gonum/stat over the bin positions
// i/(N-1).
func (h Histogram) Mean() float64 {
	xs := make([]float64, len(h.Bins))
	ws := make([]float64, len(h.Bins))
	for i, c := range h.Bins {
		xs[i] = float64(i) / float64(len(h.Bins)-1)
		ws[i] = float64(c)
	}
	return stat.Mean(xs, ws)
}

func (h Histogram) StdDev() float64 {
	xs := make([]float64, len(h.Bins))
	ws := make([]float64, len(h.Bins))
	for i, c := range h.Bins {
		xs[i] = float64(i) / float64(len(h.Bins)-1)
		ws[i] = float64(c)
	}
	return stat.StdDev(xs, ws)
}
