package pipeline

import (
	"math"
	"testing"

	"github.com/go-imppg/imppg/imgbuf"
)

func TestNormalizeDisabledReturnsAClone(t *testing.T) {
	src := imgbuf.NewFloatPlane(4, 4)
	src.Fill(0.3)
	out := Normalize(src, Normalization{Enabled: false})
	if out == src {
		t.Fatal("Normalize(disabled) returned the same plane instead of a copy")
	}
	for y := 0; y < 4; y++ {
		srcRow, outRow := src.Row(y), out.Row(y)
		for x := range srcRow {
			if srcRow[x] != outRow[x] {
				t.Errorf("(%d,%d) = %v, want unchanged %v", x, y, outRow[x], srcRow[x])
			}
		}
	}
}

func TestNormalizeRescalesToTargetRange(t *testing.T) {
	src := imgbuf.NewFloatPlane(4, 1)
	row := src.Row(0)
	row[0], row[1], row[2], row[3] = 0.2, 0.4, 0.6, 0.8

	out := Normalize(src, Normalization{Enabled: true, Min: 0, Max: 1})
	outRow := out.Row(0)
	if math.Abs(float64(outRow[0])-0) > 1e-6 {
		t.Errorf("min mapped to %v, want 0", outRow[0])
	}
	if math.Abs(float64(outRow[3])-1) > 1e-6 {
		t.Errorf("max mapped to %v, want 1", outRow[3])
	}
}

func TestNormalizeFlatSourceMapsToMin(t *testing.T) {
	src := imgbuf.NewFloatPlane(3, 3)
	src.Fill(0.5)
	out := Normalize(src, Normalization{Enabled: true, Min: 0.1, Max: 0.9})
	for y := 0; y < 3; y++ {
		for _, v := range out.Row(y) {
			if math.Abs(float64(v)-0.1) > 1e-6 {
				t.Errorf("flat source value = %v, want 0.1", v)
			}
		}
	}
}
