package align

import (
	"context"
	"math"
	"testing"

	"github.com/go-imppg/imppg/imgbuf"
)

// discImage draws a single bright disc of radius r centred at (cx,cy) on a
// dark background, the same kind of target
// align_phasecorr.cpp's translation recovery is exercised against.
func discImage(w, h int, cx, cy, r float64) *imgbuf.FloatPlane {
	p := imgbuf.NewFloatPlane(w, h)
	for y := 0; y < h; y++ {
		row := p.Row(y)
		for x := range row {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				row[x] = 1
			}
		}
	}
	return p
}

func TestPhaseCorrelateRecoversIntegerTranslation(t *testing.T) {
	base := discImage(64, 64, 32, 32, 10)
	shifted := discImage(64, 64, 36, 27, 10) // (+4, -5)

	translations, _, _, err := PhaseCorrelate(context.Background(), []*imgbuf.FloatPlane{base, shifted}, false, nil)
	if err != nil {
		t.Fatalf("PhaseCorrelate: %v", err)
	}
	if len(translations) != 2 {
		t.Fatalf("len(translations) = %d, want 2", len(translations))
	}
	if translations[0] != (Vec{}) {
		t.Errorf("translations[0] = %+v, want zero", translations[0])
	}
	got := translations[1]
	if math.Round(got.X) != 4 || math.Round(got.Y) != -5 {
		t.Errorf("recovered translation = %+v, want integer part (4,-5)", got)
	}
}

func TestPhaseCorrelateRecoversSubpixelTranslation(t *testing.T) {
	base := discImage(64, 64, 32, 32, 12)
	shifted := discImage(64, 64, 35.5, 29.75, 12) // (+3.5, -2.25)

	translations, _, _, err := PhaseCorrelate(context.Background(), []*imgbuf.FloatPlane{base, shifted}, true, nil)
	if err != nil {
		t.Fatalf("PhaseCorrelate: %v", err)
	}
	got := translations[1]
	if math.Abs(got.X-3.5) > 0.5 {
		t.Errorf("X = %v, want ~3.5", got.X)
	}
	if math.Abs(got.Y-(-2.25)) > 0.5 {
		t.Errorf("Y = %v, want ~-2.25", got.Y)
	}
}

func TestPhaseCorrelateEmptyInputErrors(t *testing.T) {
	if _, _, _, err := PhaseCorrelate(context.Background(), nil, false, nil); err == nil {
		t.Fatal("PhaseCorrelate: want error for no images")
	}
}

func TestBoundingBoxContainsEveryTranslatedImage(t *testing.T) {
	nw, nh := 128, 128
	sizes := []imgbuf.Point{{X: 64, Y: 64}, {X: 64, Y: 64}}
	translations := []Vec{{}, {X: 10, Y: -6}}

	box := BoundingBox(nw, nh, sizes, translations)

	ox0, oy0 := untranslatedOrigin(nw, nh, 64, 64)
	if box.X > ox0 || box.Y > oy0 {
		t.Errorf("bounding box %+v does not contain the first image's origin (%d,%d)", box, ox0, oy0)
	}
	if box.X+box.W < ox0+64 || box.Y+box.H < oy0+64 {
		t.Errorf("bounding box %+v does not contain the first image's extent", box)
	}

	ox1, oy1 := untranslatedOrigin(nw, nh, 64, 64)
	x1, y1 := ox1-10, oy1-(-6)
	if box.X > x1 || box.Y > y1 || box.X+box.W < x1+64 || box.Y+box.H < y1+64 {
		t.Errorf("bounding box %+v does not contain the translated second image at (%d,%d)", box, x1, y1)
	}
}

func TestIntersectionIsContainedInEveryTranslatedImage(t *testing.T) {
	nw, nh := 128, 128
	sizes := []imgbuf.Point{{X: 64, Y: 64}, {X: 64, Y: 64}}
	translations := []Vec{{}, {X: 10, Y: -6}}

	inter := Intersection(nw, nh, sizes, translations)

	ox0, oy0 := untranslatedOrigin(nw, nh, 64, 64)
	if inter.X < ox0 || inter.Y < oy0 || inter.X+inter.W > ox0+64 || inter.Y+inter.H > oy0+64 {
		t.Errorf("intersection %+v not contained in the first image's placement", inter)
	}

	ox1, oy1 := untranslatedOrigin(nw, nh, 64, 64)
	x1, y1 := ox1-10, oy1-(-6)
	if inter.X < x1 || inter.Y < y1 || inter.X+inter.W > x1+64 || inter.Y+inter.H > y1+64 {
		t.Errorf("intersection %+v not contained in the second image's placement", inter)
	}
}
