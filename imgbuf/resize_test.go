package imgbuf

import "testing"

func checkerboard(w, h, block int, lo, hi float32) *FloatPlane {
	p := NewFloatPlane(w, h)
	for y := 0; y < h; y++ {
		row := p.Row(y)
		for x := 0; x < w; x++ {
			if (x/block+y/block)%2 == 0 {
				row[x] = lo
			} else {
				row[x] = hi
			}
		}
	}
	return p
}

func TestResizeAndTranslatePlaneZeroOffsetIsIdentity(t *testing.T) {
	src := checkerboard(16, 16, 4, 0.1, 0.9)
	got := ResizeAndTranslatePlane(src, 16, 16, 0, 0, true)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if got.At(x, y) != src.At(x, y) {
				t.Fatalf("(%d,%d) = %v, want %v", x, y, got.At(x, y), src.At(x, y))
			}
		}
	}
}

func TestResizeAndTranslatePlaneIntegerRoundTrip(t *testing.T) {
	src := checkerboard(32, 32, 4, 0.1, 0.9)
	fwd := ResizeAndTranslatePlane(src, 32, 32, 5, -3, true)
	back := ResizeAndTranslatePlane(fwd, 32, 32, -5, 3, true)

	// Interior pixels (>= 2 from the border, per spec property 2) must
	// reproduce exactly for an integer offset: no interpolation runs.
	// Columns x > 26 and rows y < 3 were shifted off the 32x32 plane by
	// the first pass, so the checked interior is x in [2,26], y in [3,29].
	for y := 3; y < 30; y++ {
		for x := 2; x < 27; x++ {
			if back.At(x, y) != src.At(x, y) {
				t.Errorf("(%d,%d) = %v, want %v", x, y, back.At(x, y), src.At(x, y))
			}
		}
	}
}

func TestResizeAndTranslatePlaneFractionalRoundTripInterior(t *testing.T) {
	src := checkerboard(32, 32, 8, 0.1, 0.9)
	fwd := ResizeAndTranslatePlane(src, 32, 32, 3.5, -2.25, true)
	back := ResizeAndTranslatePlane(fwd, 32, 32, -3.5, 2.25, true)

	const tol = 0.02
	for y := 4; y < 28; y++ {
		for x := 4; x < 28; x++ {
			diff := float64(back.At(x, y) - src.At(x, y))
			if diff < -tol || diff > tol {
				t.Errorf("(%d,%d) = %v, want ~%v (diff %v)", x, y, back.At(x, y), src.At(x, y), diff)
			}
		}
	}
}

func TestImageToFloatPlaneRoundTripMono8(t *testing.T) {
	img, err := New(4, 4, Mono8)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		row := img.Row(y)
		for x := 0; x < 4; x++ {
			row[x] = byte(x*16 + y)
		}
	}

	plane, err := img.ToFloatPlane(img.Bounds())
	if err != nil {
		t.Fatal(err)
	}
	out, err := New(4, 4, Mono8)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.FromFloatPlane(plane, Point{}); err != nil {
		t.Fatal(err)
	}

	for y := 0; y < 4; y++ {
		srcRow, dstRow := img.Row(y), out.Row(y)
		for x := 0; x < 4; x++ {
			if srcRow[x] != dstRow[x] {
				t.Errorf("(%d,%d) = %d, want %d", x, y, dstRow[x], srcRow[x])
			}
		}
	}
}

func TestImageConvertMono8ToMono16RoundTrip(t *testing.T) {
	img, err := New(4, 4, Mono8)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		row := img.Row(y)
		for x := 0; x < 4; x++ {
			row[x] = byte(x*60 + y)
		}
	}

	wide, err := img.Convert(Mono16, nil)
	if err != nil {
		t.Fatal(err)
	}
	if wide.Format() != Mono16 {
		t.Fatalf("Format() = %v, want Mono16", wide.Format())
	}
	narrow, err := wide.Convert(Mono8, nil)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		srcRow, dstRow := img.Row(y), narrow.Row(y)
		for x := 0; x < 4; x++ {
			if srcRow[x] != dstRow[x] {
				t.Errorf("(%d,%d) = %d, want %d", x, y, dstRow[x], srcRow[x])
			}
		}
	}
}
