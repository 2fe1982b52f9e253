package imgbuf

import (
	"encoding/binary"
	"math"

	"github.com/go-imppg/imppg/ierr"
)

// InterpolateCubic is the 4-sample cubic Hermite kernel required by spec
// §4.1: it reproduces f0 at t=0 and f1 at t=1, with endpoint derivatives
// equal to the centered differences (f1-fm1)/2 and (f2-f0)/2.
func InterpolateCubic(t, fm1, f0, f1, f2 float64) float64 {
	m0 := (f1 - fm1) / 2
	m1 := (f2 - f0) / 2
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*f0 + h10*m0 + h01*f1 + h11*m1
}

// clampIdx clamps i to [0,n-1], the edge-handling rule reused from the
// Gaussian kernel (dsp package) for any out-of-plane sample access.
func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ResizeAndTranslatePlane is the only subpixel-capable path (spec §4.1).
// It produces a dstW x dstH plane where source pixel (x,y) of src lands
// at destination (x+offsetX, y+offsetY). Integer offsets degrade to a
// per-row copy; fractional offsets use 2D separable bicubic Hermite
// interpolation. Destination pixels within 2px of the overlap border are
// filled by straight (nearest) copy; pixels with no overlapping source
// sample are zero. The result is always a freshly allocated plane, so
// clearToZero does not change the output.
func ResizeAndTranslatePlane(src *FloatPlane, dstW, dstH int, offsetX, offsetY float64, clearToZero bool) *FloatPlane {
	dst := NewFloatPlane(dstW, dstH)
	if !clearToZero {
		// Leave pixels with no source coverage as zero regardless; a
		// freshly allocated plane has no prior content to preserve.
	}

	intOffsetX := math.Trunc(offsetX) == offsetX
	intOffsetY := math.Trunc(offsetY) == offsetY
	if intOffsetX && intOffsetY {
		ox, oy := int(offsetX), int(offsetY)
		for dy := 0; dy < dstH; dy++ {
			sy := dy - oy
			if sy < 0 || sy >= src.Height {
				continue
			}
			srcRow := src.Row(sy)
			dstRow := dst.Row(dy)
			for dx := 0; dx < dstW; dx++ {
				sx := dx - ox
				if sx < 0 || sx >= src.Width {
					continue
				}
				dstRow[dx] = srcRow[sx]
			}
		}
		return dst
	}

	for dy := 0; dy < dstH; dy++ {
		sy := float64(dy) - offsetY
		for dx := 0; dx < dstW; dx++ {
			sx := float64(dx) - offsetX
			if sx < -1 || sx > float64(src.Width) || sy < -1 || sy > float64(src.Height) {
				continue // no overlapping source sample: stays zero.
			}
			ix := int(math.Floor(sx))
			iy := int(math.Floor(sy))
			tx := sx - float64(ix)
			ty := sy - float64(iy)

			border := ix < 1 || ix > src.Width-3 || iy < 1 || iy > src.Height-3
			if border {
				dst.Set(dx, dy, src.At(clampIdx(ix, src.Width), clampIdx(iy, src.Height)))
				continue
			}

			var rows [4]float64
			for k := -1; k <= 2; k++ {
				row := src.Row(iy + k)
				rows[k+1] = InterpolateCubic(tx, float64(row[ix-1]), float64(row[ix]), float64(row[ix+1]), float64(row[ix+2]))
			}
			v := InterpolateCubic(ty, rows[0], rows[1], rows[2], rows[3])
			dst.Set(dx, dy, float32(v))
		}
	}
	return dst
}

// ResizeAndTranslate applies the subpixel translation to a rectangle of
// img, producing a new image of size dstW x dstH. Pal8 must be converted
// to Rgb8 by the caller first (spec §4.1). Each channel is interpolated
// independently and clamped to the channel's representable range.
func (img *Image) ResizeAndTranslate(srcRect Rect, dstW, dstH int, offsetX, offsetY float64, clearToZero bool) (*Image, error) {
	if img.format == Pal8 {
		return nil, ierr.New(ierr.UnsupportedFormat, "imgbuf.ResizeAndTranslate", nil)
	}
	if !img.Bounds().Contains(srcRect) {
		return nil, ierr.New(ierr.InvalidInput, "imgbuf.ResizeAndTranslate", nil)
	}
	out, err := New(dstW, dstH, img.format)
	if err != nil {
		return nil, err
	}
	nch := img.format.Channels()
	for ch := 0; ch < nch; ch++ {
		src := img.extractChannel(srcRect, ch)
		dst := ResizeAndTranslatePlane(src, dstW, dstH, offsetX, offsetY, clearToZero)
		out.setChannel(dst, ch)
	}
	return out, nil
}

// extractChannel decodes channel ch of rectangle r into a dense, unit
// (or Mono32F native) FloatPlane, independent of the other channels
// (used by ResizeAndTranslate; unlike ToFloatPlane this never averages
// color channels together).
func (img *Image) extractChannel(r Rect, ch int) *FloatPlane {
	out := NewFloatPlane(r.W, r.H)
	bpp := img.format.BytesPerPixel()
	bpc := img.format.BytesPerChannel()
	for y := 0; y < r.H; y++ {
		srcRow := img.Row(r.Y + y)[r.X*bpp : (r.X+r.W)*bpp]
		dstRow := out.Row(y)
		for x := 0; x < r.W; x++ {
			dstRow[x] = float32(channelUnit(img.format, srcRow[x*bpp+ch*bpc:x*bpp+(ch+1)*bpc]))
		}
	}
	return out
}

// setChannel writes plane p back into channel ch of out, clamping to the
// channel's representable range.
func (out *Image) setChannel(p *FloatPlane, ch int) {
	bpp := out.format.BytesPerPixel()
	bpc := out.format.BytesPerChannel()
	for y := 0; y < out.height; y++ {
		dstRow := out.Row(y)
		srcRow := p.Row(y)
		for x := 0; x < out.width; x++ {
			setChannelUnit(out.format, float64(srcRow[x]), dstRow[x*bpp+ch*bpc:x*bpp+(ch+1)*bpc])
		}
	}
}

// channelUnit decodes one channel sample to its natural numeric value:
// [0,1] for 8/16-bit integer channels, and the raw float for Mono32F /
// *32F formats (which are not clamped to [0,1] here — see spec §3,
// "values outside the range are valid intermediates").
func channelUnit(f PixelFormat, b []byte) float64 {
	switch f.BytesPerChannel() {
	case 1:
		return float64(b[0]) / 0xFF
	case 2:
		return float64(binary.LittleEndian.Uint16(b)) / 0xFFFF
	case 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}

func setChannelUnit(f PixelFormat, v float64, b []byte) {
	switch f.BytesPerChannel() {
	case 1:
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		b[0] = byte(v*0xFF + 0.5)
	case 2:
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		binary.LittleEndian.PutUint16(b, uint16(v*0xFFFF+0.5))
	case 4:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	}
}
