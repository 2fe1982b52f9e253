package imgbuf

import (
	"encoding/binary"
	"math"

	"github.com/go-imppg/imppg/ierr"
)

// FloatPlane is a single-channel Mono32F working plane: the numeric
// pipeline's native representation (spec §3, "Internal processing uses
// Mono32F"). Unlike Image it is always single-channel and supports
// zero-copy sub-views via Stride/Offset, mirroring the spec's
// non-owning-view contract for borrowed worker inputs.
type FloatPlane struct {
	Width, Height, Stride int
	Offset                int
	Data                  []float32
}

// NewFloatPlane allocates a dense, zeroed plane.
func NewFloatPlane(w, h int) *FloatPlane {
	return &FloatPlane{Width: w, Height: h, Stride: w, Data: make([]float32, w*h)}
}

func (p *FloatPlane) idx(x, y int) int { return p.Offset + y*p.Stride + x }

func (p *FloatPlane) At(x, y int) float32 { return p.Data[p.idx(x, y)] }

func (p *FloatPlane) Set(x, y int, v float32) { p.Data[p.idx(x, y)] = v }

// Row returns the dense row slice at y, sharing the backing array.
func (p *FloatPlane) Row(y int) []float32 {
	i := p.idx(0, y)
	return p.Data[i : i+p.Width]
}

func (p *FloatPlane) Bounds() Rect { return Rect{0, 0, p.Width, p.Height} }

// SubView returns a non-owning view over r, sharing the backing array.
// The returned plane must not outlive p (spec §3 view invariant).
func (p *FloatPlane) SubView(r Rect) (*FloatPlane, error) {
	if r.Empty() || !p.Bounds().Contains(r) {
		return nil, ierr.New(ierr.InvalidInput, "imgbuf.FloatPlane.SubView", nil)
	}
	return &FloatPlane{Width: r.W, Height: r.H, Stride: p.Stride, Offset: p.idx(r.X, r.Y), Data: p.Data}, nil
}

// Clone performs a dense deep copy, collapsing any stride/offset.
func (p *FloatPlane) Clone() *FloatPlane {
	out := NewFloatPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		copy(out.Row(y), p.Row(y))
	}
	return out
}

// CopyFrom copies src into p in place; dimensions must match.
func (p *FloatPlane) CopyFrom(src *FloatPlane) error {
	if src.Width != p.Width || src.Height != p.Height {
		return ierr.New(ierr.InvalidInput, "imgbuf.FloatPlane.CopyFrom", nil)
	}
	for y := 0; y < p.Height; y++ {
		copy(p.Row(y), src.Row(y))
	}
	return nil
}

func (p *FloatPlane) Fill(v float32) {
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		for x := range row {
			row[x] = v
		}
	}
}

// Clamp01 clamps every sample to [0,1]; required before display/save
// (spec §3: values outside range are valid intermediates but clamped
// before display/save).
func (p *FloatPlane) Clamp01() {
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		for x, v := range row {
			if v < 0 {
				row[x] = 0
			} else if v > 1 {
				row[x] = 1
			}
		}
	}
}

// Multiply performs an in-place element-wise multiply (spec §4.1
// "multiply"); both planes must be the same size.
func (p *FloatPlane) Multiply(other *FloatPlane) error {
	if other.Width != p.Width || other.Height != p.Height {
		return ierr.New(ierr.InvalidInput, "imgbuf.FloatPlane.Multiply", nil)
	}
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		orow := other.Row(y)
		for x := range row {
			row[x] *= orow[x]
		}
	}
	return nil
}

// ToFloatPlane decodes a Mono32F image rectangle into a dense FloatPlane,
// or performs format-appropriate conversion (integer scaling and, for
// color formats, channel-mean to mono) for other formats (spec §4.1).
func (img *Image) ToFloatPlane(r Rect) (*FloatPlane, error) {
	if r.Empty() {
		r = img.Bounds()
	}
	if !img.Bounds().Contains(r) {
		return nil, ierr.New(ierr.InvalidInput, "imgbuf.ToFloatPlane", nil)
	}
	out := NewFloatPlane(r.W, r.H)
	bpp := img.format.BytesPerPixel()
	for y := 0; y < r.H; y++ {
		srcRow := img.pix[(r.Y+y)*img.stride+r.X*bpp : (r.Y+y)*img.stride+(r.X+r.W)*bpp]
		dstRow := out.Row(y)
		for x := 0; x < r.W; x++ {
			dstRow[x] = float32(pixelToUnit(img.format, srcRow[x*bpp:(x+1)*bpp]))
		}
	}
	return out, nil
}

// FromFloatPlane writes a FloatPlane back into img at dstPt, converting
// to img's format. img must already exist at the destination size.
func (img *Image) FromFloatPlane(p *FloatPlane, dstPt Point) error {
	bpp := img.format.BytesPerPixel()
	if dstPt.X+p.Width > img.width || dstPt.Y+p.Height > img.height {
		return ierr.New(ierr.InvalidInput, "imgbuf.FromFloatPlane", nil)
	}
	for y := 0; y < p.Height; y++ {
		srcRow := p.Row(y)
		dstOff := (dstPt.Y+y)*img.stride + dstPt.X*bpp
		dstRow := img.pix[dstOff : dstOff+p.Width*bpp]
		for x := 0; x < p.Width; x++ {
			unitToPixel(img.format, float64(srcRow[x]), dstRow[x*bpp:(x+1)*bpp])
		}
	}
	return nil
}

// pixelToUnit decodes one pixel's bytes to a [0,1]-nominal value, applying
// the §4.1 conversion rules: 8/16-bit scale by 0/0xFF or 0/0xFFFF, and
// channel mean ((R+G+B)/3) for color formats collapsed to mono.
func pixelToUnit(f PixelFormat, b []byte) float64 {
	switch f {
	case Mono8:
		return float64(b[0]) / 0xFF
	case Mono16:
		return float64(binary.LittleEndian.Uint16(b)) / 0xFFFF
	case Mono32F:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Rgb8:
		return (float64(b[0]) + float64(b[1]) + float64(b[2])) / 3 / 0xFF
	case Rgba8:
		return (float64(b[0]) + float64(b[1]) + float64(b[2])) / 3 / 0xFF
	case Rgb16:
		r := binary.LittleEndian.Uint16(b[0:2])
		g := binary.LittleEndian.Uint16(b[2:4])
		bch := binary.LittleEndian.Uint16(b[4:6])
		return (float64(r) + float64(g) + float64(bch)) / 3 / 0xFFFF
	case Rgba16:
		r := binary.LittleEndian.Uint16(b[0:2])
		g := binary.LittleEndian.Uint16(b[2:4])
		bch := binary.LittleEndian.Uint16(b[4:6])
		return (float64(r) + float64(g) + float64(bch)) / 3 / 0xFFFF
	case Rgb32F, Rgba32F:
		r := math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
		g := math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
		bch := math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))
		return (float64(r) + float64(g) + float64(bch)) / 3
	default:
		return 0
	}
}

// unitToPixel is the inverse of pixelToUnit for mono-valued formats; color
// destinations receive the same value replicated across channels since
// the numeric pipeline is channel-independent mono processing (spec §1
// non-goals: no color pipeline beyond channel-independent processing).
func unitToPixel(f PixelFormat, v float64, b []byte) {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	switch f {
	case Mono8:
		b[0] = byte(clamp(v)*0xFF + 0.5)
	case Mono16:
		binary.LittleEndian.PutUint16(b, uint16(clamp(v)*0xFFFF+0.5))
	case Mono32F:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Rgb8:
		c := byte(clamp(v)*0xFF + 0.5)
		b[0], b[1], b[2] = c, c, c
	case Rgba8:
		c := byte(clamp(v)*0xFF + 0.5)
		b[0], b[1], b[2], b[3] = c, c, c, 0xFF
	case Rgb16:
		c := uint16(clamp(v)*0xFFFF + 0.5)
		binary.LittleEndian.PutUint16(b[0:2], c)
		binary.LittleEndian.PutUint16(b[2:4], c)
		binary.LittleEndian.PutUint16(b[4:6], c)
	case Rgba16:
		c := uint16(clamp(v)*0xFFFF + 0.5)
		binary.LittleEndian.PutUint16(b[0:2], c)
		binary.LittleEndian.PutUint16(b[2:4], c)
		binary.LittleEndian.PutUint16(b[4:6], c)
		binary.LittleEndian.PutUint16(b[6:8], 0xFFFF)
	case Rgb32F:
		c := math.Float32bits(float32(v))
		binary.LittleEndian.PutUint32(b[0:4], c)
		binary.LittleEndian.PutUint32(b[4:8], c)
		binary.LittleEndian.PutUint32(b[8:12], c)
	case Rgba32F:
		c := math.Float32bits(float32(v))
		binary.LittleEndian.PutUint32(b[0:4], c)
		binary.LittleEndian.PutUint32(b[4:8], c)
		binary.LittleEndian.PutUint32(b[8:12], c)
		binary.LittleEndian.PutUint32(b[12:16], math.Float32bits(1))
	}
}
