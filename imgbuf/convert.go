package imgbuf

import (
	"encoding/binary"

	"github.com/go-imppg/imppg/ierr"
)

// Convert produces a new Image in dstFormat from the (optional) sub-rect
// of img, or the whole image when sub is nil (spec §4.1
// convert_pixel_format). Mono8<->Mono16 uses integer bit-shift scaling;
// conversions touching Mono32F or color formats go through the
// FloatPlane unit-value path, including the (R+G+B)/3 color->mono rule.
func (img *Image) Convert(dst PixelFormat, sub *Rect) (*Image, error) {
	r := img.Bounds()
	if sub != nil {
		r = *sub
	}
	if !img.Bounds().Contains(r) {
		return nil, ierr.New(ierr.InvalidInput, "imgbuf.Convert", nil)
	}
	if img.format == Pal8 && dst != Pal8 {
		return img.convertFromPalette(dst, r)
	}
	if img.format == Mono8 && dst == Mono16 {
		return img.shiftConvert(r, dst, func(v byte) uint16 { return uint16(v)<<8 | uint16(v) })
	}
	if img.format == Mono16 && dst == Mono8 {
		out, err := New(r.W, r.H, Mono8)
		if err != nil {
			return nil, err
		}
		for y := 0; y < r.H; y++ {
			srcRow := img.Row(r.Y + y)[r.X*2 : (r.X+r.W)*2]
			dstRow := out.Row(y)
			for x := 0; x < r.W; x++ {
				dstRow[x] = byte(binary.LittleEndian.Uint16(srcRow[x*2:]) >> 8)
			}
		}
		return out, nil
	}

	plane, err := img.ToFloatPlane(r)
	if err != nil {
		return nil, err
	}
	out, err := New(r.W, r.H, dst)
	if err != nil {
		return nil, err
	}
	if err := out.FromFloatPlane(plane, Point{}); err != nil {
		return nil, err
	}
	return out, nil
}

func (img *Image) shiftConvert(r Rect, dst PixelFormat, widen func(byte) uint16) (*Image, error) {
	out, err := New(r.W, r.H, dst)
	if err != nil {
		return nil, err
	}
	for y := 0; y < r.H; y++ {
		srcRow := img.Row(r.Y + y)[r.X : r.X+r.W]
		dstRow := out.Row(y)
		for x := 0; x < r.W; x++ {
			binary.LittleEndian.PutUint16(dstRow[x*2:], widen(srcRow[x]))
		}
	}
	return out, nil
}

// convertFromPalette resolves Pal8 indices through the palette before
// delegating to the generic float path; Pal8 cannot be the destination of
// an arbitrary conversion (only loaded, never derived, in this core).
func (img *Image) convertFromPalette(dst PixelFormat, r Rect) (*Image, error) {
	rgb, err := New(r.W, r.H, Rgb8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < r.H; y++ {
		srcRow := img.Row(r.Y + y)[r.X : r.X+r.W]
		dstRow := rgb.Row(y)
		for x := 0; x < r.W; x++ {
			c := img.palette[srcRow[x]]
			dstRow[x*3], dstRow[x*3+1], dstRow[x*3+2] = c.R, c.G, c.B
		}
	}
	if dst == Rgb8 {
		return rgb, nil
	}
	return rgb.Convert(dst, nil)
}

// CopyRect copies srcRect from src into dst at dstPt; both images must
// share a pixel format (spec §4.1).
func CopyRect(src, dst *Image, srcRect Rect, dstPt Point) error {
	if src.format != dst.format {
		return ierr.New(ierr.InvalidInput, "imgbuf.CopyRect", nil)
	}
	if !src.Bounds().Contains(srcRect) {
		return ierr.New(ierr.InvalidInput, "imgbuf.CopyRect", nil)
	}
	if dstPt.X+srcRect.W > dst.width || dstPt.Y+srcRect.H > dst.height {
		return ierr.New(ierr.InvalidInput, "imgbuf.CopyRect", nil)
	}
	bpp := src.format.BytesPerPixel()
	for y := 0; y < srcRect.H; y++ {
		srcRow := src.Row(srcRect.Y + y)[srcRect.X*bpp : (srcRect.X+srcRect.W)*bpp]
		dstOff := (dstPt.Y+y)*dst.stride + dstPt.X*bpp
		copy(dst.pix[dstOff:dstOff+srcRect.W*bpp], srcRow)
	}
	return nil
}
