package imgbuf

import (
	"fmt"

	"github.com/go-imppg/imppg/ierr"
)

// Image owns a row-major pixel buffer in one of the PixelFormat layouts
// (spec §3, "Image"). Ownership is exclusive: Clone is the only way to
// duplicate pixel memory. Views borrowed from an Image must not outlive
// it.
type Image struct {
	width, height int
	format        PixelFormat
	stride        int // bytes per row
	pix           []byte
	palette       []RGB // len 256 iff format == Pal8
}

// New allocates a zeroed image of the given size and format.
func New(w, h int, format PixelFormat) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, ierr.New(ierr.InvalidInput, "imgbuf.New", fmt.Errorf("non-positive dimensions %dx%d", w, h))
	}
	stride := w * format.BytesPerPixel()
	img := &Image{
		width:  w,
		height: h,
		format: format,
		stride: stride,
		pix:    make([]byte, stride*h),
	}
	if format.HasPalette() {
		img.palette = make([]RGB, 256)
	}
	return img, nil
}

func (img *Image) Width() int         { return img.width }
func (img *Image) Height() int        { return img.height }
func (img *Image) Format() PixelFormat { return img.format }
func (img *Image) Stride() int        { return img.stride }
func (img *Image) Bounds() Rect       { return Rect{0, 0, img.width, img.height} }

// Pix returns the raw backing buffer. Callers must respect Stride() when
// indexing rows; bytes-per-row is always >= width*BytesPerPixel().
func (img *Image) Pix() []byte { return img.pix }

// Row returns the byte slice for row y.
func (img *Image) Row(y int) []byte {
	return img.pix[y*img.stride : y*img.stride+img.width*img.format.BytesPerPixel()]
}

// Palette returns the 256-entry RGB palette for Pal8 images, or nil.
func (img *Image) Palette() []RGB { return img.palette }

// SetPalette installs a 256-entry palette on a Pal8 image.
func (img *Image) SetPalette(p []RGB) error {
	if !img.format.HasPalette() {
		return ierr.New(ierr.InvalidInput, "imgbuf.SetPalette", fmt.Errorf("format %s has no palette", img.format))
	}
	if len(p) != 256 {
		return ierr.New(ierr.InvalidInput, "imgbuf.SetPalette", fmt.Errorf("palette must have 256 entries, got %d", len(p)))
	}
	img.palette = append([]RGB(nil), p...)
	return nil
}

// ClearToZero zeroes the backing buffer in place.
func (img *Image) ClearToZero() {
	for i := range img.pix {
		img.pix[i] = 0
	}
}

// Clone performs the explicit deep copy that is the only way to duplicate
// pixel memory (spec §3).
func (img *Image) Clone() *Image {
	clone := &Image{
		width:  img.width,
		height: img.height,
		format: img.format,
		stride: img.stride,
		pix:    append([]byte(nil), img.pix...),
	}
	if img.palette != nil {
		clone.palette = append([]RGB(nil), img.palette...)
	}
	return clone
}

// View is a non-owning sub-rectangle of an Image. A View must not outlive
// the Image it borrows from (spec §3).
type View struct {
	Img  *Image
	Rect Rect
}

// View returns a borrowed sub-rectangle, validating that it lies fully
// within the image bounds.
func (img *Image) View(r Rect) (View, error) {
	if r.Empty() || !img.Bounds().Contains(r) {
		return View{}, ierr.New(ierr.InvalidInput, "imgbuf.View", fmt.Errorf("rect %v not contained in %v", r, img.Bounds()))
	}
	return View{Img: img, Rect: r}, nil
}

// Row returns the byte slice for row y (relative to the view) covering
// exactly the view's width.
func (v View) Row(y int) []byte {
	bpp := v.Img.format.BytesPerPixel()
	rowOff := (v.Rect.Y + y) * v.Img.stride
	start := rowOff + v.Rect.X*bpp
	return v.Img.pix[start : start+v.Rect.W*bpp]
}
