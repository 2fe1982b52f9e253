// PNG is the one file-I/O codec adapter this repository ships a concrete
// implementation of, so the cmd/ entry points have something runnable;
// every other format in spec §6 (BMP, TIFF, FITS) is left to an external
// collaborator behind the Loader/Saver interfaces above. Grounded on
// stdlib image/png, the only PNG codec in the pack or its ecosystem
// default.
package imgio

import (
	"encoding/binary"
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"

	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
)

// PNGStore loads and saves Mono8/Mono16 grayscale PNGs.
type PNGStore struct{}

// Load decodes an 8- or 16-bit grayscale PNG into a Mono8 or Mono16
// Image (spec §6 "PNG 8-bit (optional)", extended to 16-bit since
// image/png already decodes it and the pipeline's Mono16 path needs no
// extra code to exercise it).
func (PNGStore) Load(path string) (*imgbuf.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ierr.New(ierr.IO, "imgio.PNGStore.Load", errors.Wrapf(err, "open %q", path))
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, ierr.New(ierr.UnsupportedFormat, "imgio.PNGStore.Load", errors.Wrap(err, "decode png"))
	}

	switch g := src.(type) {
	case *image.Gray:
		return grayToImage(g)
	case *image.Gray16:
		return gray16ToImage(g)
	default:
		return colorToMono8Image(src)
	}
}

func grayToImage(g *image.Gray) (*imgbuf.Image, error) {
	b := g.Bounds()
	img, err := imgbuf.New(b.Dx(), b.Dy(), imgbuf.Mono8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Row(y)
		srcOff := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(row, g.Pix[srcOff:srcOff+b.Dx()])
	}
	return img, nil
}

// gray16ToImage converts image.Gray16's big-endian sample layout to
// imgbuf's little-endian Mono16 layout (spec §3's PixelFormat storage is
// little-endian throughout, per imgbuf/float.go's binary.LittleEndian
// use).
func gray16ToImage(g *image.Gray16) (*imgbuf.Image, error) {
	b := g.Bounds()
	img, err := imgbuf.New(b.Dx(), b.Dy(), imgbuf.Mono16)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Row(y)
		srcOff := g.PixOffset(b.Min.X, b.Min.Y+y)
		srcRow := g.Pix[srcOff : srcOff+b.Dx()*2]
		for x := 0; x < b.Dx(); x++ {
			v := binary.BigEndian.Uint16(srcRow[x*2:])
			binary.LittleEndian.PutUint16(row[x*2:], v)
		}
	}
	return img, nil
}

// colorToMono8Image collapses a color PNG to Mono8 via the standard
// luma weights, matching spec §1's "channel-independent processing"
// scope: color input is reduced to mono on load rather than carried as
// RGB through the pipeline.
func colorToMono8Image(src image.Image) (*imgbuf.Image, error) {
	b := src.Bounds()
	img, err := imgbuf.New(b.Dx(), b.Dy(), imgbuf.Mono8)
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		row := img.Row(y)
		for x := 0; x < b.Dx(); x++ {
			gr, gg, gb, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := (19595*gr + 38470*gg + 7471*gb + 1<<15) >> 24
			row[x] = byte(lum)
		}
	}
	return img, nil
}

// Save encodes img as an 8- or 16-bit grayscale PNG; img must be Mono8
// or Mono16 (call FromFloatPlane into one of those formats first).
func (PNGStore) Save(path string, img *imgbuf.Image) error {
	var dst image.Image
	switch img.Format() {
	case imgbuf.Mono8:
		g := image.NewGray(image.Rect(0, 0, img.Width(), img.Height()))
		for y := 0; y < img.Height(); y++ {
			copy(g.Pix[y*g.Stride:y*g.Stride+img.Width()], img.Row(y))
		}
		dst = g
	case imgbuf.Mono16:
		g := image.NewGray16(image.Rect(0, 0, img.Width(), img.Height()))
		for y := 0; y < img.Height(); y++ {
			row := img.Row(y)
			dstRow := g.Pix[y*g.Stride : y*g.Stride+img.Width()*2]
			for x := 0; x < img.Width(); x++ {
				v := binary.LittleEndian.Uint16(row[x*2:])
				binary.BigEndian.PutUint16(dstRow[x*2:], v)
			}
		}
		dst = g
	default:
		return ierr.New(ierr.UnsupportedFormat, "imgio.PNGStore.Save", errors.Errorf("format %s not PNG-savable", img.Format()))
	}

	f, err := os.Create(path)
	if err != nil {
		return ierr.New(ierr.IO, "imgio.PNGStore.Save", errors.Wrapf(err, "create %q", path))
	}
	defer f.Close()

	if err := png.Encode(f, dst); err != nil {
		return ierr.New(ierr.IO, "imgio.PNGStore.Save", errors.Wrap(err, "encode png"))
	}
	return nil
}
