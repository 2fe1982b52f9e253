// Package imgio declares the file-I/O collaborator contract (spec §6
// "Out of scope... file I/O codec adapters"). Concrete BMP/TIFF/FITS
// codecs live outside the core (png.go is the one codec shipped here);
// align and batch only depend on these
// interfaces so any collaborator implementation can be substituted,
// including a test double.
package imgio

import "github.com/go-imppg/imppg/imgbuf"

// Loader decodes a file path into an Image. Implementations are
// responsible for the format-specific normalization rules of spec §6
// (e.g. FITS float values above 1 rescaled to [0,1]).
type Loader interface {
	Load(path string) (*imgbuf.Image, error)
}

// Saver encodes an Image to a file path in the format implied by the
// path's extension or by a separately configured output format.
type Saver interface {
	Save(path string, img *imgbuf.Image) error
}
