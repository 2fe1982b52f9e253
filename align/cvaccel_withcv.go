//go:build withcv

/*
DESCRIPTION
  Optional OpenCV-accelerated replacements for the stabilization area's
  Gaussian blur and patch translation recovery, adapted from the
  motion-detection filter's gocv.Mat plumbing.
*/

package align

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/go-imppg/imppg/dsp"
	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
)

func init() {
	blurFunc = accelGaussian
}

// planeToMat converts a Mono32F plane to a single-channel 32F gocv.Mat.
func planeToMat(p *imgbuf.FloatPlane) gocv.Mat {
	mat := gocv.NewMatWithSize(p.Height, p.Width, gocv.MatTypeCV32F)
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		for x, v := range row {
			mat.SetFloatAt(y, x, v)
		}
	}
	return mat
}

// matToPlane is the inverse of planeToMat.
func matToPlane(mat gocv.Mat) *imgbuf.FloatPlane {
	out := imgbuf.NewFloatPlane(mat.Cols(), mat.Rows())
	for y := 0; y < mat.Rows(); y++ {
		dst := out.Row(y)
		for x := range dst {
			dst[x] = mat.GetFloatAt(y, x)
		}
	}
	return out
}

// accelGaussian runs gocv's separable Gaussian blur in place of the
// pure-Go kernel, matching the dsp.Gaussian signature so it can replace
// blurFunc transparently.
func accelGaussian(p *imgbuf.FloatPlane, sigma float64, _ dsp.GaussianMethod) *imgbuf.FloatPlane {
	src := planeToMat(p)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	ksize := int(sigma*6) | 1 // odd kernel size, matching the direct kernel's radius = ceil(3*sigma).
	gocv.GaussianBlur(src, &dst, image.Pt(ksize, ksize), sigma, sigma, gocv.BorderReplicate)
	return matToPlane(dst)
}

// AccelPhaseCorrelate uses OpenCV's built-in phase correlation (same
// algorithm family as the hand-rolled FFT path in phasecorr.go) as a
// faster stand-in when tracking the 128x128 stabilization patch across
// many images; it is not used for the full-frame, window-weighted
// correlation of spec §4.8.1, which keeps the documented cross-power
// spectrum guard.
func AccelPhaseCorrelate(a, b *imgbuf.FloatPlane) (Vec, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return Vec{}, ierr.New(ierr.InvalidInput, "align.AccelPhaseCorrelate", nil)
	}
	matA := planeToMat(a)
	defer matA.Close()
	matB := planeToMat(b)
	defer matB.Close()
	shift, _ := gocv.PhaseCorrelate(matA, matB, gocv.NewMat())
	return Vec{X: shift.X, Y: shift.Y}, nil
}
