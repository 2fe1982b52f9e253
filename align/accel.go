package align

import (
	"github.com/go-imppg/imppg/dsp"
	"github.com/go-imppg/imppg/imgbuf"
)

// blurFunc is the Gaussian blur used to prepare the stabilization area
// search. It defaults to the pure-Go separable kernel; builds tagged
// withcv override it in an init() with an OpenCV-accelerated version
// (spec §1: "a GPU/accelerated back end is an optional acceleration of
// the same contract").
var blurFunc = func(p *imgbuf.FloatPlane, sigma float64, method dsp.GaussianMethod) *imgbuf.FloatPlane {
	return dsp.Gaussian(p, sigma, method)
}
