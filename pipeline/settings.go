// Package pipeline implements the staged processing pipeline and its
// stage cache (spec §3 "Pipeline stage cache", §4.6). Each stage's output
// is cached; a parameter change invalidates that stage and all later
// stages. Running stages, including chaining from the earliest invalid
// stage through a requested one (RunRequest), is this package's job;
// scheduling worker tasks and wiring save-on-complete is the
// coordinator's (spec §2 component table separates "Processing pipeline"
// from "Coordination layer").
package pipeline

import (
	"github.com/go-imppg/imppg/lrdeconv"
	"github.com/go-imppg/imppg/tonecurve"
	"github.com/go-imppg/imppg/unsharp"
)

// Normalization rescales the input image before the pipeline runs (spec
// §3).
type Normalization struct {
	Enabled  bool
	Min, Max float64
}

// Settings is the tuple of processing parameters (spec §3
// "Processing settings").
type Settings struct {
	Normalization Normalization
	LR            lrdeconv.Params
	Unsharp       []unsharp.Params // length >= 1
	ToneCurve     *tonecurve.Curve
}
