package pipeline

import "github.com/go-imppg/imppg/imgbuf"

// Stage identifies one of the three cached pipeline stages (spec §3, §4.6).
// Stages are totally ordered: Sharpening < UnsharpMasking < ToneCurve.
type Stage int

const (
	Sharpening Stage = iota
	UnsharpMasking
	ToneCurve
	numStages
)

func (s Stage) String() string {
	switch s {
	case Sharpening:
		return "sharpening"
	case UnsharpMasking:
		return "unsharp masking"
	case ToneCurve:
		return "tone curve"
	default:
		return "unknown"
	}
}

// cacheEntry holds one stage's cached output plane plus its validity.
type cacheEntry struct {
	plane *imgbuf.FloatPlane
	valid bool
}

// stageCache is the S/U/T cache of spec §3 ("Pipeline stage cache"): S is
// the output of deconvolution/sharpening, U of the unsharp-mask pass
// list, T of the tone curve. TPreciseApplied records whether T's cached
// output used the tone curve's precise (non-LUT) evaluation, so a toggle
// between LUT and precise mode invalidates T without needing to touch S
// or U.
type stageCache struct {
	entries         [numStages]cacheEntry
	tPreciseApplied bool
}

func (c *stageCache) get(s Stage) (*imgbuf.FloatPlane, bool) {
	e := c.entries[s]
	return e.plane, e.valid
}

func (c *stageCache) set(s Stage, p *imgbuf.FloatPlane) {
	c.entries[s] = cacheEntry{plane: p, valid: true}
}

// invalidateFrom marks stage s and every later stage as invalid, per
// spec §4.6's "a parameter change invalidates its own stage and all
// later stages" rule.
func (c *stageCache) invalidateFrom(s Stage) {
	for i := int(s); i < int(numStages); i++ {
		c.entries[i].valid = false
		c.entries[i].plane = nil
	}
}

// promote walks a requested stage back to the earliest invalid
// predecessor, since a later stage cannot run without a valid input from
// the one before it (spec §4.6 "Request fulfillment rule").
func (c *stageCache) promote(requested Stage) Stage {
	if requested == ToneCurve && !c.entries[UnsharpMasking].valid {
		requested = UnsharpMasking
	}
	if requested == UnsharpMasking && !c.entries[Sharpening].valid {
		requested = Sharpening
	}
	return requested
}
