package pipeline

import (
	"context"

	"github.com/go-imppg/imppg/histogram"
	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
	"github.com/go-imppg/imppg/lrdeconv"
	"github.com/go-imppg/imppg/tonecurve"
	"github.com/go-imppg/imppg/unsharp"
)

// Pipeline runs the three cached stages over a selection of a source
// image (spec §3, §4.6). It is not safe for concurrent use; the
// coordinator is responsible for running it from at most one worker task
// at a time (spec §5).
type Pipeline struct {
	settings  Settings
	source    *imgbuf.FloatPlane // the whole normalized source image, Mono32F.
	selection imgbuf.Rect
	cache     stageCache
}

// New creates a pipeline over the given normalized source image, with the
// selection defaulting to the whole image.
func New(source *imgbuf.FloatPlane, settings Settings) *Pipeline {
	p := &Pipeline{settings: settings, source: source, selection: source.Bounds()}
	p.cache.invalidateFrom(Sharpening)
	return p
}

// SetSelection replaces the active selection rectangle, invalidating
// every cached stage (spec §4.6: changing the selection restarts from
// Sharpening since it changes the pixels every stage sees).
func (p *Pipeline) SetSelection(r imgbuf.Rect) error {
	if !p.source.Bounds().Contains(r) {
		return ierr.New(ierr.InvalidInput, "pipeline.SetSelection", nil)
	}
	p.selection = r
	p.cache.invalidateFrom(Sharpening)
	return nil
}

// Selection returns the active selection rectangle.
func (p *Pipeline) Selection() imgbuf.Rect { return p.selection }

// Settings returns the current processing settings, e.g. for the
// coordinator to persist alongside a save (spec §4.9).
func (p *Pipeline) Settings() Settings { return p.settings }

// Bounds returns the source image's full extent, used by the scheduler
// to enlarge the selection to the whole image on save (spec §4.6
// "Selection edge-cases").
func (p *Pipeline) Bounds() imgbuf.Rect { return p.source.Bounds() }

// SetUnsharpPass replaces a single pass in place, invalidating
// UnsharpMasking and later stages (spec §4.6 "set_unsharp_params(pass_index,
// ...)").
func (p *Pipeline) SetUnsharpPass(passIndex int, params unsharp.Params) error {
	if passIndex < 0 || passIndex >= len(p.settings.Unsharp) {
		return ierr.New(ierr.InvalidInput, "pipeline.SetUnsharpPass", nil)
	}
	p.settings.Unsharp[passIndex] = params
	p.cache.invalidateFrom(UnsharpMasking)
	return nil
}

// SetLRParams updates the deconvolution parameters, invalidating
// Sharpening and later stages.
func (p *Pipeline) SetLRParams(params lrdeconv.Params) {
	p.settings.LR = params
	p.cache.invalidateFrom(Sharpening)
}

// SetUnsharpPasses replaces the unsharp pass list, invalidating
// UnsharpMasking and later stages.
func (p *Pipeline) SetUnsharpPasses(passes []unsharp.Params) {
	p.settings.Unsharp = passes
	p.cache.invalidateFrom(UnsharpMasking)
}

// SetToneCurve replaces the tone curve, invalidating ToneCurve.
func (p *Pipeline) SetToneCurve(c *tonecurve.Curve) {
	p.settings.ToneCurve = c
	p.cache.invalidateFrom(ToneCurve)
}

// SetTonePrecise toggles between the LUT-approximate and precise tone
// curve evaluation, invalidating ToneCurve only if the mode actually
// changed (spec §4.6's dedicated T.precise_applied flag).
func (p *Pipeline) SetTonePrecise(precise bool) {
	if p.cache.tPreciseApplied != precise {
		p.cache.invalidateFrom(ToneCurve)
	}
	p.cache.tPreciseApplied = precise
}

// Promote returns the earliest stage that must actually be (re)computed
// to satisfy a request for the given stage, per spec §4.6's request
// fulfillment rule.
func (p *Pipeline) Promote(requested Stage) Stage { return p.cache.promote(requested) }

// Valid reports whether s's cached output is usable without recomputing.
func (p *Pipeline) Valid(s Stage) bool {
	_, ok := p.cache.get(s)
	return ok
}

// Progress is the per-stage progress callback, mirroring the coarse
// percentage reporting of lrdeconv.Progress/unsharp.Progress.
type Progress func(percent float64)

// RunStage computes exactly one stage (s must already be the promoted
// stage per Promote) and caches its output. Running ToneCurve without a
// valid UnsharpMasking cache (or UnsharpMasking without a valid
// Sharpening cache) is a programming error the coordinator must avoid by
// always calling Promote first.
func (p *Pipeline) RunStage(ctx context.Context, s Stage, progress Progress) error {
	switch s {
	case Sharpening:
		return p.runSharpening(ctx, progress)
	case UnsharpMasking:
		return p.runUnsharp(ctx, progress)
	case ToneCurve:
		return p.runToneCurve(ctx, progress)
	default:
		return ierr.New(ierr.InvalidInput, "pipeline.RunStage", nil)
	}
}

func (p *Pipeline) runSharpening(ctx context.Context, progress Progress) error {
	raw, err := p.source.SubView(p.selection)
	if err != nil {
		return err
	}
	out, err := lrdeconv.Run(ctx, raw, p.settings.LR, lrdeconv.Progress(progress))
	if err != nil {
		return err
	}
	p.cache.set(Sharpening, out)
	return nil
}

func (p *Pipeline) runUnsharp(ctx context.Context, progress Progress) error {
	s, ok := p.cache.get(Sharpening)
	if !ok {
		return ierr.New(ierr.InvalidInput, "pipeline.runUnsharp", nil)
	}
	passes := p.settings.Unsharp
	if len(passes) == 0 {
		p.cache.set(UnsharpMasking, s.Clone())
		return nil
	}
	out, err := unsharp.RunPasses(ctx, s, passes, func(i, total int) {
		if progress != nil {
			progress(100 * float64(i) / float64(total))
		}
	})
	if err != nil {
		return err
	}
	p.cache.set(UnsharpMasking, out)
	return nil
}

func (p *Pipeline) runToneCurve(ctx context.Context, progress Progress) error {
	u, ok := p.cache.get(UnsharpMasking)
	if !ok {
		return ierr.New(ierr.InvalidInput, "pipeline.runToneCurve", nil)
	}
	select {
	case <-ctx.Done():
		return ierr.New(ierr.Cancelled, "pipeline.runToneCurve", ctx.Err())
	default:
	}
	c := p.settings.ToneCurve
	if c == nil {
		c = tonecurve.NewIdentity()
	}
	out := c.Apply(u, p.cache.tPreciseApplied)
	if progress != nil {
		progress(100)
	}
	p.cache.set(ToneCurve, out)
	return nil
}

// RunRequest runs every stage from the earliest invalid predecessor of
// requested through requested itself, in order, chaining automatically
// (spec §4.6 "After a stage finishes, if there was a pending
// later-stage request, chain the next stage"). progress is called with
// (stage, percent) for every report the running stage makes; a stage that
// finishes without reporting (L-R with zero iterations, an empty pass
// list) is reported once with 100 when it finishes.
func (p *Pipeline) RunRequest(ctx context.Context, requested Stage, progress func(Stage, float64)) error {
	stage := p.Promote(requested)
	for {
		reported := false
		if err := p.RunStage(ctx, stage, func(pct float64) {
			reported = true
			if progress != nil {
				progress(stage, pct)
			}
		}); err != nil {
			return err
		}
		if !reported && progress != nil {
			progress(stage, 100)
		}
		if stage == requested {
			return nil
		}
		stage++
	}
}

// Result returns the cached output of the deepest valid stage and that
// stage's identity, or ok == false if nothing has been computed yet.
func (p *Pipeline) Result() (plane *imgbuf.FloatPlane, stage Stage, ok bool) {
	for s := ToneCurve; s >= Sharpening; s-- {
		if pl, valid := p.cache.get(s); valid {
			return pl, s, true
		}
	}
	return nil, 0, false
}

// Histogram computes the brightness histogram of the deepest available
// cached stage, used to drive the tone curve's Stretch operation and the
// interactive histogram display (spec §4.5).
func (p *Pipeline) Histogram(bins int) (histogram.Histogram, bool) {
	plane, _, ok := p.Result()
	if !ok {
		return histogram.Histogram{}, false
	}
	return histogram.Compute(plane, bins), true
}
