// Package coordinator implements the scheduler of spec §4.6: it owns the
// pipeline, translates user-facing setters into cache invalidation plus a
// stage request, and enforces the single-worker concurrency contract of
// §5 (at most one worker, stale-thread-id events discarded, non-blocking
// abort/restart), grounded on revid.go's mutex-guarded single-active-task
// handle and its channel-consumer loop.
package coordinator

import (
	"context"

	"github.com/ausocean/utils/logging"

	"github.com/go-imppg/imppg/imgbuf"
	"github.com/go-imppg/imppg/lrdeconv"
	"github.com/go-imppg/imppg/pipeline"
	"github.com/go-imppg/imppg/settingsio"
	"github.com/go-imppg/imppg/tonecurve"
	"github.com/go-imppg/imppg/unsharp"
	"github.com/go-imppg/imppg/worker"
)

// Coordinator is the single owner of one pipeline's stage cache and the
// one worker thread that executes it (spec §4.6, §5). It is not safe for
// concurrent use from multiple goroutines other than its own event loop;
// the caller (a UI thread or a CLI driver) must serialize calls to its
// Set*/Request methods.
type Coordinator struct {
	rt       *worker.Runtime
	pipeline *pipeline.Pipeline
	log      logging.Logger

	currentThreadID worker.ThreadID // expected thread id; events below this are stale (spec §5 Ordering).

	pendingSave     bool
	pendingRestart  bool
	pendingRequest  pipeline.Stage
	hasPending      bool
	savePath        string
	onSaveComplete  func(plane *imgbuf.FloatPlane, err error)
	onStageComplete func(stage pipeline.Stage, plane *imgbuf.FloatPlane)
}

// New creates a coordinator over an already-constructed pipeline and
// worker runtime.
func New(p *pipeline.Pipeline, rt *worker.Runtime, log logging.Logger) *Coordinator {
	return &Coordinator{pipeline: p, rt: rt, log: log}
}

// OnStageComplete installs a callback invoked with each stage's cached
// output whenever a requested run finishes successfully (e.g. to refresh
// a preview).
func (c *Coordinator) OnStageComplete(fn func(stage pipeline.Stage, plane *imgbuf.FloatPlane)) {
	c.onStageComplete = fn
}

// OnSaveComplete installs a callback invoked once the pending save
// finishes (successfully or not).
func (c *Coordinator) OnSaveComplete(fn func(plane *imgbuf.FloatPlane, err error)) {
	c.onSaveComplete = fn
}

// SetSelection invalidates S/U/T and requests Sharpening (spec §4.6).
func (c *Coordinator) SetSelection(r imgbuf.Rect) error {
	if err := c.pipeline.SetSelection(r); err != nil {
		return err
	}
	c.Request(pipeline.Sharpening)
	return nil
}

// SetLRParams invalidates S/U/T and requests Sharpening (spec §4.6).
func (c *Coordinator) SetLRParams(p lrdeconv.Params) {
	c.pipeline.SetLRParams(p)
	c.Request(pipeline.Sharpening)
}

// SetUnsharpParams invalidates U/T and requests UnsharpMasking (spec
// §4.6).
func (c *Coordinator) SetUnsharpParams(passIndex int, p unsharp.Params) error {
	if err := c.pipeline.SetUnsharpPass(passIndex, p); err != nil {
		return err
	}
	c.Request(pipeline.UnsharpMasking)
	return nil
}

// SetToneCurve invalidates T and requests ToneCurve (spec §4.6).
func (c *Coordinator) SetToneCurve(curve *tonecurve.Curve) {
	c.pipeline.SetToneCurve(curve)
	c.Request(pipeline.ToneCurve)
}

// RequestSave arranges for the processing settings to be written to path
// once the pipeline reaches ToneCurve with the precise tone curve applied;
// writing the result image is left to the OnSaveComplete callback. If the
// current selection is not the whole image, the selection is enlarged to
// the full image first (spec §4.6 "Selection edge-cases"), which forces
// a full re-run from Sharpening.
func (c *Coordinator) RequestSave(path string) {
	c.pendingSave = true
	c.savePath = path
	c.pipeline.SetTonePrecise(true)

	full := c.pipeline.Bounds()
	if c.pipeline.Selection() != full {
		// SetSelection invalidates every stage, matching the "enlarges the
		// selection to the full image" rule; the error is impossible since
		// full is always a valid selection.
		_ = c.pipeline.SetSelection(full)
	}
	c.Request(pipeline.ToneCurve)
}

// Request asks the scheduler to (re)compute up through stage. If a
// worker is currently running, this sets pending_restart and aborts the
// in-flight worker instead of blocking; the restart fires once that
// worker's ProcessingFinished event is observed (spec §4.6 "Concurrency
// contract").
func (c *Coordinator) Request(stage pipeline.Stage) {
	if c.rt.Busy() {
		c.pendingRestart = true
		if !c.hasPending || stage > c.pendingRequest {
			c.pendingRequest = stage
		}
		c.hasPending = true
		c.rt.Abort()
		return
	}
	c.spawn(stage)
}

func (c *Coordinator) spawn(stage pipeline.Stage) {
	task := c.rt.Spawn(func(t *worker.Task) {
		err := c.pipeline.RunRequest(t.Context(), stage, func(s pipeline.Stage, pct float64) {
			t.Progress(pct)
		})
		if err != nil {
			t.Finish(worker.Aborted, err)
			return
		}
		t.Finish(worker.Completed, nil)
	})
	c.currentThreadID = task.ThreadID
}

// HandleEvent processes one worker.Event from rt.Events(); the caller's
// consumer loop is expected to call this for everything it reads,
// exactly mirroring revid/pipeline.go's single-consumer handleErrors
// loop. Events whose payload is not thread-addressable (the alignment
// engine's richer vocabulary) are ignored here.
func (c *Coordinator) HandleEvent(e worker.Event) {
	fin, ok := e.(worker.ProcessingFinished)
	if !ok {
		return
	}
	if fin.ThreadID < c.currentThreadID {
		// Stale event from a superseded worker (spec §5 "Ordering").
		return
	}

	if c.pendingRestart {
		c.pendingRestart = false
		stage := c.pendingRequest
		c.hasPending = false
		c.spawn(stage)
		return
	}

	if fin.Status == worker.Aborted {
		if c.log != nil {
			c.log.Warning("pipeline worker aborted", "error", fin.Err)
		}
		return
	}

	plane, stage, ok := c.pipeline.Result()
	if ok && c.onStageComplete != nil {
		c.onStageComplete(stage, plane)
	}

	if c.pendingSave && stage == pipeline.ToneCurve {
		c.pendingSave = false
		err := c.save(plane)
		if c.onSaveComplete != nil {
			c.onSaveComplete(plane, err)
		}
	}
}

// save persists the current settings alongside the processed result;
// writing the actual output image itself is the caller's job via
// OnSaveComplete, since only it knows the target pixel format (spec §6).
func (c *Coordinator) save(_ *imgbuf.FloatPlane) error {
	return settingsio.Save(c.savePath, c.pipeline.Settings())
}

// Abort cancels any in-flight worker without scheduling a restart.
func (c *Coordinator) Abort() {
	c.pendingRestart = false
	c.hasPending = false
	c.rt.Abort()
}

// Run drains rt.Events() until ctx is cancelled, calling HandleEvent for
// each (the coordinator's single consumer loop, spec §5).
func (c *Coordinator) Run(ctx context.Context) {
	events := c.rt.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			c.HandleEvent(e)
		}
	}
}
