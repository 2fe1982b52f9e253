// Package align implements the image-alignment engine: phase-correlation
// translation recovery and solar-limb detection with stabilization (spec
// §4.8), grounded on align_phasecorr.cpp and align_proc.cpp.
package align

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
	"github.com/go-imppg/imppg/imgio"
	"github.com/go-imppg/imppg/pipeline"
	"github.com/go-imppg/imppg/worker"
)

// Method selects the registration algorithm (spec §4.8).
type Method int

const (
	PhaseCorrelation Method = iota
	Limb
)

// CropMode selects how differently-translated images are reconciled into
// a common output canvas (spec §4.8).
type CropMode int

const (
	CropToIntersection CropMode = iota
	PadToBoundingBox
)

// Params configures an alignment job (spec §4.8).
type Params struct {
	Method            Method
	CropMode          CropMode
	SubpixelAlignment bool
	OutputDir         string
	OutputFileSuffix  string
	Normalization     pipeline.Normalization
}

// Input is either an ordered list of files or an in-memory image
// sequence (spec §4.8: "an ordered list of image files (or in-memory
// images)"). Exactly one of Files or Images should be set.
type Input struct {
	Files  []string
	Images []*imgbuf.Image
}

func (in Input) len() int {
	if len(in.Files) > 0 {
		return len(in.Files)
	}
	return len(in.Images)
}

// Engine runs one alignment job at a time, reporting through a
// worker.Task exactly like a pipeline stage (spec §4.8's "the engine is
// single-worker and cooperatively cancellable").
type Engine struct {
	Params Params
	Loader imgio.Loader
	Saver  imgio.Saver
}

// Run executes the configured method over input, emitting events on
// task and reporting the final status through task.Finish.
func (e *Engine) Run(task *worker.Task, input Input) {
	ctx := task.Context()
	var err error
	switch e.Params.Method {
	case PhaseCorrelation:
		err = e.runPhaseCorrelation(ctx, task, input)
	case Limb:
		err = e.runLimb(ctx, task, input)
	default:
		err = ierr.New(ierr.InvalidInput, "align.Engine.Run", nil)
	}
	if err != nil {
		if ierr.Is(err, ierr.Cancelled) {
			task.Event(worker.AlignmentAborted{Reason: worker.AbortRequested})
		} else {
			task.Event(worker.AlignmentAborted{Reason: worker.AbortProcError, Text: err.Error()})
		}
		task.Finish(worker.Aborted, err)
		return
	}
	task.Event(worker.AlignmentCompleted{})
	task.Finish(worker.Completed, nil)
}

// loadMono32F loads and optionally normalizes every input image (spec
// §4.8: normalize_fits_values), returning their float planes in order.
func (e *Engine) loadMono32F(input Input) ([]*imgbuf.FloatPlane, []imgbuf.Point, error) {
	n := input.len()
	planes := make([]*imgbuf.FloatPlane, n)
	sizes := make([]imgbuf.Point, n)
	for i := 0; i < n; i++ {
		var img *imgbuf.Image
		var err error
		if len(input.Files) > 0 {
			img, err = e.Loader.Load(input.Files[i])
		} else {
			img = input.Images[i]
		}
		if err != nil {
			return nil, nil, err
		}
		plane, err := img.ToFloatPlane(img.Bounds())
		if err != nil {
			return nil, nil, err
		}
		plane = pipeline.Normalize(plane, e.Params.Normalization)
		planes[i] = plane
		sizes[i] = imgbuf.Point{X: img.Width(), Y: img.Height()}
	}
	return planes, sizes, nil
}

func (e *Engine) runPhaseCorrelation(ctx context.Context, task *worker.Task, input Input) error {
	planes, sizes, err := e.loadMono32F(input)
	if err != nil {
		return err
	}

	translations, nw, nh, err := PhaseCorrelate(ctx, planes, e.Params.SubpixelAlignment, func(idx int, t Vec) {
		task.Event(worker.AlignmentPhaseCorrImgTranslation{Index: idx, Vec: [2]float64{t.X, t.Y}})
		task.Progress(100 * float64(idx+1) / float64(len(planes)))
	})
	if err != nil {
		return err
	}

	if len(input.Files) == 0 {
		// In-memory sequence: the translation vectors have already been
		// emitted above; no files to save (spec §4.8.1 step 7).
		return nil
	}

	var canvas imgbuf.Rect
	if e.Params.CropMode == PadToBoundingBox {
		canvas = BoundingBox(nw, nh, sizes, translations)
	} else {
		canvas = Intersection(nw, nh, sizes, translations)
	}
	return e.saveOutputs(ctx, task, input.Files, nw, nh, sizes, translations, canvas)
}

func (e *Engine) runLimb(ctx context.Context, task *worker.Task, input Input) error {
	if len(input.Files) == 0 {
		return ierr.New(ierr.InvalidInput, "align.Engine.runLimb", fmt.Errorf("limb alignment requires file input"))
	}
	planes, sizes, err := e.loadMono32F(input)
	if err != nil {
		return err
	}

	fits, err := FindDiscs(planes, func(idx int, r float64) {
		task.Event(worker.AlignmentLimbFoundDiscRadius{Index: idx, Radius: r})
	})
	if err != nil {
		return err
	}
	var avgR float64
	for _, f := range fits {
		avgR += f.R
	}
	avgR /= float64(len(fits))
	task.Event(worker.AlignmentLimbUsingRadius{Radius: avgR})

	translations := LimbTranslations(fits)

	intersection := imgbuf.Rect{X: 0, Y: 0, W: sizes[0].X, H: sizes[0].Y}
	for _, s := range sizes {
		if s.X < intersection.W {
			intersection.W = s.X
		}
		if s.Y < intersection.H {
			intersection.H = s.Y
		}
	}
	if intersection.W >= stabAreaSize && intersection.H >= stabAreaSize {
		area, err := PickStabilizationArea(planes[0], intersection)
		if err == nil {
			positions, err := TrackArea(ctx, planes, area)
			if err == nil {
				if stabilized, err := Stabilize(translations, positions); err == nil {
					translations = stabilized
				} else {
					task.Event(worker.AlignmentLimbStabilizationFailure{Text: err.Error()})
				}
			} else {
				task.Event(worker.AlignmentLimbStabilizationFailure{Text: err.Error()})
			}
			for i := range planes {
				task.Event(worker.AlignmentLimbStabilizationProgress{Index: i})
			}
		} else {
			task.Event(worker.AlignmentLimbStabilizationFailure{Text: err.Error()})
		}
	}

	// Limb alignment's working buffer is the image size itself: there is
	// no FFT padding step, so nw/nh below are a no-op identity frame sized
	// to the largest input.
	nw, nh := 0, 0
	for _, s := range sizes {
		if s.X > nw {
			nw = s.X
		}
		if s.Y > nh {
			nh = s.Y
		}
	}
	var canvas imgbuf.Rect
	if e.Params.CropMode == PadToBoundingBox {
		canvas = BoundingBox(nw, nh, sizes, translations)
	} else {
		canvas = Intersection(nw, nh, sizes, translations)
	}
	return e.saveOutputs(ctx, task, input.Files, nw, nh, sizes, translations, canvas)
}

// saveOutputs reads every input image again and writes its translated,
// canvas-fit output (spec §4.8.1 step 7 / §4.8.2 step 8).
func (e *Engine) saveOutputs(ctx context.Context, task *worker.Task, files []string, nw, nh int, sizes []imgbuf.Point, translations []Vec, canvas imgbuf.Rect) error {
	for i, path := range files {
		select {
		case <-ctx.Done():
			return ierr.New(ierr.Cancelled, "align.saveOutputs", ctx.Err())
		default:
		}
		img, err := e.Loader.Load(path)
		if err != nil {
			return err
		}
		ox, oy := untranslatedOrigin(nw, nh, sizes[i].X, sizes[i].Y)
		offsetX := float64(ox) + translations[i].X - float64(canvas.X)
		offsetY := float64(oy) + translations[i].Y - float64(canvas.Y)
		out, err := img.ResizeAndTranslate(img.Bounds(), canvas.W, canvas.H, offsetX, offsetY, true)
		if err != nil {
			return err
		}
		outPath := outputPath(path, e.Params.OutputDir, e.Params.OutputFileSuffix)
		if err := e.Saver.Save(outPath, out); err != nil {
			return err
		}
		task.Event(worker.AlignmentSavedOutputImage{Index: i})
	}
	return nil
}

// outputPath appends suffix to the input file's stem and places the
// result in dir, preserving the original extension (spec §4.8.1 step 7).
func outputPath(inputPath, dir, suffix string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+suffix+ext)
}
