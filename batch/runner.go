// Package batch applies one settings file to an ordered list of input
// images, writing converted outputs and a per-file status stream (spec
// §4.10), grounded on original_source/src/batch.cpp's per-file loop and
// revid.go's config-driven run shape.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ausocean/utils/logging"

	"github.com/go-imppg/imppg/ierr"
	"github.com/go-imppg/imppg/imgbuf"
	"github.com/go-imppg/imppg/imgio"
	"github.com/go-imppg/imppg/pipeline"
	"github.com/go-imppg/imppg/settingsio"
	"github.com/go-imppg/imppg/worker"
)

// Params configures one batch job (spec §4.10).
type Params struct {
	Files        []string
	SettingsPath string
	OutputDir    string
	OutputFormat imgbuf.PixelFormat
}

// Runner loads, processes and saves each file in a Params.Files list
// through the full pipeline, one worker task at a time, exactly like the
// alignment engine (spec §4.10, §5).
type Runner struct {
	Loader imgio.Loader
	Saver  imgio.Saver
	Log    logging.Logger
}

// Run executes params, emitting BatchFileStatus per file and a terminal
// BatchCompleted/BatchAborted plus the ordinary worker.Finish call.
func (r *Runner) Run(task *worker.Task, params Params) {
	ctx := task.Context()
	settings, err := settingsio.Load(params.SettingsPath, pipeline.Settings{})
	if err != nil {
		r.logf("batch: could not load settings %q: %v", params.SettingsPath, err)
		task.Event(worker.BatchAborted{Reason: worker.AbortProcError, Text: err.Error()})
		task.Finish(worker.Aborted, err)
		return
	}

	for i, path := range params.Files {
		select {
		case <-ctx.Done():
			task.Event(worker.BatchAborted{Reason: worker.AbortRequested})
			task.Finish(worker.Aborted, ctx.Err())
			return
		default:
		}

		task.Event(worker.BatchFileStatus{Index: i, Path: path, Status: worker.BatchProcessing})
		if err := r.processFile(ctx, path, settings, params.OutputDir, params.OutputFormat); err != nil {
			r.logf("batch: %s: %v", path, err)
			task.Event(worker.BatchFileStatus{Index: i, Path: path, Status: worker.BatchError, Err: err})
			continue
		}
		task.Event(worker.BatchFileStatus{Index: i, Path: path, Status: worker.BatchDone})
		task.Progress(100 * float64(i+1) / float64(len(params.Files)))
	}

	task.Event(worker.BatchCompleted{})
	task.Finish(worker.Completed, nil)
}

// processFile loads one input as Mono32F, runs Sharpening -> UnsharpMasking
// -> ToneCurve (precise) over the whole image, converts to outputFormat and
// saves it (spec §4.10).
func (r *Runner) processFile(ctx context.Context, path string, settings pipeline.Settings, outDir string, outputFormat imgbuf.PixelFormat) error {
	img, err := r.Loader.Load(path)
	if err != nil {
		return err
	}
	plane, err := img.ToFloatPlane(img.Bounds())
	if err != nil {
		return err
	}
	plane = pipeline.Normalize(plane, settings.Normalization)

	p := pipeline.New(plane, settings)
	p.SetTonePrecise(true)
	if err := p.RunRequest(ctx, pipeline.ToneCurve, nil); err != nil {
		return err
	}
	result, _, ok := p.Result()
	if !ok {
		return ierr.New(ierr.NumericFailure, "batch.processFile", errors.New("pipeline produced no result"))
	}
	result.Clamp01()

	out, err := imgbuf.New(result.Width, result.Height, outputFormat)
	if err != nil {
		return err
	}
	if err := out.FromFloatPlane(result, imgbuf.Point{}); err != nil {
		return err
	}

	return r.Saver.Save(outputPath(path, outDir), out)
}

// outputPath names the output {stem}_out.{ext} in outDir (spec §4.10).
func outputPath(inputPath, outDir string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(outDir, stem+"_out"+ext)
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Log != nil {
		r.Log.Error(fmt.Sprintf(format, args...))
	}
}

// WatchSettings re-reads settingsPath into current whenever it changes on
// disk, pushing the merged result on the returned channel (spec's
// ambient-stack hot-reload: a shared settings file edited externally
// while a batch or alignment job is queued). The channel is closed when
// ctx is cancelled.
func WatchSettings(ctx context.Context, settingsPath string, current pipeline.Settings, log logging.Logger) (<-chan pipeline.Settings, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ierr.New(ierr.IO, "batch.WatchSettings", errors.Wrap(err, "create fsnotify watcher"))
	}
	dir := filepath.Dir(settingsPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, ierr.New(ierr.IO, "batch.WatchSettings", errors.Wrapf(err, "watch %q", dir))
	}

	out := make(chan pipeline.Settings, 1)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(settingsPath) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				updated, err := settingsio.Load(settingsPath, current)
				if err != nil {
					if log != nil {
						log.Warning("settings hot reload failed", "path", settingsPath, "error", err)
					}
					continue
				}
				current = updated
				select {
				case out <- current:
				default:
					// A pending reload that nobody consumed yet; drop the
					// stale one and keep only the freshest settings.
					select {
					case <-out:
					default:
					}
					out <- current
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if log != nil {
					log.Warning("settings watcher error", "error", err)
				}
			}
		}
	}()
	return out, nil
}
