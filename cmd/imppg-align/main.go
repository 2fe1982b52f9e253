// Package main is a command-line alignment runner: it registers an
// ordered list of images by phase correlation or solar-limb fitting and
// writes the aligned outputs (spec §4.8), grounded on cmd/rv/main.go's
// flag/lumberjack/logging setup.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/go-imppg/imppg/align"
	"github.com/go-imppg/imppg/imgio"
	"github.com/go-imppg/imppg/pipeline"
	"github.com/go-imppg/imppg/worker"
)

// Logging configuration, the same shape as cmd/rv/main.go's.
const (
	logPath      = "imppg-align.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	method := flag.String("method", "phasecorr", "alignment method: phasecorr or limb")
	cropMode := flag.String("crop", "intersection", "output canvas: intersection or bbox")
	outDir := flag.String("out", ".", "directory to write aligned output files to")
	suffix := flag.String("suffix", "_aligned", "suffix appended to each output file's stem")
	subpixel := flag.Bool("subpixel", true, "refine translations to sub-pixel precision")
	flag.Parse()

	files := flag.Args()
	if len(files) < 2 {
		fmt.Fprintln(os.Stderr, "usage: imppg-align -method phasecorr|limb -out DIR FILE FILE...")
		os.Exit(2)
	}

	m, err := parseMethod(*method)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	crop, err := parseCropMode(*cropMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	engine := &align.Engine{
		Params: align.Params{
			Method:            m,
			CropMode:          crop,
			SubpixelAlignment: *subpixel,
			OutputDir:         *outDir,
			OutputFileSuffix:  *suffix,
			Normalization:     pipeline.Normalization{},
		},
		Loader: imgio.PNGStore{},
		Saver:  imgio.PNGStore{},
	}

	rt := worker.NewRuntime(64)
	rt.Spawn(func(t *worker.Task) { engine.Run(t, align.Input{Files: files}) })

	for ev := range rt.Events() {
		switch e := ev.(type) {
		case worker.AlignmentPhaseCorrImgTranslation:
			log.Info("translation", "index", e.Index, "x", e.Vec[0], "y", e.Vec[1])
		case worker.AlignmentLimbFoundDiscRadius:
			log.Info("disc radius", "index", e.Index, "radius", e.Radius)
		case worker.AlignmentLimbUsingRadius:
			log.Info("using disc radius", "radius", e.Radius)
		case worker.AlignmentLimbStabilizationFailure:
			log.Warning("stabilization failed, continuing uncorrected", "error", e.Text)
		case worker.AlignmentSavedOutputImage:
			log.Info("saved output", "index", e.Index)
		case worker.AlignmentCompleted:
			log.Info("alignment completed")
		case worker.AlignmentAborted:
			log.Error("alignment aborted", "reason", e.Reason, "text", e.Text)
		case worker.ProcessingFinished:
			if e.Status == worker.Aborted {
				log.Error("run finished with error", "error", e.Err)
				os.Exit(1)
			}
			return
		}
	}
}

func parseMethod(s string) (align.Method, error) {
	switch strings.ToLower(s) {
	case "phasecorr", "phase-correlation", "phasecorrelation":
		return align.PhaseCorrelation, nil
	case "limb":
		return align.Limb, nil
	default:
		return 0, fmt.Errorf("unrecognized method %q", s)
	}
}

func parseCropMode(s string) (align.CropMode, error) {
	switch strings.ToLower(s) {
	case "intersection":
		return align.CropToIntersection, nil
	case "bbox", "boundingbox", "bounding-box":
		return align.PadToBoundingBox, nil
	default:
		return 0, fmt.Errorf("unrecognized crop mode %q", s)
	}
}
