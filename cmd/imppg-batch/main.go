// Package main is a command-line batch runner: it applies one settings
// file to an ordered list of images and writes converted outputs (spec
// §4.10), grounded on cmd/rv/main.go's flag/lumberjack/logging setup.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/go-imppg/imppg/batch"
	"github.com/go-imppg/imppg/config"
	"github.com/go-imppg/imppg/imgbuf"
	"github.com/go-imppg/imppg/imgio"
	"github.com/go-imppg/imppg/worker"
)

// Logging configuration, the same shape as cmd/rv/main.go's.
const (
	logPath      = "imppg-batch.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

func main() {
	settingsPath := flag.String("settings", "", "path to the settings XML file to apply")
	outDir := flag.String("out", ".", "directory to write processed output files to")
	outFormat := flag.String("format", "Mono8", "output pixel format: Mono8 or Mono16")
	configPath := flag.String("config", "", "optional config file (spec §6 options)")
	flag.Parse()

	files := flag.Args()
	if *settingsPath == "" || len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: imppg-batch -settings FILE -out DIR [-format Mono8|Mono16] FILE...")
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	cfg := config.Default(log)
	if *configPath != "" {
		loaded, err := config.ReadFile(*configPath, cfg)
		if err != nil {
			log.Fatal("could not load config", "path", *configPath, "error", err.Error())
		}
		cfg = loaded
	}

	format, err := parseFormat(*outFormat)
	if err != nil {
		log.Fatal("invalid -format", "value", *outFormat, "error", err.Error())
	}

	runner := &batch.Runner{
		Loader: imgio.PNGStore{},
		Saver:  imgio.PNGStore{},
		Log:    log,
	}
	params := batch.Params{
		Files:        files,
		SettingsPath: *settingsPath,
		OutputDir:    *outDir,
		OutputFormat: format,
	}

	rt := worker.NewRuntime(64)
	rt.Spawn(func(t *worker.Task) { runner.Run(t, params) })

	for ev := range rt.Events() {
		switch e := ev.(type) {
		case worker.BatchFileStatus:
			log.Info("file status", "index", e.Index, "path", e.Path, "status", e.Status.String())
		case worker.BatchCompleted:
			log.Info("batch completed")
		case worker.BatchAborted:
			log.Error("batch aborted", "reason", e.Reason, "text", e.Text)
		case worker.ProcessingFinished:
			if e.Status == worker.Aborted {
				log.Error("run finished with error", "error", e.Err)
				os.Exit(1)
			}
			return
		}
	}
}

func parseFormat(s string) (imgbuf.PixelFormat, error) {
	switch strings.ToLower(s) {
	case "mono8":
		return imgbuf.Mono8, nil
	case "mono16":
		return imgbuf.Mono16, nil
	default:
		return 0, fmt.Errorf("unrecognized format %q", s)
	}
}
