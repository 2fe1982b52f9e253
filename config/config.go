// Package config holds the recognized configuration options of spec §6:
// throttling, UI-detail, and back-end knobs that are not part of the
// processing settings XML (§4.9) but still govern how the core runs.
// Grounded on revid/config/config.go's enum-and-struct shape.
package config

import (
	"github.com/ausocean/utils/logging"

	"github.com/go-imppg/imppg/imgbuf"
)

// DisplayScalingMethod selects the interpolation used when scaling a
// preview for display (spec §6 display_scaling_method).
type DisplayScalingMethod int

const (
	Nearest DisplayScalingMethod = iota + 1
	Linear
	Cubic
)

func (m DisplayScalingMethod) String() string {
	switch m {
	case Nearest:
		return "Nearest"
	case Linear:
		return "Linear"
	case Cubic:
		return "Cubic"
	default:
		return "Unknown"
	}
}

// ProcessingBackend selects the execution back end (spec §6
// processing_back_end); OpenGl is the optional GPU acceleration the spec
// calls out as a Non-goal to require, never to forbid as an option.
type ProcessingBackend int

const (
	CpuBmp ProcessingBackend = iota
	OpenGl
)

func (b ProcessingBackend) String() string {
	switch b {
	case CpuBmp:
		return "CpuBmp"
	case OpenGl:
		return "OpenGl"
	default:
		return "Unknown"
	}
}

// Config is the set of recognized configuration options (spec §6). GUI-only
// fields (tool_icon_size, ui_language, log_histogram, window geometry) are
// the GUI framework's concern (out of scope per spec §1) and are not
// modeled here.
type Config struct {
	// MaxProcessingRequestsPerSec throttles interactive parameter-change
	// events before they reach the coordinator's Request.
	MaxProcessingRequestsPerSec uint

	// NumToneCurveDrawSegments is UI detail only, carried for parity with
	// a settings round-trip but unused by the core.
	NumToneCurveDrawSegments uint

	// ToneCurveLUTSize is the sample count of the tone curve's fast LUT
	// (spec §4.5).
	ToneCurveLUTSize int

	// LRCmdBatchSizeMPixIters is a GPU backend knob; 0 means unset (spec
	// §6: default "—").
	LRCmdBatchSizeMPixIters float64

	// NormalizeFITSValues enables normalizing FITS float samples whose
	// max exceeds 1 down to [0,1] on load (spec §6).
	NormalizeFITSValues bool

	DisplayScalingMethod DisplayScalingMethod
	ProcessingBackend    ProcessingBackend

	// FileOutputFormat is the batch runner's default output pixel format
	// when none is specified per-job.
	FileOutputFormat imgbuf.PixelFormat

	// Logger must be set; config.Default supplies a discard logger.
	Logger logging.Logger
}

// Default returns a Config with every documented default applied (spec
// §6 defaults in brackets).
func Default(log logging.Logger) Config {
	if log == nil {
		log = discardLogger{}
	}
	c := Config{
		Logger:              log,
		NormalizeFITSValues: defaultNormalizeFITSValues,
		FileOutputFormat:    defaultFileOutputFormat,
	}
	c.Validate()
	return c
}

// Validate fills in defaults for unset or out-of-range fields, logging
// each correction via LogInvalidField, mirroring
// revid/config/config.go's Validate loop over Variables.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// FromMap parses string-valued configuration variables into c, the way
// revid/config/config.go's Update applies a netsender var map.
func (c *Config) FromMap(vars map[string]string) {
	for _, v := range Variables {
		if s, ok := vars[v.Name]; ok && v.Update != nil {
			v.Update(c, s)
		}
	}
}

// LogInvalidField reports that a field was missing or out of range and
// the default value substituted, matching
// revid/config/config.go:LogInvalidField's call shape.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

type discardLogger struct{}

func (discardLogger) Log(int8, string, ...interface{}) {}
func (discardLogger) SetLevel(int8)                    {}
func (discardLogger) Debug(string, ...interface{})     {}
func (discardLogger) Info(string, ...interface{})      {}
func (discardLogger) Warning(string, ...interface{})   {}
func (discardLogger) Error(string, ...interface{})     {}
func (discardLogger) Fatal(string, ...interface{})     {}
