package config

import (
	"strconv"

	"github.com/go-imppg/imppg/imgbuf"
)

// Config map Keys (spec §6's recognized configuration option names).
const (
	KeyMaxProcessingRequestsPerSec = "max_processing_requests_per_sec"
	KeyNumToneCurveDrawSegments    = "num_tone_curve_draw_segments"
	KeyToneCurveLUTSize            = "tone_curve_lut_size"
	KeyLRCmdBatchSizeMPixIters     = "lr_cmd_batch_size_mpix_iters"
	KeyNormalizeFITSValues         = "normalize_fits_values"
	KeyDisplayScalingMethod        = "display_scaling_method"
	KeyProcessingBackEnd           = "processing_back_end"
	KeyFileOutputFormat            = "file_output_format"
)

// Default variable values (spec §6 defaults in brackets).
const (
	defaultMaxProcessingRequestsPerSec = 30
	defaultNumToneCurveDrawSegments    = 512
	defaultToneCurveLUTSize            = 1024
	defaultNormalizeFITSValues         = true
	defaultDisplayScalingMethod        = Cubic
	defaultProcessingBackEnd           = CpuBmp
	defaultFileOutputFormat            = imgbuf.Mono8
)

// Variables describes every recognized configuration option: its name,
// a function to update a Config field from its string form, and a
// function to validate/default the field, mirroring
// revid/config/variables.go's Variables slice.
var Variables = []struct {
	Name     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name: KeyMaxProcessingRequestsPerSec,
		Update: func(c *Config, v string) {
			c.MaxProcessingRequestsPerSec = parseUint(KeyMaxProcessingRequestsPerSec, v, c)
		},
		Validate: func(c *Config) {
			if c.MaxProcessingRequestsPerSec == 0 {
				c.LogInvalidField(KeyMaxProcessingRequestsPerSec, defaultMaxProcessingRequestsPerSec)
				c.MaxProcessingRequestsPerSec = defaultMaxProcessingRequestsPerSec
			}
		},
	},
	{
		Name: KeyNumToneCurveDrawSegments,
		Update: func(c *Config, v string) {
			c.NumToneCurveDrawSegments = parseUint(KeyNumToneCurveDrawSegments, v, c)
		},
		Validate: func(c *Config) {
			if c.NumToneCurveDrawSegments == 0 {
				c.LogInvalidField(KeyNumToneCurveDrawSegments, defaultNumToneCurveDrawSegments)
				c.NumToneCurveDrawSegments = defaultNumToneCurveDrawSegments
			}
		},
	},
	{
		Name: KeyToneCurveLUTSize,
		Update: func(c *Config, v string) {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.Logger.Warning("invalid "+KeyToneCurveLUTSize+" param", "value", v)
				return
			}
			c.ToneCurveLUTSize = n
		},
		Validate: func(c *Config) {
			if c.ToneCurveLUTSize <= 0 {
				c.LogInvalidField(KeyToneCurveLUTSize, defaultToneCurveLUTSize)
				c.ToneCurveLUTSize = defaultToneCurveLUTSize
			}
		},
	},
	{
		Name: KeyLRCmdBatchSizeMPixIters,
		Update: func(c *Config, v string) {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				c.Logger.Warning("invalid "+KeyLRCmdBatchSizeMPixIters+" param", "value", v)
				return
			}
			c.LRCmdBatchSizeMPixIters = f
		},
		// No Validate: 0 ("unset") is itself the documented default.
	},
	{
		Name: KeyNormalizeFITSValues,
		Update: func(c *Config, v string) {
			c.NormalizeFITSValues = parseBool(KeyNormalizeFITSValues, v, c)
		},
	},
	{
		Name: KeyDisplayScalingMethod,
		Update: func(c *Config, v string) {
			m, ok := map[string]DisplayScalingMethod{"Nearest": Nearest, "Linear": Linear, "Cubic": Cubic}[v]
			if !ok {
				c.Logger.Warning("invalid "+KeyDisplayScalingMethod+" param", "value", v)
				return
			}
			c.DisplayScalingMethod = m
		},
		Validate: func(c *Config) {
			if c.DisplayScalingMethod < Nearest || c.DisplayScalingMethod > Cubic {
				c.LogInvalidField(KeyDisplayScalingMethod, defaultDisplayScalingMethod)
				c.DisplayScalingMethod = defaultDisplayScalingMethod
			}
		},
	},
	{
		Name: KeyProcessingBackEnd,
		Update: func(c *Config, v string) {
			m, ok := map[string]ProcessingBackend{"CpuBmp": CpuBmp, "OpenGl": OpenGl}[v]
			if !ok {
				c.Logger.Warning("invalid "+KeyProcessingBackEnd+" param", "value", v)
				return
			}
			c.ProcessingBackend = m
		},
		Validate: func(c *Config) {
			if c.ProcessingBackend < CpuBmp || c.ProcessingBackend > OpenGl {
				c.LogInvalidField(KeyProcessingBackEnd, defaultProcessingBackEnd)
				c.ProcessingBackend = defaultProcessingBackEnd
			}
		},
	},
	{
		Name: KeyFileOutputFormat,
		Update: func(c *Config, v string) {
			m, ok := map[string]imgbuf.PixelFormat{
				"BMP8": imgbuf.Mono8, "PNG8": imgbuf.Mono8,
				"TIFF8": imgbuf.Mono8, "TIFF16": imgbuf.Mono16, "TIFF32F": imgbuf.Mono32F,
				"FITS8": imgbuf.Mono8, "FITS16": imgbuf.Mono16, "FITS32F": imgbuf.Mono32F,
			}[v]
			if !ok {
				c.Logger.Warning("invalid "+KeyFileOutputFormat+" param", "value", v)
				return
			}
			c.FileOutputFormat = m
		},
		// No range check: any imgbuf.PixelFormat the zero value resolves
		// to (Mono8) is already a valid default.
	},
}

func parseUint(n, v string, c *Config) uint {
	i, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning("expected unsigned int for param "+n, "value", v)
		return 0
	}
	return uint(i)
}

func parseBool(n, v string, c *Config) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		c.Logger.Warning("expected bool for param "+n, "value", v)
		return false
	}
	return b
}
