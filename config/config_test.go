package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-imppg/imppg/imgbuf"
)

func TestValidateFillsDefaults(t *testing.T) {
	c := Config{Logger: discardLogger{}}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := Config{
		Logger:                      c.Logger,
		MaxProcessingRequestsPerSec: defaultMaxProcessingRequestsPerSec,
		NumToneCurveDrawSegments:    defaultNumToneCurveDrawSegments,
		ToneCurveLUTSize:            defaultToneCurveLUTSize,
		DisplayScalingMethod:        defaultDisplayScalingMethod,
		ProcessingBackend:           defaultProcessingBackEnd,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("Validate() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateLeavesGoodValuesUntouched(t *testing.T) {
	c := Config{
		Logger:                      discardLogger{},
		MaxProcessingRequestsPerSec: 5,
		NumToneCurveDrawSegments:    256,
		ToneCurveLUTSize:            2048,
		DisplayScalingMethod:        Linear,
		ProcessingBackend:           OpenGl,
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.MaxProcessingRequestsPerSec != 5 {
		t.Errorf("MaxProcessingRequestsPerSec = %d, want 5", c.MaxProcessingRequestsPerSec)
	}
	if c.ToneCurveLUTSize != 2048 {
		t.Errorf("ToneCurveLUTSize = %d, want 2048", c.ToneCurveLUTSize)
	}
	if c.DisplayScalingMethod != Linear {
		t.Errorf("DisplayScalingMethod = %v, want Linear", c.DisplayScalingMethod)
	}
	if c.ProcessingBackend != OpenGl {
		t.Errorf("ProcessingBackend = %v, want OpenGl", c.ProcessingBackend)
	}
}

func TestFromMapParsesRecognizedVariables(t *testing.T) {
	c := Config{Logger: discardLogger{}}
	c.FromMap(map[string]string{
		KeyMaxProcessingRequestsPerSec: "10",
		KeyToneCurveLUTSize:            "2048",
		KeyNormalizeFITSValues:         "false",
		KeyDisplayScalingMethod:        "Linear",
		KeyProcessingBackEnd:           "OpenGl",
		KeyFileOutputFormat:            "TIFF16",
		"not_a_recognized_key":         "ignored",
	})

	if c.MaxProcessingRequestsPerSec != 10 {
		t.Errorf("MaxProcessingRequestsPerSec = %d, want 10", c.MaxProcessingRequestsPerSec)
	}
	if c.ToneCurveLUTSize != 2048 {
		t.Errorf("ToneCurveLUTSize = %d, want 2048", c.ToneCurveLUTSize)
	}
	if c.NormalizeFITSValues {
		t.Errorf("NormalizeFITSValues = true, want false")
	}
	if c.DisplayScalingMethod != Linear {
		t.Errorf("DisplayScalingMethod = %v, want Linear", c.DisplayScalingMethod)
	}
	if c.ProcessingBackend != OpenGl {
		t.Errorf("ProcessingBackend = %v, want OpenGl", c.ProcessingBackend)
	}
	if c.FileOutputFormat != imgbuf.Mono16 {
		t.Errorf("FileOutputFormat = %v, want Mono16", c.FileOutputFormat)
	}
}

func TestFromMapIgnoresMalformedValue(t *testing.T) {
	c := Config{Logger: discardLogger{}, ToneCurveLUTSize: 999}
	c.FromMap(map[string]string{KeyToneCurveLUTSize: "not-a-number"})
	if c.ToneCurveLUTSize != 999 {
		t.Errorf("ToneCurveLUTSize = %d, want unchanged 999", c.ToneCurveLUTSize)
	}
}

func TestDefaultAppliesSpecDefaults(t *testing.T) {
	c := Default(nil)
	if c.Logger == nil {
		t.Fatal("Default(nil) left Logger nil")
	}
	if !c.NormalizeFITSValues {
		t.Errorf("NormalizeFITSValues = false, want true")
	}
	if c.MaxProcessingRequestsPerSec != defaultMaxProcessingRequestsPerSec {
		t.Errorf("MaxProcessingRequestsPerSec = %d, want %d", c.MaxProcessingRequestsPerSec, defaultMaxProcessingRequestsPerSec)
	}
}
