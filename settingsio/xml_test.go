package settingsio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-imppg/imppg/lrdeconv"
	"github.com/go-imppg/imppg/pipeline"
	"github.com/go-imppg/imppg/tonecurve"
	"github.com/go-imppg/imppg/unsharp"
)

func sampleSettings() pipeline.Settings {
	c := tonecurve.NewIdentity()
	c.AddPoint(0.5, 0.75)
	c.SetSmooth(true)
	return pipeline.Settings{
		Normalization: pipeline.Normalization{Enabled: true, Min: 0.1, Max: 0.9},
		LR:            lrdeconv.Params{Sigma: 1.5, Iterations: 40},
		Unsharp: []unsharp.Params{
			{Adaptive: false, Sigma: 2, AmountMax: 1.8},
			{Adaptive: true, Sigma: 4, AmountMin: 1, AmountMax: 2.5, Threshold: 0.05, Width: 0.02},
		},
		ToneCurve: c,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.xml")
	want := sampleSettings()

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path, pipeline.Settings{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.LR.Sigma != want.LR.Sigma || got.LR.Iterations != want.LR.Iterations {
		t.Errorf("LR = %+v, want %+v", got.LR, want.LR)
	}
	if len(got.Unsharp) != len(want.Unsharp) {
		t.Fatalf("len(Unsharp) = %d, want %d", len(got.Unsharp), len(want.Unsharp))
	}
	for i := range want.Unsharp {
		if got.Unsharp[i] != want.Unsharp[i] {
			t.Errorf("Unsharp[%d] = %+v, want %+v", i, got.Unsharp[i], want.Unsharp[i])
		}
	}
	if got.Normalization != want.Normalization {
		t.Errorf("Normalization = %+v, want %+v", got.Normalization, want.Normalization)
	}
	if got.ToneCurve.Smooth() != want.ToneCurve.Smooth() {
		t.Errorf("ToneCurve.Smooth() = %v, want %v", got.ToneCurve.Smooth(), want.ToneCurve.Smooth())
	}
	wantPts, gotPts := want.ToneCurve.Points(), got.ToneCurve.Points()
	if len(wantPts) != len(gotPts) {
		t.Fatalf("len(Points) = %d, want %d", len(gotPts), len(wantPts))
	}
	for i := range wantPts {
		if diff := gotPts[i].X - wantPts[i].X; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("Points[%d].X = %v, want %v", i, gotPts[i].X, wantPts[i].X)
		}
	}
}

func TestLoadMissingElementLeavesCurrentUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.xml")
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<imppg>
  <lucy-richardson sigma="2.0000" iterations="70" deringing="false"/>
</imppg>
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	current := sampleSettings()
	got, err := Load(path, current)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.LR.Sigma != 2.0 || got.LR.Iterations != 70 {
		t.Errorf("LR = %+v, want sigma=2.0 iterations=70", got.LR)
	}
	if len(got.Unsharp) != len(current.Unsharp) {
		t.Errorf("Unsharp passes were touched despite absent element: got %+v", got.Unsharp)
	}
	if got.Normalization != current.Normalization {
		t.Errorf("Normalization was touched despite absent element: got %+v", got.Normalization)
	}
}

func TestLoadUnknownElementIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unknown.xml")
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<imppg>
  <some_future_feature enabled="true"/>
  <normalization enabled="true" min="0.0000" max="1.0000"/>
</imppg>
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path, pipeline.Settings{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !got.Normalization.Enabled || got.Normalization.Min != 0 || got.Normalization.Max != 1 {
		t.Errorf("Normalization = %+v, want enabled min=0 max=1", got.Normalization)
	}
}

func TestLoadMalformedDocumentReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	if err := os.WriteFile(path, []byte("not xml at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	current := sampleSettings()
	got, err := Load(path, current)
	if err == nil {
		t.Fatal("Load: want error for malformed document")
	}
	if got.LR.Sigma != current.LR.Sigma {
		t.Errorf("Load returned mutated settings on error: %+v", got)
	}
}
