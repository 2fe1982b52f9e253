package pipeline

import (
	"context"
	"testing"

	"github.com/go-imppg/imppg/imgbuf"
	"github.com/go-imppg/imppg/lrdeconv"
	"github.com/go-imppg/imppg/unsharp"
)

func uniformSource(w, h int, v float32) *imgbuf.FloatPlane {
	p := imgbuf.NewFloatPlane(w, h)
	p.Fill(v)
	return p
}

func neutralSettings() Settings {
	return Settings{
		LR:      lrdeconv.Params{Sigma: 1, Iterations: 0},
		Unsharp: []unsharp.Params{{Adaptive: false, AmountMax: 1, Sigma: 1}},
	}
}

func TestNewPipelineStartsWithAnInvalidCache(t *testing.T) {
	p := New(uniformSource(8, 8, 0.5), neutralSettings())
	for s := Sharpening; s <= ToneCurve; s++ {
		if p.Valid(s) {
			t.Errorf("stage %v valid before any RunStage call", s)
		}
	}
}

func TestPromoteWalksBackToEarliestInvalidStage(t *testing.T) {
	p := New(uniformSource(8, 8, 0.5), neutralSettings())
	if got := p.Promote(ToneCurve); got != Sharpening {
		t.Errorf("Promote(ToneCurve) = %v, want Sharpening when nothing is cached", got)
	}

	if err := p.RunStage(context.Background(), Sharpening, nil); err != nil {
		t.Fatalf("RunStage(Sharpening): %v", err)
	}
	if got := p.Promote(ToneCurve); got != UnsharpMasking {
		t.Errorf("Promote(ToneCurve) = %v, want UnsharpMasking once Sharpening is valid", got)
	}
}

func TestRunRequestChainsThroughEveryStage(t *testing.T) {
	p := New(uniformSource(16, 16, 0.3), neutralSettings())
	var ran []Stage
	err := p.RunRequest(context.Background(), ToneCurve, func(s Stage, pct float64) {
		if len(ran) == 0 || ran[len(ran)-1] != s {
			ran = append(ran, s)
		}
	})
	if err != nil {
		t.Fatalf("RunRequest: %v", err)
	}
	want := []Stage{Sharpening, UnsharpMasking, ToneCurve}
	if len(ran) != len(want) {
		t.Fatalf("stages run = %v, want %v", ran, want)
	}
	for i, s := range want {
		if ran[i] != s {
			t.Errorf("stage %d = %v, want %v", i, ran[i], s)
		}
	}
	for s := Sharpening; s <= ToneCurve; s++ {
		if !p.Valid(s) {
			t.Errorf("stage %v not valid after RunRequest(ToneCurve)", s)
		}
	}
}

func TestSetSelectionInvalidatesEveryStage(t *testing.T) {
	p := New(uniformSource(16, 16, 0.3), neutralSettings())
	if err := p.RunRequest(context.Background(), ToneCurve, nil); err != nil {
		t.Fatalf("RunRequest: %v", err)
	}
	if err := p.SetSelection(imgbuf.Rect{X: 0, Y: 0, W: 8, H: 8}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}
	for s := Sharpening; s <= ToneCurve; s++ {
		if p.Valid(s) {
			t.Errorf("stage %v still valid after SetSelection", s)
		}
	}
}

func TestSetSelectionOutOfBoundsErrors(t *testing.T) {
	p := New(uniformSource(8, 8, 0.3), neutralSettings())
	if err := p.SetSelection(imgbuf.Rect{X: 0, Y: 0, W: 100, H: 100}); err == nil {
		t.Fatal("SetSelection: want error for an out-of-bounds rectangle")
	}
}

func TestSetToneCurveOnlyInvalidatesToneCurve(t *testing.T) {
	p := New(uniformSource(8, 8, 0.3), neutralSettings())
	if err := p.RunRequest(context.Background(), ToneCurve, nil); err != nil {
		t.Fatalf("RunRequest: %v", err)
	}
	p.SetToneCurve(nil)
	if !p.Valid(Sharpening) || !p.Valid(UnsharpMasking) {
		t.Error("SetToneCurve invalidated an earlier stage")
	}
	if p.Valid(ToneCurve) {
		t.Error("SetToneCurve did not invalidate ToneCurve")
	}
}

func TestResultReturnsDeepestValidStage(t *testing.T) {
	p := New(uniformSource(8, 8, 0.3), neutralSettings())
	if _, _, ok := p.Result(); ok {
		t.Fatal("Result: want ok=false before any stage has run")
	}
	if err := p.RunStage(context.Background(), Sharpening, nil); err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	_, stage, ok := p.Result()
	if !ok || stage != Sharpening {
		t.Errorf("Result = (_, %v, %v), want (_, Sharpening, true)", stage, ok)
	}
}

func TestHistogramReflectsDeepestCachedStage(t *testing.T) {
	p := New(uniformSource(8, 8, 0.25), neutralSettings())
	if _, ok := p.Histogram(64); ok {
		t.Fatal("Histogram: want ok=false before any stage has run")
	}
	if err := p.RunStage(context.Background(), Sharpening, nil); err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	h, ok := p.Histogram(64)
	if !ok {
		t.Fatal("Histogram: want ok=true once Sharpening is valid")
	}
	if h.Min != 0.25 || h.Max != 0.25 {
		t.Errorf("histogram min,max = %v,%v, want 0.25,0.25 for a uniform plane", h.Min, h.Max)
	}
}
