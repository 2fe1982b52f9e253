package lrdeconv

import (
	"context"
	"testing"

	"github.com/go-imppg/imppg/imgbuf"
)

func uniformPlane(w, h int, v float32) *imgbuf.FloatPlane {
	p := imgbuf.NewFloatPlane(w, h)
	p.Fill(v)
	return p
}

func TestRunZeroIterationsReturnsInputUnchanged(t *testing.T) {
	src := uniformPlane(8, 8, 0.42)
	src.Set(3, 3, 0.9)

	for _, sigma := range []float64{0.1, 1, 10} {
		out, err := Run(context.Background(), src, Params{Sigma: sigma, Iterations: 0}, nil)
		if err != nil {
			t.Fatalf("sigma=%v: Run: %v", sigma, err)
		}
		for y := 0; y < 8; y++ {
			srcRow, outRow := src.Row(y), out.Row(y)
			for x := range srcRow {
				if srcRow[x] != outRow[x] {
					t.Errorf("sigma=%v: (%d,%d) = %v, want unchanged %v", sigma, x, y, outRow[x], srcRow[x])
				}
			}
		}
		if out == src {
			t.Errorf("sigma=%v: Run returned the same plane instead of a copy", sigma)
		}
	}
}

func TestRunCancellationStopsBetweenIterations(t *testing.T) {
	src := uniformPlane(16, 16, 0.5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, src, Params{Sigma: 2, Iterations: 100}, nil)
	if err == nil {
		t.Fatal("Run: want error for a pre-cancelled context")
	}
}

func TestRunProgressReachesCompletion(t *testing.T) {
	src := uniformPlane(8, 8, 0.4)
	var last float64
	_, err := Run(context.Background(), src, Params{Sigma: 1, Iterations: 5}, func(percent float64) {
		last = percent
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last != 100 {
		t.Errorf("final progress = %v, want 100", last)
	}
}

func TestRunResultStaysClamped(t *testing.T) {
	src := imgbuf.NewFloatPlane(4, 4)
	src.Fill(0.1)
	src.Set(0, 0, 1.0)
	out, err := Run(context.Background(), src, Params{Sigma: 1.5, Iterations: 10}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for y := 0; y < 4; y++ {
		for _, v := range out.Row(y) {
			if v < 0 || v > 1 {
				t.Errorf("(%d) = %v, want in [0,1]", y, v)
			}
		}
	}
}
