package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/go-imppg/imppg/imgbuf"
	"github.com/go-imppg/imppg/lrdeconv"
	"github.com/go-imppg/imppg/pipeline"
	"github.com/go-imppg/imppg/tonecurve"
	"github.com/go-imppg/imppg/unsharp"
	"github.com/go-imppg/imppg/worker"
)

func noOpSettings() pipeline.Settings {
	return pipeline.Settings{
		LR:        lrdeconv.Params{Iterations: 0},
		Unsharp:   []unsharp.Params{{Sigma: 1, AmountMax: 1}},
		ToneCurve: tonecurve.NewIdentity(),
	}
}

func newTestCoordinator(w, h int) (*Coordinator, *pipeline.Pipeline) {
	plane := imgbuf.NewFloatPlane(w, h)
	plane.Fill(0.5)
	p := pipeline.New(plane, noOpSettings())
	rt := worker.NewRuntime(64)
	return New(p, rt, nil), p
}

// drain runs the coordinator's event consumer loop in the background
// until the returned stop func is called.
func drain(c *Coordinator) (stop func()) {
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-quit:
				return
			case e := <-c.rt.Events():
				c.HandleEvent(e)
			}
		}
	}()
	return func() {
		close(quit)
		wg.Wait()
	}
}

func TestRequestRunsStageAndCallsCompletion(t *testing.T) {
	c, _ := newTestCoordinator(4, 4)
	var got pipeline.Stage
	var calls int
	done := make(chan struct{})
	c.OnStageComplete(func(stage pipeline.Stage, _ *imgbuf.FloatPlane) {
		got = stage
		calls++
		close(done)
	})
	stop := drain(c)
	defer stop()

	c.Request(pipeline.ToneCurve)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stage completion")
	}
	if got != pipeline.ToneCurve {
		t.Errorf("stage = %v, want ToneCurve", got)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSetSelectionInvalidatesAndRequestsSharpening(t *testing.T) {
	c, p := newTestCoordinator(10, 10)
	done := make(chan pipeline.Stage, 1)
	c.OnStageComplete(func(stage pipeline.Stage, _ *imgbuf.FloatPlane) {
		done <- stage
	})
	stop := drain(c)
	defer stop()

	if err := c.SetSelection(imgbuf.Rect{X: 1, Y: 1, W: 5, H: 5}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}

	select {
	case stage := <-done:
		if stage != pipeline.Sharpening {
			t.Errorf("stage = %v, want Sharpening", stage)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if p.Selection().W != 5 {
		t.Errorf("selection width = %d, want 5", p.Selection().W)
	}
}

func TestRequestSaveEnlargesSelectionAndUsesPreciseToneCurve(t *testing.T) {
	c, p := newTestCoordinator(10, 10)
	if err := p.SetSelection(imgbuf.Rect{X: 0, Y: 0, W: 4, H: 4}); err != nil {
		t.Fatalf("SetSelection: %v", err)
	}

	saveDone := make(chan error, 1)
	c.OnSaveComplete(func(_ *imgbuf.FloatPlane, err error) {
		saveDone <- err
	})
	stop := drain(c)
	defer stop()

	path := t.TempDir() + "/settings.xml"
	c.RequestSave(path)

	select {
	case err := <-saveDone:
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for save")
	}

	if p.Selection() != p.Bounds() {
		t.Errorf("selection = %+v, want full bounds %+v", p.Selection(), p.Bounds())
	}
}

// TestRequestWhileBusyDefersRestart exercises the pending_restart path: a
// second Request arriving while the first is still running must not be
// dropped, and must eventually run to completion once the first worker
// is aborted (spec §4.6 "Concurrency contract").
func TestRequestWhileBusyDefersRestart(t *testing.T) {
	c, _ := newTestCoordinator(4, 4)
	var calls int
	done := make(chan struct{})
	c.OnStageComplete(func(stage pipeline.Stage, _ *imgbuf.FloatPlane) {
		calls++
		if stage == pipeline.ToneCurve {
			close(done)
		}
	})
	stop := drain(c)
	defer stop()

	c.Request(pipeline.Sharpening)
	c.Request(pipeline.ToneCurve) // arrives while the first may still be running.

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deferred restart to complete")
	}
	if calls == 0 {
		t.Errorf("expected at least one stage completion")
	}
}
