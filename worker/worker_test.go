package worker

import (
	"testing"
	"time"
)

func drain(t *testing.T, r *Runtime, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case e := <-r.Events():
			events = append(events, e)
		case <-deadline:
			return events
		}
	}
}

func TestRuntimeSingleWorkerAtATime(t *testing.T) {
	r := NewRuntime(16)
	started := make(chan struct{})
	release := make(chan struct{})

	r.Spawn(func(task *Task) {
		close(started)
		<-release
		task.Finish(Completed, nil)
	})
	<-started

	if !r.Busy() {
		t.Fatal("Busy() = false while a task is running")
	}
	close(release)

	deadline := time.After(time.Second)
	for r.Busy() {
		select {
		case <-deadline:
			t.Fatal("task never became idle")
		default:
		}
	}
}

func TestLatestThreadIDDiscardsStaleCompletion(t *testing.T) {
	r := NewRuntime(16)

	first := r.Spawn(func(task *Task) {
		task.Finish(Completed, nil)
	})
	<-r.Events()

	second := r.Spawn(func(task *Task) {
		task.Finish(Completed, nil)
	})
	<-r.Events()

	if first.ThreadID == second.ThreadID {
		t.Fatal("successive Spawn calls produced the same ThreadID")
	}
	if r.LatestThreadID() != second.ThreadID {
		t.Errorf("LatestThreadID() = %v, want %v", r.LatestThreadID(), second.ThreadID)
	}
	// A coordinator sees first.ThreadID < LatestThreadID() and discards
	// any further event carrying it as stale.
	if first.ThreadID >= r.LatestThreadID() {
		t.Errorf("stale ThreadID %v not less than latest %v", first.ThreadID, r.LatestThreadID())
	}
}

func TestAbortStopsAtNextSuspensionPointWithNoFurtherProgress(t *testing.T) {
	r := NewRuntime(16)
	reachedLoop := make(chan struct{})

	task := r.Spawn(func(task *Task) {
		close(reachedLoop)
		for i := 0; i < 1000; i++ {
			select {
			case <-task.Context().Done():
				task.Finish(Aborted, nil)
				return
			default:
			}
			task.Progress(float64(i))
		}
		task.Finish(Completed, nil)
	})
	<-reachedLoop
	r.Abort()

	events := drain(t, r, 500*time.Millisecond)
	if len(events) == 0 {
		t.Fatal("no events observed after abort")
	}

	finishIdx := -1
	for i, e := range events {
		if f, ok := e.(ProcessingFinished); ok {
			finishIdx = i
			if f.Status != Aborted {
				t.Errorf("Finish status = %v, want Aborted", f.Status)
			}
			break
		}
	}
	if finishIdx == -1 {
		t.Fatal("no ProcessingFinished event observed")
	}
	for _, e := range events[finishIdx+1:] {
		if _, ok := e.(ProcessingProgress); ok {
			t.Error("Progress event observed after ProcessingFinished")
		}
	}
	_ = task
}
