// Package worker implements the background-task runtime (spec §4.7): one
// worker at a time, cooperative cancellation checked only at the
// documented suspension points, and thread-id based discard of stale
// completion events (spec §5).
package worker

import (
	"context"
	"sync"
)

// Task is the immutable-after-spawn handle a worker function receives.
// Its cancellation is modeled as a context.Context, the idiomatic Go
// realization of spec §4.7's "cooperative cancellation flag": Abort
// cancels the context and returns immediately; the worker only observes
// it at its own suspension points (iteration/row/pass/file boundaries).
type Task struct {
	ID       TaskID
	ThreadID ThreadID

	ctx    context.Context
	cancel context.CancelFunc
	events chan<- Event
}

// Context is checked by the worker at its suspension points via
// ctx.Done(), never polled anywhere else (spec §5).
func (t *Task) Context() context.Context { return t.ctx }

// Progress emits a ProcessingProgress event.
func (t *Task) Progress(percent float64) {
	t.send(ProcessingProgress{TaskID: t.ID, Percent: percent})
}

// Finish emits the terminal ProcessingFinished event for this task.
func (t *Task) Finish(status CompletionStatus, err error) {
	t.send(ProcessingFinished{TaskID: t.ID, ThreadID: t.ThreadID, Status: status, Err: err})
}

// Event emits an arbitrary event (used by the alignment engine for its
// richer event vocabulary).
func (t *Task) Event(e Event) { t.send(e) }

// send delivers e on the event channel, blocking while the channel is
// full, so no event (in particular the terminal ProcessingFinished) is
// lost.
func (t *Task) send(e Event) {
	t.events <- e
}

// Runtime runs at most one task at a time (spec §5 "Threading model").
// The mutex here is the single critical section the spec requires: held
// only for the handle assignment on spawn and the nulling on exit (spec
// §5 "Locking discipline").
type Runtime struct {
	mu           sync.Mutex
	current      *Task
	nextThreadID ThreadID
	events       chan Event
}

// NewRuntime creates a runtime whose event channel has the given buffer
// size.
func NewRuntime(bufSize int) *Runtime {
	return &Runtime{events: make(chan Event, bufSize)}
}

// Events returns the channel the coordinator consumes.
func (r *Runtime) Events() <-chan Event { return r.events }

// Spawn starts fn in a new goroutine as the current task, allocating the
// next ThreadID. The caller is responsible for aborting any
// still-running prior task first if exclusivity is required; Runtime
// itself only tracks the handle, per spec §5's "no coarse locks on image
// memory" — ownership and buffer lifetime are the coordinator's job.
func (r *Runtime) Spawn(fn func(t *Task)) *Task {
	r.mu.Lock()
	r.nextThreadID++
	id := r.nextThreadID
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{ID: TaskID(id), ThreadID: ThreadID(id), ctx: ctx, cancel: cancel, events: r.events}
	r.current = task
	r.mu.Unlock()

	go func() {
		fn(task)
		r.mu.Lock()
		if r.current == task {
			r.current = nil
		}
		r.mu.Unlock()
	}()
	return task
}

// Abort cancels the current task's context, if any, and returns
// immediately without waiting for the worker to observe it (spec §4.7
// "abort() returns immediately").
func (r *Runtime) Abort() {
	r.mu.Lock()
	t := r.current
	r.mu.Unlock()
	if t != nil {
		t.cancel()
	}
}

// Busy reports whether a task is currently running.
func (r *Runtime) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// LatestThreadID returns the ThreadID of the most recently spawned task,
// spawned or not still running. The coordinator compares this against an
// event's ThreadID to discard stale events (spec §5).
func (r *Runtime) LatestThreadID() ThreadID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextThreadID
}
