package upload

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"domex/api/internal/registryclient"
)

// State is a step of the upload state machine. Idle and Validating are passed
// inside Upload before a Task exists, so a Task is first seen in Transferring.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateTransferring
	StateFinalizing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateTransferring:
		return "transferring"
	case StateFinalizing:
		return "finalizing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Result is what a successful upload resolves to: the registry acknowledgement
// together with the metadata that was submitted.
type Result struct {
	Registration registryclient.CreateResult
	Payload      registryclient.FilePayload
}

// Task is one upload in flight.
//
// Progress yields percentages in [0,100], never decreasing, and is closed when the
// transfer ends. Only the latest value is buffered, so a slow reader skips
// intermediate values rather than stalling the transfer.
type Task struct {
	state    atomic.Int32
	percent  atomic.Uint64 // math.Float64bits
	progress chan float64
	done     chan struct{}
	cancel   context.CancelFunc

	closeOnce sync.Once
	last      float64 // producer-side only

	result *Result
	err    error
}

func newTask(cancel context.CancelFunc) *Task {
	t := &Task{
		progress: make(chan float64, 1),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	t.state.Store(int32(StateTransferring))
	return t
}

// Progress returns the progress stream. It can be consumed once.
func (t *Task) Progress() <-chan float64 {
	return t.progress
}

// Percent is the current progress. It goes back to 0 once the upload succeeds.
func (t *Task) Percent() float64 {
	return math.Float64frombits(t.percent.Load())
}

// State returns the current state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Done is closed when the task reaches Succeeded or Failed, before any
// completion callback runs.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel aborts the transfer. A task that already finished is unaffected.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes.
func (t *Task) Wait() (*Result, error) {
	<-t.done
	return t.result, t.err
}

func (t *Task) setState(s State) {
	t.state.Store(int32(s))
}

func (t *Task) report(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	if p < t.last {
		return
	}
	t.last = p
	t.percent.Store(math.Float64bits(p))

	// Replace any unread value; we are the only sender so the send cannot block.
	select {
	case <-t.progress:
	default:
	}
	t.progress <- p
}

func (t *Task) closeProgress() {
	t.closeOnce.Do(func() { close(t.progress) })
}
