package modal

import (
	"context"
	"errors"
	"sync"

	"github.com/shopneo/console/internal/core/mutation"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/transport"
)

var (
	ErrNotOpen    = errors.New("no record is open for editing")
	ErrSubmitting = errors.New("a submission is already in flight")
)

type State string

const (
	StateClosed     State = "closed"
	StateOpen       State = "open"
	StateSubmitting State = "submitting"
)

type Submitter interface {
	Submit(ctx context.Context, key resource.Key, form *mutation.FormState) mutation.Outcome
}

// Snapshot is a copy of the workflow safe to hand to a renderer.
type Snapshot struct {
	State  State               `json:"state"`
	Key    resource.Key        `json:"key"`
	Form   *mutation.FormState `json:"form,omitempty"`
	Reason string              `json:"reason,omitempty"`
	Fields map[string]string   `json:"fields,omitempty"`
}

// Workflow edits one record at a time in an overlay:
// Closed -> Open -> Submitting -> Closed, or back to Open on failure.
type Workflow struct {
	def       *resource.Definition
	submitter Submitter
	onSuccess func(context.Context, mutation.Outcome)

	mu      sync.Mutex
	state   State
	key     resource.Key
	form    *mutation.FormState
	failure *mutation.Outcome
	// bumped on every open and close so a late submission can tell it lost the modal
	generation uint64
}

func NewWorkflow(def *resource.Definition, submitter Submitter, onSuccess func(context.Context, mutation.Outcome)) *Workflow {
	return &Workflow{
		def:       def,
		submitter: submitter,
		onSuccess: onSuccess,
		state:     StateClosed,
	}
}

// Open prefills the form from rec, closing whatever was open before.
func (w *Workflow) Open(rec resource.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
	w.generation++
	w.state = StateOpen
	w.key = rec.Key()
	w.form = mutation.Decode(w.def, rec)
}

// Close discards all edits. It is allowed from any state.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Workflow) closeLocked() {
	if w.state == StateClosed {
		return
	}
	w.generation++
	w.state = StateClosed
	w.key = resource.Key{}
	w.form = nil
	w.failure = nil
}

func (w *Workflow) edit(fn func(*mutation.FormState)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateClosed:
		return ErrNotOpen
	case StateSubmitting:
		return ErrSubmitting
	}
	fn(w.form)
	return nil
}

func (w *Workflow) Set(field, value string) error {
	return w.edit(func(f *mutation.FormState) { f.Set(field, value) })
}

func (w *Workflow) SetList(field string, values []string) error {
	return w.edit(func(f *mutation.FormState) { f.SetList(field, values) })
}

func (w *Workflow) AddFile(field string, file *transport.File) error {
	return w.edit(func(f *mutation.FormState) { f.AddFile(field, file) })
}

// Submit hands the form to the pipeline. Success closes the modal and runs the
// refresh callback; failure reopens it with the reason. If the modal was
// closed or reopened meanwhile its state is left alone, though a success
// still triggers the refresh.
func (w *Workflow) Submit(ctx context.Context) (mutation.Outcome, error) {
	w.mu.Lock()
	switch w.state {
	case StateClosed:
		w.mu.Unlock()
		return mutation.Outcome{}, ErrNotOpen
	case StateSubmitting:
		w.mu.Unlock()
		return mutation.Outcome{}, ErrSubmitting
	}
	w.state = StateSubmitting
	w.failure = nil
	gen := w.generation
	key := w.key
	form := w.form.Clone()
	w.mu.Unlock()

	out := w.submitter.Submit(ctx, key, form)

	w.mu.Lock()
	current := w.generation == gen
	if current && !out.OK() {
		w.state = StateOpen
		w.failure = &out
	}
	if current && out.OK() {
		w.closeLocked()
	}
	w.mu.Unlock()

	if !out.OK() {
		return out, nil
	}

	if w.onSuccess != nil {
		w.onSuccess(ctx, out)
	}
	return out, nil
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Snapshot{State: w.state, Key: w.key}
	if w.form != nil {
		s.Form = w.form.Clone()
	}
	if w.failure != nil {
		s.Reason = w.failure.Reason
		s.Fields = w.failure.Fields
	}
	return s
}
