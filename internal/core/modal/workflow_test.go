package modal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopneo/console/internal/core/mutation"
	"github.com/shopneo/console/internal/core/resource"
)

type fakeSubmitter struct {
	outcome mutation.Outcome
	gotKey  resource.Key
	gotForm *mutation.FormState
	during  func()
}

func (f *fakeSubmitter) Submit(ctx context.Context, key resource.Key, form *mutation.FormState) mutation.Outcome {
	f.gotKey = key
	f.gotForm = form
	if f.during != nil {
		f.during()
	}
	return f.outcome
}

func blogDef(t *testing.T) *resource.Definition {
	t.Helper()
	r, err := resource.LoadRegistry("")
	require.NoError(t, err)
	d, err := r.Get("blogs")
	require.NoError(t, err)
	return d
}

func blog(id, heading string) resource.Record {
	return resource.Record{ID: id, ParentID: "c1", Fields: map[string]interface{}{
		"_id": id, "heading": heading, "description": "d",
	}}
}

func TestWorkflow_OpenPrefills(t *testing.T) {
	w := NewWorkflow(blogDef(t), &fakeSubmitter{}, nil)
	assert.Equal(t, StateClosed, w.State())

	w.Open(blog("b1", "Hello"))

	s := w.Snapshot()
	assert.Equal(t, StateOpen, s.State)
	assert.Equal(t, resource.Key{ParentID: "c1", ID: "b1"}, s.Key)
	assert.Equal(t, "Hello", s.Form.Get("heading"))
}

func TestWorkflow_OpenReplacesCurrent(t *testing.T) {
	w := NewWorkflow(blogDef(t), &fakeSubmitter{}, nil)
	w.Open(blog("b1", "One"))
	require.NoError(t, w.Set("heading", "edited"))

	w.Open(blog("b2", "Two"))

	s := w.Snapshot()
	assert.Equal(t, "b2", s.Key.ID)
	assert.Equal(t, "Two", s.Form.Get("heading"), "edits to the first record are discarded")
}

func TestWorkflow_SetRequiresOpen(t *testing.T) {
	w := NewWorkflow(blogDef(t), &fakeSubmitter{}, nil)
	assert.ErrorIs(t, w.Set("heading", "x"), ErrNotOpen)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestWorkflow_SubmitSuccessClosesAndRefreshes(t *testing.T) {
	sub := &fakeSubmitter{outcome: mutation.Outcome{Status: mutation.StatusSuccess}}
	refreshed := 0
	w := NewWorkflow(blogDef(t), sub, func(context.Context, mutation.Outcome) { refreshed++ })

	w.Open(blog("b1", "Hello"))
	require.NoError(t, w.Set("heading", "Hello again"))

	out, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, out.OK())

	assert.Equal(t, StateClosed, w.State())
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, resource.Key{ParentID: "c1", ID: "b1"}, sub.gotKey)
	assert.Equal(t, "Hello again", sub.gotForm.Get("heading"))
}

func TestWorkflow_SubmitFailureStaysOpen(t *testing.T) {
	sub := &fakeSubmitter{outcome: mutation.Outcome{
		Status: mutation.StatusFailure,
		Reason: "heading: is required",
		Fields: map[string]string{"heading": "is required"},
	}}
	refreshed := 0
	w := NewWorkflow(blogDef(t), sub, func(context.Context, mutation.Outcome) { refreshed++ })

	w.Open(blog("b1", "Hello"))
	require.NoError(t, w.Set("heading", ""))

	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	s := w.Snapshot()
	assert.Equal(t, StateOpen, s.State)
	assert.Equal(t, "heading: is required", s.Reason)
	assert.Equal(t, "is required", s.Fields["heading"])
	assert.Equal(t, "", s.Form.Get("heading"), "edits survive a failed submit")
	assert.Equal(t, 0, refreshed)

	require.NoError(t, w.Set("heading", "fixed"))
}

func TestWorkflow_CloseDuringSubmitDoesNotReopen(t *testing.T) {
	sub := &fakeSubmitter{outcome: mutation.Outcome{Status: mutation.StatusFailure, Reason: "boom"}}
	w := NewWorkflow(blogDef(t), sub, nil)
	sub.during = func() {
		assert.Equal(t, StateSubmitting, w.State())
		assert.ErrorIs(t, w.Set("heading", "x"), ErrSubmitting)
		w.Close()
	}

	w.Open(blog("b1", "Hello"))
	out, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "boom", out.Reason)
	assert.Equal(t, StateClosed, w.State())
}

func TestWorkflow_SuccessAfterReopenKeepsNewRecordOpen(t *testing.T) {
	sub := &fakeSubmitter{outcome: mutation.Outcome{Status: mutation.StatusSuccess}}
	refreshed := 0
	w := NewWorkflow(blogDef(t), sub, func(context.Context, mutation.Outcome) { refreshed++ })
	sub.during = func() { w.Open(blog("b2", "Other")) }

	w.Open(blog("b1", "Hello"))
	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	s := w.Snapshot()
	assert.Equal(t, StateOpen, s.State)
	assert.Equal(t, "b2", s.Key.ID)
	assert.Equal(t, 1, refreshed, "the collection still reloads after a successful save")
}
