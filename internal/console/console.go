package console

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/core/modal"
	"github.com/shopneo/console/internal/core/mutation"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/core/validation"
)

const noticeLimit = 50

// Sender covers the reads of a collection and the writes of a pipeline.
type Sender interface {
	resource.Sender
	mutation.Sender
}

// Editable is a record together with the form state prefilled from it.
type Editable struct {
	Record *resource.Record    `json:"record"`
	Form   *mutation.FormState `json:"form"`
}

// Console runs the list, mutate, refresh cycle for one entity, scoped to a
// parent for nested entities.
type Console struct {
	def        *resource.Definition
	parentID   string
	collection *resource.Collection
	pipeline   *mutation.Pipeline
	modal      *modal.Workflow
	notices    *Notices
	pageSize   int
	log        zerolog.Logger
}

func New(def *resource.Definition, parentID string, api Sender, validator *validation.Validator, pageSize int, log zerolog.Logger) (*Console, error) {
	col, err := resource.NewCollection(def, parentID, api, log)
	if err != nil {
		return nil, err
	}

	c := &Console{
		def:        def,
		parentID:   col.ParentID(),
		collection: col,
		notices:    NewNotices(noticeLimit),
		pageSize:   pageSize,
		log:        log.With().Str("console", def.Name).Str("parent_id", col.ParentID()).Logger(),
	}
	c.pipeline = mutation.NewPipeline(def, api, validator, c.notices, log)
	c.modal = modal.NewWorkflow(def, c.pipeline, c.afterSave)
	return c, nil
}

func (c *Console) Definition() *resource.Definition { return c.def }

func (c *Console) ParentID() string { return c.parentID }

func (c *Console) Modal() *modal.Workflow { return c.modal }

func (c *Console) Notices() []mutation.Outcome { return c.notices.List() }

// View filters and paginates what was last loaded. It loads once if nothing
// has been fetched yet.
func (c *Console) View(ctx context.Context, q resource.Query) (*resource.View, error) {
	if q.PageSize < 1 {
		q.PageSize = c.pageSize
	}
	if !c.collection.State().Loaded {
		_, err := c.collection.Load(ctx)
		if err != nil && !isFetchError(err) && !errors.Is(err, resource.ErrSuperseded) {
			return nil, err
		}
	}
	return c.collection.View(q)
}

func (c *Console) Refresh(ctx context.Context) (*resource.Page, error) {
	return c.collection.Load(ctx)
}

// Get reads one record with its prefilled form. Entities served from the
// loaded items are loaded first.
func (c *Console) Get(ctx context.Context, id string) (*Editable, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	rec, err := c.collection.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Editable{Record: rec, Form: mutation.Decode(c.def, *rec)}, nil
}

// Save creates the record when id is empty and updates it otherwise.
func (c *Console) Save(ctx context.Context, id string, form *mutation.FormState) mutation.Outcome {
	out := c.pipeline.Submit(ctx, resource.Key{ParentID: c.parentID, ID: id}, form)
	if out.OK() {
		c.afterSave(ctx, out)
	}
	return out
}

// Delete removes the record. The collection is only reloaded on success.
func (c *Console) Delete(ctx context.Context, id string) mutation.Outcome {
	out := c.pipeline.Remove(ctx, resource.Key{ParentID: c.parentID, ID: id})
	if out.OK() {
		c.reload(ctx)
	}
	return out
}

// Edit opens the modal on the record with id.
func (c *Console) Edit(ctx context.Context, id string) error {
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}
	rec, err := c.collection.Fetch(ctx, id)
	if err != nil {
		return err
	}
	c.modal.Open(*rec)
	return nil
}

func (c *Console) SubmitEdit(ctx context.Context) (mutation.Outcome, error) {
	return c.modal.Submit(ctx)
}

func (c *Console) CloseEdit() {
	c.modal.Close()
}

func (c *Console) State() resource.State {
	return c.collection.State()
}

// Unmount discards in-flight loads and closes the modal.
func (c *Console) Unmount() {
	c.modal.Close()
	c.collection.Unmount()
}

func (c *Console) Mount() {
	c.collection.Mount()
}

func (c *Console) afterSave(ctx context.Context, out mutation.Outcome) {
	if out.Record != nil {
		c.collection.Apply(*out.Record)
	}
	c.reload(ctx)
}

// ensureLoaded loads the list once when records can only be read from it.
func (c *Console) ensureLoaded(ctx context.Context) error {
	if c.def.Endpoints.Get != "" || c.collection.State().Loaded {
		return nil
	}
	_, err := c.collection.Load(ctx)
	return err
}

func (c *Console) reload(ctx context.Context) {
	if _, err := c.collection.Load(ctx); err != nil {
		c.log.Warn().Err(err).Msg("refresh after mutation failed")
	}
}

func isFetchError(err error) bool {
	var fe *resource.FetchError
	return errors.As(err, &fe)
}

// Notices keeps the most recent settled outcomes for display.
type Notices struct {
	mu    sync.Mutex
	limit int
	items []mutation.Outcome
}

func NewNotices(limit int) *Notices {
	return &Notices{limit: limit}
}

func (n *Notices) Report(o mutation.Outcome) {
	if !o.Terminal() {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, o)
	if len(n.items) > n.limit {
		n.items = n.items[len(n.items)-n.limit:]
	}
}

func (n *Notices) List() []mutation.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mutation.Outcome(nil), n.items...)
}
