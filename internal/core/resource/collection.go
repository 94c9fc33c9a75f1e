package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/transport"
)

// Sender is the slice of the transport client a collection needs.
type Sender interface {
	GetJSON(ctx context.Context, path string, out interface{}) error
}

// State describes how trustworthy the cached items are.
type State struct {
	Loaded    bool      `json:"loaded"`
	Stale     bool      `json:"stale"`
	LastError string    `json:"lastError,omitempty"`
	LoadedAt  time.Time `json:"loadedAt,omitempty"`
	Count     int       `json:"count"`
}

// Query is a client-side view over the loaded items.
type Query struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

type View struct {
	PageSlice
	State State `json:"state"`
}

// Collection caches one entity's list, scoped to a parent for nested entities.
// Loads are tagged with a sequence number and only the latest one may land.
type Collection struct {
	def      *Definition
	parentID string
	api      Sender
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	items    []Record
	seq      uint64
	mounted  bool
	loaded   bool
	lastErr  error
	loadedAt time.Time
}

func NewCollection(def *Definition, parentID string, api Sender, log zerolog.Logger) (*Collection, error) {
	if def.Nested() && parentID == "" {
		return nil, fmt.Errorf("%s: %w", def.Name, ErrParentRequired)
	}
	if !def.Nested() {
		parentID = ""
	}
	return &Collection{
		def:      def,
		parentID: parentID,
		api:      api,
		log:      log.With().Str("entity", def.Name).Str("parent_id", parentID).Logger(),
		now:      time.Now,
		mounted:  true,
	}, nil
}

func (c *Collection) Definition() *Definition { return c.def }

func (c *Collection) ParentID() string { return c.parentID }

// Load fetches the full list. On failure the previous items are kept and the
// collection is marked stale.
func (c *Collection) Load(ctx context.Context) (*Page, error) {
	path, err := c.def.Path(c.def.Endpoints.List, Key{ParentID: c.parentID})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.seq++
	token := c.seq
	c.mu.Unlock()

	var items []Record
	var body json.RawMessage
	err = c.api.GetJSON(ctx, path, &body)
	if err == nil {
		items, err = c.decodeList(path, body)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		c.log.Debug().Uint64("token", token).Msg("discarding load for unmounted collection")
		return nil, ErrUnmounted
	}
	if token != c.seq {
		c.log.Debug().Uint64("token", token).Uint64("latest", c.seq).Msg("discarding superseded load")
		return nil, ErrSuperseded
	}
	if err != nil {
		c.lastErr = err
		c.log.Warn().Err(err).Msg("load failed, keeping previous items")
		return nil, &FetchError{Entity: c.def.Name, Err: err}
	}

	c.items = items
	c.loaded = true
	c.lastErr = nil
	c.loadedAt = c.now()
	c.log.Debug().Int("count", len(items)).Msg("collection loaded")

	return &Page{Items: cloneAll(items), TotalCount: len(items)}, nil
}

// Fetch reads a single record for editing. Entities without a get endpoint
// are served from the loaded items.
func (c *Collection) Fetch(ctx context.Context, id string) (*Record, error) {
	if c.def.Endpoints.Get == "" {
		c.mu.Lock()
		defer c.mu.Unlock()
		for _, r := range c.items {
			if r.ID == id {
				rec := r.clone()
				return &rec, nil
			}
		}
		return nil, ErrNotFound
	}

	path, err := c.def.Path(c.def.Endpoints.Get, Key{ParentID: c.parentID, ID: id})
	if err != nil {
		return nil, err
	}
	var body json.RawMessage
	if err := c.api.GetJSON(ctx, path, &body); err != nil {
		if transport.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, &FetchError{Entity: c.def.Name, Err: err}
	}
	rec, err := DecodeItem(c.def, path, body, c.parentID)
	if err != nil {
		return nil, &FetchError{Entity: c.def.Name, Err: err}
	}
	return rec, nil
}

// Apply replaces the cached copy of rec, or appends it when it is new.
func (c *Collection) Apply(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == rec.ID {
			c.items[i] = rec.clone()
			return
		}
	}
	c.items = append(c.items, rec.clone())
}

func (c *Collection) Snapshot() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.items)
}

func (c *Collection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Collection) stateLocked() State {
	st := State{
		Loaded:   c.loaded,
		Stale:    c.lastErr != nil,
		LoadedAt: c.loadedAt,
		Count:    len(c.items),
	}
	if c.lastErr != nil {
		st.LastError = transport.PublicMessage(c.lastErr, c.def.Messages.Load)
	}
	return st
}

// View filters and paginates the loaded items.
func (c *Collection) View(q Query) (*View, error) {
	status, err := c.def.Status(q.Status)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	items := append([]Record(nil), c.items...)
	st := c.stateLocked()
	c.mu.Unlock()

	filtered := ApplyFilter(items, c.def.Search, q.Search, status)
	return &View{PageSlice: Paginate(filtered, q.Page, q.PageSize), State: st}, nil
}

// Unmount makes every in-flight load resolve to ErrUnmounted.
func (c *Collection) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
}

// Mount reattaches the collection. Loads issued before it are discarded.
func (c *Collection) Mount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = true
	c.seq++
}

func cloneAll(items []Record) []Record {
	out := make([]Record, len(items))
	for i, r := range items {
		out[i] = r.clone()
	}
	return out
}

func decodeObject(path string, body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env map[string]interface{}
	if err := dec.Decode(&env); err != nil {
		return nil, &transport.DecodeError{Path: path, Err: err}
	}
	if env == nil {
		return nil, &transport.DecodeError{Path: path, Err: fmt.Errorf("expected a JSON object")}
	}
	return env, nil
}

func (c *Collection) decodeList(path string, body []byte) ([]Record, error) {
	env, err := decodeObject(path, body)
	if err != nil {
		return nil, err
	}
	raw, ok := env[c.def.Envelope.List]
	if !ok || raw == nil {
		return []Record{}, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, &transport.DecodeError{Path: path, Err: fmt.Errorf("%q is not a list", c.def.Envelope.List)}
	}

	items := make([]Record, 0, len(list))
	for i, v := range list {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, &transport.DecodeError{Path: path, Err: fmt.Errorf("item %d is not an object", i)}
		}
		rec, err := recordFrom(c.def, obj, c.parentID)
		if err != nil {
			return nil, &transport.DecodeError{Path: path, Err: fmt.Errorf("item %d: %w", i, err)}
		}
		items = append(items, rec)
	}
	return items, nil
}

// DecodeItem unwraps a single-record envelope such as {"customer": {...}}.
func DecodeItem(def *Definition, path string, body []byte, parentID string) (*Record, error) {
	env, err := decodeObject(path, body)
	if err != nil {
		return nil, err
	}
	obj, ok := env[def.Envelope.Item].(map[string]interface{})
	if !ok {
		return nil, &transport.DecodeError{Path: path, Err: fmt.Errorf("missing %q object", def.Envelope.Item)}
	}
	rec, err := recordFrom(def, obj, parentID)
	if err != nil {
		return nil, &transport.DecodeError{Path: path, Err: err}
	}
	return &rec, nil
}

func recordFrom(def *Definition, obj map[string]interface{}, parentID string) (Record, error) {
	id := ValueString(obj[def.IDField])
	if id == "" {
		return Record{}, fmt.Errorf("record has no %q", def.IDField)
	}
	rec := Record{ID: id, Fields: obj}
	if def.Nested() {
		rec.ParentID = parentID
		if p := parentRef(obj[def.ParentField]); p != "" {
			rec.ParentID = p
		}
	}
	return rec, nil
}

// parentRef accepts a bare id or a populated parent object.
func parentRef(v interface{}) string {
	if obj, ok := v.(map[string]interface{}); ok {
		return ValueString(obj["_id"])
	}
	return ValueString(v)
}
