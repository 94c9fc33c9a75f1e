package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/core/session"
)

var ErrUnknownWorkspace = errors.New("unknown or expired workspace")

// Workspace is one operator's credential and consoles, keyed by the id held
// in that operator's session cookie.
type Workspace struct {
	ID       string
	Sessions *session.Service
	Consoles *Manager

	lastSeen time.Time
}

// WorkspaceFactory builds the workspace for id, restoring any credential
// persisted under it.
type WorkspaceFactory func(ctx context.Context, id string) (*Workspace, error)

// Workspaces keeps the live workspaces of a server. Entries idle for longer
// than the ttl are logged out and forgotten.
type Workspaces struct {
	factory WorkspaceFactory
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

func NewWorkspaces(factory WorkspaceFactory, ttl time.Duration, log zerolog.Logger) *Workspaces {
	return &Workspaces{
		factory: factory,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		items:   make(map[string]*Workspace),
	}
}

// Create starts an anonymous workspace under a fresh id.
func (w *Workspaces) Create(ctx context.Context) (*Workspace, error) {
	ws, err := w.factory(ctx, uuid.NewString())
	if err != nil {
		return nil, err
	}
	w.sweep(ctx)

	w.mu.Lock()
	ws.lastSeen = w.now()
	w.items[ws.ID] = ws
	w.mu.Unlock()
	w.log.Debug().Str("workspace", ws.ID).Msg("workspace created")
	return ws, nil
}

// Lookup returns the workspace for id. A workspace missing from memory is
// rebuilt from its persisted credential, and kept only when that credential
// is still valid.
func (w *Workspaces) Lookup(ctx context.Context, id string) (*Workspace, error) {
	if id == "" {
		return nil, ErrUnknownWorkspace
	}
	w.sweep(ctx)

	w.mu.Lock()
	ws, ok := w.items[id]
	if ok {
		ws.lastSeen = w.now()
	}
	w.mu.Unlock()
	if ok {
		return ws, nil
	}

	ws, err := w.factory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ws.Sessions.IsAuthenticated() {
		return nil, ErrUnknownWorkspace
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.items[id]; ok {
		existing.lastSeen = w.now()
		return existing, nil
	}
	ws.lastSeen = w.now()
	w.items[id] = ws
	w.log.Debug().Str("workspace", id).Msg("workspace restored")
	return ws, nil
}

// Drop releases the consoles of id and forgets it. The credential is left to
// the caller.
func (w *Workspaces) Drop(id string) {
	w.mu.Lock()
	ws, ok := w.items[id]
	delete(w.items, id)
	w.mu.Unlock()
	if ok {
		ws.Consoles.Reset()
	}
}

func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Close releases every workspace without logging anyone out.
func (w *Workspaces) Close() {
	w.mu.Lock()
	items := w.items
	w.items = make(map[string]*Workspace)
	w.mu.Unlock()
	for _, ws := range items {
		ws.Consoles.Reset()
	}
}

func (w *Workspaces) sweep(ctx context.Context) {
	cutoff := w.now().Add(-w.ttl)

	w.mu.Lock()
	var idle []*Workspace
	for id, ws := range w.items {
		if ws.lastSeen.Before(cutoff) {
			idle = append(idle, ws)
			delete(w.items, id)
		}
	}
	w.mu.Unlock()

	for _, ws := range idle {
		ws.Consoles.Reset()
		if err := ws.Sessions.Logout(ctx); err != nil {
			w.log.Warn().Err(err).Str("workspace", ws.ID).Msg("logging out idle workspace failed")
			continue
		}
		w.log.Info().Str("workspace", ws.ID).Msg("idle workspace expired")
	}
}
