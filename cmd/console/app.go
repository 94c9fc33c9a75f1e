package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shopneo/console/config"
	"github.com/shopneo/console/internal/console"
	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/core/session"
	"github.com/shopneo/console/internal/logging"
	"github.com/shopneo/console/internal/storage/postgres"
	"github.com/shopneo/console/internal/transport"
)

// app holds everything a command needs, wired from configuration. The CLI
// acts as the operator named by session.name.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *postgres.Client
	sealer   *session.Sealer
	registry *resource.Registry
	sessions *session.Service
	consoles *console.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Log, nil)

	a := &app{cfg: cfg, log: log}
	a.registry, err = resource.LoadRegistry(cfg.Console.EntitiesFile)
	if err != nil {
		return nil, err
	}
	if err := a.openDatabase(ctx); err != nil {
		return nil, err
	}

	store, err := a.operatorStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	ws, err := a.workspace(ctx, cfg.Session.Name, store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions, a.consoles = ws.Sessions, ws.Consoles
	return a, nil
}

func (a *app) openDatabase(ctx context.Context) error {
	if a.cfg.Session.Store != config.SessionStorePostgres {
		return nil
	}
	sealer, err := session.NewSealer(a.cfg.Session.Secret)
	if err != nil {
		return err
	}
	db, err := postgres.NewClient(&a.cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return err
	}
	a.db, a.sealer = db, sealer
	a.log.Info().Msg("connected to database")
	return nil
}

func (a *app) operatorStore() (session.Store, error) {
	switch a.cfg.Session.Store {
	case config.SessionStoreFile:
		return session.NewFileStore(a.cfg.Session.FilePath, a.cfg.Session.Secret)
	case config.SessionStorePostgres:
		return postgres.NewSessionStore(a.db, a.cfg.Session.Name, a.sealer), nil
	default:
		return session.NewMemoryStore(), nil
	}
}

// webStore persists a browser workspace under its cookie id. Only postgres
// can hold one row per client; the other stores keep it in memory.
func (a *app) webStore(id string) session.Store {
	if a.db != nil {
		return postgres.NewSessionStore(a.db, "web:"+id, a.sealer)
	}
	return session.NewMemoryStore()
}

// workspace wires a credential, a transport client authenticated by it and
// the consoles that send through that client.
func (a *app) workspace(ctx context.Context, id string, store session.Store) (*console.Workspace, error) {
	log := a.log.With().Str("workspace", id).Logger()

	sess := session.New()
	client, err := transport.NewClient(a.cfg.API.BaseURL, a.cfg.API.Timeout, sess,
		transport.WithLogger(logging.Component(log, "transport")))
	if err != nil {
		return nil, err
	}

	sessions := session.NewService(sess, store, client, logging.Component(log, "session"))
	client.SetUnauthorizedHandler(sessions.Invalidate)
	if err := sessions.Restore(ctx); err != nil {
		return nil, err
	}

	return &console.Workspace{
		ID:       id,
		Sessions: sessions,
		Consoles: console.NewManager(a.registry, client, a.cfg.Console.PageSize, logging.Component(log, "console")),
	}, nil
}

func (a *app) webWorkspace(ctx context.Context, id string) (*console.Workspace, error) {
	return a.workspace(ctx, id, a.webStore(id))
}

// requireSession fails commands that need a credential when none is held.
func (a *app) requireSession() error {
	if a.sessions.IsAuthenticated() {
		return nil
	}
	if a.cfg.Session.Store == config.SessionStoreMemory {
		return fmt.Errorf("not logged in: the memory session store does not outlive a command, configure session.store=file or postgres")
	}
	return fmt.Errorf("not logged in: run console login")
}

// consoleFor resolves entity, going through its parent record when nested.
func (a *app) consoleFor(entity, parentID string) (*console.Console, error) {
	def, err := a.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	if def.Nested() {
		return a.consoles.Child(def.Parent, parentID, entity)
	}
	return a.consoles.Console(entity)
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
