package console

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shopneo/console/internal/core/resource"
	"github.com/shopneo/console/internal/core/validation"
)

type consoleKey struct {
	entity   string
	parentID string
}

// Manager hands out one Console per entity and parent.
type Manager struct {
	registry  *resource.Registry
	api       Sender
	validator *validation.Validator
	pageSize  int
	log       zerolog.Logger

	mu       sync.Mutex
	consoles map[consoleKey]*Console
}

func NewManager(registry *resource.Registry, api Sender, pageSize int, log zerolog.Logger) *Manager {
	if pageSize < 1 {
		pageSize = resource.DefaultPageSize
	}
	return &Manager{
		registry:  registry,
		api:       api,
		validator: validation.NewValidator(),
		pageSize:  pageSize,
		log:       log,
		consoles:  make(map[consoleKey]*Console),
	}
}

func (m *Manager) Registry() *resource.Registry { return m.registry }

// Console returns the console for a top-level entity.
func (m *Manager) Console(entity string) (*Console, error) {
	def, err := m.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	if def.Nested() {
		return nil, fmt.Errorf("%s: %w", entity, resource.ErrParentRequired)
	}
	return m.get(def, "")
}

// Child returns the console for child records of one parent record.
func (m *Manager) Child(parent, parentID, child string) (*Console, error) {
	def, err := m.registry.Child(parent, child)
	if err != nil {
		return nil, err
	}
	if parentID == "" {
		return nil, fmt.Errorf("%s: %w", child, resource.ErrParentRequired)
	}
	return m.get(def, parentID)
}

func (m *Manager) get(def *resource.Definition, parentID string) (*Console, error) {
	key := consoleKey{entity: def.Name, parentID: parentID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.consoles[key]; ok {
		return c, nil
	}
	c, err := New(def, parentID, m.api, m.validator, m.pageSize, m.log)
	if err != nil {
		return nil, err
	}
	m.consoles[key] = c
	return c, nil
}

// Release unmounts a console and forgets it.
func (m *Manager) Release(entity, parentID string) {
	key := consoleKey{entity: entity, parentID: parentID}
	m.mu.Lock()
	c, ok := m.consoles[key]
	delete(m.consoles, key)
	m.mu.Unlock()
	if ok {
		c.Unmount()
	}
}

// Reset unmounts every console, as after logout.
func (m *Manager) Reset() {
	m.mu.Lock()
	consoles := m.consoles
	m.consoles = make(map[consoleKey]*Console)
	m.mu.Unlock()
	for _, c := range consoles {
		c.Unmount()
	}
	m.log.Debug().Int("count", len(consoles)).Msg("consoles released")
}
