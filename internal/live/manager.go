package live

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/MrWong99/podium/internal/observe"
)

// ErrNotFound is returned when no panel has the requested ID.
var ErrNotFound = errors.New("live: panel not found")

// Manager keeps the set of mounted panels. New panels use the manager's
// current config; replacing it with [Manager.SetConfig] does not affect
// panels that are already mounted.
//
// Safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	cfg     PanelConfig
	panels  map[string]*Panel
	opts    []Option
	metrics *observe.Metrics
}

// NewManager creates a Manager mounting panels with cfg. opts are passed to
// every [Mount]; a [WithMetrics] option is also used for the active panel gauge.
func NewManager(cfg PanelConfig, opts ...Option) *Manager {
	var o panelOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		cfg:     cfg,
		panels:  make(map[string]*Panel),
		opts:    opts,
		metrics: o.metrics,
	}
}

// Config returns the config used for newly mounted panels.
func (m *Manager) Config() PanelConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// SetConfig validates cfg and uses it for panels mounted from now on.
func (m *Manager) SetConfig(cfg PanelConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Mount starts a new panel under a fresh random ID.
func (m *Manager) Mount() (*Panel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := Mount(uuid.NewString(), m.cfg, m.opts...)
	if err != nil {
		return nil, err
	}
	m.panels[p.ID()] = p
	if m.metrics != nil {
		m.metrics.ActivePanels.Add(context.Background(), 1)
	}
	slog.Info("live: panel mounted", "panel", p.ID(), "panels", len(m.panels))
	return p, nil
}

// Get returns the panel with the given ID.
func (m *Manager) Get(id string) (*Panel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.panels[id]
	return p, ok
}

// IDs returns the IDs of all mounted panels in lexical order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.panels))
	for id := range m.panels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Teardown stops and forgets the panel with the given ID.
func (m *Manager) Teardown(id string) error {
	m.mu.Lock()
	p, ok := m.panels[id]
	delete(m.panels, id)
	remaining := len(m.panels)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	p.Teardown()
	if m.metrics != nil {
		m.metrics.ActivePanels.Add(context.Background(), -1)
	}
	slog.Info("live: panel torn down", "panel", id, "panels", remaining)
	return nil
}

// Close tears down every mounted panel.
func (m *Manager) Close() error {
	for _, id := range m.IDs() {
		if err := m.Teardown(id); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
