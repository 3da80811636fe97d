// Package container provides ordered startup and shutdown for the engine's
// components: the driver wraps the metrics server, the engine, and the
// config watcher as Lifecycle values so it can bring them up and tear them
// down in registration order.
package container

import (
	"context"
	"fmt"
	"sync"
)

// Lifecycle is anything the engine must start before use and stop on
// shutdown.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop() error
	Health() error
}

// Manager brings up registered components in registration order and tears
// them down in reverse. A failed Start rolls back everything already
// started.
type Manager struct {
	mu         sync.RWMutex
	components []namedComponent
}

type namedComponent struct {
	name string
	comp Lifecycle
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a component under name, to be started after everything
// already registered and stopped before it.
func (m *Manager) Register(name string, component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, namedComponent{name: name, comp: component})
}

// StartAll starts every registered component in registration order. If one
// fails, every component started before it is stopped, in reverse order,
// before the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, c := range m.components {
		if err := c.comp.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.components[j].comp.Stop()
			}
			return fmt.Errorf("container: start %s: %w", c.name, err)
		}
	}
	return nil
}

// StopAll stops every registered component in reverse registration order,
// continuing past individual failures and returning the last error seen.
func (m *Manager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	for i := len(m.components) - 1; i >= 0; i-- {
		c := m.components[i]
		if err := c.comp.Stop(); err != nil {
			lastErr = fmt.Errorf("container: stop %s: %w", c.name, err)
		}
	}
	return lastErr
}

// CheckHealth returns the first unhealthy component's error, if any.
func (m *Manager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.components {
		if err := c.comp.Health(); err != nil {
			return fmt.Errorf("container: %s unhealthy: %w", c.name, err)
		}
	}
	return nil
}
