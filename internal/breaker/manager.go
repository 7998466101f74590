// Package breaker wraps calls to named external services in a circuit
// breaker, so a failing upstream (LLM, TTS, or a visual provider) stops
// being hammered once it crosses a failure threshold. Grounded on
// github.com/sony/gobreaker and the wrap-order conventions documented in
// the pack's resilience package doc comment.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUpstreamUnavailable is returned (wrapping the underlying gobreaker
// error) when a named breaker is open.
var ErrUpstreamUnavailable = errors.New("breaker: upstream unavailable")

// Settings configures every breaker the Manager creates.
type Settings struct {
	FailureThreshold uint32
	Cooldown         time.Duration
	HalfOpenMax      uint32
}

// Manager lazily creates and caches one gobreaker.CircuitBreaker per
// service name.
type Manager struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	settings Settings
}

// NewManager builds a Manager that will construct breakers on demand
// using settings for every name it sees.
func NewManager(settings Settings) *Manager {
	return &Manager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		settings: settings,
	}
}

func (m *Manager) For(name string) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[name]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: m.settings.HalfOpenMax,
		Interval:    0,
		Timeout:     m.settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= m.settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("breaker[%s]: %s -> %s", name, from, to)
		},
	})
	m.breakers[name] = cb
	return cb
}

// Call executes fn through the named breaker, mapping an open-circuit
// rejection to ErrUpstreamUnavailable.
func (m *Manager) Call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	cb := m.For(name)
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, name, err)
		}
		return err
	}
	return nil
}

// State reports the current state of a named breaker for health checks.
func (m *Manager) State(name string) string {
	m.mu.Lock()
	cb, ok := m.breakers[name]
	m.mu.Unlock()
	if !ok {
		return "closed"
	}
	return cb.State().String()
}

// Health returns a snapshot of every breaker's state, keyed by service
// name. No last-failure time is recorded, and the HTTP /health handler
// does not report these states.
func (m *Manager) Health() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.breakers))
	for name, cb := range m.breakers {
		out[name] = cb.State().String()
	}
	return out
}
