// Package actions tracks which user action request is currently open.
package actions

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vadiminshakov/gavsync/internal/domain"
	"github.com/vadiminshakov/gavsync/internal/events"
)

const transitionsBuffer = 8

// Transition is broadcast whenever the open action changes.
type Transition struct {
	From domain.ActionKind `json:"from"`
	To   domain.ActionKind `json:"to"`
}

// Machine holds at most one open action. Opening a new action replaces the current one.
type Machine struct {
	mu          sync.RWMutex
	current     domain.ActionKind
	transitions *events.Broadcaster[Transition]
	l           *zap.Logger
}

// NewMachine creates a machine with no open action.
func NewMachine(l *zap.Logger) *Machine {
	return &Machine{
		current:     domain.ActionNone,
		transitions: events.NewBroadcaster[Transition](transitionsBuffer),
		l:           l,
	}
}

// Current returns the open action, ActionNone if nothing is open.
func (m *Machine) Current() domain.ActionKind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Open makes kind the open action. Open(ActionNone) is the same as Close.
func (m *Machine) Open(kind domain.ActionKind) error {
	if !kind.Valid() {
		return domain.ErrUnknownAction
	}
	m.set(kind)
	return nil
}

// Close clears the open action.
func (m *Machine) Close() {
	m.set(domain.ActionNone)
}

func (m *Machine) set(kind domain.ActionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == kind {
		return
	}
	t := Transition{From: m.current, To: kind}
	m.current = kind
	m.transitions.Publish(t)

	m.l.Debug("action changed", zap.Stringer("from", t.From), zap.Stringer("to", t.To))
}

// Subscribe returns a channel receiving every transition.
func (m *Machine) Subscribe() <-chan Transition {
	return m.transitions.Subscribe()
}

// Unsubscribe stops delivery to ch.
func (m *Machine) Unsubscribe(ch <-chan Transition) {
	m.transitions.Unsubscribe(ch)
}
