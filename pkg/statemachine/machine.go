package statemachine

import (
	"fmt"
	"sync"
)

// Guard approves or vetoes a transition when its event fires.
type Guard func() bool

type transitionKey[S, E comparable] struct {
	from  S
	event E
}

type transition[S comparable] struct {
	to     S
	guards []Guard
}

// Machine holds the current state and the declared transition table.
type Machine[S, E comparable] struct {
	mu      sync.RWMutex
	initial S
	current S
	table   map[transitionKey[S, E]]*transition[S]
}

// Option declares transitions on a Machine under construction.
type Option[S, E comparable] func(*Machine[S, E]) error

// WithTransition declares that event moves the machine from one state to another.
func WithTransition[S, E comparable](from S, event E, to S) Option[S, E] {
	return func(m *Machine[S, E]) error {
		key := transitionKey[S, E]{from: from, event: event}
		if _, ok := m.table[key]; ok {
			return fmt.Errorf("%w: %v on %v", ErrDuplicateTransition, from, event)
		}
		m.table[key] = &transition[S]{to: to}
		return nil
	}
}

// WithGuard attaches a guard to a transition declared earlier in the option list.
func WithGuard[S, E comparable](from S, event E, guard Guard) Option[S, E] {
	return func(m *Machine[S, E]) error {
		t, ok := m.table[transitionKey[S, E]{from: from, event: event}]
		if !ok {
			return &TransitionError[S, E]{From: from, Event: event, Err: ErrNoTransition}
		}
		if guard != nil {
			t.guards = append(t.guards, guard)
		}
		return nil
	}
}

// New builds a machine starting in initial.
func New[S, E comparable](initial S, opts ...Option[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{
		initial: initial,
		current: initial,
		table:   make(map[transitionKey[S, E]]*transition[S]),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on a malformed transition table.
func MustNew[S, E comparable](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(initial, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Can reports whether event would currently succeed.
func (m *Machine[S, E]) Can(event E) bool {
	return m.Check(event) == nil
}

// Check returns the error Fire would return for event, without firing it.
func (m *Machine[S, E]) Check(event E) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.lookup(event)
	return err
}

// Fire applies event and returns the states before and after it.
func (m *Machine[S, E]) Fire(event E) (from, to S, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookup(event)
	if err != nil {
		return m.current, m.current, err
	}
	from = m.current
	m.current = t.to
	return from, t.to, nil
}

// Reset returns the machine to its initial state.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func (m *Machine[S, E]) lookup(event E) (*transition[S], error) {
	t, ok := m.table[transitionKey[S, E]{from: m.current, event: event}]
	if !ok {
		return nil, &TransitionError[S, E]{From: m.current, Event: event, Err: ErrNoTransition}
	}
	for _, guard := range t.guards {
		if !guard() {
			return nil, &TransitionError[S, E]{From: m.current, Event: event, Err: ErrTransitionRejected}
		}
	}
	return t, nil
}
