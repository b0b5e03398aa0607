// Package statemachine implements a small, concurrency-safe finite state
// machine over comparable state and event types.
//
// Transitions are declared up front with options; firing an event that has no
// transition from the current state returns a *TransitionError and leaves the
// state unchanged.
//
//	type phase string
//	type signal string
//
//	m := statemachine.MustNew[phase, signal]("draft",
//		statemachine.WithTransition[phase, signal]("draft", "submit", "review"),
//		statemachine.WithTransition[phase, signal]("review", "approve", "published"),
//	)
//	from, to, err := m.Fire("submit")
//
// Guards can veto a declared transition at fire time:
//
//	statemachine.WithGuard[phase, signal]("review", "approve", func() bool { return isOwner })
package statemachine
