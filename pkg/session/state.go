package session

import "github.com/fabricstore/storefront/pkg/statemachine"

// State is the Manager's lifecycle state.
type State string

const (
	StateInitializing  State = "initializing"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Event drives identity transitions.
type Event string

const (
	EventRestored   Event = "restored"
	EventRestoreNil Event = "restore_nil"
	EventLogin      Event = "login"
	EventLogout     Event = "logout"
)

func newStateMachine() *statemachine.Machine[State, Event] {
	return statemachine.MustNew(StateInitializing,
		statemachine.WithTransition(StateInitializing, EventRestored, StateAuthenticated),
		statemachine.WithTransition(StateInitializing, EventRestoreNil, StateAnonymous),
		statemachine.WithTransition(StateAnonymous, EventLogin, StateAuthenticated),
		statemachine.WithTransition(StateAuthenticated, EventLogin, StateAuthenticated),
		statemachine.WithTransition(StateAuthenticated, EventLogout, StateAnonymous),
		statemachine.WithTransition(StateAnonymous, EventLogout, StateAnonymous),
	)
}
