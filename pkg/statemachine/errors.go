package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrNoTransition        = errors.New("no transition available")
	ErrTransitionRejected  = errors.New("transition rejected by guard")
	ErrDuplicateTransition = errors.New("transition already declared")
)

// TransitionError reports an event that could not move the machine.
type TransitionError[S, E comparable] struct {
	From  S
	Event E
	Err   error
}

func (e *TransitionError[S, E]) Error() string {
	return fmt.Sprintf("state %v, event %v: %v", e.From, e.Event, e.Err)
}

func (e *TransitionError[S, E]) Unwrap() error {
	return e.Err
}
