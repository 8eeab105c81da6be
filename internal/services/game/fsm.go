package game

import (
	"fmt"

	"github.com/mcoot/hvzgame/internal/model"
)

// Action is a requested change to a game's lifecycle status
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionEnd    Action = "end"
)

// AllActions lists every lifecycle action
func AllActions() []Action {
	return []Action{ActionStart, ActionPause, ActionResume, ActionEnd}
}

type transitionKey struct {
	from   model.GameStatus
	action Action
}

// transitions is the complete lifecycle table. Any pair not listed is illegal.
var transitions = map[transitionKey]model.GameStatus{
	{model.GameStatusNew, ActionStart}:     model.GameStatusActive,
	{model.GameStatusActive, ActionPause}:  model.GameStatusPaused,
	{model.GameStatusPaused, ActionResume}: model.GameStatusActive,
	{model.GameStatusActive, ActionEnd}:    model.GameStatusEnded,
	{model.GameStatusPaused, ActionEnd}:    model.GameStatusEnded,
}

// Transition returns the status reached by applying action in status from
func Transition(from model.GameStatus, action Action) (model.GameStatus, error) {
	to, ok := transitions[transitionKey{from, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a game that is %s", model.ErrInvalidStateTransition, action, from)
	}
	return to, nil
}

// actionForActive maps the legacy two-state SetActive request onto an action.
// Activating a new game starts it; activating a paused game resumes it.
func actionForActive(from model.GameStatus, active bool) Action {
	switch {
	case !active:
		return ActionPause
	case from == model.GameStatusNew:
		return ActionStart
	default:
		return ActionResume
	}
}

// actionForStatus maps a requested target status onto the action reaching it
func actionForStatus(from, to model.GameStatus) (Action, error) {
	switch to {
	case model.GameStatusActive:
		return actionForActive(from, true), nil
	case model.GameStatusPaused:
		return ActionPause, nil
	case model.GameStatusEnded:
		return ActionEnd, nil
	}
	return "", fmt.Errorf("%w: cannot move a game to status %q", model.ErrInvalidStateTransition, to)
}
