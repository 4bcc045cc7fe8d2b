package scheduling

import (
	"fmt"
	"slices"

	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
)

var transitions = map[model.Status][]model.Status{
	model.StatusScheduled:  {model.StatusConfirmed, model.StatusCancelled, model.StatusNoShow},
	model.StatusConfirmed:  {model.StatusInProgress, model.StatusCancelled, model.StatusNoShow},
	model.StatusInProgress: {model.StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the appointment lifecycle.
func CanTransition(from, to model.Status) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.Status) bool {
	return len(transitions[s]) == 0
}

// Transition validates a requested status change. Re-asserting the current
// status is allowed and changes nothing.
func Transition(from, to model.Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot move appointment from %s to %s", ErrInvalidState, from, to)
	}
	return nil
}
