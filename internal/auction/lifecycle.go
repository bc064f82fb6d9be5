package auction

import (
	"ms-auction/internal/errs"
	"ms-auction/internal/models"
)

// transitions is the legal session status graph. SETTLED and CANCELED are
// terminal; there are no cycles besides OPEN<->PAUSED.
var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionDraft:     {models.SessionScheduled, models.SessionCanceled},
	models.SessionScheduled: {models.SessionOpen, models.SessionCanceled},
	models.SessionOpen:      {models.SessionPaused, models.SessionClosed},
	models.SessionPaused:    {models.SessionOpen, models.SessionClosed},
	models.SessionClosed:    {models.SessionSettled},
	models.SessionSettled:   {},
	models.SessionCanceled:  {},
}

func CanTransition(from, to models.SessionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// guardTransition rejects a disallowed edge with a distinct error; it never
// silently no-ops.
func guardTransition(from, to models.SessionStatus) error {
	if !CanTransition(from, to) {
		return errs.InvalidTransition(string(from), string(to))
	}
	return nil
}
