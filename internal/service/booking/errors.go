package booking

import (
	"errors"
	"fmt"

	"agendafacil/backend/internal/availability"
	"agendafacil/backend/internal/domain"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrNotConfigured   = errors.New("schedule not configured")
	ErrSlotUnavailable = errors.New("slot no longer available")
	// ErrConcurrentBookingConflict is returned to the loser of a same-slot race.
	// It matches ErrSlotUnavailable under errors.Is.
	ErrConcurrentBookingConflict = fmt.Errorf("%w: taken by a concurrent booking", ErrSlotUnavailable)
)

// OutOfWindowError reports a date before the lead time or past the horizon.
type OutOfWindowError struct {
	Reason   availability.Reason
	LeadDays int
	Min      domain.Date
	Max      domain.Date
}

func (e *OutOfWindowError) Error() string {
	if e.Reason == availability.ReasonOutOfHorizon {
		return fmt.Sprintf("bookings are open until %s", e.Max)
	}
	return fmt.Sprintf("bookings need %d full day(s) of notice; the earliest date is %s", e.LeadDays, e.Min)
}
