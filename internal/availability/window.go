package availability

import "agendafacil/backend/internal/domain"

type Reason string

const (
	ReasonOutOfLeadTime Reason = "OUT_OF_LEAD_TIME"
	ReasonOutOfHorizon  Reason = "OUT_OF_HORIZON"
)

// BookingWindow is the inclusive range of dates a customer may book.
type BookingWindow struct {
	Min domain.Date
	Max domain.Date
}

// NewBookingWindow derives the bookable range from today. Lead days are whole
// days strictly after today, so lead=0 still starts tomorrow.
func NewBookingWindow(today domain.Date, leadDays, horizonDays int) BookingWindow {
	return BookingWindow{
		Min: today.AddDays(leadDays + 1),
		Max: today.AddDays(horizonDays),
	}
}

// Check returns the reason date falls outside the window, or "" when bookable.
func (w BookingWindow) Check(date domain.Date) Reason {
	if date.Before(w.Min) {
		return ReasonOutOfLeadTime
	}
	if date.After(w.Max) {
		return ReasonOutOfHorizon
	}
	return ""
}
