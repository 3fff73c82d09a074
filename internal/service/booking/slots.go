package booking

import (
	"context"
	"strings"

	"agendafacil/backend/internal/availability"
	"agendafacil/backend/internal/domain"
)

// GetAvailableSlots lists the free slots of one date, always computed from
// fresh data.
func (s *Service) GetAvailableSlots(ctx context.Context, ownerID string, date domain.Date) ([]availability.Slot, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, validationError("owner_id is required")
	}
	if date.IsZero() {
		return nil, validationError("date is required")
	}

	cal, err := s.loadCalendar(ctx, ownerID, date, date)
	if err != nil {
		return nil, err
	}
	if err := s.checkWindow(cal.cfg, date); err != nil {
		return nil, err
	}
	return cal.freeSlots(date), nil
}

func (s *Service) checkWindow(cfg domain.ScheduleConfig, date domain.Date) error {
	w := s.bookingWindow(cfg)
	if r := w.Check(date); r != "" {
		return &OutOfWindowError{Reason: r, LeadDays: cfg.LeadDays, Min: w.Min, Max: w.Max}
	}
	return nil
}
