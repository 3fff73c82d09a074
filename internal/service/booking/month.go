package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agendafacil/backend/internal/availability"
	"agendafacil/backend/internal/cache"
	"agendafacil/backend/internal/domain"
)

type DayStatus string

const (
	DayAvailable   DayStatus = "DISPONIVEL"
	DayUnavailable DayStatus = "INDISPONIVEL"
)

const (
	ReasonBlocked       availability.Reason = "BLOCKED"
	ReasonClosed        availability.Reason = "CLOSED"
	ReasonFullyBooked   availability.Reason = "FULLY_BOOKED"
	ReasonNotConfigured availability.Reason = "NOT_CONFIGURED"
)

const (
	maxRangeDays        = 366
	monthComputeTimeout = 10 * time.Second
)

type DayAvailability struct {
	Date      domain.Date         `json:"date"`
	Status    DayStatus           `json:"status"`
	Reason    availability.Reason `json:"reason,omitempty"`
	HasBlocks bool                `json:"temBloqueios"`
}

func monthPrefix(ownerID string) string {
	return cache.OwnerPrefix("month", ownerID)
}

func monthKey(ownerID string, year int, month time.Month) string {
	return fmt.Sprintf("%s%04d-%02d", monthPrefix(ownerID), year, int(month))
}

// GetMonthAvailability returns one entry per day of the month. Results are
// cached per owner and month until the TTL passes or the owner's cache is
// invalidated.
func (s *Service) GetMonthAvailability(ctx context.Context, ownerID string, year int, month time.Month) ([]DayAvailability, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, validationError("owner_id is required")
	}
	if month < time.January || month > time.December {
		return nil, validationError("month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return nil, validationError("year out of range")
	}

	key := monthKey(ownerID, year, month)
	if days, ok := s.cachedMonth(ctx, key); ok {
		return days, nil
	}

	// Callers arriving after an invalidation start a new flight instead of
	// joining one that read the old state.
	gen := s.generation(ownerID)
	flight := fmt.Sprintf("%s@%d", key, gen)

	// The computation belongs to every caller of the flight, so it does not
	// inherit the first caller's cancellation.
	ch := s.months.DoChan(flight, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), monthComputeTimeout)
		defer cancel()
		started := s.clock.Now()

		days, cacheable, err := s.computeMonth(ctx, ownerID, year, month)
		if err != nil {
			return nil, err
		}
		s.metrics.MonthComputed(s.clock.Now().Sub(started).Seconds())

		if cacheable && s.generation(ownerID) == gen {
			s.storeMonth(ctx, key, days)
		}
		return days, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		days := res.Val.([]DayAvailability)
		return append([]DayAvailability(nil), days...), nil
	}
}

func (s *Service) cachedMonth(ctx context.Context, key string) ([]DayAvailability, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.MonthCacheLookup("error")
		s.log.Warn("month cache read failed", slog.Any("err", err), slog.String("key", key))
		return nil, false
	}
	if !ok {
		s.metrics.MonthCacheLookup("miss")
		return nil, false
	}

	var days []DayAvailability
	if err := json.Unmarshal(raw, &days); err != nil {
		s.metrics.MonthCacheLookup("error")
		s.log.Warn("month cache entry unreadable", slog.Any("err", err), slog.String("key", key))
		return nil, false
	}
	s.metrics.MonthCacheLookup("hit")
	return days, true
}

func (s *Service) storeMonth(ctx context.Context, key string, days []DayAvailability) {
	raw, err := json.Marshal(days)
	if err != nil {
		s.log.Warn("month cache encode failed", slog.Any("err", err), slog.String("key", key))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.monthTTL); err != nil {
		s.log.Warn("month cache write failed", slog.Any("err", err), slog.String("key", key))
	}
}

// computeMonth evaluates every day of the month. The second result is false
// when the answer must not be cached.
func (s *Service) computeMonth(ctx context.Context, ownerID string, year int, month time.Month) ([]DayAvailability, bool, error) {
	ctx, span := s.tracer.Start(ctx, "booking.computeMonth", trace.WithAttributes(
		attribute.String("owner_id", ownerID),
		attribute.Int("year", year),
		attribute.Int("month", int(month)),
	))
	defer span.End()

	first := domain.NewDate(year, month, 1)
	last := domain.DateOf(first.In(time.UTC).AddDate(0, 1, -1))

	cal, err := s.loadCalendar(ctx, ownerID, first, last)
	if errors.Is(err, ErrNotConfigured) {
		days := make([]DayAvailability, 0, last.Day)
		for d := first; !d.After(last); d = d.AddDays(1) {
			days = append(days, DayAvailability{Date: d, Status: DayUnavailable, Reason: ReasonNotConfigured})
		}
		return days, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	window := s.bookingWindow(cal.cfg)
	days := make([]DayAvailability, 0, last.Day)
	for d := first; !d.After(last); d = d.AddDays(1) {
		days = append(days, evaluateDay(d, cal, window))
	}
	return days, true, nil
}

// evaluateDay decides a month-view day. Capacity compares the slots left after
// blocks with the number of occupying bookings on that date.
func evaluateDay(d domain.Date, cal ownerCalendar, window availability.BookingWindow) DayAvailability {
	day := DayAvailability{
		Date:      d,
		Status:    DayUnavailable,
		HasBlocks: availability.TouchesDay(d, cal.conflicts),
	}

	if r := window.Check(d); r != "" {
		day.Reason = r
		return day
	}
	if availability.HasWholeDayBlock(d, cal.conflicts.DateRanges) {
		day.Reason = ReasonBlocked
		return day
	}

	grid := cal.generatedSlots(d)
	if len(grid) == 0 {
		day.Reason = ReasonClosed
		return day
	}

	unblocked := availability.FilterSlots(d, grid, availability.Conflicts{
		Recurring:  cal.conflicts.Recurring,
		DateRanges: cal.conflicts.DateRanges,
	})
	if len(unblocked) == 0 {
		day.Reason = ReasonBlocked
		return day
	}
	if len(unblocked) <= availability.OccupiedCount(d, cal.conflicts.Bookings) {
		day.Reason = ReasonFullyBooked
		return day
	}

	day.Status = DayAvailable
	return day
}

// GetAvailableDays lists bookable dates in [from, to], reading through the
// month cache.
func (s *Service) GetAvailableDays(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Date, error) {
	if to.Before(from) {
		return nil, validationError("to must not be before from")
	}
	if from.DaysUntil(to) >= maxRangeDays {
		return nil, validationError("range must not exceed 366 days")
	}

	var out []domain.Date
	year, month := from.Year, from.Month
	for {
		days, err := s.GetMonthAvailability(ctx, ownerID, year, month)
		if err != nil {
			return nil, err
		}
		for _, d := range days {
			if d.Status == DayAvailable && !d.Date.Before(from) && !d.Date.After(to) {
				out = append(out, d.Date)
			}
		}
		if year == to.Year && month == to.Month {
			return out, nil
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
}
