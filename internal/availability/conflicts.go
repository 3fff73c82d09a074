package availability

import "agendafacil/backend/internal/domain"

// Conflicts are the owner's blocks and bookings that may remove slots from a day.
type Conflicts struct {
	Recurring  []domain.RecurringBlock
	DateRanges []domain.DateRangeBlock
	Bookings   []domain.Booking
}

// FilterSlots drops every slot that a block or an occupying booking on date
// makes unbookable. The input order is kept.
func FilterSlots(date domain.Date, slots []Slot, c Conflicts) []Slot {
	if len(slots) == 0 {
		return nil
	}
	if HasWholeDayBlock(date, c.DateRanges) {
		return nil
	}

	spans := blockedSpans(date, c)
	taken := make(map[domain.TimeOfDay]struct{})
	var booked []domain.Booking
	for _, b := range c.Bookings {
		if b.Date != date || !b.Status.Occupies() {
			continue
		}
		taken[b.StartsAt] = struct{}{}
		booked = append(booked, b)
	}

	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if _, ok := taken[s.Start]; ok {
			continue
		}
		if overlapsAny(s, spans) || overlapsBooking(s, booked) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// HasWholeDayBlock reports whether a whole-day date-range block covers date.
func HasWholeDayBlock(date domain.Date, ranges []domain.DateRangeBlock) bool {
	for _, b := range ranges {
		if b.WholeDay() && b.Covers(date) {
			return true
		}
	}
	return false
}

// TouchesDay reports whether any block could affect date. Malformed recurring
// blocks do not count.
func TouchesDay(date domain.Date, c Conflicts) bool {
	for _, b := range c.Recurring {
		if b.WellFormed() && b.AppliesTo(date) {
			return true
		}
	}
	for _, b := range c.DateRanges {
		if b.Covers(date) {
			return true
		}
	}
	return false
}

// OccupiedCount counts bookings holding a slot on date.
func OccupiedCount(date domain.Date, bookings []domain.Booking) int {
	n := 0
	for _, b := range bookings {
		if b.Date == date && b.Status.Occupies() {
			n++
		}
	}
	return n
}

type span struct {
	start domain.TimeOfDay
	end   domain.TimeOfDay
}

func blockedSpans(date domain.Date, c Conflicts) []span {
	var spans []span
	for _, b := range c.Recurring {
		if b.WellFormed() && b.AppliesTo(date) {
			spans = append(spans, span{start: b.StartsAt, end: b.EndsAt})
		}
	}
	for _, b := range c.DateRanges {
		if b.WholeDay() || !b.Covers(date) || b.StartsAt == nil || b.EndsAt == nil {
			continue
		}
		if *b.StartsAt < *b.EndsAt {
			spans = append(spans, span{start: *b.StartsAt, end: *b.EndsAt})
		}
	}
	return spans
}

func overlapsAny(s Slot, spans []span) bool {
	for _, sp := range spans {
		if s.Overlaps(sp.start, sp.end) {
			return true
		}
	}
	return false
}

func overlapsBooking(s Slot, booked []domain.Booking) bool {
	for _, b := range booked {
		if b.Overlaps(s.Start, s.End) {
			return true
		}
	}
	return false
}
