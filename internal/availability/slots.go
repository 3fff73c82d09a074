package availability

import "agendafacil/backend/internal/domain"

// Window is the half-open working interval [Start, End) of a single day.
type Window struct {
	Start domain.TimeOfDay
	End   domain.TimeOfDay
}

type Slot struct {
	Start domain.TimeOfDay `json:"start"`
	End   domain.TimeOfDay `json:"end"`
}

// Overlaps reports whether the slot intersects [start, end).
func (s Slot) Overlaps(start, end domain.TimeOfDay) bool {
	return s.Start < end && s.End > start
}

// ResolveWindow picks the working window for a weekday. An active override
// with a positive span wins; otherwise the default window applies when it has
// a positive span. The second result is false for a closed day.
func ResolveWindow(cfg domain.ScheduleConfig, overrides []domain.WeeklyOverride, weekday int) (Window, bool) {
	for _, o := range overrides {
		if int(o.Weekday) != weekday || !o.Active {
			continue
		}
		if o.StartsAt < o.EndsAt {
			return Window{Start: o.StartsAt, End: o.EndsAt}, true
		}
	}
	if cfg.OpensAt < cfg.ClosesAt {
		return Window{Start: cfg.OpensAt, End: cfg.ClosesAt}, true
	}
	return Window{}, false
}

// GenerateSlots walks the window emitting [cursor, cursor+duration) while the
// slot fits, stepping by duration+buffer. Slots are ascending and never exceed
// the window end.
func GenerateSlots(w Window, durationMinutes, bufferMinutes int) []Slot {
	if durationMinutes <= 0 || w.End <= w.Start {
		return nil
	}
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}

	var slots []Slot
	for cursor := w.Start; cursor.Add(durationMinutes) <= w.End; cursor = cursor.Add(durationMinutes + bufferMinutes) {
		slots = append(slots, Slot{Start: cursor, End: cursor.Add(durationMinutes)})
	}
	return slots
}
