package grpc

import (
	"encoding/json"
	"time"

	"agendafacil/backend/internal/availability"
	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/service/booking"
)

type GetAvailableDaysRequest struct {
	OwnerID string `json:"owner_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type GetAvailableDaysResponse struct {
	Dates []domain.Date `json:"dates"`
}

type GetMonthAvailabilityRequest struct {
	OwnerID string `json:"owner_id"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
}

type GetMonthAvailabilityResponse struct {
	Days []booking.DayAvailability `json:"days"`
}

type GetAvailableSlotsRequest struct {
	OwnerID string `json:"owner_id"`
	Date    string `json:"date"`
}

type GetAvailableSlotsResponse struct {
	Date  domain.Date         `json:"date"`
	Slots []availability.Slot `json:"slots"`
}

type CreateBookingRequest struct {
	OwnerID       string `json:"owner_id"`
	Date          string `json:"date"`
	Start         string `json:"start"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Note          string `json:"note,omitempty"`
}

// CreateBookingResponse carries the stored response bytes verbatim so a
// replayed request sees exactly what the first one saw.
type CreateBookingResponse struct {
	Status   int             `json:"status"`
	Replayed bool            `json:"replayed"`
	Booking  json.RawMessage `json:"booking"`
}

type InvalidateOwnerCacheRequest struct {
	OwnerID string `json:"owner_id"`
}

type InvalidateOwnerCacheResponse struct{}

type UpsertScheduleConfigRequest struct {
	OwnerID       string `json:"owner_id"`
	OpensAt       string `json:"opens_at"`
	ClosesAt      string `json:"closes_at"`
	SlotMinutes   int    `json:"slot_minutes"`
	BufferMinutes int    `json:"buffer_minutes"`
	LeadDays      int    `json:"lead_days"`
	HorizonDays   int    `json:"horizon_days"`
}

type ScheduleConfig struct {
	OwnerID       string           `json:"owner_id"`
	OpensAt       domain.TimeOfDay `json:"opens_at"`
	ClosesAt      domain.TimeOfDay `json:"closes_at"`
	SlotMinutes   int              `json:"slot_minutes"`
	BufferMinutes int              `json:"buffer_minutes"`
	LeadDays      int              `json:"lead_days"`
	HorizonDays   int              `json:"horizon_days"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type UpsertScheduleConfigResponse struct {
	Config ScheduleConfig `json:"config"`
}

type SetWeeklyOverrideRequest struct {
	OwnerID  string `json:"owner_id"`
	Weekday  int    `json:"weekday"`
	Active   bool   `json:"active"`
	StartsAt string `json:"starts_at,omitempty"`
	EndsAt   string `json:"ends_at,omitempty"`
}

type WeeklyOverride struct {
	Weekday  int              `json:"weekday"`
	Active   bool             `json:"active"`
	StartsAt domain.TimeOfDay `json:"starts_at"`
	EndsAt   domain.TimeOfDay `json:"ends_at"`
}

type SetWeeklyOverrideResponse struct {
	Override WeeklyOverride `json:"override"`
}

type AddRecurringBlockRequest struct {
	OwnerID  string `json:"owner_id"`
	Weekday  int    `json:"weekday"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Reason   string `json:"reason,omitempty"`
}

type RecurringBlock struct {
	ID       string           `json:"id"`
	Weekday  int              `json:"weekday"`
	StartsAt domain.TimeOfDay `json:"starts_at"`
	EndsAt   domain.TimeOfDay `json:"ends_at"`
	Reason   string           `json:"reason,omitempty"`
}

type AddRecurringBlockResponse struct {
	Block RecurringBlock `json:"block"`
}

type AddDateRangeBlockRequest struct {
	OwnerID   string `json:"owner_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartsAt  string `json:"starts_at,omitempty"`
	EndsAt    string `json:"ends_at,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type DateRangeBlock struct {
	ID        string            `json:"id"`
	StartDate domain.Date       `json:"start_date"`
	EndDate   domain.Date       `json:"end_date"`
	StartsAt  *domain.TimeOfDay `json:"starts_at,omitempty"`
	EndsAt    *domain.TimeOfDay `json:"ends_at,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

type AddDateRangeBlockResponse struct {
	Block DateRangeBlock `json:"block"`
}

type DeleteBlockRequest struct {
	OwnerID string `json:"owner_id"`
	Kind    string `json:"kind"`
	BlockID string `json:"block_id"`
}

type DeleteBlockResponse struct{}

type UpdateBookingStatusRequest struct {
	OwnerID   string `json:"owner_id"`
	BookingID string `json:"booking_id"`
	Action    string `json:"action"`
}

type UpdateBookingStatusResponse struct {
	Booking domain.Booking `json:"booking"`
}

type ListBookingsRequest struct {
	OwnerID string `json:"owner_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type ListBookingsResponse struct {
	Bookings []domain.Booking `json:"bookings"`
}

func toScheduleConfig(c domain.ScheduleConfig) ScheduleConfig {
	return ScheduleConfig{
		OwnerID:       c.OwnerID,
		OpensAt:       c.OpensAt,
		ClosesAt:      c.ClosesAt,
		SlotMinutes:   c.SlotMinutes,
		BufferMinutes: c.BufferMinutes,
		LeadDays:      c.LeadDays,
		HorizonDays:   c.HorizonDays,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toWeeklyOverride(o domain.WeeklyOverride) WeeklyOverride {
	return WeeklyOverride{
		Weekday:  int(o.Weekday),
		Active:   o.Active,
		StartsAt: o.StartsAt,
		EndsAt:   o.EndsAt,
	}
}

func toRecurringBlock(b domain.RecurringBlock) RecurringBlock {
	return RecurringBlock{
		ID:       b.ID.String(),
		Weekday:  int(b.Weekday),
		StartsAt: b.StartsAt,
		EndsAt:   b.EndsAt,
		Reason:   b.Reason,
	}
}

func toDateRangeBlock(b domain.DateRangeBlock) DateRangeBlock {
	return DateRangeBlock{
		ID:        b.ID.String(),
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		StartsAt:  b.StartsAt,
		EndsAt:    b.EndsAt,
		Reason:    b.Reason,
	}
}
