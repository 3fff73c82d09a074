package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Occupies reports whether a booking in this status holds its slot.
func (s BookingStatus) Occupies() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// OccupyingStatuses lists the statuses that hold a slot.
var OccupyingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID            uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	OwnerID       string        `bun:"owner_id,notnull" json:"owner_id"`
	CustomerName  string        `bun:"customer_name,notnull" json:"customer_name"`
	CustomerPhone string        `bun:"customer_phone,notnull" json:"customer_phone"`
	Note          string        `bun:"note" json:"note,omitempty"`
	Date          Date          `bun:"date,notnull,type:date" json:"date"`
	StartsAt      TimeOfDay     `bun:"start_minute,notnull" json:"start"`
	EndsAt        TimeOfDay     `bun:"end_minute,notnull" json:"end"`
	Status        BookingStatus `bun:"status,notnull" json:"status"`
	CheckedInAt   *time.Time    `bun:"checked_in_at" json:"checked_in_at,omitempty"`
	NoShow        bool          `bun:"no_show,notnull" json:"no_show"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time     `bun:"updated_at,notnull" json:"updated_at"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if err := assignID(query, &b.ID); err != nil {
		return err
	}
	stampTimes(query, &b.CreatedAt, &b.UpdatedAt)
	return nil
}

// Overlaps reports whether [start, end) intersects the booking's interval.
func (b Booking) Overlaps(start, end TimeOfDay) bool {
	return start < b.EndsAt && end > b.StartsAt
}
