package store

import (
	"context"

	"github.com/google/uuid"

	"agendafacil/backend/internal/domain"
)

type BookingStore interface {
	// ListActiveBookings returns pending and confirmed bookings with from <= date <= to.
	ListActiveBookings(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Booking, error)
	// InOwnerTransaction runs fn in a transaction serialized against every other
	// booking transaction of the same owner.
	InOwnerTransaction(ctx context.Context, ownerID string, fn func(ctx context.Context, tx BookingTx) error) error
}

type BookingTx interface {
	FindActiveBooking(ctx context.Context, ownerID string, date domain.Date, start domain.TimeOfDay) (domain.Booking, bool, error)
	// InsertBooking returns ErrConflict when an occupying booking already holds the slot.
	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	GetBooking(ctx context.Context, ownerID string, id uuid.UUID) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

// BookingLister serves the owner panel's booking list, cancelled bookings included.
type BookingLister interface {
	ListBookings(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Booking, error)
}
