package grpc

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"agendafacil/backend/internal/availability"
	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/service/booking"
)

type fakeBookingService struct {
	availableDaysFn func(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Date, error)
	monthFn         func(ctx context.Context, ownerID string, year int, month time.Month) ([]booking.DayAvailability, error)
	slotsFn         func(ctx context.Context, ownerID string, date domain.Date) ([]availability.Slot, error)
	createFn        func(ctx context.Context, in booking.CreateBookingInput) (booking.Receipt, error)
}

func (f *fakeBookingService) GetAvailableDays(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Date, error) {
	if f.availableDaysFn == nil {
		panic("GetAvailableDays not configured")
	}
	return f.availableDaysFn(ctx, ownerID, from, to)
}

func (f *fakeBookingService) GetMonthAvailability(ctx context.Context, ownerID string, year int, month time.Month) ([]booking.DayAvailability, error) {
	if f.monthFn == nil {
		panic("GetMonthAvailability not configured")
	}
	return f.monthFn(ctx, ownerID, year, month)
}

func (f *fakeBookingService) GetAvailableSlots(ctx context.Context, ownerID string, date domain.Date) ([]availability.Slot, error) {
	if f.slotsFn == nil {
		panic("GetAvailableSlots not configured")
	}
	return f.slotsFn(ctx, ownerID, date)
}

func (f *fakeBookingService) CreateBooking(ctx context.Context, in booking.CreateBookingInput) (booking.Receipt, error) {
	if f.createFn == nil {
		panic("CreateBooking not configured")
	}
	return f.createFn(ctx, in)
}

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}

	if got := idempotencyKey(context.Background()); got != "" {
		t.Fatalf("idempotencyKey without metadata = %q, want empty", got)
	}
}

func TestCreateBooking_PassesIdempotencyKeyToService(t *testing.T) {
	var gotKey string
	body := []byte(`{"id":"00000000-0000-0000-0000-000000000010"}`)

	srv := NewBookingServer(&fakeBookingService{
		createFn: func(ctx context.Context, in booking.CreateBookingInput) (booking.Receipt, error) {
			gotKey = in.IdempotencyKey
			return booking.Receipt{Status: 201, Body: body}, nil
		},
	}, slog.Default())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "k1"))
	resp, err := srv.CreateBooking(ctx, &CreateBookingRequest{OwnerID: "o1", Date: "2024-01-12", Start: "09:00"})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if gotKey != "k1" {
		t.Fatalf("idempotency_key = %q, want %q", gotKey, "k1")
	}
	if resp.Status != 201 || string(resp.Booking) != string(body) {
		t.Fatalf("response = %d %s", resp.Status, resp.Booking)
	}
}

func TestCreateBooking_MapsErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    codes.Code
		message string
	}{
		{"validation", &booking.ValidationError{}, codes.InvalidArgument, ""},
		{"not configured", booking.ErrNotConfigured, codes.FailedPrecondition, "agenda not available"},
		{"slot unavailable", booking.ErrSlotUnavailable, codes.Aborted, "slot no longer available"},
		{"concurrent conflict", booking.ErrConcurrentBookingConflict, codes.Aborted, "slot no longer available"},
		{"out of window", &booking.OutOfWindowError{Reason: availability.ReasonOutOfLeadTime, LeadDays: 2, Min: domain.NewDate(2024, time.January, 13)}, codes.OutOfRange, ""},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded, ""},
		{"internal", errors.New("db down"), codes.Internal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewBookingServer(&fakeBookingService{
				createFn: func(ctx context.Context, in booking.CreateBookingInput) (booking.Receipt, error) {
					return booking.Receipt{}, tt.err
				},
			}, slog.Default())

			_, err := srv.CreateBooking(context.Background(), &CreateBookingRequest{OwnerID: "o1"})
			st, _ := status.FromError(err)
			if st.Code() != tt.code {
				t.Fatalf("code = %s, want %s", st.Code(), tt.code)
			}
			if tt.message != "" && st.Message() != tt.message {
				t.Fatalf("message = %q, want %q", st.Message(), tt.message)
			}
		})
	}
}

func TestCreateBooking_RejectsNilRequest(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{}, slog.Default())

	_, err := srv.CreateBooking(context.Background(), nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestGetAvailableSlots_RejectsMalformedDate(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{
		slotsFn: func(ctx context.Context, ownerID string, date domain.Date) ([]availability.Slot, error) {
			return nil, nil
		},
	}, slog.Default())

	_, err := srv.GetAvailableSlots(context.Background(), &GetAvailableSlotsRequest{OwnerID: "o1", Date: "12/01/2024"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestGetAvailableSlots_EmptyListIsNotNull(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{
		slotsFn: func(ctx context.Context, ownerID string, date domain.Date) ([]availability.Slot, error) {
			return nil, nil
		},
	}, slog.Default())

	resp, err := srv.GetAvailableSlots(context.Background(), &GetAvailableSlotsRequest{OwnerID: "o1", Date: "2024-01-12"})
	if err != nil {
		t.Fatalf("GetAvailableSlots error: %v", err)
	}
	if resp.Slots == nil {
		t.Fatalf("slots = nil, want empty slice")
	}
}

func TestGetMonthAvailability_PassesMonth(t *testing.T) {
	var gotYear int
	var gotMonth time.Month
	srv := NewBookingServer(&fakeBookingService{
		monthFn: func(ctx context.Context, ownerID string, year int, month time.Month) ([]booking.DayAvailability, error) {
			gotYear, gotMonth = year, month
			return []booking.DayAvailability{{Date: domain.NewDate(year, month, 1), Status: booking.DayAvailable}}, nil
		},
	}, slog.Default())

	resp, err := srv.GetMonthAvailability(context.Background(), &GetMonthAvailabilityRequest{OwnerID: "o1", Year: 2024, Month: 2})
	if err != nil {
		t.Fatalf("GetMonthAvailability error: %v", err)
	}
	if gotYear != 2024 || gotMonth != time.February || len(resp.Days) != 1 {
		t.Fatalf("year=%d month=%s days=%d", gotYear, gotMonth, len(resp.Days))
	}
}
