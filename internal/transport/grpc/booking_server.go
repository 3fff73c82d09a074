package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"agendafacil/backend/internal/availability"
	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/service/booking"
)

type BookingServer struct {
	svc bookingService
	log *slog.Logger
}

type bookingService interface {
	GetAvailableDays(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Date, error)
	GetMonthAvailability(ctx context.Context, ownerID string, year int, month time.Month) ([]booking.DayAvailability, error)
	GetAvailableSlots(ctx context.Context, ownerID string, date domain.Date) ([]availability.Slot, error)
	CreateBooking(ctx context.Context, in booking.CreateBookingInput) (booking.Receipt, error)
}

func NewBookingServer(svc bookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) GetAvailableDays(ctx context.Context, req *GetAvailableDaysRequest) (*GetAvailableDaysResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAvailableDays"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	from, err := domain.ParseDate(strings.TrimSpace(req.From))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_from"), slog.String("owner_id", req.OwnerID))
		return nil, status.Error(codes.InvalidArgument, "from must be YYYY-MM-DD")
	}
	to, err := domain.ParseDate(strings.TrimSpace(req.To))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_to"), slog.String("owner_id", req.OwnerID))
		return nil, status.Error(codes.InvalidArgument, "to must be YYYY-MM-DD")
	}

	dates, err := s.svc.GetAvailableDays(ctx, req.OwnerID, from, to)
	if err != nil {
		return nil, bookingStatus(log, err, req.OwnerID)
	}

	log.Debug("available days listed", slog.String("owner_id", req.OwnerID), slog.Int("count", len(dates)))
	return &GetAvailableDaysResponse{Dates: nonNil(dates)}, nil
}

func (s *BookingServer) GetMonthAvailability(ctx context.Context, req *GetMonthAvailabilityRequest) (*GetMonthAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "GetMonthAvailability"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	days, err := s.svc.GetMonthAvailability(ctx, req.OwnerID, req.Year, time.Month(req.Month))
	if err != nil {
		return nil, bookingStatus(log, err, req.OwnerID)
	}

	log.Debug("month availability served",
		slog.String("owner_id", req.OwnerID),
		slog.Int("year", req.Year),
		slog.Int("month", req.Month),
	)
	return &GetMonthAvailabilityResponse{Days: days}, nil
}

func (s *BookingServer) GetAvailableSlots(ctx context.Context, req *GetAvailableSlotsRequest) (*GetAvailableSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAvailableSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := domain.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_date"), slog.String("owner_id", req.OwnerID))
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}

	slots, err := s.svc.GetAvailableSlots(ctx, req.OwnerID, date)
	if err != nil {
		return nil, bookingStatus(log, err, req.OwnerID)
	}

	log.Debug("slots listed", slog.String("owner_id", req.OwnerID), slog.String("date", date.String()), slog.Int("count", len(slots)))
	return &GetAvailableSlotsResponse{Date: date, Slots: nonNil(slots)}, nil
}

func (s *BookingServer) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*CreateBookingResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateBooking"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	r, err := s.svc.CreateBooking(ctx, booking.CreateBookingInput{
		OwnerID:        req.OwnerID,
		Date:           req.Date,
		Start:          req.Start,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Note:           req.Note,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, bookingStatus(log, err, req.OwnerID)
	}

	if r.Replayed {
		log.Info("booking replayed", slog.String("booking_id", r.Booking.ID.String()), slog.String("owner_id", r.Booking.OwnerID))
	} else {
		log.Info(
			"booking created",
			slog.String("booking_id", r.Booking.ID.String()),
			slog.String("owner_id", r.Booking.OwnerID),
			slog.String("date", r.Booking.Date.String()),
			slog.String("start", r.Booking.StartsAt.String()),
		)
	}

	return &CreateBookingResponse{Status: r.Status, Replayed: r.Replayed, Booking: r.Body}, nil
}

// bookingStatus maps engine errors to gRPC statuses. Expected outcomes are
// logged below Error.
func bookingStatus(log *slog.Logger, err error, ownerID string) error {
	var vErr *booking.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err), slog.String("owner_id", ownerID))
		return status.Error(codes.InvalidArgument, vErr.Error())
	}
	if errors.Is(err, booking.ErrNotConfigured) {
		log.Info("agenda not configured", slog.String("owner_id", ownerID))
		return status.Error(codes.FailedPrecondition, "agenda not available")
	}
	var wErr *booking.OutOfWindowError
	if errors.As(err, &wErr) {
		log.Info("date outside booking window", slog.String("owner_id", ownerID), slog.String("reason", string(wErr.Reason)))
		return status.Error(codes.OutOfRange, wErr.Error())
	}
	if errors.Is(err, booking.ErrConcurrentBookingConflict) {
		log.Info("booking lost to a concurrent request", slog.String("owner_id", ownerID))
		return status.Error(codes.Aborted, "slot no longer available")
	}
	if errors.Is(err, booking.ErrSlotUnavailable) {
		log.Info("slot unavailable", slog.String("owner_id", ownerID))
		return status.Error(codes.Aborted, "slot no longer available")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("request timed out", slog.String("owner_id", ownerID))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, "request canceled")
	}
	log.Error("request failed", slog.Any("err", err), slog.String("owner_id", ownerID))
	return status.Error(codes.Internal, "internal error")
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
