package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/service/schedule"
	"agendafacil/backend/internal/store"
)

type PanelServer struct {
	svc panelService
	log *slog.Logger
}

type panelService interface {
	UpsertConfig(ctx context.Context, in schedule.ConfigInput) (domain.ScheduleConfig, error)
	SetWeeklyOverride(ctx context.Context, in schedule.OverrideInput) (domain.WeeklyOverride, error)
	AddRecurringBlock(ctx context.Context, in schedule.RecurringBlockInput) (domain.RecurringBlock, error)
	AddDateRangeBlock(ctx context.Context, in schedule.DateRangeBlockInput) (domain.DateRangeBlock, error)
	DeleteBlock(ctx context.Context, ownerID, kind, id string) error
	UpdateBookingStatus(ctx context.Context, ownerID, id string, action schedule.Action) (domain.Booking, error)
	ListBookings(ctx context.Context, ownerID, from, to string) ([]domain.Booking, error)
	InvalidateOwnerCache(ctx context.Context, ownerID string) error
}

func NewPanelServer(svc panelService, log *slog.Logger) *PanelServer {
	if log == nil {
		log = slog.Default()
	}
	return &PanelServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.panel")),
	}
}

func (s *PanelServer) UpsertScheduleConfig(ctx context.Context, req *UpsertScheduleConfigRequest) (*UpsertScheduleConfigResponse, error) {
	log := s.log.With(slog.String("rpc", "UpsertScheduleConfig"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cfg, err := s.svc.UpsertConfig(ctx, schedule.ConfigInput{
		OwnerID:       req.OwnerID,
		OpensAt:       req.OpensAt,
		ClosesAt:      req.ClosesAt,
		SlotMinutes:   req.SlotMinutes,
		BufferMinutes: req.BufferMinutes,
		LeadDays:      req.LeadDays,
		HorizonDays:   req.HorizonDays,
	})
	if err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}

	log.Info("schedule config saved", slog.String("owner_id", cfg.OwnerID))
	return &UpsertScheduleConfigResponse{Config: toScheduleConfig(cfg)}, nil
}

func (s *PanelServer) SetWeeklyOverride(ctx context.Context, req *SetWeeklyOverrideRequest) (*SetWeeklyOverrideResponse, error) {
	log := s.log.With(slog.String("rpc", "SetWeeklyOverride"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	o, err := s.svc.SetWeeklyOverride(ctx, schedule.OverrideInput{
		OwnerID:  req.OwnerID,
		Weekday:  req.Weekday,
		Active:   req.Active,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}

	log.Info("weekly override saved", slog.String("owner_id", req.OwnerID), slog.Int("weekday", req.Weekday), slog.Bool("active", o.Active))
	return &SetWeeklyOverrideResponse{Override: toWeeklyOverride(o)}, nil
}

func (s *PanelServer) AddRecurringBlock(ctx context.Context, req *AddRecurringBlockRequest) (*AddRecurringBlockResponse, error) {
	log := s.log.With(slog.String("rpc", "AddRecurringBlock"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	b, err := s.svc.AddRecurringBlock(ctx, schedule.RecurringBlockInput{
		OwnerID:  req.OwnerID,
		Weekday:  req.Weekday,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Reason:   req.Reason,
	})
	if err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}

	log.Info("recurring block added", slog.String("owner_id", req.OwnerID), slog.String("block_id", b.ID.String()))
	return &AddRecurringBlockResponse{Block: toRecurringBlock(b)}, nil
}

func (s *PanelServer) AddDateRangeBlock(ctx context.Context, req *AddDateRangeBlockRequest) (*AddDateRangeBlockResponse, error) {
	log := s.log.With(slog.String("rpc", "AddDateRangeBlock"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	b, err := s.svc.AddDateRangeBlock(ctx, schedule.DateRangeBlockInput{
		OwnerID:   req.OwnerID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		Reason:    req.Reason,
	})
	if err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}

	log.Info("date range block added", slog.String("owner_id", req.OwnerID), slog.String("block_id", b.ID.String()), slog.Bool("whole_day", b.WholeDay()))
	return &AddDateRangeBlockResponse{Block: toDateRangeBlock(b)}, nil
}

func (s *PanelServer) DeleteBlock(ctx context.Context, req *DeleteBlockRequest) (*DeleteBlockResponse, error) {
	log := s.log.With(slog.String("rpc", "DeleteBlock"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if err := s.svc.DeleteBlock(ctx, req.OwnerID, req.Kind, req.BlockID); err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}

	log.Info("block deleted", slog.String("owner_id", req.OwnerID), slog.String("kind", req.Kind), slog.String("block_id", req.BlockID))
	return &DeleteBlockResponse{}, nil
}

func (s *PanelServer) UpdateBookingStatus(ctx context.Context, req *UpdateBookingStatusRequest) (*UpdateBookingStatusResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateBookingStatus"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	b, err := s.svc.UpdateBookingStatus(ctx, req.OwnerID, req.BookingID, schedule.Action(req.Action))
	if err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}
	return &UpdateBookingStatusResponse{Booking: b}, nil
}

func (s *PanelServer) ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListBookings"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	bookings, err := s.svc.ListBookings(ctx, req.OwnerID, req.From, req.To)
	if err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}

	log.Debug("bookings listed", slog.String("owner_id", req.OwnerID), slog.Int("count", len(bookings)))
	return &ListBookingsResponse{Bookings: nonNil(bookings)}, nil
}

func (s *PanelServer) InvalidateOwnerCache(ctx context.Context, req *InvalidateOwnerCacheRequest) (*InvalidateOwnerCacheResponse, error) {
	log := s.log.With(slog.String("rpc", "InvalidateOwnerCache"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := s.svc.InvalidateOwnerCache(ctx, req.OwnerID); err != nil {
		return nil, panelStatus(log, err, req.OwnerID)
	}

	log.Info("owner cache invalidated", slog.String("owner_id", req.OwnerID))
	return &InvalidateOwnerCacheResponse{}, nil
}

func panelStatus(log *slog.Logger, err error, ownerID string) error {
	var vErr *schedule.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err), slog.String("owner_id", ownerID))
		return status.Error(codes.InvalidArgument, vErr.Error())
	}
	if errors.Is(err, store.ErrNotFound) {
		log.Info("not found", slog.String("owner_id", ownerID))
		return status.Error(codes.NotFound, "not found")
	}
	if errors.Is(err, schedule.ErrInvalidTransition) {
		log.Info("invalid transition", slog.Any("err", err), slog.String("owner_id", ownerID))
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	log.Error("request failed", slog.Any("err", err), slog.String("owner_id", ownerID))
	return status.Error(codes.Internal, "internal error")
}
