package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"agendafacil/backend/internal/clock"
	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ErrInvalidTransition is returned when a booking cannot move to the
// requested status from its current one.
var ErrInvalidTransition = errors.New("invalid booking status transition")

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
	ActionCheckIn Action = "check_in"
	ActionNoShow  Action = "no_show"
)

const maxListDays = 366

// Repository is the owner-facing side of the schedule store.
type Repository interface {
	store.ConfigStore
	store.OverrideStore
	store.BlockStore
}

type BookingRepository interface {
	store.BookingStore
	store.BookingLister
}

// Invalidator drops cached availability after the owner changes anything that
// affects it.
type Invalidator interface {
	InvalidateOwnerCache(ctx context.Context, ownerID string) error
}

type Service struct {
	repo     Repository
	bookings BookingRepository
	cache    Invalidator
	clock    clock.Clock
	log      *slog.Logger
}

func NewService(repo Repository, bookings BookingRepository, cache Invalidator, clk clock.Clock, log *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		bookings: bookings,
		cache:    cache,
		clock:    clk,
		log:      log.With(slog.String("component", "service.schedule")),
	}
}

type ConfigInput struct {
	OwnerID       string
	OpensAt       string
	ClosesAt      string
	SlotMinutes   int
	BufferMinutes int
	LeadDays      int
	HorizonDays   int
}

func (s *Service) UpsertConfig(ctx context.Context, in ConfigInput) (domain.ScheduleConfig, error) {
	ownerID, err := requireOwner(in.OwnerID)
	if err != nil {
		return domain.ScheduleConfig{}, err
	}
	opens, err := parseTime("opens_at", in.OpensAt)
	if err != nil {
		return domain.ScheduleConfig{}, err
	}
	closes, err := parseTime("closes_at", in.ClosesAt)
	if err != nil {
		return domain.ScheduleConfig{}, err
	}
	if opens >= closes {
		return domain.ScheduleConfig{}, validationError("opens_at must be before closes_at")
	}
	if in.SlotMinutes < domain.MinSlotMinutes || in.SlotMinutes > domain.MaxSlotMinutes {
		return domain.ScheduleConfig{}, validationError(fmt.Sprintf("slot_minutes must be between %d and %d", domain.MinSlotMinutes, domain.MaxSlotMinutes))
	}
	if in.BufferMinutes < 0 || in.BufferMinutes > domain.MaxBufferMinutes {
		return domain.ScheduleConfig{}, validationError(fmt.Sprintf("buffer_minutes must be between 0 and %d", domain.MaxBufferMinutes))
	}
	if in.LeadDays < 0 || in.LeadDays > domain.MaxLeadDays {
		return domain.ScheduleConfig{}, validationError(fmt.Sprintf("lead_days must be between 0 and %d", domain.MaxLeadDays))
	}
	if in.HorizonDays < domain.MinHorizonDays || in.HorizonDays > domain.MaxHorizonDays {
		return domain.ScheduleConfig{}, validationError(fmt.Sprintf("horizon_days must be between %d and %d", domain.MinHorizonDays, domain.MaxHorizonDays))
	}

	cfg, err := s.repo.UpsertScheduleConfig(ctx, domain.ScheduleConfig{
		OwnerID:       ownerID,
		OpensAt:       opens,
		ClosesAt:      closes,
		SlotMinutes:   in.SlotMinutes,
		BufferMinutes: in.BufferMinutes,
		LeadDays:      in.LeadDays,
		HorizonDays:   in.HorizonDays,
	})
	if err != nil {
		return domain.ScheduleConfig{}, err
	}
	s.invalidate(ctx, ownerID)
	return cfg, nil
}

type OverrideInput struct {
	OwnerID  string
	Weekday  int
	Active   bool
	StartsAt string
	EndsAt   string
}

// SetWeeklyOverride replaces the window of one weekday. An inactive override
// keeps the default window for that weekday.
func (s *Service) SetWeeklyOverride(ctx context.Context, in OverrideInput) (domain.WeeklyOverride, error) {
	ownerID, err := requireOwner(in.OwnerID)
	if err != nil {
		return domain.WeeklyOverride{}, err
	}
	if in.Weekday < domain.MinOverrideWeekday || in.Weekday > domain.MaxOverrideWeekday {
		return domain.WeeklyOverride{}, validationError("weekday must be between 1 (Monday) and 6 (Saturday)")
	}

	o := domain.WeeklyOverride{OwnerID: ownerID, Weekday: int16(in.Weekday), Active: in.Active}
	if in.Active || strings.TrimSpace(in.StartsAt) != "" || strings.TrimSpace(in.EndsAt) != "" {
		if o.StartsAt, err = parseTime("starts_at", in.StartsAt); err != nil {
			return domain.WeeklyOverride{}, err
		}
		if o.EndsAt, err = parseTime("ends_at", in.EndsAt); err != nil {
			return domain.WeeklyOverride{}, err
		}
		if in.Active && o.StartsAt >= o.EndsAt {
			return domain.WeeklyOverride{}, validationError("starts_at must be before ends_at")
		}
	}

	saved, err := s.repo.UpsertWeeklyOverride(ctx, o)
	if err != nil {
		return domain.WeeklyOverride{}, err
	}
	s.invalidate(ctx, ownerID)
	return saved, nil
}

type RecurringBlockInput struct {
	OwnerID  string
	Weekday  int
	StartsAt string
	EndsAt   string
	Reason   string
}

func (s *Service) AddRecurringBlock(ctx context.Context, in RecurringBlockInput) (domain.RecurringBlock, error) {
	ownerID, err := requireOwner(in.OwnerID)
	if err != nil {
		return domain.RecurringBlock{}, err
	}
	if in.Weekday < int(time.Sunday) || in.Weekday > int(time.Saturday) {
		return domain.RecurringBlock{}, validationError("weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	start, err := parseTime("starts_at", in.StartsAt)
	if err != nil {
		return domain.RecurringBlock{}, err
	}
	end, err := parseTime("ends_at", in.EndsAt)
	if err != nil {
		return domain.RecurringBlock{}, err
	}
	if start >= end {
		return domain.RecurringBlock{}, validationError("starts_at must be before ends_at")
	}

	b, err := s.repo.CreateRecurringBlock(ctx, domain.RecurringBlock{
		OwnerID:  ownerID,
		Weekday:  int16(in.Weekday),
		StartsAt: start,
		EndsAt:   end,
		Reason:   strings.TrimSpace(in.Reason),
	})
	if err != nil {
		return domain.RecurringBlock{}, err
	}
	s.invalidate(ctx, ownerID)
	return b, nil
}

type DateRangeBlockInput struct {
	OwnerID   string
	StartDate string
	EndDate   string
	// StartsAt and EndsAt are both empty for a whole-day block.
	StartsAt string
	EndsAt   string
	Reason   string
}

func (s *Service) AddDateRangeBlock(ctx context.Context, in DateRangeBlockInput) (domain.DateRangeBlock, error) {
	ownerID, err := requireOwner(in.OwnerID)
	if err != nil {
		return domain.DateRangeBlock{}, err
	}
	startDate, err := parseDate("start_date", in.StartDate)
	if err != nil {
		return domain.DateRangeBlock{}, err
	}
	endDate, err := parseDate("end_date", in.EndDate)
	if err != nil {
		return domain.DateRangeBlock{}, err
	}
	if endDate.Before(startDate) {
		return domain.DateRangeBlock{}, validationError("end_date must not be before start_date")
	}

	b := domain.DateRangeBlock{
		OwnerID:   ownerID,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    strings.TrimSpace(in.Reason),
	}

	hasStart, hasEnd := strings.TrimSpace(in.StartsAt) != "", strings.TrimSpace(in.EndsAt) != ""
	if hasStart != hasEnd {
		return domain.DateRangeBlock{}, validationError("starts_at and ends_at must be given together")
	}
	if hasStart {
		start, err := parseTime("starts_at", in.StartsAt)
		if err != nil {
			return domain.DateRangeBlock{}, err
		}
		end, err := parseTime("ends_at", in.EndsAt)
		if err != nil {
			return domain.DateRangeBlock{}, err
		}
		if start >= end {
			return domain.DateRangeBlock{}, validationError("starts_at must be before ends_at")
		}
		b.StartsAt, b.EndsAt = &start, &end
	}

	saved, err := s.repo.CreateDateRangeBlock(ctx, b)
	if err != nil {
		return domain.DateRangeBlock{}, err
	}
	s.invalidate(ctx, ownerID)
	return saved, nil
}

func (s *Service) DeleteBlock(ctx context.Context, ownerID, kind, id string) error {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return err
	}
	k := domain.BlockKind(strings.TrimSpace(kind))
	if k != domain.BlockKindRecurring && k != domain.BlockKindDateRange {
		return validationError("kind must be recurring or date_range")
	}
	blockID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return validationError("invalid block id")
	}

	if err := s.repo.DeleteBlock(ctx, ownerID, k, blockID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// UpdateBookingStatus applies an owner action to a booking. The read and the
// write happen in the owner's booking transaction so they cannot interleave
// with a new booking for the same slot.
func (s *Service) UpdateBookingStatus(ctx context.Context, ownerID, id string, action Action) (domain.Booking, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return domain.Booking{}, err
	}
	bookingID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return domain.Booking{}, validationError("invalid booking id")
	}
	switch action {
	case ActionConfirm, ActionCancel, ActionCheckIn, ActionNoShow:
	default:
		return domain.Booking{}, validationError("action must be confirm, cancel, check_in or no_show")
	}

	var updated domain.Booking
	err = s.bookings.InOwnerTransaction(ctx, ownerID, func(ctx context.Context, tx store.BookingTx) error {
		b, err := tx.GetBooking(ctx, ownerID, bookingID)
		if err != nil {
			return err
		}
		if err := applyAction(&b, action, s.clock.Now().UTC()); err != nil {
			return err
		}
		updated, err = tx.UpdateBooking(ctx, b)
		return err
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.log.Info("booking status updated",
		slog.String("owner_id", ownerID),
		slog.String("booking_id", bookingID.String()),
		slog.String("action", string(action)),
		slog.String("status", string(updated.Status)),
	)
	s.invalidate(ctx, ownerID)
	return updated, nil
}

func applyAction(b *domain.Booking, action Action, now time.Time) error {
	switch action {
	case ActionConfirm:
		if b.Status != domain.BookingStatusPending {
			return fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidTransition, b.Status)
		}
		b.Status = domain.BookingStatusConfirmed
	case ActionCancel:
		if !b.Status.Occupies() {
			return fmt.Errorf("%w: booking is already %s", ErrInvalidTransition, b.Status)
		}
		b.Status = domain.BookingStatusCancelled
	case ActionCheckIn:
		if b.Status != domain.BookingStatusConfirmed || b.NoShow || b.CheckedInAt != nil {
			return fmt.Errorf("%w: only an open confirmed booking can be checked in", ErrInvalidTransition)
		}
		b.CheckedInAt = &now
	case ActionNoShow:
		if b.Status != domain.BookingStatusConfirmed || b.NoShow || b.CheckedInAt != nil {
			return fmt.Errorf("%w: only an open confirmed booking can be marked as no-show", ErrInvalidTransition)
		}
		b.NoShow = true
	}
	return nil
}

func (s *Service) ListBookings(ctx context.Context, ownerID, from, to string) ([]domain.Booking, error) {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	fromDate, err := parseDate("from", from)
	if err != nil {
		return nil, err
	}
	toDate, err := parseDate("to", to)
	if err != nil {
		return nil, err
	}
	if toDate.Before(fromDate) {
		return nil, validationError("to must not be before from")
	}
	if fromDate.DaysUntil(toDate) >= maxListDays {
		return nil, validationError("range must not exceed 366 days")
	}
	return s.bookings.ListBookings(ctx, ownerID, fromDate, toDate)
}

// InvalidateOwnerCache is the explicit purge for collaborators who changed
// something the engine cannot see. Unlike the purge after a mutation, its
// failure is reported.
func (s *Service) InvalidateOwnerCache(ctx context.Context, ownerID string) error {
	ownerID, err := requireOwner(ownerID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateOwnerCache(ctx, ownerID); err != nil {
		return fmt.Errorf("invalidate owner cache: %w", err)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOwnerCache(ctx, ownerID); err != nil {
		s.log.Warn("cache invalidation failed", slog.Any("err", err), slog.String("owner_id", ownerID))
	}
}

func requireOwner(ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", validationError("owner_id is required")
	}
	return ownerID, nil
}

func parseTime(field, s string) (domain.TimeOfDay, error) {
	t, err := domain.ParseTimeOfDay(strings.TrimSpace(s))
	if err != nil {
		return 0, validationError(field + " must be HH:mm")
	}
	return t, nil
}

func parseDate(field, s string) (domain.Date, error) {
	d, err := domain.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return domain.Date{}, validationError(field + " must be YYYY-MM-DD")
	}
	return d, nil
}
