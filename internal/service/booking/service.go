package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"agendafacil/backend/internal/availability"
	"agendafacil/backend/internal/cache"
	"agendafacil/backend/internal/clock"
	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/events"
	"agendafacil/backend/internal/idempotency"
	"agendafacil/backend/internal/metrics"
	"agendafacil/backend/internal/store"
)

const DefaultMonthCacheTTL = 60 * time.Second

// ScheduleSource is the read side of the owner's schedule.
type ScheduleSource interface {
	GetScheduleConfig(ctx context.Context, ownerID string) (domain.ScheduleConfig, error)
	ListWeeklyOverrides(ctx context.Context, ownerID string) ([]domain.WeeklyOverride, error)
	ListRecurringBlocks(ctx context.Context, ownerID string) ([]domain.RecurringBlock, error)
	ListDateRangeBlocks(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.DateRangeBlock, error)
}

type Deps struct {
	Schedule  ScheduleSource
	Bookings  store.BookingStore
	Cache     cache.Store
	Guard     *idempotency.Guard
	Clock     clock.Clock
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Log       *slog.Logger
}

type Options struct {
	// Location is the single local zone used to derive "today" and civil dates.
	Location      *time.Location
	MonthCacheTTL time.Duration
}

type Service struct {
	schedule  ScheduleSource
	bookings  store.BookingStore
	cache     cache.Store
	guard     *idempotency.Guard
	clock     clock.Clock
	publisher events.Publisher
	metrics   metrics.Recorder
	log       *slog.Logger
	tracer    trace.Tracer

	loc      *time.Location
	monthTTL time.Duration

	months      singleflight.Group
	generations *xsync.MapOf[string, uint64]
}

func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		schedule:    deps.Schedule,
		bookings:    deps.Bookings,
		cache:       deps.Cache,
		guard:       deps.Guard,
		clock:       deps.Clock,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		log:         deps.Log,
		tracer:      otel.Tracer("agendafacil/backend/internal/service/booking"),
		loc:         opts.Location,
		monthTTL:    opts.MonthCacheTTL,
		generations: xsync.NewMapOf[string, uint64](),
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.cache == nil {
		s.cache = cache.NewLocal(s.clock)
	}
	if s.guard == nil {
		s.guard = idempotency.NewGuard(s.cache, idempotency.DefaultTTL, s.clock)
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With(slog.String("component", "service.booking"))
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.monthTTL <= 0 {
		s.monthTTL = DefaultMonthCacheTTL
	}
	return s
}

// Today is the current civil date in the business's zone.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.clock.Now().In(s.loc))
}

// InvalidateOwnerCache drops every cached month of the owner. Computations
// already in flight for the owner will not store their result.
func (s *Service) InvalidateOwnerCache(ctx context.Context, ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return validationError("owner_id is required")
	}

	s.generations.Compute(ownerID, func(old uint64, _ bool) (uint64, bool) {
		return old + 1, false
	})

	n, err := s.cache.DeletePrefix(ctx, monthPrefix(ownerID))
	if err != nil {
		s.metrics.CacheInvalidation("error")
		return fmt.Errorf("purge month cache: %w", err)
	}
	s.metrics.CacheInvalidation("ok")
	s.log.Debug("owner cache invalidated", slog.String("owner_id", ownerID), slog.Int("removed", n))
	return nil
}

func (s *Service) generation(ownerID string) uint64 {
	g, _ := s.generations.Load(ownerID)
	return g
}

// ownerCalendar is everything needed to evaluate days of one owner in a date range.
type ownerCalendar struct {
	cfg       domain.ScheduleConfig
	overrides []domain.WeeklyOverride
	conflicts availability.Conflicts
}

func (s *Service) loadCalendar(ctx context.Context, ownerID string, from, to domain.Date) (ownerCalendar, error) {
	cfg, err := s.schedule.GetScheduleConfig(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return ownerCalendar{}, ErrNotConfigured
	}
	if err != nil {
		return ownerCalendar{}, fmt.Errorf("load schedule config: %w", err)
	}

	overrides, err := s.schedule.ListWeeklyOverrides(ctx, ownerID)
	if err != nil {
		return ownerCalendar{}, fmt.Errorf("load weekly overrides: %w", err)
	}
	recurring, err := s.schedule.ListRecurringBlocks(ctx, ownerID)
	if err != nil {
		return ownerCalendar{}, fmt.Errorf("load recurring blocks: %w", err)
	}
	ranges, err := s.schedule.ListDateRangeBlocks(ctx, ownerID, from, to)
	if err != nil {
		return ownerCalendar{}, fmt.Errorf("load date range blocks: %w", err)
	}
	bookings, err := s.bookings.ListActiveBookings(ctx, ownerID, from, to)
	if err != nil {
		return ownerCalendar{}, fmt.Errorf("load bookings: %w", err)
	}

	return ownerCalendar{
		cfg:       cfg,
		overrides: overrides,
		conflicts: availability.Conflicts{
			Recurring:  recurring,
			DateRanges: ranges,
			Bookings:   bookings,
		},
	}, nil
}

func (s *Service) bookingWindow(cfg domain.ScheduleConfig) availability.BookingWindow {
	return availability.NewBookingWindow(s.Today(), cfg.LeadDays, cfg.HorizonDays)
}

// generatedSlots is the day's slot grid before any conflict is applied.
func (c ownerCalendar) generatedSlots(date domain.Date) []availability.Slot {
	w, open := availability.ResolveWindow(c.cfg, c.overrides, int(date.Weekday()))
	if !open {
		return nil
	}
	return availability.GenerateSlots(w, c.cfg.SlotMinutes, c.cfg.BufferMinutes)
}

// freeSlots applies blocks and occupying bookings to the day's grid.
func (c ownerCalendar) freeSlots(date domain.Date) []availability.Slot {
	return availability.FilterSlots(date, c.generatedSlots(date), c.conflicts)
}
