package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/idempotency"
	"agendafacil/backend/internal/store"
)

const (
	minNameRunes   = 2
	maxNameRunes   = 120
	minPhoneDigits = 10
	maxPhoneDigits = 15
	maxNoteRunes   = 500

	// afterCommitTimeout bounds the side effects of a committed booking. They
	// outlive the request so a client that gave up can still replay its token.
	afterCommitTimeout = 5 * time.Second
)

type CreateBookingInput struct {
	OwnerID        string
	Date           string
	Start          string
	CustomerName   string
	CustomerPhone  string
	Note           string
	IdempotencyKey string
}

// Receipt is the outcome of CreateBooking. Body holds the exact response
// bytes; a replayed receipt carries the bytes of the original response.
type Receipt struct {
	Status   int
	Body     []byte
	Booking  domain.Booking
	Replayed bool
}

// CreateBooking books a free slot for a customer. At most one occupying
// booking can exist per owner, date and start time.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "booking.CreateBooking", trace.WithAttributes(
		attribute.String("owner_id", in.OwnerID),
		attribute.String("date", in.Date),
		attribute.String("start", in.Start),
	))
	defer span.End()

	receipt, outcome, err := s.createBooking(ctx, in)
	s.metrics.BookingAttempt(outcome)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		if outcome == "error" {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, "create booking failed")
		}
		return Receipt{}, err
	}
	return receipt, nil
}

func (s *Service) createBooking(ctx context.Context, in CreateBookingInput) (Receipt, string, error) {
	ownerID := strings.TrimSpace(in.OwnerID)
	if ownerID == "" {
		return Receipt{}, "invalid", validationError("owner_id is required")
	}

	token := strings.TrimSpace(in.IdempotencyKey)
	if len(token) > idempotency.MaxTokenLength {
		return Receipt{}, "invalid", validationError("idempotency_key too long")
	}
	if token != "" {
		if r, ok := s.replay(ctx, ownerID, token); ok {
			return r, "replayed", nil
		}
	}

	req, err := parseRequest(in)
	if err != nil {
		return Receipt{}, "invalid", err
	}

	cal, err := s.loadCalendar(ctx, ownerID, req.date, req.date)
	if errors.Is(err, ErrNotConfigured) {
		return Receipt{}, "not_configured", err
	}
	if err != nil {
		return Receipt{}, "error", err
	}
	if err := s.checkWindow(cal.cfg, req.date); err != nil {
		return Receipt{}, "out_of_window", err
	}

	var slotEnd domain.TimeOfDay
	found := false
	for _, slot := range cal.freeSlots(req.date) {
		if slot.Start == req.start {
			slotEnd, found = slot.End, true
			break
		}
	}
	if !found {
		return Receipt{}, "unavailable", ErrSlotUnavailable
	}

	candidate := domain.Booking{
		OwnerID:       ownerID,
		CustomerName:  req.name,
		CustomerPhone: req.phone,
		Note:          req.note,
		Date:          req.date,
		StartsAt:      req.start,
		EndsAt:        slotEnd,
		Status:        domain.BookingStatusPending,
	}

	var created domain.Booking
	err = s.bookings.InOwnerTransaction(ctx, ownerID, func(ctx context.Context, tx store.BookingTx) error {
		_, taken, err := tx.FindActiveBooking(ctx, ownerID, req.date, req.start)
		if err != nil {
			return err
		}
		if taken {
			return ErrConcurrentBookingConflict
		}
		created, err = tx.InsertBooking(ctx, candidate)
		if errors.Is(err, store.ErrConflict) {
			return ErrConcurrentBookingConflict
		}
		return err
	})
	if errors.Is(err, ErrConcurrentBookingConflict) {
		s.log.Info("booking lost concurrent race",
			slog.String("owner_id", ownerID),
			slog.String("date", req.date.String()),
			slog.String("start", req.start.String()),
		)
		return Receipt{}, "conflict", err
	}
	if err != nil {
		return Receipt{}, "error", fmt.Errorf("insert booking: %w", err)
	}

	body, err := json.Marshal(created)
	if err != nil {
		return Receipt{}, "error", fmt.Errorf("encode booking: %w", err)
	}
	receipt := Receipt{Status: http.StatusCreated, Body: body, Booking: created}

	s.afterCreate(ctx, created, token, receipt)
	return receipt, "created", nil
}

// afterCreate runs the side effects of a committed booking. None of them can
// fail the request, and none of them is skipped because the caller went away.
func (s *Service) afterCreate(ctx context.Context, b domain.Booking, token string, r Receipt) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
	defer cancel()

	log := s.log.With(slog.String("owner_id", b.OwnerID), slog.String("booking_id", b.ID.String()))

	if err := s.InvalidateOwnerCache(ctx, b.OwnerID); err != nil {
		log.Warn("cache invalidation failed", slog.Any("err", err))
	}
	if token != "" {
		if _, err := s.guard.Remember(ctx, b.OwnerID, token, r.Status, r.Body); err != nil {
			log.Warn("idempotency record write failed", slog.Any("err", err))
		}
	}
	if err := s.publisher.BookingCreated(ctx, b); err != nil {
		log.Warn("booking event publish failed", slog.Any("err", err))
	}
}

func (s *Service) replay(ctx context.Context, ownerID, token string) (Receipt, bool) {
	rec, ok, err := s.guard.Lookup(ctx, ownerID, token)
	if err != nil {
		s.log.Warn("idempotency lookup failed", slog.Any("err", err), slog.String("owner_id", ownerID))
		return Receipt{}, false
	}
	if !ok {
		return Receipt{}, false
	}

	var b domain.Booking
	if err := json.Unmarshal(rec.Body, &b); err != nil {
		s.log.Warn("idempotency record unreadable", slog.Any("err", err), slog.String("owner_id", ownerID))
		return Receipt{}, false
	}
	s.log.Info("booking replayed", slog.String("owner_id", ownerID), slog.String("booking_id", b.ID.String()))
	return Receipt{Status: rec.Status, Body: rec.Body, Booking: b, Replayed: true}, true
}

type bookingRequest struct {
	date  domain.Date
	start domain.TimeOfDay
	name  string
	phone string
	note  string
}

func parseRequest(in CreateBookingInput) (bookingRequest, error) {
	name := strings.Join(strings.Fields(in.CustomerName), " ")
	if utf8.RuneCountInString(name) < minNameRunes {
		return bookingRequest{}, validationError("customer_name must have at least 2 characters")
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return bookingRequest{}, validationError("customer_name too long")
	}

	phone := digitsOnly(in.CustomerPhone)
	if len(phone) < minPhoneDigits {
		return bookingRequest{}, validationError("customer_phone must have at least 10 digits")
	}
	if len(phone) > maxPhoneDigits {
		return bookingRequest{}, validationError("customer_phone too long")
	}

	note := strings.TrimSpace(in.Note)
	if utf8.RuneCountInString(note) > maxNoteRunes {
		return bookingRequest{}, validationError("note too long")
	}

	date, err := domain.ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		return bookingRequest{}, validationError("date must be YYYY-MM-DD")
	}
	start, err := domain.ParseTimeOfDay(strings.TrimSpace(in.Start))
	if err != nil {
		return bookingRequest{}, validationError("start must be HH:mm")
	}

	return bookingRequest{date: date, start: start, name: name, phone: phone, note: note}, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
