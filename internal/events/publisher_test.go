package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"agendafacil/backend/internal/domain"
)

type fakeWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	err     error
	release chan struct{}
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func newTestPublisher(w *fakeWriter, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: EventBookingCreated, log: log, timeout: time.Second}
}

func TestKafkaPublisher_BookingCreated(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, slog.Default())

	b := domain.Booking{
		ID:            uuid.MustParse("00000000-0000-0000-0000-000000000042"),
		OwnerID:       "o1",
		CustomerName:  "Ana",
		CustomerPhone: "11987654321",
		Date:          domain.NewDate(2024, time.January, 13),
		StartsAt:      domain.MustParseTimeOfDay("09:00"),
		EndsAt:        domain.MustParseTimeOfDay("09:30"),
		Status:        domain.BookingStatusPending,
	}

	if err := p.BookingCreated(context.Background(), b); err != nil {
		t.Fatalf("BookingCreated error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "o1" {
		t.Fatalf("key = %q, want %q", msg.Key, "o1")
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event_type"] != EventBookingCreated || headers["event_id"] != b.ID.String() {
		t.Fatalf("headers = %v", headers)
	}

	var payload BookingCreatedPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if payload.Date != "2024-01-13" || payload.Start != "09:00" || payload.End != "09:30" || payload.Status != "pending" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestKafkaPublisher_DoesNotBlockOnSlowBroker(t *testing.T) {
	w := &fakeWriter{release: make(chan struct{})}
	p := newTestPublisher(w, slog.Default())

	// The caller's context ends right away, like an RPC that already returned.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.BookingCreated(ctx, domain.Booking{ID: uuid.New(), OwnerID: "o1"})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("BookingCreated error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("BookingCreated waited for the broker")
	}
	cancel()

	close(w.release)
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1 (cancelling the caller must not drop the event)", len(w.msgs))
	}
}

func TestKafkaPublisher_LogsDeliveryFailures(t *testing.T) {
	var buf bytes.Buffer
	w := &fakeWriter{err: errors.New("broker down")}
	p := newTestPublisher(w, slog.New(slog.NewTextHandler(&buf, nil)))

	id := uuid.New()
	if err := p.BookingCreated(context.Background(), domain.Booking{ID: id, OwnerID: "o1"}); err != nil {
		t.Fatalf("BookingCreated error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "event delivery failed") || !strings.Contains(out, "booking_id="+id.String()) {
		t.Fatalf("log = %q", out)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("SplitBrokers = %v", got)
	}
	if SplitBrokers("") != nil {
		t.Fatalf("empty input must yield nil")
	}
}
