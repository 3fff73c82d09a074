package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"agendafacil/backend/internal/domain"
)

const EventBookingCreated = "booking.created"

type Publisher interface {
	BookingCreated(ctx context.Context, b domain.Booking) error
	Close() error
}

type BookingCreatedPayload struct {
	BookingID     string    `json:"booking_id"`
	OwnerID       string    `json:"owner_id"`
	Date          string    `json:"date"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	Status        string    `json:"status"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CreatedAt     time.Time `json:"created_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const publishTimeout = 10 * time.Second

// KafkaPublisher announces new bookings so the notification side can confirm
// them with the customer. Writes happen in the background on a context
// detached from the caller, so a broker outage never holds a booking request
// open. Failures are logged.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	if topic == "" {
		topic = EventBookingCreated
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			MaxAttempts:  3,
		},
		topic:   topic,
		log:     log.With(slog.String("component", "events.kafka")),
		timeout: publishTimeout,
	}
}

// BookingCreated encodes the event and hands it to a background write. Only
// encoding errors are returned.
func (p *KafkaPublisher) BookingCreated(ctx context.Context, b domain.Booking) error {
	msg, err := bookingCreatedMessage(b)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		p.write(ctx, msg, b)
	}()
	return nil
}

func (p *KafkaPublisher) write(ctx context.Context, msg kafka.Message, b domain.Booking) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("event delivery failed",
			slog.Any("err", err),
			slog.String("topic", p.topic),
			slog.String("owner_id", b.OwnerID),
			slog.String("booking_id", b.ID.String()),
		)
		return
	}
	p.log.Debug("event published", slog.String("topic", p.topic), slog.String("booking_id", b.ID.String()))
}

// Close waits for background writes, then closes the writer.
func (p *KafkaPublisher) Close() error {
	p.wg.Wait()
	return p.writer.Close()
}

func bookingCreatedMessage(b domain.Booking) (kafka.Message, error) {
	value, err := json.Marshal(BookingCreatedPayload{
		BookingID:     b.ID.String(),
		OwnerID:       b.OwnerID,
		Date:          b.Date.String(),
		Start:         b.StartsAt.String(),
		End:           b.EndsAt.String(),
		Status:        string(b.Status),
		CustomerName:  b.CustomerName,
		CustomerPhone: b.CustomerPhone,
		CreatedAt:     b.CreatedAt.UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(b.OwnerID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(b.ID.String())},
			{Key: "event_type", Value: []byte(EventBookingCreated)},
		},
	}, nil
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Nop is used when no brokers are configured.
type Nop struct{}

func (Nop) BookingCreated(context.Context, domain.Booking) error { return nil }
func (Nop) Close() error                                         { return nil }
