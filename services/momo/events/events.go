// Package events publishes transaction state changes.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	appctx "github.com/brave-intl/momo-go/libs/context"
	kafkautils "github.com/brave-intl/momo-go/libs/kafka"
	"github.com/brave-intl/momo-go/libs/logging"
	"github.com/brave-intl/momo-go/services/momo/model"
)

// DefaultTopic is where state changes go when no topic is configured
const DefaultTopic = "momo-transactions"

const headerEventType = "event-type"

// EventTypeStateChanged is the only event published so far
const EventTypeStateChanged = "transaction.state_changed"

// Event is a transaction moving from one state to another, From is empty for a new transaction.
type Event struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	ProviderReference uuid.UUID       `json:"reference_id"`
	OrderID           string          `json:"order_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	From              model.State     `json:"from,omitempty"`
	To                model.State     `json:"to"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// NewStateChanged builds the event for t having left state from.
func NewStateChanged(from model.State, t *model.Transaction) Event {
	return Event{
		TransactionID:     t.ID,
		ProviderReference: t.ProviderReference,
		OrderID:           t.OrderID,
		Amount:            t.Amount,
		Currency:          t.Currency,
		From:              from,
		To:                t.State,
		FailureReason:     t.FailureReason,
		OccurredAt:        t.UpdatedAt,
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// MessageWriter is the part of kafka.Writer a KafkaPublisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON, keyed by transaction id so a transaction's events stay ordered.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// NewFromContext creates a KafkaPublisher when kafka brokers are configured and a NoopPublisher otherwise.
func NewFromContext(ctx context.Context) (Publisher, error) {
	logger := logging.Logger(ctx, "events.NewFromContext")

	topic, _ := appctx.GetStringFromContext(ctx, appctx.KafkaTopicCTXKey)
	if topic == "" {
		topic = DefaultTopic
	}

	writer, err := kafkautils.InitKafkaWriter(ctx, topic)
	if err != nil {
		if errors.Is(err, kafkautils.ErrNoBrokers) {
			logger.Info().Msg("no kafka brokers configured, events are not published")
			return NoopPublisher{}, nil
		}
		return nil, fmt.Errorf("failed to initialize kafka writer: %w", err)
	}

	logger.Info().Str("topic", topic).Msg("publishing transaction events")
	return NewKafkaPublisher(writer), nil
}

// Publish writes events in one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.TransactionID.String()),
			Value: value,
			Headers: []kafka.Header{
				{Key: headerEventType, Value: []byte(EventTypeStateChanged)},
			},
			Time: e.OccurredAt,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Decode reads an Event back from a message written by KafkaPublisher.
func Decode(msg kafka.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event at offset %d: %w", msg.Offset, err)
	}
	return e, nil
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
