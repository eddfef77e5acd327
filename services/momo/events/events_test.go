package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/services/momo/model"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	tx := &model.Transaction{
		ID:                uuid.New(),
		ProviderReference: uuid.New(),
		OrderID:           "1234test99",
		Amount:            decimal.NewFromInt(50),
		Currency:          "EUR",
		State:             model.StateCompleted,
		UpdatedAt:         time.Now().UTC().Truncate(time.Millisecond),
	}

	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	must.NoError(t, p.Publish(context.Background(), NewStateChanged(model.StatePending, tx)))
	must.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	should.Equal(t, tx.ID.String(), string(msg.Key))
	must.Len(t, msg.Headers, 1)
	should.Equal(t, EventTypeStateChanged, string(msg.Headers[0].Value))

	actual, err := Decode(msg)
	must.NoError(t, err)
	should.Equal(t, tx.ID, actual.TransactionID)
	should.Equal(t, model.StatePending, actual.From)
	should.Equal(t, model.StateCompleted, actual.To)
	should.True(t, tx.Amount.Equal(actual.Amount))
	should.True(t, tx.UpdatedAt.Equal(actual.OccurredAt))

	must.NoError(t, p.Close())
	should.True(t, w.closed)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	errBroker := errors.New("broker unavailable")
	p := NewKafkaPublisher(&fakeWriter{err: errBroker})

	err := p.Publish(context.Background(), Event{TransactionID: uuid.New(), To: model.StateInitiated})
	should.ErrorIs(t, err, errBroker)

	// nothing to write is not an error
	should.NoError(t, p.Publish(context.Background()))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(kafka.Message{Value: []byte("not json"), Offset: 7})
	should.Error(t, err)
}

func TestNewFromContext_NoBrokers(t *testing.T) {
	ctx := context.WithValue(context.Background(), appctx.KafkaBrokersCTXKey, "")

	p, err := NewFromContext(ctx)
	must.NoError(t, err)
	should.IsType(t, NoopPublisher{}, p)
	should.NoError(t, p.Publish(ctx, Event{}))
}
