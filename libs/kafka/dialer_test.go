package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	appctx "github.com/brave-intl/momo-go/libs/context"
)

type fakeConsumer struct {
	messages  []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (f *fakeConsumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		f.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := f.messages[0]
	f.messages = f.messages[1:]
	return m, nil
}

func (f *fakeConsumer) CommitMessages(ctx context.Context, messages ...kafka.Message) error {
	f.committed = append(f.committed, messages...)
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

func TestBrokers(t *testing.T) {
	ctx := context.WithValue(context.Background(), appctx.KafkaBrokersCTXKey, " kafka-1:9092, ,kafka-2:9092")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, Brokers(ctx))

	assert.Empty(t, Brokers(context.Background()))
}

func TestInitKafkaWriter_NoBrokers(t *testing.T) {
	_, err := InitKafkaWriter(context.Background(), "momo-transactions")
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeConsumer{
		messages: []kafka.Message{{Key: []byte("a")}, {Key: []byte("b")}},
		cancel:   cancel,
	}

	var seen []string
	err := Consume(ctx, reader, HandlerFunc(func(ctx context.Context, m kafka.Message) error {
		seen = append(seen, string(m.Key))
		return nil
	}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Len(t, reader.committed, 2)
}

func TestConsume_HandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeConsumer{messages: []kafka.Message{{Key: []byte("a")}}, cancel: cancel}
	errBoom := errors.New("boom")

	err := Consume(ctx, reader, HandlerFunc(func(ctx context.Context, m kafka.Message) error {
		return errBoom
	}))

	must.ErrorIs(t, err, errBoom)
	assert.Empty(t, reader.committed)
}
