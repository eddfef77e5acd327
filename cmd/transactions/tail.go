package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brave-intl/momo-go/cmd"
	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/libs/kafka"
	"github.com/brave-intl/momo-go/services/momo/events"
)

var (
	// TailCmd follows the transaction events a service publishes
	TailCmd = &cobra.Command{
		Use:   "tail",
		Short: "prints transaction state changes as they are published",
		Run:   cmd.Perform("tail transaction events", RunTail),
	}
)

func init() {
	TransactionsCmd.AddCommand(TailCmd)

	b := cmd.NewFlagBuilder(TailCmd)

	b.Flag().String("brokers", "",
		"comma separated kafka brokers").
		Env("KAFKA_BROKERS").
		Bind("brokers")

	b.Flag().String("topic", events.DefaultTopic,
		"the topic transaction events are published to").
		Env("KAFKA_TOPIC").
		Bind("topic")

	b.Flag().String("group-id", "momo-tail",
		"the consumer group offsets are committed under").
		Bind("group-id")
}

// RunTail runs the tail command
func RunTail(command *cobra.Command, args []string) error {
	ctx := context.WithValue(command.Context(), appctx.KafkaBrokersCTXKey, viper.GetString("brokers"))

	reader, err := kafka.NewKafkaReader(ctx, viper.GetString("group-id"), viper.GetString("topic"))
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	err = kafka.Consume(ctx, reader, Printer(os.Stdout))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Printer writes every event it handles to w as a json line
func Printer(w io.Writer) kafka.Handler {
	enc := json.NewEncoder(w)
	return kafka.HandlerFunc(func(ctx context.Context, msg kafkago.Message) error {
		e, err := events.Decode(msg)
		if err != nil {
			return err
		}
		return enc.Encode(e)
	})
}
