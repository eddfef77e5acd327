package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	appctx "github.com/brave-intl/momo-go/libs/context"
	errorutils "github.com/brave-intl/momo-go/libs/errors"
	"github.com/brave-intl/momo-go/libs/logging"
)

// ErrNoBrokers - no kafka brokers were configured
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// Dialer creates a kafka dialer, over TLS when KAFKA_SSL_CERTIFICATE or
// KAFKA_SSL_CERTIFICATE_LOCATION is set and in plaintext otherwise.
func Dialer() (*kafka.Dialer, *x509.Certificate, error) {
	if os.Getenv("KAFKA_SSL_CERTIFICATE") == "" && os.Getenv("KAFKA_SSL_CERTIFICATE_LOCATION") == "" {
		return &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		}, nil, nil
	}
	return TLSDialer()
}

// TLSDialer creates a Kafka dialer over TLS. The function requires
// KAFKA_SSL_CERTIFICATE_LOCATION and KAFKA_SSL_KEY_LOCATION environment
// variables to be set.
func TLSDialer() (*kafka.Dialer, *x509.Certificate, error) {
	caPEM, err := readFileFromEnvLoc("KAFKA_SSL_CA_LOCATION", false)
	if err != nil {
		return nil, nil, err
	}

	certPEM := []byte(os.Getenv("KAFKA_SSL_CERTIFICATE"))
	if len(certPEM) == 0 {
		certPEM, err = readFileFromEnvLoc("KAFKA_SSL_CERTIFICATE_LOCATION", true)
		if err != nil {
			return nil, nil, err
		}
	}

	encryptedKeyPEM := []byte(os.Getenv("KAFKA_SSL_KEY"))

	// KAFKA_SSL_CERTIFICATE may carry both certificate and key
	if certPEM[0] == '{' {
		var cert struct {
			Certificate string `json:"certificate"`
			Key         string `json:"key"`
		}
		if err := json.Unmarshal(certPEM, &cert); err != nil {
			return nil, nil, err
		}
		certPEM = []byte(cert.Certificate)
		encryptedKeyPEM = []byte(cert.Key)
	}

	if len(encryptedKeyPEM) == 0 {
		encryptedKeyPEM, err = readFileFromEnvLoc("KAFKA_SSL_KEY_LOCATION", true)
		if err != nil {
			return nil, nil, err
		}
	}

	block, rest := pem.Decode(encryptedKeyPEM)
	if block == nil || len(rest) > 0 {
		return nil, nil, errors.New("extra data in KAFKA_SSL_KEY")
	}

	certificate, err := tls.X509KeyPair(certPEM, pem.EncodeToMemory(block))
	if err != nil {
		return nil, nil, errorutils.Wrap(err, "Could not parse x509 keypair")
	}

	config := &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   tls.VersionTLS12,
	}

	x509Cert, err := x509.ParseCertificate(certificate.Certificate[0])
	if err != nil {
		return nil, nil, errorutils.Wrap(err, "Could not parse certificate")
	}

	if time.Now().After(x509Cert.NotAfter) {
		return nil, nil, errorutils.ErrCertificateExpired
	}

	if len(caPEM) > 0 {
		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(caPEM); !ok {
			return nil, nil, errors.New("could not add custom CA from KAFKA_SSL_CA_LOCATION")
		}
		config.RootCAs = caCertPool
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
		TLS:       config,
	}

	return dialer, x509Cert, nil
}

func readFileFromEnvLoc(env string, required bool) ([]byte, error) {
	loc := os.Getenv(env)
	if len(loc) == 0 {
		if !required {
			return []byte{}, nil
		}
		return []byte{}, errors.New(env + " must be passed")
	}
	return os.ReadFile(loc)
}

// Brokers reads the comma separated broker list off the context
func Brokers(ctx context.Context) []string {
	raw, err := appctx.GetStringFromContext(ctx, appctx.KafkaBrokersCTXKey)
	if err != nil {
		return nil
	}

	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// InitKafkaWriter - create a kafka writer given a topic
func InitKafkaWriter(ctx context.Context, topic string) (*kafka.Writer, error) {
	logger := logging.Logger(ctx, "kafka.InitKafkaWriter")

	brokers := Brokers(ctx)
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	dialer, x509Cert, err := Dialer()
	if err != nil {
		return nil, fmt.Errorf("kafka writer: could not create dialer: %w", err)
	}

	InstrumentCert(ctx, x509Cert)

	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Balancer:     &kafka.Hash{},
		Dialer:       dialer,
		Topic:        topic,
		BatchTimeout: 1 * time.Second,
		Logger:       kafka.LoggerFunc(logger.Printf),
		ErrorLogger:  errorLogger(logger),
	})

	return kafkaWriter, nil
}

func errorLogger(logger *zerolog.Logger) kafka.LoggerFunc {
	return func(msg string, args ...interface{}) {
		logger.Error().Msgf(msg, args...)
	}
}

// Consumer defines methods for consuming kafka messages.
type Consumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// NewKafkaReader creates a new kafka reader for groupID and topic.
func NewKafkaReader(ctx context.Context, groupID string, topic string) (*kafka.Reader, error) {
	logger := logging.Logger(ctx, "kafka.NewKafkaReader")

	brokers := Brokers(ctx)
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	dialer, x509Cert, err := Dialer()
	if err != nil {
		return nil, fmt.Errorf("kafka reader: could not create new kafka reader: %w", err)
	}

	InstrumentCert(ctx, x509Cert)

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		Dialer:      dialer,
		Logger:      kafka.LoggerFunc(logger.Printf),
		ErrorLogger: errorLogger(logger),
	}), nil
}

// Handler defines a handler.
type Handler interface {
	Handle(ctx context.Context, message kafka.Message) error
}

// HandlerFunc adapts a function to a Handler
type HandlerFunc func(ctx context.Context, message kafka.Message) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, message kafka.Message) error {
	return f(ctx, message)
}

// Consume runs the consumer loop until ctx is done, a message is committed
// once the handler returns without error.
func Consume(ctx context.Context, reader Consumer, handler Handler) error {
	logger := logging.Logger(ctx, "kafka.Consume")
	logger.Info().Msg("starting consumer")

	for {
		message, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("error fetching message: %w", err)
		}

		if err := handler.Handle(ctx, message); err != nil {
			logger.Err(err).
				Str("key", string(message.Key)).
				Int("partition", message.Partition).
				Int64("offset", message.Offset).
				Msg("error processing message")
			return fmt.Errorf("error processing message: %w", err)
		}

		if err := reader.CommitMessages(ctx, message); err != nil {
			logger.Err(err).
				Str("key", string(message.Key)).
				Int("partition", message.Partition).
				Int64("offset", message.Offset).
				Msg("error committing kafka message")
		}
	}
}
