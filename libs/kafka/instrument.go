package kafka

import (
	"context"
	"crypto/x509"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brave-intl/momo-go/libs/logging"
)

var (
	certValidity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_cert_validity_seconds",
			Help: "Unix time bounds of the client certificate used to dial kafka.",
		},
		[]string{"bound"},
	)
	registerCertValidity sync.Once
)

// InstrumentCert exposes the validity window of the kafka client certificate,
// so an expiring certificate can be alerted on before dialing starts failing.
func InstrumentCert(ctx context.Context, cert *x509.Certificate) {
	if cert == nil {
		return
	}

	registerCertValidity.Do(func() {
		if err := prometheus.Register(certValidity); err != nil {
			logging.Logger(ctx, "kafka.InstrumentCert").Warn().Err(err).Msg("failed to register kafka cert metrics")
		}
	})

	certValidity.WithLabelValues("not_before").Set(float64(cert.NotBefore.Unix()))
	certValidity.WithLabelValues("not_after").Set(float64(cert.NotAfter.Unix()))
}
