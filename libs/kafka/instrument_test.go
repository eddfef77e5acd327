package kafka

import (
	"context"
	"crypto/x509"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentCert(t *testing.T) {
	notBefore := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter := notBefore.AddDate(1, 0, 0)

	InstrumentCert(context.Background(), nil)
	InstrumentCert(context.Background(), &x509.Certificate{NotBefore: notBefore, NotAfter: notAfter})
	// a second dialer with the same certificate does not register twice
	InstrumentCert(context.Background(), &x509.Certificate{NotBefore: notBefore, NotAfter: notAfter})

	assert.Equal(t, float64(notBefore.Unix()), testutil.ToFloat64(certValidity.WithLabelValues("not_before")))
	assert.Equal(t, float64(notAfter.Unix()), testutil.ToFloat64(certValidity.WithLabelValues("not_after")))
}
