package momo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ClientWithPrometheus implements Client interface with all methods wrapped
// with Prometheus metrics
type ClientWithPrometheus struct {
	base         Client
	instanceName string
}

var clientDurationSummaryVec = promauto.NewSummaryVec(
	prometheus.SummaryOpts{
		Name:       "momo_client_duration_seconds",
		Help:       "client runtime duration and result",
		MaxAge:     time.Minute,
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"instance_name", "method", "result"})

// NewClientWithPrometheus returns an instance of the Client decorated with prometheus summary metric
func NewClientWithPrometheus(base Client, instanceName string) ClientWithPrometheus {
	return ClientWithPrometheus{
		base:         base,
		instanceName: instanceName,
	}
}

// GetRequestToPayStatus implements Client
func (_d ClientWithPrometheus) GetRequestToPayStatus(ctx context.Context, accessToken string, referenceID uuid.UUID) (rp1 *RequestToPayStatus, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}

		clientDurationSummaryVec.WithLabelValues(_d.instanceName, "GetRequestToPayStatus", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetRequestToPayStatus(ctx, accessToken, referenceID)
}

// RequestToPay implements Client
func (_d ClientWithPrometheus) RequestToPay(ctx context.Context, accessToken string, referenceID uuid.UUID, payload RequestToPayPayload) (rp1 *RequestToPayResult, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}

		clientDurationSummaryVec.WithLabelValues(_d.instanceName, "RequestToPay", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.RequestToPay(ctx, accessToken, referenceID, payload)
}

// RequestToken implements Client
func (_d ClientWithPrometheus) RequestToken(ctx context.Context) (tp1 *TokenResponse, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}

		clientDurationSummaryVec.WithLabelValues(_d.instanceName, "RequestToken", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.RequestToken(ctx)
}
