package momo

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/brave-intl/momo-go/libs/backoff/retrypolicy"
	momoclient "github.com/brave-intl/momo-go/libs/clients/momo"
	mockmomo "github.com/brave-intl/momo-go/libs/clients/momo/mock"
	"github.com/brave-intl/momo-go/services/momo/model"
)

var token = momoclient.AccessToken{Token: "token"}

func paymentRequest() model.PaymentRequest {
	return model.PaymentRequest{
		Amount:       decimal.NewFromInt(50),
		Currency:     "EUR",
		PayerPhone:   "2600961288156",
		PayerMessage: model.PayerMessageFor("1234test99", "vwit"),
		PayeeNote:    model.PayerMessageFor("1234test99", "vwit"),
		OrderID:      "1234test99",
		CustomerName: "vwit",
	}
}

func TestProviderGateway_Submit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := uuid.New()
	client := mockmomo.NewMockClient(ctrl)
	client.EXPECT().
		RequestToPay(gomock.Any(), "token", ref, paymentRequest().Payload()).
		Return(&momoclient.RequestToPayResult{ReferenceID: ref, StatusCode: http.StatusAccepted}, nil)

	g := NewProviderGateway(client)
	g.newReference = func() uuid.UUID { return ref }

	result, err := g.Submit(context.Background(), paymentRequest(), token)
	must.NoError(t, err)
	should.True(t, result.Accepted)
	should.True(t, result.Responded)
	should.Equal(t, ref, result.ProviderReference)
}

func TestProviderGateway_SubmitRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockmomo.NewMockClient(ctrl)
	client.EXPECT().
		RequestToPay(gomock.Any(), "token", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, ref uuid.UUID, _ momoclient.RequestToPayPayload) (*momoclient.RequestToPayResult, error) {
			return &momoclient.RequestToPayResult{ReferenceID: ref, StatusCode: http.StatusBadRequest, Body: "bad"},
				fmt.Errorf("%w: 400", momoclient.ErrRejected)
		})

	result, err := NewProviderGateway(client).Submit(context.Background(), paymentRequest(), token)
	should.ErrorIs(t, err, momoclient.ErrRejected)
	must.NotNil(t, result)
	should.False(t, result.Accepted)
	should.True(t, result.Responded)
	should.Equal(t, http.StatusBadRequest, result.StatusCode)
	should.Equal(t, "bad", result.Body)
	should.NotEqual(t, uuid.Nil, result.ProviderReference)
}

func TestProviderGateway_SubmitNoResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockmomo.NewMockClient(ctrl)
	// submissions are never retried
	client.EXPECT().
		RequestToPay(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: timeout", momoclient.ErrTransport)).
		Times(1)

	result, err := NewProviderGateway(client).Submit(context.Background(), paymentRequest(), token)
	should.ErrorIs(t, err, momoclient.ErrTransport)
	must.NotNil(t, result)
	should.False(t, result.Responded)
	should.False(t, result.Accepted)
}

func TestProviderPoller_Poll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ref := uuid.New()
	client := mockmomo.NewMockClient(ctrl)
	gomock.InOrder(
		client.EXPECT().GetRequestToPayStatus(gomock.Any(), "token", ref).
			Return(nil, fmt.Errorf("%w: 503", momoclient.ErrTransport)),
		client.EXPECT().GetRequestToPayStatus(gomock.Any(), "token", ref).
			Return(&momoclient.RequestToPayStatus{Status: "successful", Raw: `{"status":"successful"}`}, nil),
	)

	policy := func() retrypolicy.Retry {
		p, err := retrypolicy.New(retrypolicy.WithInitialInterval(1))
		must.NoError(t, err)
		return p
	}

	outcome, err := NewProviderPoller(client, policy).Poll(context.Background(), ref, token)
	must.NoError(t, err)
	should.Equal(t, momoclient.StatusSuccessful, outcome.ProviderStatus)
	should.Equal(t, model.StateCompleted, outcome.NextState())
	should.Equal(t, `{"status":"successful"}`, outcome.Body)
}

func TestProviderPoller_AuthIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mockmomo.NewMockClient(ctrl)
	client.EXPECT().GetRequestToPayStatus(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: 401", momoclient.ErrAuth)).
		Times(1)

	_, err := NewProviderPoller(client, nil).Poll(context.Background(), uuid.New(), token)
	should.ErrorIs(t, err, momoclient.ErrAuth)
}
