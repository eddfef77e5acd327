package momo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/brave-intl/momo-go/libs/backoff"
	"github.com/brave-intl/momo-go/libs/backoff/retrypolicy"
	momoclient "github.com/brave-intl/momo-go/libs/clients/momo"
	"github.com/brave-intl/momo-go/services/momo/model"
)

// PaymentGateway sends request to pay instructions.
type PaymentGateway interface {
	// Submit sends req once. The result is never nil, it carries the provider reference the
	// instruction was sent under and whether anything came back.
	Submit(ctx context.Context, req model.PaymentRequest, token momoclient.AccessToken) (*model.SubmissionResult, error)
}

// VerificationPoller looks up the settlement status of a submitted instruction.
type VerificationPoller interface {
	Poll(ctx context.Context, reference uuid.UUID, token momoclient.AccessToken) (*model.VerificationOutcome, error)
}

// ProviderGateway is a PaymentGateway on the provider api.
type ProviderGateway struct {
	client       momoclient.Client
	newReference func() uuid.UUID
}

func NewProviderGateway(client momoclient.Client) *ProviderGateway {
	return &ProviderGateway{client: client, newReference: uuid.New}
}

func (g *ProviderGateway) Submit(ctx context.Context, req model.PaymentRequest, token momoclient.AccessToken) (*model.SubmissionResult, error) {
	result := &model.SubmissionResult{ProviderReference: g.newReference()}

	resp, err := g.client.RequestToPay(ctx, token.Token, result.ProviderReference, req.Payload())
	if resp != nil {
		result.Responded = true
		result.StatusCode = resp.StatusCode
		result.Body = resp.Body
		result.Accepted = resp.Accepted()
	}

	return result, err
}

// ProviderPoller is a VerificationPoller on the provider api, transport failures are retried.
type ProviderPoller struct {
	client momoclient.Client
	policy func() retrypolicy.Retry
}

func NewProviderPoller(client momoclient.Client, policy func() retrypolicy.Retry) *ProviderPoller {
	if policy == nil {
		policy = retrypolicy.NewDefault
	}
	return &ProviderPoller{client: client, policy: policy}
}

func (p *ProviderPoller) Poll(ctx context.Context, reference uuid.UUID, token momoclient.AccessToken) (*model.VerificationOutcome, error) {
	status, err := backoff.Retry(ctx, func() (*momoclient.RequestToPayStatus, error) {
		return p.client.GetRequestToPayStatus(ctx, token.Token, reference)
	}, p.policy(), isTransport)
	if err != nil {
		return nil, err
	}

	return &model.VerificationOutcome{
		ProviderStatus: momoclient.ParseStatus(status.Status),
		Body:           status.Raw,
	}, nil
}

func isTransport(err error) bool {
	return errors.Is(err, momoclient.ErrTransport)
}
