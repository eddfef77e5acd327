// Package momotest provides test doubles for the momo service.
package momotest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	momoclient "github.com/brave-intl/momo-go/libs/clients/momo"
	"github.com/brave-intl/momo-go/services/momo/events"
	"github.com/brave-intl/momo-go/services/momo/model"
)

// StaticTokens hands out the same token, or Err when set.
type StaticTokens struct {
	Err error

	mu          sync.Mutex
	token       momoclient.AccessToken
	invalidated []string
	calls       int
}

func NewStaticTokens(token string) *StaticTokens {
	return &StaticTokens{token: momoclient.AccessToken{Token: token, ExpiresAt: time.Now().Add(time.Hour)}}
}

func (s *StaticTokens) Token(context.Context) (momoclient.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.Err != nil {
		return momoclient.AccessToken{}, s.Err
	}
	return s.token, nil
}

func (s *StaticTokens) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidated = append(s.invalidated, token)
}

// Invalidated returns the tokens dropped so far.
func (s *StaticTokens) Invalidated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.invalidated...)
}

// Calls returns how many tokens were asked for.
func (s *StaticTokens) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

// Gateway answers every submission with Result and Err. A zero Result accepts the instruction.
type Gateway struct {
	Result *model.SubmissionResult
	Err    error

	submitted atomic.Int64
}

func (g *Gateway) Submit(_ context.Context, _ model.PaymentRequest, _ momoclient.AccessToken) (*model.SubmissionResult, error) {
	g.submitted.Add(1)

	if g.Result != nil {
		result := *g.Result
		if result.ProviderReference == uuid.Nil {
			result.ProviderReference = uuid.New()
		}
		return &result, g.Err
	}

	return &model.SubmissionResult{
		Accepted:          true,
		ProviderReference: uuid.New(),
		StatusCode:        202,
		Responded:         true,
	}, g.Err
}

// Submitted returns how many instructions were sent.
func (g *Gateway) Submitted() int {
	return int(g.submitted.Load())
}

// Poller answers polls with its script, the last answer repeats once the script runs out.
type Poller struct {
	mu      sync.Mutex
	script  []PollAnswer
	polls   int
	release chan struct{}
}

// PollAnswer is one scripted poll result.
type PollAnswer struct {
	Status momoclient.Status
	Err    error
}

func NewPoller(script ...PollAnswer) *Poller {
	return &Poller{script: script}
}

// Block makes polls wait until Release.
func (p *Poller) Block() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.release = make(chan struct{})
}

// Release lets blocked polls answer.
func (p *Poller) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.release != nil {
		close(p.release)
		p.release = nil
	}
}

func (p *Poller) Poll(ctx context.Context, _ uuid.UUID, _ momoclient.AccessToken) (*model.VerificationOutcome, error) {
	p.mu.Lock()
	release := p.release
	i := p.polls
	p.polls++
	p.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(p.script) == 0 {
		return &model.VerificationOutcome{ProviderStatus: momoclient.StatusPending, Body: `{"status":"PENDING"}`}, nil
	}
	if i >= len(p.script) {
		i = len(p.script) - 1
	}

	answer := p.script[i]
	if answer.Err != nil {
		return nil, answer.Err
	}
	return &model.VerificationOutcome{
		ProviderStatus: answer.Status,
		Body:           `{"status":"` + string(answer.Status) + `"}`,
	}, nil
}

// Polls returns how many polls were made.
func (p *Poller) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.polls
}

// AutoCompletePoller reports every instruction successful once it is older than After, for demos
// without a provider. It must never be used in production.
type AutoCompletePoller struct {
	After time.Duration

	mu    sync.Mutex
	first map[uuid.UUID]time.Time
	now   func() time.Time
}

// DefaultAutoCompleteAfter is how long the demo waits before completing a payment.
const DefaultAutoCompleteAfter = 10 * time.Second

func NewAutoCompletePoller(after time.Duration) *AutoCompletePoller {
	return &AutoCompletePoller{After: after, first: make(map[uuid.UUID]time.Time), now: time.Now}
}

func (p *AutoCompletePoller) Poll(_ context.Context, reference uuid.UUID, _ momoclient.AccessToken) (*model.VerificationOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	first, ok := p.first[reference]
	if !ok {
		p.first[reference] = now
		first = now
	}

	status := momoclient.StatusPending
	if now.Sub(first) >= p.After {
		status = momoclient.StatusSuccessful
	}
	return &model.VerificationOutcome{ProviderStatus: status, Body: `{"status":"` + string(status) + `"}`}, nil
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (p *Publisher) Publish(_ context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *Publisher) Close() error { return nil }

// Events returns what was published so far.
func (p *Publisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]events.Event(nil), p.events...)
}
