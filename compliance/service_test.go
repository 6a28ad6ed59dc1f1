package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/verisend/verisend"
	"github.com/verisend/verisend/mock"
	"github.com/verisend/verisend/verify"
)

const unsubscribeURL = "https://example.com/unsubscribe?identity=alice&hash=h"

func newTestService(store *mock.SubscriberService, prober *mock.Prober, mailer *mock.MailService) *Service {
	return NewService(store, prober, verify.NewHMACSigner("da02e221bc331c9875c5e1299fa8d765"), mailer, zerolog.Nop(), 1000)
}

func activeSubscriber(identity string) *verisend.Subscriber {
	now := time.Now()
	return &verisend.Subscriber{
		Identity:     identity,
		Subscribed:   true,
		ConsentAt:    now.Add(-10 * 24 * time.Hour),
		ConsentToken: "tok",
		CreatedAt:    now.Add(-10 * 24 * time.Hour),
		UpdatedAt:    now,
	}
}

func TestSubscribeConsentVerified(t *testing.T) {
	store := new(mock.SubscriberService)
	store.On("Subscribe", "alice", "Alice", "abc", tmock.AnythingOfType("string")).Return(nil)

	svc := newTestService(store, new(mock.Prober), new(mock.MailService))

	now := time.Now().UnixMilli()
	out, err := svc.Subscribe(&verisend.SubscriptionRequest{
		Identity:         "alice",
		DisplayName:      "Alice",
		Address:          "opaque-origin",
		Token:            "abc",
		InitialRequestAt: now - 30_000,
		ConfirmedAt:      now,
	})
	require.NoError(t, err)
	assert.Equal(t, verify.Success, out.Verdict)

	proof, err := verify.ParseProof(out.Proof)
	require.NoError(t, err)
	assert.Equal(t, verify.KindConsentChain, proof.Kind)
	assert.NotEmpty(t, proof.Signature)

	store.AssertExpectations(t)
}

func TestSubscribeConsentRejected(t *testing.T) {
	store := new(mock.SubscriberService)
	svc := newTestService(store, new(mock.Prober), new(mock.MailService))

	now := time.Now().UnixMilli()
	out, err := svc.Subscribe(&verisend.SubscriptionRequest{
		Identity:         "alice",
		Token:            "abc",
		InitialRequestAt: now,
		ConfirmedAt:      now - 10,
	})
	require.NoError(t, err)
	assert.Equal(t, verify.ConsentInvalid, out.Verdict)
	assert.Empty(t, out.Proof)

	store.AssertNotCalled(t, "Subscribe", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestSubscribeMissingIdentity(t *testing.T) {
	svc := newTestService(new(mock.SubscriberService), new(mock.Prober), new(mock.MailService))

	_, err := svc.Subscribe(&verisend.SubscriptionRequest{})
	require.Error(t, err)
	assert.Equal(t, verisend.ErrInvalid, verisend.ErrorCode(err))
}

func TestSendSuccess(t *testing.T) {
	sub := activeSubscriber("alice")

	store := new(mock.SubscriberService)
	store.On("FindByIdentity", "alice").Return(sub, nil)
	store.On("CountMessagesSince", "alice", tmock.AnythingOfType("time.Time")).Return(5, nil)
	store.On("RecordMessage", "alice", "subject", "body", tmock.AnythingOfType("string")).Return(1, nil)

	prober := new(mock.Prober)
	prober.On("Probe", tmock.Anything, unsubscribeURL).Return(verisend.ProbeResult{
		StatusCode: 200,
		Latency:    87 * time.Millisecond,
	}, nil)

	mailer := new(mock.MailService)
	mailer.On("UnsubscribeURL", "alice").Return(unsubscribeURL, nil)
	mailer.On("SendMessage", sub, "subject", "body").Return(nil)

	svc := newTestService(store, prober, mailer)

	out, err := svc.Send(context.Background(), "alice", "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, verify.Success, out.Verdict)

	proof, err := verify.ParseProof(out.Proof)
	require.NoError(t, err)
	assert.Equal(t, verify.KindLinkLiveness, proof.Kind)

	store.AssertExpectations(t)
	prober.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestSendProbeFailureBecomesInvalidResponse(t *testing.T) {
	sub := activeSubscriber("alice")

	store := new(mock.SubscriberService)
	store.On("FindByIdentity", "alice").Return(sub, nil)

	prober := new(mock.Prober)
	prober.On("Probe", tmock.Anything, unsubscribeURL).Return(verisend.ProbeResult{}, errors.New("connection refused"))

	mailer := new(mock.MailService)
	mailer.On("UnsubscribeURL", "alice").Return(unsubscribeURL, nil)

	svc := newTestService(store, prober, mailer)

	out, err := svc.Send(context.Background(), "alice", "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, verify.InvalidResponse, out.Verdict)

	mailer.AssertNotCalled(t, "SendMessage", tmock.Anything, tmock.Anything, tmock.Anything)
	store.AssertNotCalled(t, "RecordMessage", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestSendRateLimited(t *testing.T) {
	sub := activeSubscriber("alice")

	store := new(mock.SubscriberService)
	store.On("FindByIdentity", "alice").Return(sub, nil)
	store.On("CountMessagesSince", "alice", tmock.AnythingOfType("time.Time")).Return(1000, nil)

	prober := new(mock.Prober)
	prober.On("Probe", tmock.Anything, unsubscribeURL).Return(verisend.ProbeResult{
		StatusCode: 200,
		Latency:    87 * time.Millisecond,
	}, nil)

	mailer := new(mock.MailService)
	mailer.On("UnsubscribeURL", "alice").Return(unsubscribeURL, nil)

	svc := newTestService(store, prober, mailer)

	out, err := svc.Send(context.Background(), "alice", "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, verify.RateLimitExceeded, out.Verdict)

	mailer.AssertNotCalled(t, "SendMessage", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestSendUnknownIdentity(t *testing.T) {
	store := new(mock.SubscriberService)
	store.On("FindByIdentity", "ghost").Return(nil, nil)

	svc := newTestService(store, new(mock.Prober), new(mock.MailService))

	_, err := svc.Send(context.Background(), "ghost", "subject", "body")
	require.Error(t, err)
	assert.Equal(t, verisend.ErrNotFound, verisend.ErrorCode(err))
}

func TestSendNotSubscribed(t *testing.T) {
	sub := activeSubscriber("alice")
	sub.Subscribed = false

	store := new(mock.SubscriberService)
	store.On("FindByIdentity", "alice").Return(sub, nil)

	svc := newTestService(store, new(mock.Prober), new(mock.MailService))

	_, err := svc.Send(context.Background(), "alice", "subject", "body")
	require.Error(t, err)
	assert.Equal(t, verisend.ErrInvalid, verisend.ErrorCode(err))
}

func TestBroadcastSkipsFailures(t *testing.T) {
	alice := activeSubscriber("alice")
	bob := activeSubscriber("bob")

	store := new(mock.SubscriberService)
	store.On("FindSubscribed").Return([]verisend.Subscriber{*alice, *bob}, nil)
	store.On("FindByIdentity", "alice").Return(alice, nil)
	store.On("FindByIdentity", "bob").Return(bob, nil)
	store.On("CountMessagesSince", tmock.AnythingOfType("string"), tmock.AnythingOfType("time.Time")).Return(0, nil)
	store.On("RecordMessage", "bob", "subject", "body", tmock.AnythingOfType("string")).Return(2, nil)

	prober := new(mock.Prober)
	prober.On("Probe", tmock.Anything, tmock.AnythingOfType("string")).Return(verisend.ProbeResult{
		StatusCode: 200,
		Latency:    50 * time.Millisecond,
	}, nil)

	mailer := new(mock.MailService)
	mailer.On("UnsubscribeURL", tmock.AnythingOfType("string")).Return(unsubscribeURL, nil)
	mailer.On("SendMessage", tmock.MatchedBy(func(s *verisend.Subscriber) bool {
		return s.Identity == "alice"
	}), "subject", "body").Return(errors.New("smtp down"))
	mailer.On("SendMessage", tmock.MatchedBy(func(s *verisend.Subscriber) bool {
		return s.Identity == "bob"
	}), "subject", "body").Return(nil)

	svc := newTestService(store, prober, mailer)

	sent, err := svc.Broadcast(context.Background(), "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// Alice's failure never became a recorded message.
	store.AssertNotCalled(t, "RecordMessage", "alice", tmock.Anything, tmock.Anything, tmock.Anything)
}
