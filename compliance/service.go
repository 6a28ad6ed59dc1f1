// Package compliance orchestrates the verification engine, the probe
// capability, and the subscriber store: it gathers current state,
// builds verification inputs, and persists state changes and audit
// records consistent with the verdicts.
package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/verisend/verisend"
	"github.com/verisend/verisend/verify"
)

// Outcome pairs a verdict with the proof artifact generated for it.
// Proof is empty unless the verdict is Success.
type Outcome struct {
	Verdict verify.Verdict
	Proof   string
}

// Service wires the store, prober, signer, and mailer together. All
// collaborators are injected; the service holds no global state.
type Service struct {
	store      verisend.SubscriberService
	prober     verisend.Prober
	signer     verify.Signer
	mailer     verisend.MailService
	logger     zerolog.Logger
	dailyLimit int

	now func() time.Time
}

// NewService returns a new compliance service
func NewService(store verisend.SubscriberService, prober verisend.Prober, signer verify.Signer, mailer verisend.MailService, logger zerolog.Logger, dailyLimit int) *Service {
	return &Service{
		store:      store,
		prober:     prober,
		signer:     signer,
		mailer:     mailer,
		logger:     logger,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// Subscribe verifies the consent chain and, on success, upserts the
// subscriber with the generated consent proof.
func (s *Service) Subscribe(req *verisend.SubscriptionRequest) (*Outcome, error) {
	if req == nil || req.Identity == "" {
		return nil, &verisend.Error{
			Code:    verisend.ErrInvalid,
			Message: "An identity is required.",
			Op:      "compliance.Subscribe",
		}
	}

	in := verify.ConsentChainInput{
		InitialRequestAt: req.InitialRequestAt,
		ConfirmedAt:      req.ConfirmedAt,
		Address:          req.Address,
		Token:            req.Token,
	}

	if v := verify.VerifyConsentChain(in); v != verify.Success {
		s.logger.Info().Str("identity", req.Identity).Stringer("verdict", v).Msg("Consent chain rejected")
		return &Outcome{Verdict: v}, nil
	}

	text, err := s.generateProof(in)
	if err != nil {
		return nil, err
	}

	if err := s.store.Subscribe(req.Identity, req.DisplayName, req.Token, text); err != nil {
		return nil, err
	}

	s.logger.Info().Str("identity", req.Identity).Msg("Consent verified, subscriber stored")
	return &Outcome{Verdict: verify.Success, Proof: text}, nil
}

// Unsubscribe removes a subscriber through the store's atomic guard and
// reports whether anything changed.
func (s *Service) Unsubscribe(identity string) (bool, error) {
	affected, err := s.store.Unsubscribe(identity)
	if err != nil {
		return false, err
	}

	s.logger.Info().Str("identity", identity).Bool("affected", affected).Msg("Unsubscribe requested")
	return affected, nil
}

// Send delivers one message to one subscriber after verifying the
// unsubscribe link is live and the sender is within its rate limit. The
// audit record embeds the liveness proof for this send.
func (s *Service) Send(ctx context.Context, identity, subject, body string) (*Outcome, error) {
	sub, err := s.store.FindByIdentity(identity)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, &verisend.Error{
			Code:    verisend.ErrNotFound,
			Message: fmt.Sprintf("No subscriber with identity %s.", identity),
			Op:      "compliance.Send",
		}
	}
	if !sub.Subscribed {
		return nil, &verisend.Error{
			Code:    verisend.ErrInvalid,
			Message: fmt.Sprintf("%s is not subscribed.", identity),
			Op:      "compliance.Send",
		}
	}

	in, err := s.probeLiveness(ctx, sub.Identity, sub.ConsentToken)
	if err != nil {
		return nil, err
	}
	if v := verify.VerifyLinkLiveness(in); v != verify.Success {
		s.logger.Warn().Str("identity", identity).Stringer("verdict", v).Bool("retryable", v.Retryable()).Msg("Liveness check failed")
		return &Outcome{Verdict: v}, nil
	}

	if v, err := s.checkRateLimit(sub); err != nil {
		return nil, err
	} else if v != verify.Success {
		s.logger.Warn().Str("identity", identity).Stringer("verdict", v).Msg("Rate limit check failed")
		return &Outcome{Verdict: v}, nil
	}

	text, err := s.generateProof(in)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendMessage(sub, subject, body); err != nil {
		return nil, err
	}

	if _, err := s.store.RecordMessage(identity, subject, body, text); err != nil {
		return nil, err
	}

	s.logger.Info().Str("identity", identity).Str("subject", subject).Msg("Message sent and recorded")
	return &Outcome{Verdict: verify.Success, Proof: text}, nil
}

// Broadcast sends to every active subscriber. Each send-and-record is
// an independent unit of work: a failure is logged and skipped, never
// aborting the rest of the snapshot. Returns the number delivered.
func (s *Service) Broadcast(ctx context.Context, subject, body string) (int, error) {
	subscribers, err := s.store.FindSubscribed()
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range subscribers {
		sub := &subscribers[i]

		out, err := s.Send(ctx, sub.Identity, subject, body)
		if err != nil {
			s.logger.Error().Err(err).Str("identity", sub.Identity).Msg("Skipping subscriber after send failure")
			sentry.CaptureException(err)
			continue
		}
		if out.Verdict != verify.Success {
			s.logger.Warn().Str("identity", sub.Identity).Stringer("verdict", out.Verdict).Msg("Skipping subscriber after failed verification")
			continue
		}

		sent++
	}

	s.logger.Info().Int("sent", sent).Int("subscribers", len(subscribers)).Str("subject", subject).Msg("Broadcast finished")
	return sent, nil
}

// ProbeHeartbeat re-probes the unsubscribe endpoint and logs the
// liveness verdict. Scheduled from main so a dead endpoint is noticed
// before the next send relies on it.
func (s *Service) ProbeHeartbeat(ctx context.Context) {
	in, err := s.probeLiveness(ctx, "heartbeat", "heartbeat")
	if err != nil {
		s.logger.Error().Err(err).Msg("Heartbeat probe failed")
		return
	}

	v := verify.VerifyLinkLiveness(in)
	ev := s.logger.Info()
	if v != verify.Success {
		ev = s.logger.Warn()
	}
	ev.Stringer("verdict", v).Int("response_code", in.StatusCode).Int64("response_time", in.LatencyMs).Msg("Unsubscribe endpoint heartbeat")
}

// Stats returns the store's aggregate counts.
func (s *Service) Stats() (*verisend.Stats, error) {
	return s.store.Stats()
}

// probeLiveness probes the identity's unsubscribe URL and assembles the
// link-liveness input. A probe transport failure becomes a zero status
// code, which the engine reads as a non-200 response.
func (s *Service) probeLiveness(ctx context.Context, identity, token string) (verify.LinkLivenessInput, error) {
	unsubscribeURL, err := s.mailer.UnsubscribeURL(identity)
	if err != nil {
		return verify.LinkLivenessInput{}, err
	}

	testedAt := s.now()
	res, err := s.prober.Probe(ctx, unsubscribeURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", unsubscribeURL).Msg("Probe failed, treating link as dead")
		res = verisend.ProbeResult{}
	}

	sig, err := s.signer.Sign([]byte(token + "|" + unsubscribeURL))
	if err != nil {
		return verify.LinkLivenessInput{}, err
	}

	return verify.LinkLivenessInput{
		URL:        unsubscribeURL,
		TestedAt:   testedAt.UnixMilli(),
		Now:        s.now().UnixMilli(),
		StatusCode: res.StatusCode,
		LatencyMs:  res.Latency.Milliseconds(),
		Token:      token,
		Signature:  sig,
	}, nil
}

func (s *Service) checkRateLimit(sub *verisend.Subscriber) (verify.Verdict, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	count, err := s.store.CountMessagesSince(sub.Identity, startOfDay)
	if err != nil {
		return verify.Internal, err
	}

	return verify.VerifyRateLimit(verify.RateLimitInput{
		Identity:         sub.Identity,
		AccountCreatedAt: sub.CreatedAt.UnixMilli(),
		Now:              now.UnixMilli(),
		MessagesToday:    count,
		DailyLimit:       s.dailyLimit,
	}), nil
}

func (s *Service) generateProof(in verify.Input) (string, error) {
	proof, err := verify.GenerateProof(s.signer, in, s.now())
	if err != nil {
		return "", err
	}
	return verify.FormatProof(proof)
}
