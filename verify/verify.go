// Package verify implements the compliance verification engine: three
// pure verdict functions plus the proof codec binding their inputs into
// signed audit artifacts. Nothing in this package performs I/O.
package verify

import (
	"net/http"
	"strings"
)

const (
	secureScheme = "https://"

	// A probe result is only trusted for one minute.
	maxProbeAgeMs = 60_000

	// The probed endpoint must answer in under 200 ms.
	maxLatencyMs = 200

	// Consent confirmations older than a day are presumed abandoned.
	consentWindowMs = 86_400_000

	millisPerDay = 86_400_000
)

// Trust tier ceilings by account age. The boundary at exactly 30/90
// days belongs to the higher tier.
const (
	tierNewCeiling         = 1_000
	tierEstablishedCeiling = 10_000
	tierTrustedCeiling     = 100_000
)

// VerifyLinkLiveness checks that an unsubscribe mechanism is live and
// responsive. Structural checks run before temporal ones, so most
// malformed inputs are cut before any timing-sensitive logic.
func VerifyLinkLiveness(in LinkLivenessInput) Verdict {
	if !strings.HasPrefix(in.URL, secureScheme) {
		return InvalidURL
	}

	age := in.Now - in.TestedAt
	if age < 0 || age > maxProbeAgeMs {
		return Timeout
	}

	if in.StatusCode != http.StatusOK {
		return InvalidResponse
	}

	if in.LatencyMs >= maxLatencyMs {
		return Timeout
	}

	if in.Signature == "" {
		return InvalidSignature
	}

	return Success
}

// VerifyConsentChain checks that a confirmation strictly follows its
// initial request and arrived within the freshness window.
func VerifyConsentChain(in ConsentChainInput) Verdict {
	if in.ConfirmedAt <= in.InitialRequestAt {
		return ConsentInvalid
	}

	if in.ConfirmedAt-in.InitialRequestAt > consentWindowMs {
		return ConsentInvalid
	}

	if in.Token == "" {
		return InvalidSignature
	}

	return Success
}

// VerifyRateLimit checks both the current send volume against the
// configured cap and the cap itself against the sender's trust tier. A
// cap equal to the tier ceiling is allowed.
func VerifyRateLimit(in RateLimitInput) Verdict {
	if in.MessagesToday >= in.DailyLimit {
		return RateLimitExceeded
	}

	if in.DailyLimit > TierCeiling(accountAgeDays(in.Now, in.AccountCreatedAt)) {
		return RateLimitExceeded
	}

	return Success
}

// TierCeiling returns the maximum permissible daily cap for an account
// of the given age. Tiers are a step function, not interpolated.
func TierCeiling(ageDays int64) int {
	switch {
	case ageDays < 30:
		return tierNewCeiling
	case ageDays < 90:
		return tierEstablishedCeiling
	default:
		return tierTrustedCeiling
	}
}

func accountAgeDays(now, createdAt int64) int64 {
	return (now - createdAt) / millisPerDay
}

// Verify dispatches on the input variant. It exists for callers holding
// the tagged union, such as proof re-validation; a nil input yields
// NullInput and an unknown variant yields Internal.
func Verify(in Input) Verdict {
	switch v := in.(type) {
	case LinkLivenessInput:
		return VerifyLinkLiveness(v)
	case ConsentChainInput:
		return VerifyConsentChain(v)
	case RateLimitInput:
		return VerifyRateLimit(v)
	case nil:
		return NullInput
	default:
		return Internal
	}
}
