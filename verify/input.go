package verify

// Kind identifies which check an input, and the proof wrapping it,
// belongs to.
type Kind string

const (
	KindLinkLiveness Kind = "link_liveness"
	KindConsentChain Kind = "consent_chain"
	KindRateLimit    Kind = "rate_limit"
)

// Input is the tagged union of the three verification input variants.
// Each variant is an immutable value object built by the orchestrator
// and passed to exactly one verifier. All times are epoch milliseconds;
// "now" is carried inside the input so the verifiers never read a clock.
type Input interface {
	Kind() Kind
}

// LinkLivenessInput holds the result of probing an unsubscribe URL.
type LinkLivenessInput struct {
	URL        string `json:"url"`
	TestedAt   int64  `json:"tested_at"`
	Now        int64  `json:"now"`
	StatusCode int    `json:"response_code"`
	LatencyMs  int64  `json:"response_time"`
	Token      string `json:"token"`
	Signature  string `json:"signature"`
}

func (LinkLivenessInput) Kind() Kind { return KindLinkLiveness }

// ConsentChainInput holds the ordered pair establishing that a
// subscriber opted in.
type ConsentChainInput struct {
	InitialRequestAt int64  `json:"initial_request"`
	ConfirmedAt      int64  `json:"confirmation"`
	Address          string `json:"address"`
	Token            string `json:"token"`
}

func (ConsentChainInput) Kind() Kind { return KindConsentChain }

// RateLimitInput holds the sender's account age and send volume.
type RateLimitInput struct {
	Identity         string `json:"identity"`
	AccountCreatedAt int64  `json:"account_created"`
	Now              int64  `json:"now"`
	MessagesToday    int    `json:"messages_today"`
	DailyLimit       int    `json:"daily_limit"`
}

func (RateLimitInput) Kind() Kind { return KindRateLimit }
