package verify

// Verdict is an enum encoding the outcome of a single compliance check.
type Verdict int32

// Values for Verdict. Success is the only passing case; the failure
// cases are mutually exclusive.
const (
	Success Verdict = iota
	InvalidURL
	Timeout
	InvalidResponse
	InvalidSignature
	RateLimitExceeded
	ConsentInvalid
	NullInput
	Internal
)

var verdictText = map[Verdict]string{
	Success:           "SUCCESS",
	InvalidURL:        "INVALID_URL",
	Timeout:           "TIMEOUT",
	InvalidResponse:   "INVALID_RESPONSE",
	InvalidSignature:  "INVALID_SIGNATURE",
	RateLimitExceeded: "RATE_LIMIT_EXCEEDED",
	ConsentInvalid:    "CONSENT_INVALID",
	NullInput:         "NULL_POINTER",
	Internal:          "INTERNAL",
}

func (v Verdict) String() string {
	if s, ok := verdictText[v]; ok {
		return s
	}
	return verdictText[Internal]
}

var verdictMeaning = map[Verdict]string{
	Success:           "all checks passed",
	InvalidURL:        "unsubscribe URL does not use the secure scheme",
	Timeout:           "probe result is too old or the target responded too slowly",
	InvalidResponse:   "probe returned a non-200 status",
	InvalidSignature:  "missing or invalid credential",
	RateLimitExceeded: "daily cap reached, or the configured cap exceeds the trust tier",
	ConsentInvalid:    "consent confirmation out of order or stale",
	NullInput:         "malformed or missing required input",
	Internal:          "unexpected internal fault",
}

// Meaning returns the human-readable rendering of the verdict. It is a
// pure function of the tag.
func (v Verdict) Meaning() string {
	if s, ok := verdictMeaning[v]; ok {
		return s
	}
	return verdictMeaning[Internal]
}

// Retryable reports whether the caller may retry the whole verification
// after refreshing its inputs. Input-rejection and policy verdicts are
// never retried automatically.
func (v Verdict) Retryable() bool {
	switch v {
	case Timeout, InvalidResponse, Internal:
		return true
	default:
		return false
	}
}
