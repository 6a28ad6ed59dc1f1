package verify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-errors/errors"
	uuid "github.com/satori/go.uuid"
)

// Proof binds a check's input snapshot, a timestamp, and a signature
// into an audit artifact. It is owned by whichever record embeds it and
// never mutated after creation. Data holds a copy of the input, so the
// proof stays valid even if the originating input is discarded.
type Proof struct {
	Kind      Kind   `json:"kind"`
	Data      Input  `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// GenerateProof captures the current time and signs (kind, timestamp,
// entropy) through the signer capability. Inputs are value types, so
// storing one in the proof copies it.
func GenerateProof(signer Signer, in Input, now time.Time) (*Proof, error) {
	if in == nil {
		return nil, errors.Errorf("cannot generate proof: %s input", NullInput)
	}

	ts := now.UnixMilli()
	sig, err := signer.Sign([]byte(fmt.Sprintf("%s|%d|%s", in.Kind(), ts, uuid.NewV4().String())))
	if err != nil {
		return nil, errors.Errorf("failed to sign proof: %v", err)
	}

	return &Proof{
		Kind:      in.Kind(),
		Data:      in,
		Timestamp: ts,
		Signature: sig,
	}, nil
}

// FormatProof serializes a proof to its display and storage form:
// pretty-printed JSON with a stable key order.
func FormatProof(p *Proof) (string, error) {
	if p == nil {
		return "", errors.Errorf("cannot format a nil proof")
	}

	buf, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", errors.Errorf("failed to marshal proof: %v", err)
	}

	return string(buf), nil
}

// ParseProof decodes the output of FormatProof back into an equivalent
// proof. All fields round-trip; signature generation itself is not
// reproducible, but the stored signature is preserved verbatim.
func ParseProof(text string) (*Proof, error) {
	var raw struct {
		Kind      Kind            `json:"kind"`
		Data      json.RawMessage `json:"data"`
		Timestamp int64           `json:"timestamp"`
		Signature string          `json:"signature"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, errors.Errorf("failed to unmarshal proof: %v", err)
	}

	p := &Proof{
		Kind:      raw.Kind,
		Timestamp: raw.Timestamp,
		Signature: raw.Signature,
	}

	switch raw.Kind {
	case KindLinkLiveness:
		var in LinkLivenessInput
		if err := json.Unmarshal(raw.Data, &in); err != nil {
			return nil, errors.Errorf("failed to unmarshal %s data: %v", raw.Kind, err)
		}
		p.Data = in
	case KindConsentChain:
		var in ConsentChainInput
		if err := json.Unmarshal(raw.Data, &in); err != nil {
			return nil, errors.Errorf("failed to unmarshal %s data: %v", raw.Kind, err)
		}
		p.Data = in
	case KindRateLimit:
		var in RateLimitInput
		if err := json.Unmarshal(raw.Data, &in); err != nil {
			return nil, errors.Errorf("failed to unmarshal %s data: %v", raw.Kind, err)
		}
		p.Data = in
	default:
		return nil, errors.Errorf("unknown proof kind: %q", raw.Kind)
	}

	return p, nil
}
