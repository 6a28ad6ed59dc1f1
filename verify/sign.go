package verify

import (
	"github.com/verisend/verisend/pkg/hash"
)

// Signer produces the signature bound into a proof. The current scheme
// is an opaque placeholder; a real signing scheme can be substituted
// here without touching any verdict logic.
type Signer interface {
	Sign(payload []byte) (string, error)
}

// HMACSigner signs payloads with HMAC-SHA256 over a shared secret.
type HMACSigner struct {
	secret string
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: secret}
}

func (s *HMACSigner) Sign(payload []byte) (string, error) {
	return hash.ComputeHmac256(string(payload), s.secret)
}
