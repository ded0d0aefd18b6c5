package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrSignatureInvalid indicates a webhook payload failed verification.
var ErrSignatureInvalid = errors.New("invalid signature")

// Verifier checks payment-provider webhook signatures. The provider signs
// the exact raw request body with HMAC-SHA256 and sends the hex digest.
type Verifier struct {
	secret string
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// Verify reports whether the provided signature matches the raw body.
// Fails closed: a missing secret, a missing signature, or any mismatch
// (including length) returns false. The comparison is constant-time.
func (v *Verifier) Verify(rawBody []byte, providedSignature string) bool {
	if v == nil || v.secret == "" {
		return false
	}
	providedSignature = strings.TrimSpace(providedSignature)
	if providedSignature == "" {
		return false
	}
	provided, errDecode := hex.DecodeString(providedSignature)
	if errDecode != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	return hmac.Equal(expected, provided)
}

// Sign computes the hex HMAC-SHA256 digest of a body. Used by tests and
// outbound tooling; the server never signs inbound traffic.
func (v *Verifier) Sign(rawBody []byte) string {
	if v == nil || v.secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
