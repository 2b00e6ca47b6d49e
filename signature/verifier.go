package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrInvalidPublicKey is returned by NewVerifier for keys that are not a
// hex-encoded 32-byte Ed25519 public key.
var ErrInvalidPublicKey = errors.New("signature: invalid public key")

// Verifier checks request signatures against a single application public key.
// It is safe for concurrent use.
type Verifier struct {
	key     ed25519.PublicKey
	maxSkew time.Duration
	now     func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithMaxSkew rejects requests whose timestamp is further than d from the
// current time. Zero disables the check.
func WithMaxSkew(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.maxSkew = d }
}

// WithClock overrides the time source used by WithMaxSkew.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier decodes the hex public key once for reuse across requests.
func NewVerifier(publicKeyHex string, opts ...VerifierOption) (*Verifier, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(raw), ed25519.PublicKeySize)
	}
	v := &Verifier{key: ed25519.PublicKey(raw), now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// Verify reports whether the request headers carry a valid signature for body.
// Missing headers verify as false.
func (v *Verifier) Verify(h http.Header, body []byte) bool {
	return v.VerifyParts(h.Get(HeaderTimestamp), h.Get(HeaderSignature), body)
}

// VerifyParts reports whether signatureHex is a valid signature of timestamp
// followed by body. It never panics; every malformed input yields false.
func (v *Verifier) VerifyParts(timestamp, signatureHex string, body []byte) bool {
	if v == nil || timestamp == "" || signatureHex == "" {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	if v.maxSkew > 0 && !v.fresh(timestamp) {
		return false
	}
	return ed25519.Verify(v.key, message(timestamp, body), sig)
}

func (v *Verifier) fresh(timestamp string) bool {
	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	skew := v.now().Sub(time.Unix(secs, 0))
	if skew < 0 {
		skew = -skew
	}
	return skew <= v.maxSkew
}
