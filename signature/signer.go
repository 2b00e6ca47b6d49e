// Package signature provides Ed25519 verification of inbound interaction
// requests, plus signing helpers for tests and tooling.
package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Header names carrying the request signature and timestamp.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// Sign returns the hex-encoded Ed25519 signature of timestamp followed by body.
func Sign(priv ed25519.PrivateKey, timestamp string, body []byte) string {
	return hex.EncodeToString(ed25519.Sign(priv, message(timestamp, body)))
}

// GenerateKey creates a new key pair and returns the public key hex-encoded,
// in the same form the platform shows in the developer portal.
func GenerateKey() (publicHex string, priv ed25519.PrivateKey, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, fmt.Errorf("signature: generate key: %w", err)
	}
	return hex.EncodeToString(pub), priv, nil
}

// message is the signed content: the timestamp bytes followed by the raw body.
func message(timestamp string, body []byte) []byte {
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	return append(msg, body...)
}
