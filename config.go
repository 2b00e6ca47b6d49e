package herald

import "time"

// Config holds the configuration for a Herald instance.
type Config struct {
	// PublicKey is the application's hex-encoded Ed25519 public key.
	PublicKey string `json:"public_key" yaml:"public_key"`

	// MaxBodyBytes caps the size of an inbound interaction request.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`

	// MaxSkew rejects requests whose signed timestamp is further than this
	// from the local clock. Zero disables the check.
	MaxSkew time.Duration `json:"max_skew" yaml:"max_skew"`

	// Concurrency caps the number of deferred tasks running at once when
	// Herald owns the executor. Zero means unbounded.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// ShutdownTimeout is the maximum time to wait for deferred tasks on shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// ErrorMessage is the ephemeral reply shown when a command handler fails.
	ErrorMessage string `json:"error_message" yaml:"error_message"`

	// WarnOnReject logs a warning for every handler entry that fails validation.
	WarnOnReject bool `json:"warn_on_reject" yaml:"warn_on_reject"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 30 * time.Second,
		WarnOnReject:    true,
	}
}
