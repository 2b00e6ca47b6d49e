package redis

// Key prefixes, followed by the scope (see registry.Scope).
const (
	prefixLock     = "herald:lock:"
	prefixSnapshot = "herald:snapshot:"
)
