// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Login outcomes.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginError              = "error"
)

// Token rejection reasons.
const (
	TokenInvalid = "invalid"
	TokenExpired = "expired"
)

// Vault operations.
const (
	OpCreate = "create"
	OpList   = "list"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Account metrics
	IncUserRegistered()
	IncLogin(outcome string)
	IncTokenRejected(reason string)

	// Vault metrics
	IncSecretOperation(op string)
	IncDecryptFailure()

	// HTTP metrics
	ObserveRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
