// Package duration provides canonical time constants for the tool.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.APIRequest)
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// APIRequest bounds a single platform API call (60s).
	APIRequest = 60 * time.Second

	// Dial bounds connection establishment (10s).
	Dial = 10 * time.Second

	// TLSHandshake bounds the TLS handshake (10s).
	TLSHandshake = 10 * time.Second

	// IdleConn is how long idle pooled connections are kept (90s).
	IdleConn = 90 * time.Second

	// ExpectContinue bounds the wait for a 100-continue response (1s).
	ExpectContinue = 1 * time.Second
)

// ============================================================================
// RETRY BACKOFF
// ============================================================================

const (
	// RetryInitial is the delay before the first retry (1s).
	RetryInitial = 1 * time.Second

	// RetryMax caps any single backoff delay (30s).
	RetryMax = 30 * time.Second
)

// ============================================================================
// RUN LIFECYCLE
// ============================================================================

const (
	// Run bounds a whole report run (30min).
	Run = 30 * time.Minute

	// TelemetryShutdown bounds exporter flush on exit (5s).
	TelemetryShutdown = 5 * time.Second

	// TelemetryConnect bounds exporter setup (10s).
	TelemetryConnect = 10 * time.Second
)
