// Package veracode is a read-only client for the Veracode REST API.
//
// Every request is signed with the VERACODE-HMAC-SHA-256 scheme, paced by
// a shared rate limiter and bounded by a per-request timeout. List
// resources are exposed as restartable Pagers over the HAL page envelope.
//
// Errors fall into three groups callers branch on:
//   - *APIError for non-2xx responses (ErrNotFound, ErrUnauthorized)
//   - *TransientFetchError for 5xx, 429, timeouts and dropped connections
//   - *finding.SchemaError when a response lacks a required field
package veracode
