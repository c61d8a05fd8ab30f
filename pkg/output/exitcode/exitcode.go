// Package exitcode maps run outcomes to process exit codes for scripts
// and CI pipelines.
//
// Exit codes:
//   - 0: Success
//   - 1: Partial failures (some asset data could not be fetched)
//   - 2: A report format could not be rendered
//   - 3: Invalid configuration or usage
//   - 4: Authentication not configured or rejected
//   - 5: Collection not found or name ambiguous
//   - 6: Upstream schema violation
//   - 7: Interrupted
//   - 8: Other API or network failure
package exitcode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/collection"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/config"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/credentials"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/output/writers"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

// Code is a process exit code.
type Code int

const (
	Success       Code = 0
	Partial       Code = 1
	Render        Code = 2
	Configuration Code = 3
	Auth          Code = 4
	NotFound      Code = 5
	Schema        Code = 6
	Interrupted   Code = 7
	API           Code = 8
)

// codeStrings maps exit codes to machine-readable names.
var codeStrings = map[Code]string{
	Success:       "success",
	Partial:       "partial_failures",
	Render:        "render_failed",
	Configuration: "invalid_configuration",
	Auth:          "auth_error",
	NotFound:      "collection_not_found",
	Schema:        "schema_error",
	Interrupted:   "interrupted",
	API:           "api_error",
}

// codeDescriptions provides detailed descriptions for exit codes.
var codeDescriptions = map[Code]string{
	Success:       "Report generated for every asset",
	Partial:       "Report generated but some asset data could not be fetched",
	Render:        "One or more report formats could not be rendered",
	Configuration: "Invalid configuration or usage",
	Auth:          "API credentials are missing, malformed or were rejected",
	NotFound:      "Collection not found or name is ambiguous",
	Schema:        "The platform returned data in an unexpected shape",
	Interrupted:   "Run was interrupted by user or signal",
	API:           "The platform could not be reached or returned an error",
}

// priority lists codes from most to least significant. When several
// outcomes are recorded the first one present wins.
var priority = []Code{Interrupted, Configuration, Auth, NotFound, Schema, API, Render, Partial}

// FromError classifies a fatal error.
func FromError(err error) Code {
	if err == nil {
		return Success
	}
	var re *writers.RenderError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Interrupted
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, finding.ErrUnknownScanType), errors.Is(err, writers.ErrUnknownFormat),
		errors.Is(err, collection.ErrNoScanTypes):
		return Configuration
	case errors.Is(err, credentials.ErrAuthConfig), errors.Is(err, veracode.ErrUnauthorized):
		return Auth
	case errors.Is(err, collection.ErrNotFound), errors.Is(err, collection.ErrAmbiguous):
		return NotFound
	case errors.Is(err, finding.ErrSchema):
		return Schema
	case errors.As(err, &re):
		return Render
	default:
		return API
	}
}

// Manager collects outcomes during a run and picks the final code.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	seen     map[Code]int
	lastErr  map[Code]error
	partials int
}

// New creates a manager with nothing recorded.
func New() *Manager {
	return &Manager{seen: make(map[Code]int), lastErr: make(map[Code]error)}
}

// Record classifies err and records it. Nil is ignored.
func (m *Manager) Record(err error) Code {
	if err == nil {
		return Success
	}
	code := FromError(err)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[code]++
	m.lastErr[code] = err
	return code
}

// RecordPartial records n assets with missing data.
func (m *Manager) RecordPartial(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[Partial]++
	m.partials += n
}

// SetInterrupted marks that the run was interrupted.
func (m *Manager) SetInterrupted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[Interrupted]++
}

// ExitCode returns the most significant recorded code and a
// human-readable reason.
func (m *Manager) ExitCode() (Code, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, code := range priority {
		if m.seen[code] == 0 {
			continue
		}
		switch {
		case code == Partial:
			return code, fmt.Sprintf("%s (assets: %d)", codeDescriptions[code], m.partials)
		case m.lastErr[code] != nil:
			return code, fmt.Sprintf("%s: %v", codeDescriptions[code], m.lastErr[code])
		default:
			return code, codeDescriptions[code]
		}
	}
	return Success, codeDescriptions[Success]
}

// CodeString returns the machine-readable name of code.
func CodeString(code Code) string {
	if s, ok := codeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown_code_%d", code)
}

// CodeDescription returns a detailed description of code.
func CodeDescription(code Code) string {
	if s, ok := codeDescriptions[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown exit code: %d", code)
}

// String returns the machine-readable name of the code.
func (c Code) String() string { return CodeString(c) }
