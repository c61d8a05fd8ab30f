// Package defaults provides canonical default values for the tool.
// This is the single source of truth for runtime configuration defaults.
//
// Usage:
//
//	cfg.Concurrency = defaults.Concurrency
//	req.Header.Set("Accept", defaults.ContentTypeJSON)
package defaults

import "fmt"

// Version is the current tool version.
// Overridden at build time via -ldflags "-X .../pkg/defaults.Version=x.y.z".
var Version = "1.2.0"

// ToolName is the binary and service name.
const ToolName = "vccollections"

// ============================================================================
// PLATFORM API
// ============================================================================

const (
	// APIBaseURL is the commercial-region REST endpoint.
	APIBaseURL = "https://api.veracode.com"

	// APIBaseURLEU is the European-region REST endpoint.
	APIBaseURLEU = "https://api.veracode.eu"

	// APIBaseURLFed is the US federal-region REST endpoint.
	APIBaseURLFed = "https://api.veracode.us"

	// PageSize is the number of records requested per list page.
	PageSize = 100

	// RequestsPerSecond bounds the API call rate.
	RequestsPerSecond = 10

	// RequestBurst is the limiter burst size.
	RequestBurst = 5
)

// ============================================================================
// CONCURRENCY & RETRY
// ============================================================================

const (
	// Concurrency is the default number of assets fetched in parallel.
	Concurrency = 4

	// ConcurrencyMax bounds the worker pool.
	ConcurrencyMax = 32

	// RetryAttempts is the number of attempts per asset, including the first.
	RetryAttempts = 3
)

// ============================================================================
// CREDENTIALS
// ============================================================================

const (
	// EnvAPIKeyID names the environment variable holding the API key id.
	EnvAPIKeyID = "VERACODE_API_KEY_ID"

	// EnvAPIKeySecret names the environment variable holding the API key secret.
	EnvAPIKeySecret = "VERACODE_API_KEY_SECRET"

	// EnvProfile selects the credentials file section.
	EnvProfile = "VERACODE_API_PROFILE"

	// CredentialsDir and CredentialsFile locate the profile file under $HOME.
	CredentialsDir  = ".veracode"
	CredentialsFile = "credentials"

	// Profile is the default credentials file section.
	Profile = "default"

	// CredentialExpiryWarnDays triggers a warning when API credentials
	// expire within this many days.
	CredentialExpiryWarnDays = 7
)

// ============================================================================
// OUTPUT
// ============================================================================

const (
	// Format is the report format produced when none is requested.
	Format = "pdf"

	// FileNameTemplate names report files (text/template with sprig functions).
	FileNameTemplate = `Veracode Collection - {{ .Name }} - {{ date "2006-01-02" .Generated }}`

	// LogFile receives the run log in the working directory.
	LogFile = ToolName + ".log"

	// ReportTitle heads the PDF report.
	ReportTitle = "Veracode Collection Report"
)

// ============================================================================
// HTTP
// ============================================================================

const (
	ContentTypeJSON = "application/json"
	AcceptHAL       = "application/hal+json, application/json"
)

// UserAgent returns the User-Agent sent with API requests.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ToolName, Version)
}
