// Package credentials loads Veracode API credentials from the environment
// or the per-user profile file, and derives the API region from the key id.
//
// Environment variables VERACODE_API_KEY_ID and VERACODE_API_KEY_SECRET win
// when both are set. Otherwise ~/.veracode/credentials is read:
//
//	[default]
//	veracode_api_key_id = ...
//	veracode_api_key_secret = ...
package credentials

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
)

// Region is the platform region a key pair belongs to.
type Region string

const (
	RegionCommercial Region = "commercial"
	RegionEU         Region = "european"
	RegionFederal    Region = "federal"
)

// Key id prefixes that select a non-commercial region.
const (
	prefixEU      = "vera01ei-"
	prefixFederal = "vera01es-"
)

// BaseURL returns the REST endpoint for the region.
func (r Region) BaseURL() string {
	switch r {
	case RegionEU:
		return defaults.APIBaseURLEU
	case RegionFederal:
		return defaults.APIBaseURLFed
	default:
		return defaults.APIBaseURL
	}
}

// Credentials is an API key pair.
type Credentials struct {
	KeyID  string
	Secret string
	Source string
}

// Region derives the platform region from the key id prefix.
func (c Credentials) Region() Region {
	switch {
	case strings.HasPrefix(c.KeyID, prefixEU):
		return RegionEU
	case strings.HasPrefix(c.KeyID, prefixFederal):
		return RegionFederal
	default:
		return RegionCommercial
	}
}

// SigningKeyID returns the key id without its region prefix.
func (c Credentials) SigningKeyID() string { return stripRegion(c.KeyID) }

// SigningSecret returns the secret without its region prefix.
func (c Credentials) SigningSecret() string { return stripRegion(c.Secret) }

func stripRegion(s string) string {
	for _, p := range []string{prefixEU, prefixFederal} {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest
		}
	}
	return s
}

// String never includes the secret.
func (c Credentials) String() string {
	return "Credentials{KeyID: " + c.KeyID + ", Source: " + c.Source + "}"
}

// LogValue keeps the secret out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key_id", c.KeyID),
		slog.String("source", c.Source),
		slog.String("region", string(c.Region())),
	)
}

// Options controls where Load looks.
type Options struct {
	// Profile selects the file section. Empty falls back to
	// VERACODE_API_PROFILE, then "default".
	Profile string

	// Path overrides ~/.veracode/credentials.
	Path string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load resolves credentials. It performs no network calls.
func Load(opts Options) (Credentials, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	id := strings.TrimSpace(getenv(defaults.EnvAPIKeyID))
	secret := strings.TrimSpace(getenv(defaults.EnvAPIKeySecret))
	if id != "" && secret != "" {
		return Credentials{KeyID: id, Secret: secret, Source: "environment"}, nil
	}

	profile := opts.Profile
	if profile == "" {
		profile = getenv(defaults.EnvProfile)
	}
	if profile == "" {
		profile = defaults.Profile
	}

	path := opts.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Credentials{}, &AuthConfigError{Source: "profile", Reason: "cannot locate home directory", Err: err}
		}
		path = filepath.Join(home, defaults.CredentialsDir, defaults.CredentialsFile)
	}
	return loadFile(path, profile)
}

func loadFile(path, profile string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := "cannot read credentials file"
		if errors.Is(err, fs.ErrNotExist) {
			reason = "no credentials in environment and no credentials file"
			err = nil
		}
		return Credentials{}, &AuthConfigError{Source: path, Reason: reason, Err: err}
	}

	file, err := parseProfiles(data)
	if err != nil {
		return Credentials{}, &AuthConfigError{Source: path, Reason: "malformed credentials file", Err: err}
	}
	section, err := file.GetSection(profile)
	if err != nil {
		return Credentials{}, &AuthConfigError{Source: path, Reason: "profile " + profile + " not found"}
	}
	c := Credentials{
		KeyID:  section.Key(keyIDField).String(),
		Secret: section.Key(secretField).String(),
		Source: path + " [" + profile + "]",
	}
	if c.KeyID == "" || c.Secret == "" {
		return Credentials{}, &AuthConfigError{Source: path, Reason: "profile " + profile + " lacks " + keyIDField + " or " + secretField}
	}
	return c, nil
}

// Profile file keys.
const (
	keyIDField  = "veracode_api_key_id"
	secretField = "veracode_api_key_secret"
)

// parseProfiles reads the profile file. Section and key names match
// without regard to case.
func parseProfiles(data []byte) (*ini.File, error) {
	return ini.LoadSources(ini.LoadOptions{Insensitive: true}, data)
}
