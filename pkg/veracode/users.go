package veracode

import (
	"context"
	"strings"
	"time"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
)

// User is the identity behind the API credentials.
type User struct {
	UserName     string `json:"user_name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	EmailAddress string `json:"email_address"`
}

// DisplayName returns "First Last", falling back to the user name.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.UserName
	}
	return name
}

// Self fetches the calling user.
func (c *Client) Self(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, "user", "/api/authn/v2/users/self", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// APICredentials describes the key pair in use.
type APICredentials struct {
	APIID        string `json:"api_id"`
	ExpirationTS string `json:"expiration_ts"`
}

// Expiration parses the expiry timestamp.
func (a APICredentials) Expiration() (time.Time, error) {
	if a.ExpirationTS == "" {
		return time.Time{}, finding.Missing("api credentials", "expiration_ts")
	}
	return ParseTimestamp(a.ExpirationTS)
}

// ExpiresWithin reports whether the credentials expire before now+window.
func (a APICredentials) ExpiresWithin(now time.Time, window time.Duration) (time.Time, bool, error) {
	exp, err := a.Expiration()
	if err != nil {
		return time.Time{}, false, err
	}
	return exp, exp.Sub(now) < window, nil
}

// CredentialsInfo fetches metadata about the key pair in use.
func (c *Client) CredentialsInfo(ctx context.Context) (*APICredentials, error) {
	var info APICredentials
	if err := c.getJSON(ctx, "api credentials", "/api/authn/v2/api_credentials", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
