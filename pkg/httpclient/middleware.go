package httpclient

import (
	"errors"
	"net/http"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
)

// middlewareTransport sets the headers every API request carries.
type middlewareTransport struct {
	base      http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (m *middlewareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if m.userAgent != "" {
		r.Header.Set("User-Agent", m.userAgent)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", defaults.AcceptHAL)
	}
	return m.base.RoundTrip(r)
}

const maxRedirects = 5

// redirectPolicyWithAuthStrip follows redirects but drops the signature
// header when the target host changes. A request signature is bound to
// the original host and path, so it would not verify anywhere else.
func redirectPolicyWithAuthStrip(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("httpclient: stopped after 5 redirects")
	}
	if len(via) > 0 && req.URL.Host != via[0].URL.Host {
		req.Header.Del("Authorization")
	}
	return nil
}
