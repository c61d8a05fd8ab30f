package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Sentinel errors for transport failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrDNS indicates a DNS resolution failure for the API host.
	ErrDNS = errors.New("httpclient: DNS resolution failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("httpclient: TLS handshake failed")

	// ErrTimeout indicates the request or connection timed out.
	ErrTimeout = errors.New("httpclient: timeout")

	// ErrConnect indicates the connection was refused or reset.
	ErrConnect = errors.New("httpclient: connection failed")
)

// Classify tags a transport error from http.Client.Do with one of the
// sentinels above, keeping the original in the chain. Errors it does
// not recognize, and caller cancellation, are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrDNS, err)
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) || errors.As(err, &recordErr) {
		return fmt.Errorf("%w: %w", ErrTLS, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var opErr *net.OpError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return err
}

// IsTransient reports whether a classified transport error is worth
// retrying. TLS and DNS failures are configuration problems.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnect)
}
