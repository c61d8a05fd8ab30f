package veracode

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/credentials"
)

const (
	authScheme     = "VERACODE-HMAC-SHA-256"
	requestVersion = "vcode_request_version_1"
	nonceSize      = 16
)

// signer produces Authorization headers for one key pair.
type signer struct {
	keyID  string
	secret []byte
	now    func() time.Time
	nonce  func() ([]byte, error)
}

func newSigner(c credentials.Credentials) (*signer, error) {
	secret, err := hex.DecodeString(c.SigningSecret())
	if err != nil {
		return nil, &credentials.AuthConfigError{Source: c.Source, Reason: "API key secret is not hex encoded", Err: err}
	}
	return &signer{
		keyID:  c.SigningKeyID(),
		secret: secret,
		now:    time.Now,
		nonce:  randomNonce,
	}, nil
}

func randomNonce() ([]byte, error) {
	b := make([]byte, nonceSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// authorization returns the header value for method on u.
func (s *signer) authorization(method string, u *url.URL) (string, error) {
	nonce, err := s.nonce()
	if err != nil {
		return "", fmt.Errorf("veracode: sign: nonce: %w", err)
	}
	ts := s.now().UnixMilli()
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	sig := signature(s.keyID, s.secret, u.Hostname(), target, method, nonce, ts)
	return fmt.Sprintf("%s id=%s,ts=%d,nonce=%s,sig=%s",
		authScheme, s.keyID, ts, hex.EncodeToString(nonce), sig), nil
}

// signature derives the request key from the secret through the nonce,
// timestamp and version string, then signs the request description.
func signature(keyID string, secret []byte, host, target, method string, nonce []byte, ts int64) string {
	data := fmt.Sprintf("id=%s&host=%s&url=%s&method=%s",
		strings.ToLower(keyID), strings.ToLower(host), target, strings.ToUpper(method))

	keyNonce := mac(secret, nonce)
	keyDate := mac(keyNonce, []byte(strconv.FormatInt(ts, 10)))
	sigKey := mac(keyDate, []byte(requestVersion))
	return hex.EncodeToString(mac(sigKey, []byte(data)))
}

func mac(key, msg []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(msg)
	return h.Sum(nil)
}
