package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidLink is returned for tokens that are malformed or carry a bad signature.
	ErrInvalidLink = errors.New("invalid link token")
	// ErrLinkExpired is returned for well-formed tokens past their expiry.
	ErrLinkExpired = errors.New("link token expired")
)

// LinkSigner issues short-lived tokens that let an unauthenticated display
// fetch a resource such as a session QR image.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewLinkSigner constructs a signer with the provided secret and TTL.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl}
}

// Sign returns a token for resourceID valid until now+ttl, capped at notAfter
// when notAfter is non-zero.
func (s *LinkSigner) Sign(resourceID string, now, notAfter time.Time) (string, time.Time, error) {
	if resourceID == "" {
		return "", time.Time{}, fmt.Errorf("resource id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := now.Add(s.ttl)
	if !notAfter.IsZero() && notAfter.Before(expiresAt) {
		expiresAt = notAfter
	}
	expiresAt = expiresAt.Truncate(time.Second)

	id := base64.RawURLEncoding.EncodeToString([]byte(resourceID))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{id, ts, s.mac(id, ts)}, "."), expiresAt, nil
}

// Verify checks the signature and expiry and returns the embedded resource id.
func (s *LinkSigner) Verify(token string, now time.Time) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidLink
	}
	id, ts, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.mac(id, ts)), []byte(signature)) {
		return "", ErrInvalidLink
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrInvalidLink
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", ErrInvalidLink
	}
	if now.After(time.Unix(unix, 0)) {
		return "", ErrLinkExpired
	}
	return string(raw), nil
}

func (s *LinkSigner) mac(id, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + ts))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
