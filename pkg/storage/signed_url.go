package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token errors.
var (
	ErrTokenFormat    = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// PreviewToken is the content of a signed preview link: an image staged in
// a draft that has not been uploaded yet.
type PreviewToken struct {
	DraftID   string
	Key       string
	ExpiresAt time.Time
}

// PreviewSigner creates and validates signed preview tokens.
type PreviewSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewPreviewSigner constructs a signer with the provided secret and TTL.
func NewPreviewSigner(secret string, ttl time.Duration) *PreviewSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PreviewSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting read access to one staged image.
func (s *PreviewSigner) Sign(draftID, key string) (string, time.Time, error) {
	if draftID == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("draft id and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	sig := s.mac(draftID, ts, encodedKey)
	return strings.Join([]string{draftID, ts, encodedKey, sig}, "."), expiresAt, nil
}

// Verify validates a token and returns what it grants.
func (s *PreviewSigner) Verify(token string) (*PreviewToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrTokenFormat
	}
	draftID, ts, encodedKey, sig := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.mac(draftID, ts, encodedKey)), []byte(sig)) {
		return nil, ErrTokenSignature
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: key: %v", ErrTokenFormat, err)
	}
	exp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp", ErrTokenFormat)
	}
	expiresAt := time.Unix(exp, 0)
	if s.now().After(expiresAt) {
		return nil, ErrTokenExpired
	}
	return &PreviewToken{DraftID: draftID, Key: string(rawKey), ExpiresAt: expiresAt}, nil
}

func (s *PreviewSigner) mac(draftID, ts, encodedKey string) string {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(draftID + "|" + ts + "|" + encodedKey))
	return hex.EncodeToString(m.Sum(nil))
}
