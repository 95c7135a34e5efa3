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

var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// Download is the metadata carried by a signed export link.
type Download struct {
	ExportID  string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues short-lived download tokens for stored exports.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports how long issued links stay valid.
func (s *SignedURLSigner) TTL() time.Duration { return s.ttl }

// Sign returns a token of the form id.expiry.path.signature.
func (s *SignedURLSigner) Sign(exportID, relPath string) (string, time.Time, error) {
	if exportID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("export id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	expiry := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	signature := s.signature(exportID, expiry, encodedPath)
	return strings.Join([]string{exportID, expiry, encodedPath, signature}, "."), expiresAt, nil
}

// Verify checks the signature and expiry of a token.
func (s *SignedURLSigner) Verify(token string) (Download, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 || parts[0] == "" {
		return Download{}, ErrTokenMalformed
	}
	exportID, expiry, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	expUnix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return Download{}, ErrTokenMalformed
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return Download{}, ErrTokenMalformed
	}
	expected := s.signature(exportID, expiry, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Download{}, ErrTokenSignature
	}

	download := Download{ExportID: exportID, Path: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(download.ExpiresAt) {
		return download, ErrTokenExpired
	}
	return download, nil
}

func (s *SignedURLSigner) signature(exportID, expiry, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(exportID + "|" + expiry + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
