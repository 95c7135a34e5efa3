package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	openssl "github.com/Luzifer/go-openssl/v4"
)

// The session token is the username and issue instant sealed in the OpenSSL
// "Salted__" envelope (EVP_BytesToKey with MD5, AES-256-CBC), the format CryptoJS
// produces for a passphrase. The passphrase ships with every client build, so the
// token only deters casual tampering. It is a UX gate for the dashboard and never
// grants access on its own; protected routes also require a server-verified bearer
// token.

// maxClockSkew bounds how far in the future an issue instant may lie.
const maxClockSkew = time.Minute

var errMalformedToken = errors.New("malformed session token")

// SessionTokenCodec issues and validates dashboard session tokens.
type SessionTokenCodec struct {
	passphrase string
	ttl        time.Duration
	now        func() time.Time
	sealer     *openssl.OpenSSL
}

// NewSessionTokenCodec builds a codec. ttl defaults to 24h.
func NewSessionTokenCodec(passphrase string, ttl time.Duration) *SessionTokenCodec {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionTokenCodec{passphrase: passphrase, ttl: ttl, now: time.Now, sealer: openssl.New()}
}

// TTL returns the validity window.
func (c *SessionTokenCodec) TTL() time.Duration { return c.ttl }

// Issue seals "username:<unix millis>".
func (c *SessionTokenCodec) Issue(username string) (string, error) {
	payload := username + ":" + strconv.FormatInt(c.now().UnixMilli(), 10)
	sealed, err := c.sealer.EncryptBytes(c.passphrase, []byte(payload), openssl.BytesToKeyMD5)
	if err != nil {
		return "", fmt.Errorf("seal session token: %w", err)
	}
	return string(sealed), nil
}

// Validate reports whether token was issued for username within the TTL. Any decode
// failure counts as invalid.
func (c *SessionTokenCodec) Validate(token, username string) bool {
	if token == "" || username == "" {
		return false
	}
	embedded, issuedAt, err := c.Decode(token)
	if err != nil {
		return false
	}
	if embedded != username {
		return false
	}
	now := c.now()
	if issuedAt.After(now.Add(maxClockSkew)) {
		return false
	}
	return now.Sub(issuedAt) < c.ttl
}

// Decode opens the token and returns the embedded username and issue instant.
func (c *SessionTokenCodec) Decode(token string) (username string, issuedAt time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			username, issuedAt, err = "", time.Time{}, errMalformedToken
		}
	}()

	plain, err := c.sealer.DecryptBytes(c.passphrase, []byte(strings.TrimSpace(token)), openssl.BytesToKeyMD5)
	if err != nil || !utf8.Valid(plain) {
		return "", time.Time{}, errMalformedToken
	}

	payload := string(plain)
	sep := strings.LastIndex(payload, ":")
	if sep <= 0 {
		return "", time.Time{}, errMalformedToken
	}
	millis, err := strconv.ParseInt(payload[sep+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, errMalformedToken
	}
	return payload[:sep], time.UnixMilli(millis), nil
}
