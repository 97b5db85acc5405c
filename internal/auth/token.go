// Package auth is the boundary to the external credential service. The
// server only verifies opaque bearer tokens; it never issues them to real
// clients (Issue exists for the bot and for tests).
package auth

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
	ErrBadToken = errors.New("auth: malformed token")
	ErrBadSig   = errors.New("auth: bad signature")
	ErrExpired  = errors.New("auth: token expired")
)

// Identity is the verified account behind a bearer token.
type Identity struct {
	UserID   string
	Username string
}

// Verifier checks a bearer token. Implementations must be safe for
// concurrent use; Verify is called from connection goroutines.
type Verifier interface {
	Verify(token string, now time.Time) (Identity, error)
}

// HMACVerifier validates tokens of the form
// base64url(userID "\n" username "\n" expiryUnixMs) "." hex(hmac-sha256).
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret []byte) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

func (v *HMACVerifier) Verify(token string, now time.Time) (Identity, error) {
	token = strings.TrimSpace(token)
	i := strings.LastIndexByte(token, '.')
	if i <= 0 || i == len(token)-1 {
		return Identity{}, ErrBadToken
	}
	payload, sig := token[:i], strings.ToLower(token[i+1:])

	exp := signHMAC(v.secret, payload)
	if !hmac.Equal([]byte(sig), []byte(exp)) {
		return Identity{}, ErrBadSig
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Identity{}, ErrBadToken
	}
	parts := strings.SplitN(string(raw), "\n", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Identity{}, ErrBadToken
	}
	expMS, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Identity{}, ErrBadToken
	}
	if now.UnixMilli() >= expMS {
		return Identity{}, ErrExpired
	}
	return Identity{UserID: parts[0], Username: parts[1]}, nil
}

// Issue mints a token the verifier accepts. TTL is measured from now.
func Issue(secret []byte, id Identity, now time.Time, ttl time.Duration) (string, error) {
	if id.UserID == "" || id.Username == "" {
		return "", fmt.Errorf("auth: issue: empty identity")
	}
	if strings.ContainsRune(id.UserID, '\n') || strings.ContainsRune(id.Username, '\n') {
		return "", fmt.Errorf("auth: issue: identity contains newline")
	}
	raw := id.UserID + "\n" + id.Username + "\n" + strconv.FormatInt(now.Add(ttl).UnixMilli(), 10)
	payload := base64.RawURLEncoding.EncodeToString([]byte(raw))
	return payload + "." + signHMAC(secret, payload), nil
}

func signHMAC(secret []byte, payload string) string {
	h := hmac.New(sha256.New, secret)
	_, _ = h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
