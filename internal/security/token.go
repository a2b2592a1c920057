// Package security issues and verifies the bearer tokens carried on API
// requests. Tokens are HS256 JWTs signed with a shared secret.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired marks a well-formed token past its expiry
	ErrTokenExpired = errors.New("token expired")
)

// Claims carried inside a token
type Claims struct {
	UserID        string `json:"user_id"`
	InstitutionID string `json:"institution_id"`
	Exp           int64  `json:"exp"`
	Iat           int64  `json:"iat"`
}

// TokenProvider generates and parses HS256 tokens
type TokenProvider struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenProvider creates a new token provider
func NewTokenProvider(secret string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: []byte(secret), ttl: ttl}
}

// Generate issues a signed token for the user, returning the token and its
// expiry time
func (p *TokenProvider) Generate(userID, institutionID string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)

	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	claims := Claims{
		UserID:        userID,
		InstitutionID: institutionID,
		Exp:           expiresAt.Unix(),
		Iat:           now.Unix(),
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", time.Time{}, err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) +
		"." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	return signingInput + "." + signHS256(signingInput, p.secret), expiresAt, nil
}

// Parse verifies the signature and expiry and returns the claims
func (p *TokenProvider) Parse(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	signingInput := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(signHS256(signingInput, p.secret))) {
		return nil, ErrInvalidToken
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Exp > 0 && time.Now().UTC().Unix() > claims.Exp {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

func signHS256(input string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
