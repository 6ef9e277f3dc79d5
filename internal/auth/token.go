// Package auth verifies caller identities. A caller is identified by an
// Ed25519 public key and proves it by signing a short-lived EdDSA JWT whose
// subject is that key.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("bearer token is required")
	ErrInvalidToken = errors.New("bearer token is invalid")
	ErrExpiredToken = errors.New("bearer token is expired")
)

// Config defines how caller tokens are verified.
type Config struct {
	Audience string
	// MaxAge bounds exp - iat so callers cannot mint long-lived tokens.
	MaxAge time.Duration
	Now    func() time.Time
}

// Verifier checks caller tokens.
type Verifier struct {
	cfg Config
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, fmt.Errorf("token audience is required")
	}
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("token max age must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Identity encodes a public key as the identity string used by the ledger.
func Identity(pub ed25519.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(pub)
}

// ParseIdentity decodes an identity back to its public key.
func ParseIdentity(identity string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(identity)
	if err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("identity must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// Verify returns the identity that signed token.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return ParseIdentity(claims.Subject)
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.cfg.Now),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	if claims.IssuedAt == nil {
		return "", fmt.Errorf("%w: iat is required", ErrInvalidToken)
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > v.cfg.MaxAge {
		return "", fmt.Errorf("%w: lifetime exceeds %s", ErrInvalidToken, v.cfg.MaxAge)
	}
	return claims.Subject, nil
}

// Sign mints a caller token for the key pair's identity.
func Sign(key ed25519.PrivateKey, audience string, issuedAt time.Time, ttl time.Duration) (string, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", fmt.Errorf("unexpected public key type %T", key.Public())
	}
	claims := jwt.RegisteredClaims{
		Subject:   Identity(pub),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// mapJWTError translates jwt library errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}
