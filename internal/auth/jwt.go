// Package auth verifies bearer tokens issued by the managed identity backend.
//
// Tokens are HS256 JWTs whose subject is the user id. Issuance belongs to the
// backend; Signer exists so tests and local tooling can mint compatible tokens.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAudience is the audience claim of user tokens.
const DefaultAudience = "authenticated"

// Predefined JWT errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrNotConfigured      = errors.New("token verification not configured")
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Claims represents the claims in a user access token.
type Claims struct {
	jwt.RegisteredClaims

	// Email is informational and optional.
	Email string `json:"email,omitempty"`
}

// JWTConfig holds configuration for token verification and signing.
type JWTConfig struct {
	// SigningKey is the shared HS256 secret.
	SigningKey string

	// Issuer is checked when set.
	Issuer string

	// Audience is checked when set (default: DefaultAudience).
	Audience string
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

var _ TokenVerifier = (*Verifier)(nil)

// NewVerifier creates a new token verifier.
func NewVerifier(cfg JWTConfig) *Verifier {
	audience := cfg.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	return &Verifier{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// Verify validates tokenString and returns its subject.
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims, err := v.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ValidateAccessToken validates an access token and returns the claims.
func (v *Verifier) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(v.signingKey) == 0 {
		return nil, ErrNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(v.audience),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

// Signer mints tokens the Verifier accepts.
type Signer struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewSigner creates a signer sharing cfg with a Verifier.
func NewSigner(cfg JWTConfig) *Signer {
	audience := cfg.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	return &Signer{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   audience,
	}
}

// Sign creates a token for userID valid for ttl.
func (s *Signer) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ID:        generateTokenID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return tokenString, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
