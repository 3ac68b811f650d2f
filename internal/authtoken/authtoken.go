// Package authtoken issues and verifies embed session tokens. Host backends
// mint a token per visitor and put it on the embed URL; the embed server
// verifies it to decide whether a session starts out authenticated.
package authtoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTTL bounds session token validity.
	DefaultTTL = 15 * time.Minute

	DefaultIssuer   = "scout-embed"
	DefaultAudience = "scout-widget"
)

// Claims contains the JWT claims carried by an embed session token.
type Claims struct {
	// Tenant pins the session to one tenant. Empty tokens are valid for the
	// default tenant.
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

// Config contains token manager configuration.
type Config struct {
	// Secret is the HMAC signing secret shared with the host backend.
	// Required.
	Secret []byte

	// Issuer names the signing party. Defaults to DefaultIssuer.
	Issuer string

	// Audience restricts where tokens are honored. Defaults to
	// DefaultAudience.
	Audience string

	// TTL bounds token validity. Defaults to DefaultTTL.
	TTL time.Duration
}

// Manager signs and verifies embed session tokens.
type Manager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// New creates a token manager.
func New(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	return &Manager{
		secret:   cfg.Secret,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
	}, nil
}

// Issue creates a session token scoped to tenant.
func (m *Manager) Issue(tenant string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Tenant: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify validates a session token and returns its claims.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
