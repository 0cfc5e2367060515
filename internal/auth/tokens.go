package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sirosfoundation/go-xsf/pkg/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrNoSecret     = errors.New("jwt secret is not configured")
)

// Blacklist records revoked token IDs.
type Blacklist interface {
	Add(ctx context.Context, jti string, expiry time.Time) error
	IsBlacklisted(ctx context.Context, jti string) bool
}

// Claims are the JWT claims carried by bearer tokens.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Orgs  []string `json:"orgs,omitempty"`
	Admin bool     `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into a request principal.
func (c *Claims) Principal() *Principal {
	return &Principal{
		Subject: c.Subject,
		Name:    c.Name,
		Email:   c.Email,
		Roles:   c.Roles,
		Orgs:    c.Orgs,
		Admin:   c.Admin,
	}
}

// Tokens issues and verifies HMAC-signed bearer tokens.
type Tokens struct {
	secret    []byte
	issuer    string
	expiry    time.Duration
	blacklist Blacklist
	now       func() time.Time
}

// NewTokens creates a token issuer from the JWT configuration. blacklist may be nil.
func NewTokens(cfg config.JWTConfig, blacklist Blacklist) *Tokens {
	expiry := cfg.Expiry()
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Tokens{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		expiry:    expiry,
		blacklist: blacklist,
		now:       time.Now,
	}
}

// Enabled reports whether a signing secret is configured.
func (t *Tokens) Enabled() bool {
	return t != nil && len(t.secret) > 0
}

// Issue signs a token for p.
func (t *Tokens) Issue(p *Principal) (string, error) {
	if !t.Enabled() {
		return "", ErrNoSecret
	}

	now := t.now()
	claims := &Claims{
		Name:  p.Name,
		Email: p.Email,
		Roles: p.Roles,
		Orgs:  p.Orgs,
		Admin: p.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   p.Subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the signature, expiry, issuer and revocation state of a token.
func (t *Tokens) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	if !t.Enabled() {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if t.blacklist != nil && t.blacklist.IsBlacklisted(ctx, claims.ID) {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// Revoke blacklists a valid token until it expires.
func (t *Tokens) Revoke(ctx context.Context, tokenString string) error {
	claims, err := t.Parse(ctx, tokenString)
	if err != nil {
		return err
	}
	if t.blacklist == nil {
		return nil
	}
	return t.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}
