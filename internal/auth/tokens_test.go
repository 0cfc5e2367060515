package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/service"
	"github.com/sirosfoundation/go-xsf/pkg/config"
)

func testTokens(t *testing.T, issuer string) *Tokens {
	t.Helper()
	blacklist := service.NewTokenBlacklist(time.Minute, zap.NewNop())
	return NewTokens(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, Issuer: issuer}, blacklist)
}

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := testTokens(t, "xsf-test")
	p := &Principal{Subject: "user-1", Name: "jdoe", Roles: []string{"Reader"}, Orgs: []string{"acme"}, Admin: true}

	raw, err := tokens.Issue(p)
	require.NoError(t, err)

	claims, err := tokens.Parse(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "xsf-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, p, claims.Principal())
}

func TestTokens_WrongSecret(t *testing.T) {
	raw, err := testTokens(t, "").Issue(&Principal{Subject: "u"})
	require.NoError(t, err)

	other := NewTokens(config.JWTConfig{Secret: "another-secret", ExpiryHours: 1}, nil)
	_, err = other.Parse(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_WrongIssuer(t *testing.T) {
	raw, err := NewTokens(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, Issuer: "a"}, nil).Issue(&Principal{Subject: "u"})
	require.NoError(t, err)

	_, err = NewTokens(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, Issuer: "b"}, nil).Parse(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Expired(t *testing.T) {
	tokens := testTokens(t, "")
	raw, err := tokens.Issue(&Principal{Subject: "u"})
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Revoke(t *testing.T) {
	ctx := context.Background()
	tokens := testTokens(t, "")
	raw, err := tokens.Issue(&Principal{Subject: "u"})
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(ctx, raw))
	_, err = tokens.Parse(ctx, raw)
	assert.ErrorIs(t, err, ErrRevokedToken)

	assert.ErrorIs(t, tokens.Revoke(ctx, raw), ErrRevokedToken)
}

func TestTokens_Garbage(t *testing.T) {
	_, err := testTokens(t, "").Parse(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Disabled(t *testing.T) {
	tokens := NewTokens(config.JWTConfig{}, nil)
	assert.False(t, tokens.Enabled())

	_, err := tokens.Issue(&Principal{Subject: "u"})
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = tokens.Parse(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoSecret)

	var nilTokens *Tokens
	assert.False(t, nilTokens.Enabled())
}
