package jwtx_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hivecert/hivecert/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "hivecert"}}

	require.NoError(t, c.ValidateIssuer("hivecert"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("someone-else"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"console", "api"}}}

	require.NoError(t, c.ValidateAudience([]string{"api"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"billing"}), jwtx.ErrAudience)
}

func TestValidateExpiryWithLeeway(t *testing.T) {
	now := time.Now().UTC()

	expired := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
	}}
	require.ErrorIs(t, expired.ValidateExpiryWithLeeway(now, 0), jwtx.ErrExpired)
	require.NoError(t, expired.ValidateExpiryWithLeeway(now, 30*time.Second))

	future := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(now.Add(time.Minute)),
	}}
	require.ErrorIs(t, future.ValidateExpiryWithLeeway(now, 0), jwtx.ErrNotYetValid)
}

func TestNewSessionClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	c := jwtx.NewSessionClaims(jwtx.SessionParams{
		Subject: "01HZX",
		Schema:  "jane_doe_1700000000000_abc123",
		Role:    "admin",
		Email:   "jane@example.com",
		Issuer:  "hivecert",
	}, now)

	require.Equal(t, "01HZX", c.Subject)
	require.Equal(t, "jane_doe_1700000000000_abc123", c.Schema)
	require.Equal(t, now.Add(jwtx.DefaultSessionTTL), c.ExpiresAt.Time)
	require.NotEmpty(t, c.ID)
}
