package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hivecert/hivecert/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", jwtx.MinSecretLength))

func TestNewHS256_RejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewHS256([]byte("short"), jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestHS256_RoundTrip(t *testing.T) {
	h, err := jwtx.NewHS256(testSecret, jwtx.VerifyOptions{Issuer: "hivecert", Audience: []string{"console"}})
	require.NoError(t, err)
	require.Equal(t, "HS256", h.Alg())

	claims := jwtx.NewSessionClaims(jwtx.SessionParams{
		Subject:  "admin-1",
		Schema:   "jane_doe_1_abcdef",
		Role:     "super_admin",
		Issuer:   "hivecert",
		Audience: []string{"console"},
	}, time.Now().UTC())

	token, err := h.Sign(claims)
	require.NoError(t, err)

	got, err := h.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "admin-1", got.Subject)
	require.Equal(t, "jane_doe_1_abcdef", got.Schema)
	require.Equal(t, "super_admin", got.Role)
}

func TestHS256_Rejects(t *testing.T) {
	h, err := jwtx.NewHS256(testSecret, jwtx.VerifyOptions{Issuer: "hivecert"})
	require.NoError(t, err)

	now := time.Now().UTC()
	valid := jwtx.NewSessionClaims(jwtx.SessionParams{Subject: "a", Issuer: "hivecert"}, now)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewHS256([]byte(strings.Repeat("x", 40)), jwtx.VerifyOptions{})
		require.NoError(t, err)
		token, err := other.Sign(valid)
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := h.Verify("not.a.token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := jwtx.NewSessionClaims(jwtx.SessionParams{Subject: "a", Issuer: "elsewhere"}, now)
		token, err := h.Sign(c)
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		c := jwtx.NewSessionClaims(jwtx.SessionParams{Subject: "a", Issuer: "hivecert", TTL: time.Minute}, now.Add(-time.Hour))
		token, err := h.Sign(c)
		require.NoError(t, err)

		_, err = h.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}
