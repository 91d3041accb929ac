package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestRecover(t *testing.T) {
	h := httpx.Recover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestAllowMethods(t *testing.T) {
	h := httpx.AllowMethods(http.MethodPost)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	var body httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "method not allowed", body.Error)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"jane","extra":1}`))
	req.Header.Set("Content-Type", "application/json")
	require.NoError(t, httpx.DecodeJSON(req, &dst))
	require.Equal(t, "jane", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.Error(t, httpx.DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	require.Error(t, httpx.DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`name=jane`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Error(t, httpx.DecodeJSON(req, &dst))
}

func TestAuthnAndRequireRole(t *testing.T) {
	h256, err := jwtx.NewHS256([]byte(strings.Repeat("k", 32)), jwtx.VerifyOptions{})
	require.NoError(t, err)

	token, err := h256.Sign(jwtx.NewSessionClaims(jwtx.SessionParams{
		Subject: "admin-1",
		Schema:  "jane_doe_1_abcdef",
		Role:    "admin",
	}, time.Now().UTC()))
	require.NoError(t, err)

	var seenSchema string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSchema = httpx.SchemaFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.AuthnMiddleware(h256)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		httpx.AuthnMiddleware(h256)(inner).ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "jane_doe_1_abcdef", seenSchema)
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: httpx.SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		httpx.AuthnMiddleware(h256)(inner).ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("role gate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		httpx.Chain(inner, httpx.AuthnMiddleware(h256), httpx.RequireRole("super_admin")).ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = httptest.NewRecorder()
		httpx.Chain(inner, httpx.AuthnMiddleware(h256), httpx.RequireRole("admin", "super_admin")).ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}
