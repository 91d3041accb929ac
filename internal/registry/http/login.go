package http

import (
	"errors"
	"net/http"

	"github.com/hivecert/hivecert/internal/registry/service"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/registrysdk"
)

type LoginHandler struct {
	LoginService *service.LoginService

	// SecureCookie marks the session cookie Secure; off only for plain
	// http development setups.
	SecureCookie bool
}

// HandleLogin opens a console session.
//
//	@Summary		Log in as a tenant administrator
//	@Description	Verifies the credential of a confirmed administrator and returns a session token, also set as the hivecert_session cookie.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registrysdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	registrysdk.LoginResponse	"Session opened"
//	@Failure		401		{object}	registrysdk.ErrorResponse	"Invalid email or password"
//	@Failure		403		{object}	registrysdk.ErrorResponse	"Administrator not confirmed yet"
//	@Router			/v1/admin/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req registrysdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	sess, err := h.LoginService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, registrysdk.LoginResponse{
		Success:   true,
		Token:     sess.Token,
		TokenType: "Bearer",
		ExpiresAt: sess.ExpiresAt,
		Admin:     toAdmin(sess.Admin),
	})
}

// HandleMe returns the session's administrator.
//
//	@Summary		Current administrator
//	@Description	Returns the administrator and tenant namespace behind the session token.
//	@Tags			Session
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	registrysdk.MeResponse		"Administrator"
//	@Failure		401	{object}	registrysdk.ErrorResponse	"Missing or invalid session"
//	@Failure		404	{object}	registrysdk.ErrorResponse	"Administrator no longer exists"
//	@Router			/v1/admin/me [get].
func (h *LoginHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	admin, err := h.LoginService.Admin(r.Context(), httpx.AdminIDFromContext(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "administrator not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, registrysdk.MeResponse{Success: true, Admin: toAdmin(admin)})
}
