package http

import (
	"net/http"
	"strings"

	"github.com/hivecert/hivecert/internal/registry/service"
	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/registrysdk"
	"github.com/hivecert/hivecert/pkg/slogx"
)

const messageResend = "If the address belongs to an unconfirmed account, a new confirmation email is on its way."

type ConfirmHandler struct {
	ConfirmationService *service.ConfirmationService
}

// HandleConfirm redeems a confirmation link.
//
//	@Summary		Confirm an email registration
//	@Description	Redeems the token from the confirmation email, activates the administrator and confirms the bootstrap tenant user.
//	@Tags			Registration
//	@Produce		json
//	@Param			token	query		string						true	"Token from the confirmation link"
//	@Success		200		{object}	registrysdk.ConfirmResponse	"Administrator activated"
//	@Failure		400		{object}	registrysdk.ErrorResponse	"Token invalid, used or expired"
//	@Failure		503		{object}	registrysdk.ErrorResponse	"Database unavailable"
//	@Router			/v1/admin/confirm [get].
func (h *ConfirmHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	admin, err := h.ConfirmationService.Confirm(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, registrysdk.ConfirmResponse{
		Success: true,
		Message: "Your account is confirmed.",
		Admin:   toAdmin(admin),
	})
}

// HandleResend mails a fresh confirmation link.
//
//	@Summary		Resend the confirmation email
//	@Description	Issues a new 24 hour confirmation token for an unconfirmed administrator and mails it. Always answers 202 so the endpoint cannot be used to discover accounts.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registrysdk.ResendConfirmationRequest	true	"Address to resend to"
//	@Success		202		{object}	registrysdk.MessageResponse				"Accepted"
//	@Failure		400		{object}	registrysdk.ErrorResponse				"Missing email"
//	@Router			/v1/admin/confirm/resend [post].
func (h *ConfirmHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req registrysdk.ResendConfirmationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteFieldError(w, http.StatusBadRequest, "email is required", "email")
		return
	}

	if err := h.ConfirmationService.Resend(r.Context(), req.Email); err != nil {
		slogx.FromContext(r.Context()).Warn("confirmation resend failed", "error", err)
	}
	httpx.WriteJSON(w, http.StatusAccepted, registrysdk.MessageResponse{
		Success: true,
		Message: messageResend,
	})
}
