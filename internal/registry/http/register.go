package http

import (
	"net/http"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/service"
	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/registrysdk"
	"github.com/hivecert/hivecert/pkg/slogx"
)

const (
	messageEmailRegistered = "Registration successful. Check your email to confirm your account."
	messagePhoneRegistered = "Registration successful. Your account is active."
)

type RegisterHandler struct {
	RegistrationService *service.RegistrationService
}

// ServeHTTP provisions a new tenant.
//
//	@Summary		Register a tenant administrator
//	@Description	Creates the administrator, a dedicated tenant namespace with the full tenant structure, and a bootstrap user inside it.
//	@Description	Email registrations stay inactive until the emailed link is followed. Phone registrations require a number verified through /v1/otp/phone/verify within the last 10 minutes and are active immediately.
//	@Description	Any failure after the first write undoes everything the request created.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registrysdk.RegisterRequest		true	"Registration"
//	@Success		201		{object}	registrysdk.RegisterResponse	"Tenant provisioned"
//	@Failure		400		{object}	registrysdk.ErrorResponse		"Validation failed or phone not verified"
//	@Failure		403		{object}	registrysdk.ErrorResponse		"Admin code rejected"
//	@Failure		405		{object}	registrysdk.ErrorResponse		"Method not allowed"
//	@Failure		409		{object}	registrysdk.ErrorResponse		"Email or namespace already taken"
//	@Failure		500		{object}	registrysdk.ErrorResponse		"Provisioning failed and was rolled back"
//	@Failure		503		{object}	registrysdk.ErrorResponse		"Database unavailable"
//	@Router			/v1/admin/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())

	var req registrysdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	res, err := h.RegistrationService.Register(r.Context(), toRegistration(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := registrysdk.RegisterResponse{
		Success:            true,
		RegistrationMethod: string(res.Method),
		Data: registrysdk.RegisterData{
			Admin:     toAdmin(res.Admin),
			AdminUser: toAdminUser(res.AdminUser, res.Admin.SchemaName),
		},
		Warning: res.Warning,
	}
	switch res.Method {
	case domain.MethodEmail:
		resp.RequiresConfirmation = true
		resp.Message = messageEmailRegistered
	case domain.MethodPhone:
		resp.Message = messagePhoneRegistered
	}

	l.Info("registration completed", "admin_id", res.Admin.ID, "method", res.Method)
	httpx.WriteJSON(w, http.StatusCreated, resp)
}
