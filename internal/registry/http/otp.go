package http

import (
	"net/http"

	"github.com/hivecert/hivecert/internal/registry/service"
	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/registrysdk"
)

type PhoneOTPHandler struct {
	PhoneVerificationService *service.PhoneVerificationService
}

// HandleSend texts a one-time code.
//
//	@Summary		Send a phone verification code
//	@Description	Texts a 6 digit code valid for 10 minutes. A new code can be requested every 30 seconds; only the newest one is accepted.
//	@Tags			Phone verification
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registrysdk.SendPhoneCodeRequest	true	"Phone number"
//	@Success		200		{object}	registrysdk.SendPhoneCodeResponse	"Code sent"
//	@Failure		400		{object}	registrysdk.ErrorResponse			"Invalid phone number"
//	@Failure		429		{object}	registrysdk.ErrorResponse			"A code was sent recently"
//	@Failure		502		{object}	registrysdk.ErrorResponse			"SMS delivery failed"
//	@Router			/v1/otp/phone/send [post].
func (h *PhoneOTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req registrysdk.SendPhoneCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	expiresAt, err := h.PhoneVerificationService.SendCode(r.Context(), req.PhoneNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, registrysdk.SendPhoneCodeResponse{
		Success:   true,
		Message:   "Verification code sent.",
		ExpiresAt: expiresAt,
	})
}

// HandleVerify redeems a one-time code.
//
//	@Summary		Verify a phone number
//	@Description	Checks the code against the newest one sent to the number. Five wrong guesses burn the code.
//	@Description	A verified number can register for the next 10 minutes.
//	@Tags			Phone verification
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registrysdk.VerifyPhoneCodeRequest	true	"Phone number and code"
//	@Success		200		{object}	registrysdk.VerifyPhoneCodeResponse	"Phone verified"
//	@Failure		400		{object}	registrysdk.ErrorResponse			"Wrong, expired or missing code"
//	@Failure		429		{object}	registrysdk.ErrorResponse			"Too many attempts"
//	@Router			/v1/otp/phone/verify [post].
func (h *PhoneOTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req registrysdk.VerifyPhoneCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if req.Code == "" {
		httpx.WriteFieldError(w, http.StatusBadRequest, "code is required", "code")
		return
	}

	if err := h.PhoneVerificationService.VerifyCode(r.Context(), req.PhoneNumber, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, registrysdk.VerifyPhoneCodeResponse{
		Success:  true,
		Message:  "Phone number verified.",
		Verified: true,
	})
}
