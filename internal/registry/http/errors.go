package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hivecert/hivecert/internal/registry/service"
	"github.com/hivecert/hivecert/pkg/httpx"
	"github.com/hivecert/hivecert/pkg/slogx"
)

// errorStatus maps service sentinels to a status and the request field to
// blame. Order matters: the first match wins, so the connectivity wrapper
// is checked before the stage it was raised in.
var errorStatus = []struct {
	err    error
	status int
	field  string
}{
	{service.ErrPhoneNotVerified, http.StatusBadRequest, "phonenumber"},
	{service.ErrInvalidAdminCode, http.StatusForbidden, "adminCode"},
	{service.ErrEmailTaken, http.StatusConflict, "email"},
	{service.ErrNamespaceTaken, http.StatusConflict, "namespace"},
	{service.ErrDatabaseUnavailable, http.StatusServiceUnavailable, ""},

	{service.ErrStructureTimeout, http.StatusInternalServerError, ""},
	{service.ErrStructureApply, http.StatusInternalServerError, ""},
	{service.ErrNamespaceCreate, http.StatusInternalServerError, ""},
	{service.ErrBootstrapUser, http.StatusInternalServerError, ""},
	{service.ErrAdminCreate, http.StatusInternalServerError, ""},
	{service.ErrTokenCreate, http.StatusInternalServerError, ""},
	{service.ErrCodeClaim, http.StatusInternalServerError, ""},
	{service.ErrActivate, http.StatusInternalServerError, ""},

	{service.ErrInvalidToken, http.StatusBadRequest, "token"},
	{service.ErrTokenUsed, http.StatusBadRequest, "token"},
	{service.ErrTokenExpired, http.StatusBadRequest, "token"},

	{service.ErrInvalidPhone, http.StatusBadRequest, "phonenumber"},
	{service.ErrCodeNotFound, http.StatusBadRequest, "code"},
	{service.ErrCodeExpired, http.StatusBadRequest, "code"},
	{service.ErrCodeMismatch, http.StatusBadRequest, "code"},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests, "code"},
	{service.ErrCodeRecentlySent, http.StatusTooManyRequests, "phonenumber"},
	{service.ErrSMSDelivery, http.StatusBadGateway, ""},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, ""},
	{service.ErrAdminInactive, http.StatusForbidden, ""},
}

// writeServiceError answers with the status for err. The message is the
// sentinel's own text so wrapped internals never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteFieldError(w, http.StatusBadRequest, verr.Reason, verr.Field)
		return
	}

	for _, m := range errorStatus {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			slogx.FromContext(r.Context()).Error("request failed",
				slog.Int("status", m.status),
				slog.Any("error", err),
			)
		}
		httpx.WriteFieldError(w, m.status, m.err.Error(), m.field)
		return
	}

	slogx.FromContext(r.Context()).Error("unhandled error", slog.Any("error", err))
	httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
}

// invalidBodyMessage is all a client learns about an unreadable body.
const invalidBodyMessage = "invalid JSON body"

// writeBodyError answers a request whose JSON body could not be read. The
// decoder's error names Go types, so it is only logged.
func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Warn("unreadable request body", slog.Any("error", err))
	httpx.WriteError(w, http.StatusBadRequest, invalidBodyMessage)
}
