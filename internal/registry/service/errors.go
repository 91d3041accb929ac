package service

import (
	"errors"
)

var (
	// Rejections before any state is written.
	ErrPhoneNotVerified = errors.New("phone number has not been verified")
	ErrInvalidAdminCode = errors.New("invalid admin code for the requested role")

	// Conflicts.
	ErrEmailTaken     = errors.New("email is already registered")
	ErrNamespaceTaken = errors.New("namespace already exists")

	// Provisioning failures, by stage.
	ErrAdminCreate      = errors.New("failed to create administrator")
	ErrTokenCreate      = errors.New("failed to create confirmation token")
	ErrCodeClaim        = errors.New("failed to claim verification code")
	ErrNamespaceCreate  = errors.New("failed to create namespace")
	ErrStructureApply   = errors.New("failed to apply tenant structure")
	ErrStructureTimeout = errors.New("timed out applying tenant structure")
	ErrBootstrapUser    = errors.New("failed to create bootstrap tenant user")
	ErrActivate         = errors.New("failed to activate administrator")

	ErrDatabaseUnavailable = errors.New("database unavailable")

	// Confirmation.
	ErrInvalidToken = errors.New("invalid confirmation token")
	ErrTokenUsed    = errors.New("confirmation token already used")
	ErrTokenExpired = errors.New("confirmation token expired")

	// Phone codes.
	ErrInvalidPhone     = errors.New("invalid phone number")
	ErrCodeNotFound     = errors.New("no pending verification code")
	ErrCodeExpired      = errors.New("verification code expired")
	ErrCodeMismatch     = errors.New("verification code does not match")
	ErrTooManyAttempts  = errors.New("too many verification attempts")
	ErrSMSDelivery      = errors.New("failed to send verification code")
	ErrCodeRecentlySent = errors.New("a verification code was sent recently")

	// Login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminInactive      = errors.New("administrator has not been confirmed")
)

// ValidationError is a malformed request. Field names the offending input
// when there is a single one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
