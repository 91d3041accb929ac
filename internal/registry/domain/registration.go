package domain

import "strings"

// Registration is the raw input of a tenant sign-up.
type Registration struct {
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string
	Password      string
	Role          Role
	PhoneVerified bool // client hint only; the server re-checks
	AdminCode     string
	Namespace     NamespaceConfig
}

// Method tells which channel a registration is confirmed through.
type Method string

const (
	MethodEmail Method = "email"
	MethodPhone Method = "phone"
)

// Method returns the confirmation channel. Email wins when both are given.
func (r Registration) Method() Method {
	if strings.TrimSpace(r.Email) != "" {
		return MethodEmail
	}
	return MethodPhone
}

// RegistrationResult is what a successful provisioning run produced.
type RegistrationResult struct {
	Method    Method
	Admin     Admin
	AdminUser *TenantUser // phone path only

	// Warning is set when confirmation delivery failed. The registration
	// itself still succeeded.
	Warning string
}
