package registrysdk

import "time"

// ============================================================================
// Registration
// ============================================================================

// NamespaceRequest is the optional tenant configuration of a registration.
type NamespaceRequest struct {
	// Name of the tenant namespace. Generated from the admin name when empty.
	Name        string `json:"name,omitempty" example:"acme_apiary"`
	DisplayName string `json:"displayName,omitempty" example:"Acme Apiary"`
	Description string `json:"description,omitempty"`

	// MaxUsers and MaxStorage (MB) default server side when zero.
	MaxUsers   int `json:"maxUsers,omitempty" example:"50"`
	MaxStorage int `json:"maxStorage,omitempty" example:"1024"`
}

// RegisterRequest is the body of POST /v1/admin/register. Either Email or
// PhoneNumber is required; email wins when both are given.
type RegisterRequest struct {
	FirstName     string            `json:"firstname" example:"Jane"`
	LastName      string            `json:"lastname" example:"Doe"`
	Email         string            `json:"email,omitempty" example:"jane@example.com"`
	PhoneNumber   string            `json:"phonenumber,omitempty" example:"+61400111222"`
	Password      string            `json:"password" example:"password123"`
	Role          string            `json:"role" example:"admin" enums:"admin,super_admin"`
	PhoneVerified bool              `json:"phoneVerified,omitempty"`
	AdminCode     string            `json:"adminCode,omitempty"`
	Namespace     *NamespaceRequest `json:"namespace,omitempty"`
}

// Admin is the public view of a tenant administrator.
type Admin struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"firstname"`
	LastName        string     `json:"lastname"`
	Email           string     `json:"email"`
	PhoneNumber     string     `json:"phonenumber,omitempty"`
	Role            string     `json:"role"`
	SchemaName      string     `json:"schemaName"`
	DisplayName     string     `json:"displayName,omitempty"`
	Description     string     `json:"description,omitempty"`
	MaxUsers        int        `json:"maxUsers"`
	MaxStorage      int        `json:"maxStorage"`
	IsActive        bool       `json:"isActive"`
	IsConfirmed     bool       `json:"isConfirmed"`
	ConfirmedAt     *time.Time `json:"confirmedAt,omitempty"`
	PhoneVerifiedAt *time.Time `json:"phoneVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// AdminUser is the bootstrap user created inside the tenant namespace.
type AdminUser struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phonenumber,omitempty"`
	Role          string `json:"role"`
	IsAdmin       bool   `json:"isAdmin"`
	IsConfirmed   bool   `json:"isConfirmed"`
	AdminGlobalID string `json:"adminGlobalId"`
	Schema        string `json:"schema"`
}

// RegisterData carries the created records.
type RegisterData struct {
	Admin     Admin      `json:"admin"`
	AdminUser *AdminUser `json:"adminUser,omitempty"`
}

// RegisterResponse is returned with 201 Created.
type RegisterResponse struct {
	Success              bool         `json:"success"`
	RequiresConfirmation bool         `json:"requiresConfirmation"`
	RegistrationMethod   string       `json:"registrationMethod" enums:"email,phone"`
	Message              string       `json:"message"`
	Data                 RegisterData `json:"data"`

	// Warning is set when the account exists but the confirmation email
	// could not be sent.
	Warning string `json:"warning,omitempty"`
}

// ============================================================================
// Confirmation
// ============================================================================

// ResendConfirmationRequest is the body of POST /v1/admin/confirm/resend.
type ResendConfirmationRequest struct {
	Email string `json:"email" example:"jane@example.com"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ConfirmResponse is returned once an email registration is confirmed.
type ConfirmResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Admin   Admin  `json:"admin"`
}

// ============================================================================
// Phone one-time codes
// ============================================================================

// SendPhoneCodeRequest is the body of POST /v1/otp/phone/send.
type SendPhoneCodeRequest struct {
	PhoneNumber string `json:"phonenumber" example:"+61400111222"`
}

// SendPhoneCodeResponse tells the client when the sent code lapses.
type SendPhoneCodeResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyPhoneCodeRequest is the body of POST /v1/otp/phone/verify.
type VerifyPhoneCodeRequest struct {
	PhoneNumber string `json:"phonenumber" example:"+61400111222"`
	Code        string `json:"code" example:"123456"`
}

// VerifyPhoneCodeResponse confirms the number may now register.
type VerifyPhoneCodeResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Verified bool   `json:"verified"`
}

// ============================================================================
// Sessions
// ============================================================================

// LoginRequest is the body of POST /v1/admin/login.
type LoginRequest struct {
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"password123"`
}

// LoginResponse carries the session token, also set as a cookie.
type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType" example:"Bearer"`
	ExpiresAt time.Time `json:"expiresAt"`
	Admin     Admin     `json:"admin"`
}

// MeResponse is the administrator behind the current session.
type MeResponse struct {
	Success bool  `json:"success"`
	Admin   Admin `json:"admin"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is served by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each backing database.
type HealthChecks struct {
	Database      string `json:"database"`
	AdminDatabase string `json:"adminDatabase"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}
