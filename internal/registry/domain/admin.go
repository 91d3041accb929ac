package domain

import "time"

// Admin is the global record of a tenant administrator. It lives in the
// shared schema and owns exactly one tenant namespace, named by SchemaName.
//
// IsActive is the single source of truth for "this tenant is usable". It
// flips on email confirmation, or immediately for a verified phone
// registration.
type Admin struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	PhoneNumber     string // empty for email registrations
	PasswordHash    string // argon2id PHC string
	Role            Role
	SchemaName      string
	DisplayName     string
	Description     string
	MaxUsers        int
	MaxStorageMB    int
	IsActive        bool
	ConfirmedAt     *time.Time
	PhoneVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName joins first and last name.
func (a Admin) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
