package domain

import "time"

// TenantUser is a row of the users table inside a tenant namespace. The
// bootstrap user created at registration points back at its administrator
// through AdminGlobalID; nothing in the database enforces that link.
type TenantUser struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	PhoneNumber     string
	PasswordHash    string
	Role            string
	IsAdmin         bool
	AdminGlobalID   string
	IsConfirmed     bool
	ProfileComplete bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TenantUserRoleAdmin is the role given to the bootstrap user.
const TenantUserRoleAdmin = "admin"

// TenantRef is the two part key that locates a user across namespaces.
type TenantRef struct {
	Schema string
	UserID string
}
