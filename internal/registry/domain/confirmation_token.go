package domain

import "time"

// ConfirmationTokenTTL is how long an emailed confirmation link stays valid.
const ConfirmationTokenTTL = 24 * time.Hour

// ConfirmationToken is issued for email registrations. Only the fingerprint
// of the emailed token is stored.
type ConfirmationToken struct {
	ID        string
	AdminID   string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token is unused and unexpired at now.
func (t ConfirmationToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
