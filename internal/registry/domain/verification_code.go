package domain

import "time"

// PurposePhone tags codes that prove ownership of a phone number.
const PurposePhone = "phone"

const (
	// VerificationCodeTTL bounds both the life of a sent code and how long a
	// verified code keeps gating registration.
	VerificationCodeTTL = 10 * time.Minute

	// MaxVerificationAttempts is the number of wrong guesses allowed before
	// a code is burnt.
	MaxVerificationAttempts = 5
)

// VerificationCode is a one-time code sent to an identifier (a phone
// number). Secret is the per-code TOTP seed the code is derived from.
type VerificationCode struct {
	ID         string
	Identifier string
	Purpose    string
	Secret     string
	ExpiresAt  time.Time
	UsedAt     *time.Time
	Attempts   int
	AdminID    string // set once the code has been claimed by a registration
	CreatedAt  time.Time
}

// Live reports whether the code can still be redeemed at now.
func (c VerificationCode) Live(now time.Time) bool {
	return c.UsedAt == nil && now.Before(c.ExpiresAt) && c.Attempts < MaxVerificationAttempts
}
