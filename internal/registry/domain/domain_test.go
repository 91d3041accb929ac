package domain_test

import (
	"testing"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	require.True(t, domain.RoleAdmin.Valid())
	require.True(t, domain.RoleSuperAdmin.Valid())
	require.False(t, domain.Role("owner").Valid())
	require.False(t, domain.Role("").Valid())
}

func TestRegistrationMethod(t *testing.T) {
	require.Equal(t, domain.MethodEmail, domain.Registration{Email: "a@b.co"}.Method())
	require.Equal(t, domain.MethodPhone, domain.Registration{PhoneNumber: "+61400000000"}.Method())
	require.Equal(t, domain.MethodEmail, domain.Registration{Email: "a@b.co", PhoneNumber: "+61400000000"}.Method())
}

func TestConfirmationTokenUsable(t *testing.T) {
	now := time.Now()
	tok := domain.ConfirmationToken{ExpiresAt: now.Add(time.Hour)}
	require.True(t, tok.Usable(now))
	require.False(t, tok.Usable(now.Add(2*time.Hour)))

	used := now
	tok.UsedAt = &used
	require.False(t, tok.Usable(now))
}

func TestVerificationCodeLive(t *testing.T) {
	now := time.Now()
	c := domain.VerificationCode{ExpiresAt: now.Add(time.Minute)}
	require.True(t, c.Live(now))

	c.Attempts = domain.MaxVerificationAttempts
	require.False(t, c.Live(now))
}

func TestAdminFullName(t *testing.T) {
	require.Equal(t, "Jane Doe", domain.Admin{FirstName: "Jane", LastName: "Doe"}.FullName())
	require.Equal(t, "Jane", domain.Admin{FirstName: "Jane"}.FullName())
}
