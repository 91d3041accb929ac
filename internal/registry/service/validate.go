package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/tenantschema"
	"github.com/hivecert/hivecert/pkg/cryptox"
)

// MinPasswordLength is the shortest credential accepted at registration.
const MinPasswordLength = 8

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
)

// ValidateRegistration returns "" when r is well formed, or the reason it
// is not. It has no side effects.
func ValidateRegistration(r domain.Registration) string {
	if err := validateRegistration(r); err != nil {
		return err.Error()
	}
	return ""
}

func validateRegistration(r domain.Registration) error {
	var missing []string
	if strings.TrimSpace(r.FirstName) == "" {
		missing = append(missing, "firstname")
	}
	if strings.TrimSpace(r.LastName) == "" {
		missing = append(missing, "lastname")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(string(r.Role)) == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return invalid(missing[0], "missing required fields: "+strings.Join(missing, ", "))
	}

	email := strings.TrimSpace(r.Email)
	phone := strings.TrimSpace(r.PhoneNumber)
	if email == "" && phone == "" {
		return invalid("email", "either email or phonenumber is required")
	}
	if email != "" && !emailPattern.MatchString(email) {
		return invalid("email", "invalid email format")
	}
	if email == "" && !phonePattern.MatchString(NormalizePhone(phone)) {
		return invalid("phonenumber", "invalid phone number format")
	}

	// Roles are case sensitive; only surrounding space is tolerated.
	if !domain.Role(strings.TrimSpace(string(r.Role))).Valid() {
		return invalid("role", fmt.Sprintf("role must be %q or %q", domain.RoleAdmin, domain.RoleSuperAdmin))
	}
	if len(r.Password) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// validateNamespace checks the optional namespace block.
func validateNamespace(ns domain.NamespaceConfig) error {
	if ns.Name != "" {
		if err := tenantschema.ValidateName(ns.Name); err != nil {
			return invalid("namespace.name",
				"namespace name must be 3-63 characters of a-z, 0-9 or _, start with a letter, and not be reserved")
		}
	}
	if ns.MaxUsers < 0 {
		return invalid("namespace.maxUsers", "maxUsers must not be negative")
	}
	if ns.MaxStorageMB < 0 {
		return invalid("namespace.maxStorage", "maxStorage must not be negative")
	}
	return nil
}

// NormalizePhone strips formatting characters, keeping a leading '+'.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// formatting, dropped
		default:
			// Keep anything unexpected so validation rejects it.
			b.WriteRune(r)
		}
	}
	return b.String()
}

const (
	suffixLength   = 6
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateSchemaName builds first_last_<unix millis>_<random6>, lower cased
// and reduced to [a-z0-9_]. Name parts are shortened so the result fits a
// PostgreSQL identifier.
func GenerateSchemaName(first, last string, now time.Time) (string, error) {
	suffix, err := cryptox.RandomString(suffixLength, suffixAlphabet)
	if err != nil {
		return "", fmt.Errorf("generate schema suffix: %w", err)
	}
	tail := "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix

	head := slug(first)
	if l := slug(last); l != "" {
		if head != "" {
			head += "_"
		}
		head += l
	}
	if head == "" {
		head = "tenant"
	}
	if head[0] < 'a' || head[0] > 'z' {
		head = "t_" + head
	}
	if limit := tenantschema.MaxNameLength - len(tail); len(head) > limit {
		head = strings.TrimRight(head[:limit], "_")
	}
	return head + tail, nil
}

// slug lower-cases s and collapses every run of other characters into a
// single underscore.
func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
