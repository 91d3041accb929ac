package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/lock"
	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/hivecert/hivecert/internal/registry/tenantschema"
	"github.com/hivecert/hivecert/pkg/cryptox"
	"github.com/hivecert/hivecert/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store   *memStore
	cluster *memCluster
	mailer  *fakeMailer
	sms     *fakeSMS
	clock   *fakeClock
	phones  *PhoneVerificationService
	confirm *ConfirmationService
	svc     *RegistrationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:   newMemStore(),
		cluster: newMemCluster(),
		mailer:  &fakeMailer{},
		sms:     &fakeSMS{},
		clock:   newFakeClock(),
	}
	m := metrics.New()
	h.phones = &PhoneVerificationService{Store: h.store, SMS: h.sms, Now: h.clock.Now}
	h.confirm = &ConfirmationService{
		Store:   h.store,
		Tenants: h.cluster,
		Mailer:  h.mailer,
		Metrics: m,
		BaseURL: "https://app.hivecert.test/",
		Now:     h.clock.Now,
	}
	h.svc = &RegistrationService{
		Store:         h.store,
		Schemas:       h.cluster,
		Tenants:       h.cluster,
		Structure:     h.cluster,
		Phones:        h.phones,
		Confirmations: h.confirm,
		Locker:        lock.Noop{},
		Metrics:       m,
		Now:           h.clock.Now,
	}
	return h
}

// requireEmpty asserts that nothing a registration writes is left behind.
func (h *harness) requireEmpty(t *testing.T) {
	t.Helper()
	admins, tokens, codes := h.store.counts()
	require.Zero(t, admins, "admins")
	require.Zero(t, tokens, "confirmation tokens")
	require.Zero(t, codes, "verification codes")
	schemas, err := h.cluster.ListSchemas(context.Background())
	require.NoError(t, err)
	require.Empty(t, schemas)
}

// verifyPhone runs the send and verify flow for phone.
func (h *harness) verifyPhone(t *testing.T, phone string) {
	t.Helper()
	ctx := context.Background()
	_, err := h.phones.SendCode(ctx, phone)
	require.NoError(t, err)
	require.NoError(t, h.phones.VerifyCode(ctx, phone, codeFromSMS(t, h.sms.last())))
}

var smsCode = regexp.MustCompile(`\b(\d{6})\b`)

func codeFromSMS(t *testing.T, body string) string {
	t.Helper()
	m := smsCode.FindStringSubmatch(body)
	require.Len(t, m, 2, "no code in %q", body)
	return m[1]
}

var linkToken = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

func tokenFromMail(t *testing.T, html string) string {
	t.Helper()
	m := linkToken.FindStringSubmatch(html)
	require.Len(t, m, 2, "no confirmation link in mail")
	return m[1]
}

func emailRegistration() domain.Registration {
	return domain.Registration{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "Jane@Example.com",
		Password:  "correct-horse",
		Role:      domain.RoleAdmin,
	}
}

func phoneRegistration() domain.Registration {
	return domain.Registration{
		FirstName:     "Sam",
		LastName:      "Keeper",
		PhoneNumber:   "+61 400 111 222",
		Password:      "correct-horse",
		Role:          domain.RoleAdmin,
		PhoneVerified: true,
	}
}

func TestRegister_EmailPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Register(ctx, emailRegistration())
	require.NoError(t, err)
	require.Equal(t, domain.MethodEmail, res.Method)
	require.Empty(t, res.Warning)
	require.Nil(t, res.AdminUser)

	admin := h.store.onlyAdmin(t)
	require.Equal(t, res.Admin.ID, admin.ID)
	require.Equal(t, "jane@example.com", admin.Email)
	require.False(t, admin.IsActive)
	require.Nil(t, admin.ConfirmedAt)
	require.Equal(t, "Jane Doe", admin.DisplayName)
	require.Equal(t, DefaultMaxUsers, admin.MaxUsers)
	require.Equal(t, DefaultMaxStorageMB, admin.MaxStorageMB)
	require.Regexp(t, `^jane_doe_\d{13}_[a-z0-9]{6}$`, admin.SchemaName)
	require.NoError(t, cryptox.VerifyPassword("correct-horse", admin.PasswordHash))

	// One live token whose fingerprint matches the mailed link.
	tokens := h.store.tokensOf(admin.ID)
	require.Len(t, tokens, 1)
	require.True(t, tokens[0].Usable(h.clock.Now()))
	require.Equal(t, h.clock.Now().Add(domain.ConfirmationTokenTTL), tokens[0].ExpiresAt)

	require.Len(t, h.mailer.sent, 1)
	mail := h.mailer.sent[0]
	require.Equal(t, "jane@example.com", mail.To)
	require.Contains(t, mail.HTML, "https://app.hivecert.test"+ConfirmPath+"?token=")
	require.Equal(t, tokens[0].TokenHash, cryptox.FingerprintToken(tokenFromMail(t, mail.HTML)))

	schema, ok := h.cluster.schema(admin.SchemaName)
	require.True(t, ok)
	require.True(t, schema.applied)

	users := h.cluster.users(admin.SchemaName)
	require.Len(t, users, 1)
	require.Equal(t, admin.ID, users[0].AdminGlobalID)
	require.Equal(t, admin.PasswordHash, users[0].PasswordHash)
	require.Equal(t, domain.TenantUserRoleAdmin, users[0].Role)
	require.True(t, users[0].IsAdmin)
	require.False(t, users[0].IsConfirmed)
}

func TestRegister_PhonePath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.verifyPhone(t, "+61400111222")
	h.clock.Advance(2 * time.Minute)

	res, err := h.svc.Register(ctx, phoneRegistration())
	require.NoError(t, err)
	require.Equal(t, domain.MethodPhone, res.Method)
	require.True(t, res.Admin.IsActive)
	require.NotNil(t, res.Admin.ConfirmedAt)
	require.NotNil(t, res.Admin.PhoneVerifiedAt)
	require.NotNil(t, res.AdminUser)
	require.True(t, res.AdminUser.IsConfirmed)

	admin := h.store.onlyAdmin(t)
	require.True(t, admin.IsActive)
	require.Equal(t, "+61400111222", admin.PhoneNumber)
	require.Equal(t, "61400111222@"+DefaultPhoneEmailDomain, admin.Email)
	require.NotNil(t, admin.PhoneVerifiedAt)
	require.True(t, admin.PhoneVerifiedAt.Before(h.clock.Now()), "verified when the code was redeemed")

	require.Empty(t, h.store.tokensOf(admin.ID))
	require.Empty(t, h.mailer.sent)

	// The redeemed code now belongs to the administrator.
	_, _, codes := h.store.counts()
	require.Equal(t, 1, codes)
	for _, c := range h.store.codes {
		require.Equal(t, admin.ID, c.AdminID)
	}

	users := h.cluster.users(admin.SchemaName)
	require.Len(t, users, 1)
	require.True(t, users[0].IsConfirmed)
	require.Equal(t, res.AdminUser.ID, users[0].ID)
}

func TestRegister_EmailWinsOverPhone(t *testing.T) {
	h := newHarness(t)

	req := emailRegistration()
	req.PhoneNumber = "+61400111222"
	res, err := h.svc.Register(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.MethodEmail, res.Method)
	require.False(t, h.store.onlyAdmin(t).IsActive)
}

func TestRegister_ValidationWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*domain.Registration)
		field string
	}{
		{"missing names", func(r *domain.Registration) { r.FirstName, r.LastName = "", "" }, "firstname"},
		{"no contact", func(r *domain.Registration) { r.Email = "" }, "email"},
		{"bad email", func(r *domain.Registration) { r.Email = "not-an-email" }, "email"},
		{"bad role", func(r *domain.Registration) { r.Role = "owner" }, "role"},
		{"short password", func(r *domain.Registration) { r.Password = "short" }, "password"},
		{"bad namespace", func(r *domain.Registration) { r.Namespace.Name = "pg_catalog" }, "namespace.name"},
		{"negative quota", func(r *domain.Registration) { r.Namespace.MaxUsers = -1 }, "namespace.maxUsers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := emailRegistration()
			tt.edit(&req)

			_, err := h.svc.Register(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
			h.requireEmpty(t)
			require.Empty(t, h.mailer.sent)
		})
	}
}

func TestRegister_PhoneNotVerified(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Register(context.Background(), phoneRegistration())
	require.ErrorIs(t, err, ErrPhoneNotVerified)
	h.requireEmpty(t)
}

func TestRegister_PhoneVerificationStale(t *testing.T) {
	h := newHarness(t)

	h.verifyPhone(t, "+61400111222")
	h.clock.Advance(domain.VerificationCodeTTL + time.Second)

	_, err := h.svc.Register(context.Background(), phoneRegistration())
	require.ErrorIs(t, err, ErrPhoneNotVerified)
	admins, _, _ := h.store.counts()
	require.Zero(t, admins)
}

func TestRegister_AdminCode(t *testing.T) {
	h := newHarness(t)
	h.svc.AdminCodes = map[domain.Role]string{domain.RoleSuperAdmin: "letmein"}

	req := emailRegistration()
	req.Role = domain.RoleSuperAdmin
	req.AdminCode = "guess"
	_, err := h.svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidAdminCode)
	h.requireEmpty(t)

	req.AdminCode = "letmein"
	_, err = h.svc.Register(context.Background(), req)
	require.NoError(t, err)

	// Roles without a configured code need none.
	other := emailRegistration()
	other.Email = "other@example.com"
	_, err = h.svc.Register(context.Background(), other)
	require.NoError(t, err)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Register(ctx, emailRegistration())
	require.NoError(t, err)

	_, err = h.svc.Register(ctx, emailRegistration())
	require.ErrorIs(t, err, ErrEmailTaken)

	admins, tokens, _ := h.store.counts()
	require.Equal(t, 1, admins)
	require.Equal(t, 1, tokens)
	schemas, err := h.cluster.ListSchemas(ctx)
	require.NoError(t, err)
	require.Len(t, schemas, 1)
}

func TestRegister_NamespaceCollision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// A namespace that exists in the database but belongs to nobody here.
	require.NoError(t, h.cluster.CreateSchema(ctx, "acme_apiary"))
	h.cluster.created = nil

	req := emailRegistration()
	req.Namespace.Name = "Acme_Apiary"
	_, err := h.svc.Register(ctx, req)
	require.ErrorIs(t, err, ErrNamespaceTaken)

	// The pre-existing namespace survives the rollback.
	_, ok := h.cluster.schema("acme_apiary")
	require.True(t, ok)
	require.Empty(t, h.cluster.created)
	require.Empty(t, h.cluster.dropped)

	admins, tokens, _ := h.store.counts()
	require.Zero(t, admins)
	require.Zero(t, tokens)
	require.Empty(t, h.mailer.sent)
}

func TestRegister_NamespaceOwnedByAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := emailRegistration()
	req.Namespace.Name = "acme_apiary"
	_, err := h.svc.Register(ctx, req)
	require.NoError(t, err)

	req.Email = "second@example.com"
	_, err = h.svc.Register(ctx, req)
	require.ErrorIs(t, err, ErrNamespaceTaken)
	require.Empty(t, h.cluster.dropped)
}

func TestRegister_StructureFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.cluster.apply = func(context.Context, string) error {
		return errors.New("relation already exists")
	}

	_, err := h.svc.Register(context.Background(), emailRegistration())
	require.ErrorIs(t, err, ErrStructureApply)
	h.requireEmpty(t)
	require.Len(t, h.cluster.dropped, 1)
	require.Empty(t, h.mailer.sent)
}

func TestRegister_StructureTimeout(t *testing.T) {
	h := newHarness(t)
	h.svc.StructureTimeout = 20 * time.Millisecond
	h.cluster.apply = func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	_, err := h.svc.Register(context.Background(), emailRegistration())
	require.ErrorIs(t, err, ErrStructureTimeout)
	require.Less(t, time.Since(start), 5*time.Second)
	h.requireEmpty(t)
}

func TestRegister_StructureApplierTimeout(t *testing.T) {
	h := newHarness(t)
	h.cluster.apply = func(context.Context, string) error {
		return tenantschema.ErrTimeout
	}

	_, err := h.svc.Register(context.Background(), emailRegistration())
	require.ErrorIs(t, err, ErrStructureTimeout)
	h.requireEmpty(t)
}

func TestRegister_BootstrapUserFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.cluster.failWith("CreateTenantUser", errors.New("disk full"))

	_, err := h.svc.Register(context.Background(), emailRegistration())
	require.ErrorIs(t, err, ErrBootstrapUser)
	h.requireEmpty(t)
}

func TestRegister_PhonePathFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.verifyPhone(t, "+61400111222")
	h.cluster.failWith("CreateSchema", errors.New("permission denied"))

	_, err := h.svc.Register(context.Background(), phoneRegistration())
	require.ErrorIs(t, err, ErrNamespaceCreate)
	h.requireEmpty(t)
}

func TestRegister_ActivationFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.verifyPhone(t, "+61400111222")
	h.store.failWith("ActivateAdmin", errors.New("deadlock detected"))

	_, err := h.svc.Register(context.Background(), phoneRegistration())
	require.ErrorIs(t, err, ErrActivate)
	h.requireEmpty(t)
}

// Register and ValidateRegistration agree on what a role is.
func TestRegister_RoleIsCaseSensitive(t *testing.T) {
	h := newHarness(t)
	req := emailRegistration()
	req.Role = "SUPER_ADMIN"
	require.NotEmpty(t, ValidateRegistration(req))

	_, err := h.svc.Register(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "role", verr.Field)
	h.requireEmpty(t)
}

func TestRegister_CodeClaimFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.verifyPhone(t, "+61400111222")
	h.store.failWith("ClaimVerificationCode", errors.New("serialization failure"))

	_, err := h.svc.Register(context.Background(), phoneRegistration())
	require.ErrorIs(t, err, ErrCodeClaim)
	require.NotErrorIs(t, err, ErrAdminCreate)

	admins, _, _ := h.store.counts()
	require.Zero(t, admins)
	schemas, err := h.cluster.ListSchemas(context.Background())
	require.NoError(t, err)
	require.Empty(t, schemas)
}

func TestRegister_EmailFailureOnlyWarns(t *testing.T) {
	h := newHarness(t)
	h.mailer.err = errors.New("smtp: 421 service not available")

	res, err := h.svc.Register(context.Background(), emailRegistration())
	require.NoError(t, err)
	require.Equal(t, WarningConfirmationEmail, res.Warning)

	admin := h.store.onlyAdmin(t)
	require.False(t, admin.IsActive)
	require.Len(t, h.store.tokensOf(admin.ID), 1)
	require.Len(t, h.cluster.users(admin.SchemaName), 1)
}

func TestRegister_NoMailerOnlyWarns(t *testing.T) {
	h := newHarness(t)
	h.confirm.Mailer = nil

	res, err := h.svc.Register(context.Background(), emailRegistration())
	require.NoError(t, err)
	require.Equal(t, WarningConfirmationEmail, res.Warning)
}

func TestRegister_RollbackContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	h.cluster.failWith("CreateTenantUser", errors.New("boom"))
	h.cluster.failWith("DropSchema", errors.New("lock timeout"))

	_, err := h.svc.Register(context.Background(), emailRegistration())
	require.ErrorIs(t, err, ErrBootstrapUser)

	// The namespace could not be dropped but the global rows are gone.
	admins, tokens, _ := h.store.counts()
	require.Zero(t, admins)
	require.Zero(t, tokens)
	schemas, err := h.cluster.ListSchemas(context.Background())
	require.NoError(t, err)
	require.Len(t, schemas, 1)
}

func TestRegister_DatabaseUnavailable(t *testing.T) {
	h := newHarness(t)
	h.store.failWith("CreateAdmin", store.ErrUnavailable)

	_, err := h.svc.Register(context.Background(), emailRegistration())
	require.ErrorIs(t, err, ErrDatabaseUnavailable)
	require.ErrorIs(t, err, ErrAdminCreate)
	h.requireEmpty(t)
}

func TestRegister_CancelledRequestStillProvisions(t *testing.T) {
	h := newHarness(t)

	var once sync.Once
	ctx, cancel := context.WithCancel(context.Background())
	h.cluster.apply = func(context.Context, string) error {
		// The client goes away mid-provisioning.
		once.Do(cancel)
		return nil
	}

	res, err := h.svc.Register(ctx, emailRegistration())
	require.NoError(t, err)
	require.NotEmpty(t, res.Admin.ID)
	require.Len(t, h.cluster.users(res.Admin.SchemaName), 1)
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return nil, lock.ErrHeld
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestRegister_NamespaceLock(t *testing.T) {
	t.Run("held", func(t *testing.T) {
		h := newHarness(t)
		h.svc.Locker = heldLocker{}

		_, err := h.svc.Register(context.Background(), emailRegistration())
		require.ErrorIs(t, err, ErrNamespaceTaken)
		h.requireEmpty(t)
	})

	t.Run("backend down", func(t *testing.T) {
		h := newHarness(t)
		h.svc.Locker = brokenLocker{}

		_, err := h.svc.Register(context.Background(), emailRegistration())
		require.NoError(t, err)
	})
}

func TestRegister_SanitizesDisplayText(t *testing.T) {
	h := newHarness(t)

	req := emailRegistration()
	req.Namespace.DisplayName = `<b>Acme</b> <script>alert(1)</script>Apiary`
	req.Namespace.Description = "Bees &amp; <i>honey</i>\n\n  since 1990"
	req.Namespace.MaxUsers = 5
	_, err := h.svc.Register(context.Background(), req)
	require.NoError(t, err)

	admin := h.store.onlyAdmin(t)
	require.Equal(t, "Acme Apiary", admin.DisplayName)
	require.Equal(t, "Bees & honey since 1990", admin.Description)
	require.Equal(t, 5, admin.MaxUsers)
	require.False(t, strings.ContainsAny(admin.DisplayName, "<>"))
}

func TestRollback_ReverseOrderAndPanics(t *testing.T) {
	var (
		rb    rollback
		order []string
	)
	rb.push("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	rb.push("second", func(context.Context) error {
		order = append(order, "second")
		panic("boom")
	})
	rb.push("third", func(context.Context) error {
		order = append(order, "third")
		return errors.New("failed")
	})

	rb.run(context.Background(), time.Second, slogx.Discard(), nil)
	require.Equal(t, []string{"third", "second", "first"}, order)
	require.Empty(t, rb.actions)
}

func TestRollback_DetachedFromCancellation(t *testing.T) {
	var rb rollback
	var undoErr error
	rb.push("check", func(ctx context.Context) error {
		undoErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rb.run(ctx, time.Second, slogx.Discard(), nil)
	require.NoError(t, undoErr)
}
