package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/lock"
	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/hivecert/hivecert/internal/registry/tenantschema"
	"github.com/hivecert/hivecert/pkg/cryptox"
	"github.com/hivecert/hivecert/pkg/idx"
	"github.com/hivecert/hivecert/pkg/slogx"
)

// Defaults applied to registrations that leave them out.
const (
	DefaultMaxUsers         = 50
	DefaultMaxStorageMB     = 1024
	DefaultStructureTimeout = tenantschema.DefaultTimeout
	DefaultProvisionTimeout = 2 * time.Minute
	DefaultPhoneEmailDomain = "phone.hivecert.local"

	maxDisplayNameLength = 120
	maxDescriptionLength = 1000
)

// Provisioning step names, used for metrics and logs.
const (
	stepCreateAdmin      = "create_admin"
	stepCreateToken      = "create_token"
	stepClaimCode        = "claim_code"
	stepCreateSchema     = "create_schema"
	stepApplyStructure   = "apply_structure"
	stepCreateTenantUser = "create_tenant_user"
	stepSendConfirmation = "send_confirmation"
	stepActivateAdmin    = "activate_admin"
)

// Compensating actions.
const (
	undoDeleteToken = "delete_confirmation_token"
	undoDeleteCodes = "delete_verification_codes"
	undoDropSchema  = "drop_schema"
	undoDeleteAdmin = "delete_admin"
)

// WarningConfirmationEmail is reported when the account was created but
// the confirmation email could not be delivered.
const WarningConfirmationEmail = "Account created, but the confirmation email could not be sent. Request a new one to finish signing up."

// RegistrationService provisions a tenant: the global administrator
// record, its namespace, the namespace structure and the bootstrap user.
// Each step commits on its own; a failed step undoes the earlier ones.
type RegistrationService struct {
	Store         store.Store
	Schemas       store.SchemaAdmin
	Tenants       store.TenantConnector
	Structure     tenantschema.Applier
	Phones        *PhoneVerificationService
	Confirmations *ConfirmationService
	Locker        lock.Locker
	Metrics       *metrics.Metrics
	Now           func() time.Time

	// AdminCodes maps a role to the shared code required to register with
	// it. Roles without an entry need no code.
	AdminCodes map[domain.Role]string

	PhoneEmailDomain    string
	DefaultMaxUsers     int
	DefaultMaxStorageMB int
	StructureTimeout    time.Duration
	ProvisionTimeout    time.Duration
	RollbackTimeout     time.Duration
}

// plan is a validated registration, ready to provision.
type plan struct {
	req    domain.Registration
	method domain.Method
	schema string
	code   domain.VerificationCode // phone path only
	now    time.Time
}

// Register runs the provisioning sequence for req.
func (s *RegistrationService) Register(ctx context.Context, req domain.Registration) (domain.RegistrationResult, error) {
	req = normalizeRegistration(req)
	method := req.Method()
	ctx = slogx.With(ctx,
		slog.String("registration_method", string(method)),
		slog.String("role", string(req.Role)),
	)
	l := slogx.FromContext(ctx)

	p, err := s.prepare(ctx, req)
	if err != nil {
		s.Metrics.ObserveRegistration(string(method), "rejected")
		l.Info("registration rejected", slog.Any("error", err))
		return domain.RegistrationResult{}, err
	}

	ctx = slogx.With(ctx, slog.String("schema", p.schema))
	res, err := s.provision(ctx, p)
	if err != nil {
		s.Metrics.ObserveRegistration(string(method), metrics.OutcomeFailure)
		return domain.RegistrationResult{}, err
	}

	s.Metrics.ObserveRegistration(string(method), metrics.OutcomeSuccess)
	slogx.FromContext(ctx).Info("tenant provisioned",
		slog.String("admin_id", res.Admin.ID),
		slog.Bool("active", res.Admin.IsActive),
	)
	return res, nil
}

// prepare covers everything that must hold before the first write:
// input validation, the admin code and the phone gate.
func (s *RegistrationService) prepare(ctx context.Context, req domain.Registration) (plan, error) {
	// 1. Validate
	if err := validateRegistration(req); err != nil {
		return plan{}, err
	}
	if err := validateNamespace(req.Namespace); err != nil {
		return plan{}, err
	}
	if want := s.AdminCodes[req.Role]; want != "" &&
		subtle.ConstantTimeCompare([]byte(want), []byte(req.AdminCode)) != 1 {
		return plan{}, ErrInvalidAdminCode
	}

	p := plan{req: req, method: req.Method(), now: s.now()}

	// 2. Phone gate
	if p.method == domain.MethodPhone {
		if s.Phones == nil {
			return plan{}, ErrPhoneNotVerified
		}
		code, ok, err := s.Phones.verifiedCode(ctx, req.PhoneNumber)
		if err != nil {
			return plan{}, classifyStoreError(err, "check phone verification")
		}
		if !ok {
			return plan{}, ErrPhoneNotVerified
		}
		p.code = code
	}

	p.schema = req.Namespace.Name
	if p.schema == "" {
		name, err := GenerateSchemaName(req.FirstName, req.LastName, p.now)
		if err != nil {
			return plan{}, err
		}
		p.schema = name
	}
	return p, nil
}

func (s *RegistrationService) provision(ctx context.Context, p plan) (res domain.RegistrationResult, err error) {
	l := slogx.FromContext(ctx)

	// A client disconnect must not abandon a half built tenant; only a
	// failing step unwinds.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.provisionTimeout())
	defer cancel()

	release, err := s.acquire(ctx, p.schema)
	if err != nil {
		return res, err
	}
	defer release()

	rb := &rollback{}
	defer func() {
		if err != nil {
			l.Error("provisioning failed", slog.Any("error", err))
			rb.run(ctx, s.RollbackTimeout, l, s.Metrics)
		}
	}()

	// The bootstrap user shares the administrator's hash.
	passHash, err := cryptox.HashPassword(p.req.Password)
	if err != nil {
		return res, fmt.Errorf("%w: hash password: %v", ErrAdminCreate, err)
	}

	// 3. Administrator record
	admin := s.buildAdmin(p, passHash)
	err = s.step(ctx, stepCreateAdmin, func(ctx context.Context) error {
		return s.Store.Admins().CreateAdmin(ctx, admin)
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			return res, fmt.Errorf("%w: %w", ErrEmailTaken, err)
		case errors.Is(err, store.ErrDuplicateSchema):
			return res, fmt.Errorf("%w: %w", ErrNamespaceTaken, err)
		}
		return res, stageError(ErrAdminCreate, err)
	}
	rb.push(undoDeleteAdmin, func(ctx context.Context) error {
		return s.Store.Admins().DeleteAdmin(ctx, admin.ID)
	})
	l.Info("administrator created", slog.String("admin_id", admin.ID))

	var rawToken string
	switch p.method {
	case domain.MethodEmail:
		// 4. Confirmation token
		var tok domain.ConfirmationToken
		rawToken, tok, err = s.Confirmations.newToken(admin.ID, p.now)
		if err != nil {
			return res, fmt.Errorf("%w: %v", ErrTokenCreate, err)
		}
		err = s.step(ctx, stepCreateToken, func(ctx context.Context) error {
			return s.Store.ConfirmationTokens().CreateConfirmationToken(ctx, tok)
		})
		if err != nil {
			return res, stageError(ErrTokenCreate, err)
		}
		rb.push(undoDeleteToken, func(ctx context.Context) error {
			return s.Store.ConfirmationTokens().DeleteConfirmationToken(ctx, tok.ID)
		})

	case domain.MethodPhone:
		// 4. Link the redeemed code to the administrator.
		rb.push(undoDeleteCodes, func(ctx context.Context) error {
			_, err := s.Store.VerificationCodes().DeleteVerificationCodesByAdmin(ctx, admin.ID)
			return err
		})
		err = s.step(ctx, stepClaimCode, func(ctx context.Context) error {
			return s.Store.VerificationCodes().ClaimVerificationCode(ctx, p.code.ID, admin.ID)
		})
		if err != nil {
			return res, stageError(ErrCodeClaim, err)
		}
	}

	// 5. Namespace. The name is fixed from here on.
	err = s.step(ctx, stepCreateSchema, func(ctx context.Context) error {
		exists, err := s.Schemas.SchemaExists(ctx, p.schema)
		if err != nil {
			return err
		}
		if exists {
			return store.ErrSchemaExists
		}
		return s.Schemas.CreateSchema(ctx, p.schema)
	})
	if err != nil {
		if errors.Is(err, store.ErrSchemaExists) {
			// Not ours: nothing to drop.
			return res, fmt.Errorf("%w: %q", ErrNamespaceTaken, p.schema)
		}
		return res, stageError(ErrNamespaceCreate, err)
	}
	rb.push(undoDropSchema, func(ctx context.Context) error {
		return s.Schemas.DropSchema(ctx, p.schema)
	})
	l.Info("namespace created")

	// 6. Tenant structure, bounded by our own deadline.
	err = s.step(ctx, stepApplyStructure, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.structureTimeout())
		defer cancel()
		err := s.Structure.Apply(ctx, p.schema)
		if err != nil && ctx.Err() != nil && !errors.Is(err, tenantschema.ErrTimeout) {
			return fmt.Errorf("%w: %v", tenantschema.ErrTimeout, err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, tenantschema.ErrTimeout) {
			return res, fmt.Errorf("%w: %w", ErrStructureTimeout, err)
		}
		return res, stageError(ErrStructureApply, err)
	}
	l.Info("tenant structure applied")

	// 7. Bootstrap tenant user, over a fresh namespace scoped connection.
	user := domain.TenantUser{
		ID:            uuid.NewString(),
		FirstName:     admin.FirstName,
		LastName:      admin.LastName,
		Email:         admin.Email,
		PhoneNumber:   admin.PhoneNumber,
		PasswordHash:  admin.PasswordHash,
		Role:          domain.TenantUserRoleAdmin,
		IsAdmin:       true,
		AdminGlobalID: admin.ID,
		IsConfirmed:   p.method == domain.MethodPhone,
		CreatedAt:     p.now,
		UpdatedAt:     p.now,
	}
	err = s.step(ctx, stepCreateTenantUser, func(ctx context.Context) error {
		conn, err := s.Tenants.Open(ctx, p.schema)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := conn.Close(ctx); cerr != nil {
				l.Warn("failed to close tenant connection", slog.Any("error", cerr))
			}
		}()
		return conn.Users().CreateTenantUser(ctx, user)
	})
	if err != nil {
		return res, stageError(ErrBootstrapUser, err)
	}
	l.Info("bootstrap tenant user created", slog.String("tenant_user_id", user.ID))

	res = domain.RegistrationResult{Method: p.method, Admin: admin}

	switch p.method {
	case domain.MethodEmail:
		// 8. Confirmation email. Best effort: failure only adds a warning.
		start := time.Now()
		if derr := s.Confirmations.deliver(ctx, admin, rawToken); derr != nil {
			l.Error("failed to send confirmation email",
				slog.String("admin_id", admin.ID),
				slog.Any("error", derr),
			)
			res.Warning = WarningConfirmationEmail
		}
		s.Metrics.ObserveStep(stepSendConfirmation, time.Since(start))

	case domain.MethodPhone:
		// 9. The phone was verified before anything was written, so the
		// tenant is usable right away.
		verifiedAt := p.now
		if p.code.UsedAt != nil {
			verifiedAt = *p.code.UsedAt
		}
		err = s.step(ctx, stepActivateAdmin, func(ctx context.Context) error {
			return s.Store.Admins().ActivateAdmin(ctx, admin.ID, p.now, &verifiedAt)
		})
		if err != nil {
			return domain.RegistrationResult{}, stageError(ErrActivate, err)
		}
		res.Admin.IsActive = true
		res.Admin.ConfirmedAt = &p.now
		res.Admin.PhoneVerifiedAt = &verifiedAt
		res.AdminUser = &user
	}

	return res, nil
}

// acquire takes the namespace lock. A lock backend that is down is logged
// and skipped; the existence check still guards creation.
func (s *RegistrationService) acquire(ctx context.Context, schema string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	release, err := s.Locker.Acquire(ctx, "schema:"+schema, s.provisionTimeout()+s.rollbackTimeout())
	switch {
	case errors.Is(err, lock.ErrHeld):
		return nil, fmt.Errorf("%w: %q is being provisioned", ErrNamespaceTaken, schema)
	case err != nil:
		slogx.FromContext(ctx).Warn("namespace lock unavailable, continuing without it", slog.Any("error", err))
		return func() {}, nil
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slogx.FromContext(ctx).Warn("failed to release namespace lock", slog.Any("error", err))
		}
	}, nil
}

// step runs fn and records its duration.
func (s *RegistrationService) step(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	s.Metrics.ObserveStep(name, time.Since(start))
	if err != nil {
		slogx.FromContext(ctx).Error("provisioning step failed",
			slog.String("step", name),
			slog.Any("error", err),
		)
	}
	return err
}

func (s *RegistrationService) buildAdmin(p plan, passHash string) domain.Admin {
	r := p.req
	email := r.Email
	if p.method == domain.MethodPhone {
		email = phoneEmail(r.PhoneNumber, s.phoneEmailDomain())
	}

	displayName := sanitizeText(r.Namespace.DisplayName, maxDisplayNameLength)
	if displayName == "" {
		displayName = sanitizeText(r.FirstName+" "+r.LastName, maxDisplayNameLength)
	}

	maxUsers := r.Namespace.MaxUsers
	if maxUsers == 0 {
		maxUsers = orDefault(s.DefaultMaxUsers, DefaultMaxUsers)
	}
	maxStorage := r.Namespace.MaxStorageMB
	if maxStorage == 0 {
		maxStorage = orDefault(s.DefaultMaxStorageMB, DefaultMaxStorageMB)
	}

	return domain.Admin{
		ID:           idx.NewAt(p.now).String(),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        email,
		PhoneNumber:  r.PhoneNumber,
		PasswordHash: passHash,
		Role:         r.Role,
		SchemaName:   p.schema,
		DisplayName:  displayName,
		Description:  sanitizeText(r.Namespace.Description, maxDescriptionLength),
		MaxUsers:     maxUsers,
		MaxStorageMB: maxStorage,
		CreatedAt:    p.now,
		UpdatedAt:    p.now,
	}
}

// normalizeRegistration trims input and lower-cases the identifiers.
func normalizeRegistration(r domain.Registration) domain.Registration {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.PhoneNumber != "" {
		r.PhoneNumber = NormalizePhone(r.PhoneNumber)
	}
	r.Role = domain.Role(strings.TrimSpace(string(r.Role)))
	r.Namespace.Name = strings.ToLower(strings.TrimSpace(r.Namespace.Name))
	return r
}

// phoneEmail derives the login address of a phone registration.
func phoneEmail(phone, domainName string) string {
	return strings.TrimPrefix(phone, "+") + "@" + domainName
}

// stageError tags err with the failed stage, surfacing lost connectivity
// as ErrDatabaseUnavailable.
func stageError(stage, err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return fmt.Errorf("%w: %w: %w", stage, ErrDatabaseUnavailable, err)
	}
	return fmt.Errorf("%w: %w", stage, err)
}

func (s *RegistrationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *RegistrationService) phoneEmailDomain() string {
	return orDefault(s.PhoneEmailDomain, DefaultPhoneEmailDomain)
}

func (s *RegistrationService) structureTimeout() time.Duration {
	return orDefault(s.StructureTimeout, DefaultStructureTimeout)
}

func (s *RegistrationService) provisionTimeout() time.Duration {
	return orDefault(s.ProvisionTimeout, DefaultProvisionTimeout)
}

func (s *RegistrationService) rollbackTimeout() time.Duration {
	return orDefault(s.RollbackTimeout, DefaultRollbackTimeout)
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
