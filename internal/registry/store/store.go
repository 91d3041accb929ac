package store

import (
	"context"
	"errors"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
)

var (
	ErrNotFound = errors.New("store: not found")

	// Unique violations, told apart by the constraint that fired.
	ErrDuplicateEmail  = errors.New("store: email already registered")
	ErrDuplicateSchema = errors.New("store: schema name already registered")

	// ErrSchemaExists is returned by SchemaAdmin.Create when the namespace
	// is already present in the database.
	ErrSchemaExists = errors.New("store: schema already exists")

	// ErrUnavailable wraps failures to reach or authenticate against the
	// database, as opposed to errors in a statement.
	ErrUnavailable = errors.New("store: database unavailable")

	ErrTxDone = errors.New("store: nested transactions are not supported")
)

// Store is the global (shared schema) data access interface. It exposes
// sub-repositories so a Tx can hand out the same repos bound to the
// transaction.
type Store interface {
	Admins() Admins
	ConfirmationTokens() ConfirmationTokens
	VerificationCodes() VerificationCodes

	// WithTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	ApplyMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// Tx is a Store bound to an open transaction.
type Tx interface {
	Admins() Admins
	ConfirmationTokens() ConfirmationTokens
	VerificationCodes() VerificationCodes
}

type Admins interface {
	// CreateAdmin inserts a new administrator. Duplicate email or schema
	// name yield ErrDuplicateEmail / ErrDuplicateSchema.
	CreateAdmin(ctx context.Context, a domain.Admin) error

	GetAdminByID(ctx context.Context, id string) (domain.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (domain.Admin, error)

	// SchemaNameTaken reports whether an administrator already owns name.
	SchemaNameTaken(ctx context.Context, name string) (bool, error)

	// ActivateAdmin sets is_active and confirmed_at. phoneVerifiedAt is
	// stored when non-nil.
	ActivateAdmin(ctx context.Context, id string, at time.Time, phoneVerifiedAt *time.Time) error

	// ListAdmins returns every administrator ordered by creation.
	ListAdmins(ctx context.Context) ([]domain.Admin, error)

	DeleteAdmin(ctx context.Context, id string) error
}

type ConfirmationTokens interface {
	CreateConfirmationToken(ctx context.Context, t domain.ConfirmationToken) error

	// GetConfirmationTokenByHash returns the token regardless of state so the
	// caller can tell "used" from "expired".
	GetConfirmationTokenByHash(ctx context.Context, hash string) (domain.ConfirmationToken, error)

	// MarkConfirmationTokenUsed sets used_at. It fails with ErrNotFound if
	// the token is already used.
	MarkConfirmationTokenUsed(ctx context.Context, id string, at time.Time) error

	DeleteConfirmationToken(ctx context.Context, id string) error

	// DeleteUnusedConfirmationTokens removes pending tokens of an admin,
	// used before issuing a replacement.
	DeleteUnusedConfirmationTokens(ctx context.Context, adminID string) error

	DeleteExpiredConfirmationTokens(ctx context.Context, now time.Time) (int64, error)
}

type VerificationCodes interface {
	CreateVerificationCode(ctx context.Context, c domain.VerificationCode) error

	// GetLatestVerificationCode returns the newest unused code for the
	// identifier and purpose, expired or not.
	GetLatestVerificationCode(ctx context.Context, identifier, purpose string) (domain.VerificationCode, error)

	// GetLatestUsedVerificationCode returns the most recently used code for
	// identifier and purpose created at or after since.
	GetLatestUsedVerificationCode(ctx context.Context, identifier, purpose string, since time.Time) (domain.VerificationCode, error)

	IncrementVerificationAttempts(ctx context.Context, id string) (int, error)
	MarkVerificationCodeUsed(ctx context.Context, id string, at time.Time) error

	// ClaimVerificationCode links a used code to the administrator it let in.
	ClaimVerificationCode(ctx context.Context, id, adminID string) error

	// DeleteVerificationCode removes one code, e.g. one that never reached
	// the phone.
	DeleteVerificationCode(ctx context.Context, id string) error
	DeleteVerificationCodesByAdmin(ctx context.Context, adminID string) (int64, error)
	DeleteExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error)
}

// SchemaAdmin talks to the database engine directly to manage tenant
// namespaces. It runs on its own administrative connection.
type SchemaAdmin interface {
	SchemaExists(ctx context.Context, name string) (bool, error)

	// CreateSchema creates the namespace. ErrSchemaExists if it is
	// already there.
	CreateSchema(ctx context.Context, name string) error

	// DropSchema drops the namespace and everything in it.
	DropSchema(ctx context.Context, name string) error

	// ListSchemas returns the tenant namespaces present in the database.
	ListSchemas(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
	Close()
}

// TenantConnector opens connections scoped to a single tenant namespace.
type TenantConnector interface {
	Open(ctx context.Context, schema string) (TenantConn, error)
}

// TenantConn is a namespace scoped connection. Callers must Close it.
type TenantConn interface {
	Users() TenantUsers
	Close(ctx context.Context) error
}

type TenantUsers interface {
	CreateTenantUser(ctx context.Context, u domain.TenantUser) error
	GetTenantUserByAdminID(ctx context.Context, adminID string) (domain.TenantUser, error)

	// SetTenantUserConfirmed syncs is_confirmed for the user linked to adminID.
	SetTenantUserConfirmed(ctx context.Context, adminID string, confirmed bool) error
}
