package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/jackc/pgx/v5"
)

// TenantConnector opens short lived connections with search_path pinned to
// a tenant namespace.
type TenantConnector struct {
	base *pgx.ConnConfig
}

// NewTenantConnector parses dsn once; every Open copies it.
func NewTenantConnector(dsn string) (*TenantConnector, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse tenant database url: %w", err)
	}
	return &TenantConnector{base: cfg}, nil
}

func (c *TenantConnector) Open(ctx context.Context, schema string) (store.TenantConn, error) {
	cfg := c.base.Copy()
	cfg.RuntimeParams["search_path"] = schema

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to tenant %q: %w", schema, err)
	}
	return newTenantConn(conn, schema, conn.Close), nil
}

type tenantConn struct {
	db     DBTX
	schema string
	close  func(context.Context) error
}

func newTenantConn(db DBTX, schema string, closeFn func(context.Context) error) *tenantConn {
	return &tenantConn{db: db, schema: schema, close: closeFn}
}

func (t *tenantConn) Users() store.TenantUsers {
	return &tenantUsersRepo{db: t.db, table: pgx.Identifier{t.schema, "users"}.Sanitize()}
}

func (t *tenantConn) Close(ctx context.Context) error { return t.close(ctx) }

type tenantUsersRepo struct {
	db    DBTX
	table string
}

func (r *tenantUsersRepo) CreateTenantUser(ctx context.Context, u domain.TenantUser) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO `+r.table+` (
			id, first_name, last_name, email, phone_number, password_hash, role,
			is_admin, admin_global_id, is_confirmed, profile_complete, created_at, updated_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $12)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.PasswordHash, u.Role,
		u.IsAdmin, u.AdminGlobalID, u.IsConfirmed, u.ProfileComplete, u.CreatedAt,
	)
	return mapError(err)
}

func (r *tenantUsersRepo) GetTenantUserByAdminID(ctx context.Context, adminID string) (domain.TenantUser, error) {
	var u domain.TenantUser
	err := r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, COALESCE(phone_number, ''), password_hash, role,
			is_admin, COALESCE(admin_global_id, ''), is_confirmed, profile_complete, created_at, updated_at
		FROM `+r.table+`
		WHERE admin_global_id = $1`, adminID,
	).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.Role,
		&u.IsAdmin, &u.AdminGlobalID, &u.IsConfirmed, &u.ProfileComplete, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.TenantUser{}, mapError(err)
	}
	return u, nil
}

func (r *tenantUsersRepo) SetTenantUserConfirmed(ctx context.Context, adminID string, confirmed bool) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE `+r.table+` SET is_confirmed = $2, updated_at = $3 WHERE admin_global_id = $1`,
		adminID, confirmed, time.Now().UTC(),
	))
}
