package postgres

import (
	"context"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/jackc/pgx/v5"
)

const adminColumns = `id, first_name, last_name, email, COALESCE(phone_number, ''), password_hash,
	role, schema_name, display_name, description, max_users, max_storage_mb,
	is_active, confirmed_at, phone_verified_at, created_at, updated_at`

type adminsRepo struct {
	db DBTX
}

func (r *adminsRepo) CreateAdmin(ctx context.Context, a domain.Admin) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admins (
			id, first_name, last_name, email, phone_number, password_hash,
			role, schema_name, display_name, description, max_users, max_storage_mb,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		a.ID, a.FirstName, a.LastName, a.Email, a.PhoneNumber, a.PasswordHash,
		string(a.Role), a.SchemaName, a.DisplayName, a.Description, a.MaxUsers, a.MaxStorageMB,
		a.IsActive, a.CreatedAt,
	)
	return mapError(err)
}

func (r *adminsRepo) GetAdminByID(ctx context.Context, id string) (domain.Admin, error) {
	row := r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

func (r *adminsRepo) GetAdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	row := r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email)
	return scanAdmin(row)
}

func (r *adminsRepo) SchemaNameTaken(ctx context.Context, name string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE schema_name = $1)`, name).Scan(&taken)
	return taken, mapError(err)
}

func (r *adminsRepo) ActivateAdmin(ctx context.Context, id string, at time.Time, phoneVerifiedAt *time.Time) error {
	return expectOne(r.db.Exec(ctx, `
		UPDATE admins
		SET is_active = TRUE,
			confirmed_at = COALESCE(confirmed_at, $2),
			phone_verified_at = COALESCE($3, phone_verified_at),
			updated_at = $2
		WHERE id = $1`,
		id, at, phoneVerifiedAt,
	))
}

func (r *adminsRepo) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.db.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapError(rows.Err())
}

func (r *adminsRepo) DeleteAdmin(ctx context.Context, id string) error {
	return expectOne(r.db.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id))
}

func scanAdmin(row pgx.Row) (domain.Admin, error) {
	var (
		a    domain.Admin
		role string
	)
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.PasswordHash,
		&role, &a.SchemaName, &a.DisplayName, &a.Description, &a.MaxUsers, &a.MaxStorageMB,
		&a.IsActive, &a.ConfirmedAt, &a.PhoneVerifiedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Admin{}, mapError(err)
	}
	a.Role = domain.Role(role)
	return a, nil
}
