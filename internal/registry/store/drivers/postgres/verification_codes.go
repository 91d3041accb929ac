package postgres

import (
	"context"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/jackc/pgx/v5"
)

const codeColumns = `id, identifier, purpose, secret, expires_at, used_at, attempts,
	COALESCE(admin_id, ''), created_at`

type codesRepo struct {
	db DBTX
}

func (r *codesRepo) CreateVerificationCode(ctx context.Context, c domain.VerificationCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO verification_codes (id, identifier, purpose, secret, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		c.ID, c.Identifier, c.Purpose, c.Secret, c.ExpiresAt, c.CreatedAt,
	)
	return mapError(err)
}

func (r *codesRepo) GetLatestVerificationCode(ctx context.Context, identifier, purpose string) (domain.VerificationCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+codeColumns+`
		FROM verification_codes
		WHERE identifier = $1 AND purpose = $2 AND used_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`,
		identifier, purpose,
	)
	return scanCode(row)
}

func (r *codesRepo) GetLatestUsedVerificationCode(
	ctx context.Context,
	identifier, purpose string,
	since time.Time,
) (domain.VerificationCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+codeColumns+`
		FROM verification_codes
		WHERE identifier = $1 AND purpose = $2 AND used_at IS NOT NULL AND created_at >= $3
		ORDER BY used_at DESC
		LIMIT 1`,
		identifier, purpose, since,
	)
	return scanCode(row)
}

func (r *codesRepo) IncrementVerificationAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx,
		`UPDATE verification_codes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		id,
	).Scan(&attempts)
	return attempts, mapError(err)
}

func (r *codesRepo) MarkVerificationCodeUsed(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE verification_codes SET used_at = $2 WHERE id = $1 AND used_at IS NULL`,
		id, at,
	))
}

func (r *codesRepo) ClaimVerificationCode(ctx context.Context, id, adminID string) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE verification_codes SET admin_id = $2 WHERE id = $1`,
		id, adminID,
	))
}

func (r *codesRepo) DeleteVerificationCode(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE id = $1`, id)
	return mapError(err)
}

func (r *codesRepo) DeleteVerificationCodesByAdmin(ctx context.Context, adminID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE admin_id = $1`, adminID)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *codesRepo) DeleteExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	// Claimed codes stay until their admin is gone.
	tag, err := r.db.Exec(ctx,
		`DELETE FROM verification_codes WHERE expires_at < $1 AND admin_id IS NULL`,
		now,
	)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

func scanCode(row pgx.Row) (domain.VerificationCode, error) {
	var c domain.VerificationCode
	err := row.Scan(
		&c.ID, &c.Identifier, &c.Purpose, &c.Secret, &c.ExpiresAt, &c.UsedAt, &c.Attempts,
		&c.AdminID, &c.CreatedAt,
	)
	if err != nil {
		return domain.VerificationCode{}, mapError(err)
	}
	return c, nil
}
