package postgres

import (
	"context"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
)

type tokensRepo struct {
	db DBTX
}

func (r *tokensRepo) CreateConfirmationToken(ctx context.Context, t domain.ConfirmationToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO confirmation_tokens (id, admin_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.AdminID, t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	return mapError(err)
}

func (r *tokensRepo) GetConfirmationTokenByHash(ctx context.Context, hash string) (domain.ConfirmationToken, error) {
	var t domain.ConfirmationToken
	err := r.db.QueryRow(ctx, `
		SELECT id, admin_id, token_hash, expires_at, used_at, created_at
		FROM confirmation_tokens
		WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.AdminID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return domain.ConfirmationToken{}, mapError(err)
	}
	return t, nil
}

func (r *tokensRepo) MarkConfirmationTokenUsed(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE confirmation_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`,
		id, at,
	))
}

func (r *tokensRepo) DeleteConfirmationToken(ctx context.Context, id string) error {
	return expectOne(r.db.Exec(ctx, `DELETE FROM confirmation_tokens WHERE id = $1`, id))
}

func (r *tokensRepo) DeleteUnusedConfirmationTokens(ctx context.Context, adminID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM confirmation_tokens WHERE admin_id = $1 AND used_at IS NULL`,
		adminID,
	)
	return mapError(err)
}

func (r *tokensRepo) DeleteExpiredConfirmationTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM confirmation_tokens WHERE used_at IS NULL AND expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
