package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes the driver cares about.
const (
	codeUniqueViolation = "23505"
	codeDuplicateSchema = "42P06"
)

// Constraint names from the global migrations.
const (
	constraintAdminEmail  = "admins_email_key"
	constraintAdminSchema = "admins_schema_name_key"
)

// DBTX is what the repositories need from a pool, connection or
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is satisfied by *pgxpool.Pool and pgxmock.PgxPoolIface.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store is the global registry store backed by PostgreSQL.
type Store struct {
	pool Pool
	dsn  string
}

// Connect opens a pool against dsn and verifies it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewStore(pool, dsn), nil
}

// NewStore wraps an existing pool. dsn is only needed for ApplyMigrations.
func NewStore(pool Pool, dsn string) *Store {
	return &Store{pool: pool, dsn: dsn}
}

func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (s *Store) Close()                         { s.pool.Close() }
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Admins() store.Admins                         { return &adminsRepo{db: s.pool} }
func (s *Store) ConfirmationTokens() store.ConfirmationTokens { return &tokensRepo{db: s.pool} }
func (s *Store) VerificationCodes() store.VerificationCodes   { return &codesRepo{db: s.pool} }

// WithTx executes fn within a transaction, committing on nil and rolling
// back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&txStore{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	db DBTX
}

func (t *txStore) Admins() store.Admins                         { return &adminsRepo{db: t.db} }
func (t *txStore) ConfirmationTokens() store.ConfirmationTokens { return &tokensRepo{db: t.db} }
func (t *txStore) VerificationCodes() store.VerificationCodes   { return &codesRepo{db: t.db} }

// mapError translates driver errors into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if unavailable(pgErr.Code) {
			return fmt.Errorf("%w: %s", store.ErrUnavailable, pgErr.Message)
		}
		switch pgErr.Code {
		case codeUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintAdminEmail:
				return fmt.Errorf("%w: %s", store.ErrDuplicateEmail, pgErr.Message)
			case constraintAdminSchema:
				return fmt.Errorf("%w: %s", store.ErrDuplicateSchema, pgErr.Message)
			}
		case codeDuplicateSchema:
			return fmt.Errorf("%w: %s", store.ErrSchemaExists, pgErr.Message)
		}
	}
	return err
}

// unavailable reports SQLSTATEs meaning the server cannot serve us at all:
// connection exceptions, bad credentials, and shutdown in progress.
func unavailable(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "28"):
		return true
	case code == "57P01", code == "57P02", code == "57P03":
		return true
	}
	return false
}

// expectOne turns a zero rows-affected result into ErrNotFound.
func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
