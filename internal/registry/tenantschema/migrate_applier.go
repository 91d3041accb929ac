package tenantschema

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hivecert/hivecert/internal/registry/store/drivers/postgres"
	"github.com/hivecert/hivecert/internal/registry/tenantschema/migrations"
	"github.com/hivecert/hivecert/pkg/slogx"
)

// MigrateApplier runs the embedded tenant migrations in-process.
type MigrateApplier struct {
	// DSN of the database holding the tenant namespaces.
	DSN     string
	Timeout time.Duration
}

func (a *MigrateApplier) Apply(ctx context.Context, schema string) error {
	if err := ValidateName(schema); err != nil {
		return err
	}

	ctx, cancel := withDeadline(ctx, a.Timeout)
	defer cancel()

	// Statements are cancelled at the same deadline, so a stuck DDL cannot
	// keep its locks once we give up.
	var stmtTimeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		stmtTimeout = max(time.Until(deadline), time.Millisecond)
	}
	m, err := a.open(schema, stmtTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailed, err)
	}

	done := make(chan error, 1)
	go func() {
		err := m.Up()
		// Close before reporting, so the connection is gone once we return.
		_, _ = m.Close()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			if ctx.Err() != nil {
				return classify(ctx, schema, err)
			}
			return fmt.Errorf("%w: schema %q: %v", ErrFailed, schema, err)
		}
		return nil
	case <-ctx.Done():
		// Wait for the migration in flight to stop and release its
		// connection before the caller drops the schema.
		m.GracefulStop <- true
		upErr := <-done
		slogx.FromContext(ctx).Warn("structure application abandoned",
			"schema", schema,
			"err", ctx.Err(),
			"migrate_err", upErr,
		)
		return classify(ctx, schema, ctx.Err())
	}
}

// Version reports the structure version applied to schema.
func (a *MigrateApplier) Version(schema string) (uint, bool, error) {
	if err := ValidateName(schema); err != nil {
		return 0, false, err
	}
	m, err := a.open(schema, 0)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (a *MigrateApplier) open(schema string, stmtTimeout time.Duration) (*migrate.Migrate, error) {
	dbURL, err := migrateURL(a.DSN, schema, stmtTimeout)
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, dbURL)
}

// migrateURL scopes dsn to schema for the migrate pgx driver. A positive
// stmtTimeout becomes x-statement-timeout, which the driver enforces per
// statement.
func migrateURL(dsn, schema string, stmtTimeout time.Duration) (string, error) {
	scoped, err := ScopedDSN(dsn, schema)
	if err != nil {
		return "", err
	}
	if stmtTimeout > 0 {
		u, err := url.Parse(scoped)
		if err != nil {
			return "", fmt.Errorf("parse database url: %w", err)
		}
		q := u.Query()
		q.Set("x-statement-timeout", strconv.FormatInt(max(stmtTimeout.Milliseconds(), 1), 10))
		u.RawQuery = q.Encode()
		scoped = u.String()
	}
	return postgres.MigrateURL(scoped)
}

// LatestVersion is the highest migration version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			// fs.ErrNotExist once we are past the last file.
			return v, nil
		}
		v = next
	}
}
