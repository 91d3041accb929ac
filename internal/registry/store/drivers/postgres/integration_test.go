//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/internal/registry/store"
	"github.com/hivecert/hivecert/internal/registry/store/drivers/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("hivecert"),
		tcpostgres.WithUsername("hivecert"),
		tcpostgres.WithPassword("hivecert"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestStoreAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	s, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations(ctx))
	// Second run is a no-op.
	require.NoError(t, s.ApplyMigrations(ctx))

	now := time.Now().UTC().Truncate(time.Microsecond)
	admin := domain.Admin{
		ID: "01HQINTEGRATION", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
		PasswordHash: "h", Role: domain.RoleAdmin, SchemaName: "jane_doe_1_abcdef",
		MaxUsers: 50, MaxStorageMB: 1024, CreatedAt: now,
	}
	require.NoError(t, s.Admins().CreateAdmin(ctx, admin))

	dup := admin
	dup.ID = "01HQOTHER"
	dup.SchemaName = "other_schema_1_abcdef"
	require.ErrorIs(t, s.Admins().CreateAdmin(ctx, dup), store.ErrDuplicateEmail)

	dup.Email = "other@example.com"
	dup.SchemaName = admin.SchemaName
	require.ErrorIs(t, s.Admins().CreateAdmin(ctx, dup), store.ErrDuplicateSchema)

	tok := domain.ConfirmationToken{
		ID: "01HQTOKEN", AdminID: admin.ID, TokenHash: "fp", ExpiresAt: now.Add(24 * time.Hour), CreatedAt: now,
	}
	require.NoError(t, s.ConfirmationTokens().CreateConfirmationToken(ctx, tok))

	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ConfirmationTokens().MarkConfirmationTokenUsed(ctx, tok.ID, now); err != nil {
			return err
		}
		return tx.Admins().ActivateAdmin(ctx, admin.ID, now, nil)
	})
	require.NoError(t, err)

	got, err := s.Admins().GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
	require.NotNil(t, got.ConfirmedAt)

	// Deleting the admin cascades to its tokens.
	require.NoError(t, s.Admins().DeleteAdmin(ctx, admin.ID))
	_, err = s.ConfirmationTokens().GetConfirmationTokenByHash(ctx, "fp")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSchemaManagerAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	dsn := startPostgres(t)

	m, err := postgres.ConnectSchemaManager(ctx, dsn)
	require.NoError(t, err)
	defer m.Close()

	const name = "jane_doe_1700000000000_ab12cd"
	require.NoError(t, m.CreateSchema(ctx, name))
	require.ErrorIs(t, m.CreateSchema(ctx, name), store.ErrSchemaExists)

	ok, err := m.SchemaExists(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)

	list, err := m.ListSchemas(ctx)
	require.NoError(t, err)
	require.Contains(t, list, name)

	require.NoError(t, m.DropSchema(ctx, name))
	ok, err = m.SchemaExists(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)
}
