package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("settings_db"),
		postgres.WithUsername("settings"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, Schema)
	require.NoError(t, err)

	return pool
}

func TestPostgresRepository(t *testing.T) {
	pool := setupTestDatabase(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()
	loginID := uuid.New()

	_, err := repo.GetByLoginID(ctx, loginID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	require.NoError(t, repo.Save(ctx, Record{LoginID: loginID, PasswordHash: "hash"}))

	record, err := repo.GetByLoginID(ctx, loginID)
	require.NoError(t, err)
	assert.Equal(t, "hash", record.PasswordHash)
	assert.False(t, record.TwoFactorEnabled())

	record.TotpSecret = "JBSWY3DPEHPK3PXP"
	require.NoError(t, repo.Save(ctx, record))

	record, err = repo.GetByLoginID(ctx, loginID)
	require.NoError(t, err)
	assert.True(t, record.TotpEnabled())

	t.Run("schema rejects two active methods", func(t *testing.T) {
		record.PgpPublicKey = "key"
		assert.Error(t, repo.Save(ctx, record))
	})
}
