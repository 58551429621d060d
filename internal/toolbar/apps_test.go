package toolbar

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appsTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createTestOrg(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	orgID := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO organizations (id, name) VALUES ($1, 'org')`, orgID)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM oauth_applications WHERE organization_id = $1`, orgID)
		pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	})
	return orgID
}

func TestGetOrCreateKeepsCredentialsStable(t *testing.T) {
	pool := appsTestPool(t)
	ctx := context.Background()
	orgID := createTestOrg(t, pool)
	repo := NewAppRepository(pool)

	first, err := repo.GetOrCreate(ctx, orgID, "https://us.pulsedeck.com/toolbar_oauth/callback")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.ClientID, "pdc_"))
	require.True(t, strings.HasPrefix(first.ClientSecret, "pds_"))

	second, err := repo.GetOrCreate(ctx, orgID, "https://us.pulsedeck.com/toolbar_oauth/callback")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ClientID, second.ClientID)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)
}

func TestGetOrCreateAppendsSecondRedirectURIOnce(t *testing.T) {
	pool := appsTestPool(t)
	ctx := context.Background()
	orgID := createTestOrg(t, pool)
	repo := NewAppRepository(pool)

	first, err := repo.GetOrCreate(ctx, orgID, "https://us.pulsedeck.com/toolbar_oauth/callback")
	require.NoError(t, err)

	// Registering from a second base URL reuses the row, keeps the
	// credentials, and appends the new URI exactly once.
	for i := 0; i < 2; i++ {
		app, err := repo.GetOrCreate(ctx, orgID, "https://eu.pulsedeck.com/toolbar_oauth/callback")
		require.NoError(t, err)
		assert.Equal(t, first.ClientID, app.ClientID)
		assert.Equal(t, []string{
			"https://us.pulsedeck.com/toolbar_oauth/callback",
			"https://eu.pulsedeck.com/toolbar_oauth/callback",
		}, app.RedirectURIList())
	}
}
