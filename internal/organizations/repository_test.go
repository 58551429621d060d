package organizations

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *pgxpool.Pool {
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

func TestTeamIDsForOrgsIncludesEmptyOrgs(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	orgA := uuid.New()
	orgB := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO organizations (id, name) VALUES ($1, 'org-a'), ($2, 'org-b')`, orgA, orgB)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM teams WHERE organization_id IN ($1, $2)`, orgA, orgB)
		pool.Exec(ctx, `DELETE FROM organizations WHERE id IN ($1, $2)`, orgA, orgB)
	})

	var teamID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO teams (organization_id, name) VALUES ($1, 'team-a') RETURNING id`, orgA).Scan(&teamID)
	require.NoError(t, err)

	repo := NewRepository(pool)
	got, err := repo.TeamIDsForOrgs(ctx, []uuid.UUID{orgA, orgB})
	require.NoError(t, err)

	assert.Equal(t, []int64{teamID}, got[orgA])
	assert.Equal(t, []int64{}, got[orgB])
}

func TestTeamIDsForOrgsEmptyInput(t *testing.T) {
	pool := testPool(t)

	repo := NewRepository(pool)
	got, err := repo.TeamIDsForOrgs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDashboardCountsExcludeDeletedAndOutOfWindow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	orgID := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO organizations (id, name) VALUES ($1, 'org')`, orgID)
	require.NoError(t, err)
	var teamID int64
	err = pool.QueryRow(ctx,
		`INSERT INTO teams (organization_id, name) VALUES ($1, 'team') RETURNING id`, orgID).Scan(&teamID)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM dashboards WHERE team_id = $1`, teamID)
		pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
		pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	})

	now := time.Now().UTC()
	_, err = pool.Exec(ctx, `INSERT INTO dashboards (team_id, name, deleted, created_at) VALUES
		($1, 'in-window', FALSE, $2),
		($1, 'deleted', TRUE, $2),
		($1, 'too-old', FALSE, $3)`,
		teamID, now.AddDate(0, 0, -1), now.AddDate(0, 0, -20))
	require.NoError(t, err)

	repo := NewRepository(pool)
	counts, err := repo.DashboardCountsInPeriod(ctx, []uuid.UUID{orgID}, now.AddDate(0, 0, -7), now)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[orgID])
}

func TestLoginRecencySkipsNeverLoggedIn(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	orgID := uuid.New()
	userID := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO organizations (id, name) VALUES ($1, 'org')`, orgID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, full_name) VALUES ($1, $2, 'x', 'u')`,
		userID, uuid.New().String()+"@example.com")
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO organization_memberships (organization_id, user_id) VALUES ($1, $2)`, orgID, userID)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM organization_memberships WHERE organization_id = $1`, orgID)
		pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
		pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	})

	repo := NewRepository(pool)
	now := time.Now().UTC()

	recency, err := repo.LoginRecency(ctx, []uuid.UUID{orgID}, now)
	require.NoError(t, err)
	_, present := recency[orgID]
	assert.False(t, present, "orgs with no recorded logins should be absent")

	_, err = pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, now.AddDate(0, 0, -3), userID)
	require.NoError(t, err)

	recency, err = repo.LoginRecency(ctx, []uuid.UUID{orgID}, now)
	require.NoError(t, err)
	assert.Equal(t, 3, recency[orgID])
}
