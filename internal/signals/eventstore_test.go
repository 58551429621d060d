package signals

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventsTestPool(t *testing.T) *pgxpool.Pool {
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

func TestTeamSignalsInPeriodEmptyTeamSet(t *testing.T) {
	// Short-circuits before touching the pool.
	repo := NewEventRepository(nil, 0)

	got, err := repo.TeamSignalsInPeriod(context.Background(), time.Now().Add(-time.Hour), time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, []TeamUsageSignals{}, got)
}

func TestTeamRecordingCountsEmptyTeamSet(t *testing.T) {
	repo := NewEventRepository(nil, 0)

	got, err := repo.TeamRecordingCountsInPeriod(context.Background(), time.Now().Add(-time.Hour), time.Now(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTeamRecordingCountsDegenerateWindow(t *testing.T) {
	repo := NewEventRepository(nil, 0)
	now := time.Now()

	got, err := repo.TeamRecordingCountsInPeriod(context.Background(), now, now, []int64{1})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.TeamRecordingCountsInPeriod(context.Background(), now, now.Add(-time.Hour), []int64{1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTeamRecordingCountsFirstSeenLookback(t *testing.T) {
	pool := eventsTestPool(t)
	ctx := context.Background()

	teamNew := time.Now().UnixNano()
	teamOld := teamNew + 1
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM recording_segments WHERE team_id IN ($1, $2)`, teamNew, teamOld)
	})

	now := time.Now().UTC()
	begin := now.AddDate(0, 0, -7)

	// teamNew: one session first seen inside the window, one session whose
	// earliest segment falls in the look-back period so its later in-window
	// segment must not count it as new.
	_, err := pool.Exec(ctx, `INSERT INTO recording_segments (team_id, session_id, first_timestamp) VALUES
		($1, 'fresh', $2),
		($1, 'spanning', $3),
		($1, 'spanning', $2)`,
		teamNew, now.AddDate(0, 0, -1), now.AddDate(0, 0, -10))
	require.NoError(t, err)

	// teamOld: only a pre-window session; the team must be absent entirely.
	_, err = pool.Exec(ctx, `INSERT INTO recording_segments (team_id, session_id, first_timestamp) VALUES
		($1, 'stale', $2)`, teamOld, now.AddDate(0, 0, -10))
	require.NoError(t, err)

	repo := NewEventRepository(pool, time.Minute)
	counts, err := repo.TeamRecordingCountsInPeriod(ctx, begin, now, []int64{teamNew, teamOld})
	require.NoError(t, err)

	assert.Equal(t, 1, counts[teamNew])
	_, present := counts[teamOld]
	assert.False(t, present, "teams without sessions first seen in the window should be absent")
}
