package signals

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository runs the analytical queries against the event store.
// The pool points at the warehouse (EVENTS_DATABASE_URL); queries are
// read-only aggregations and carry a generous timeout.
type EventRepository struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewEventRepository creates an event-store repository.
func NewEventRepository(pool *pgxpool.Pool, queryTimeout time.Duration) *EventRepository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Minute
	}
	return &EventRepository{pool: pool, queryTimeout: queryTimeout}
}

// TeamSignalsInPeriod returns one usage-signal record per team with at least
// one event in [begin, end). Teams with zero events are absent. An empty
// team set short-circuits without querying.
func (r *EventRepository) TeamSignalsInPeriod(ctx context.Context, begin, end time.Time, teamIDs []int64) ([]TeamUsageSignals, error) {
	if len(teamIDs) == 0 {
		return []TeamUsageSignals{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	const q = `SELECT
			team_id,
			COUNT(DISTINCT person_id) AS active_persons,
			COUNT(DISTINCT distinct_id) AS active_distinct_ids,
			COUNT(DISTINCT session_id) AS session_count,
			COUNT(*) AS total_events,
			COUNT(*) FILTER (WHERE event IN ('flag evaluation', 'local flag evaluation')) > 0 AS has_feature_flags,
			COUNT(*) FILTER (WHERE event = 'survey sent') > 0 AS has_surveys,
			COUNT(*) FILTER (WHERE event = '$exception') > 0 AS has_error_tracking,
			COUNT(*) FILTER (WHERE event IN ('$ai_generation', '$ai_trace')) > 0 AS has_ai
		FROM events
		WHERE team_id = ANY($1)
		  AND timestamp >= $2 AND timestamp < $3
		GROUP BY team_id`

	rows, err := r.pool.Query(ctx, q, teamIDs, begin, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamUsageSignals
	for rows.Next() {
		var s TeamUsageSignals
		if err := rows.Scan(
			&s.TeamID, &s.ActivePersons, &s.ActiveDistinctIDs, &s.SessionCount, &s.TotalEvents,
			&s.HasFeatureFlags, &s.HasSurveys, &s.HasErrorTracking, &s.HasAI,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TeamRecordingCountsInPeriod counts, per team, recording sessions whose
// first-seen timestamp falls inside [begin, end). Sessions may span segments
// recorded before the window, so the scan looks back one full window length
// to compute each session's true first timestamp. Teams without qualifying
// sessions are absent. Empty team sets and degenerate windows (begin >= end)
// short-circuit to empty.
func (r *EventRepository) TeamRecordingCountsInPeriod(ctx context.Context, begin, end time.Time, teamIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	if len(teamIDs) == 0 || !begin.Before(end) {
		return counts, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	previousBegin := begin.Add(-end.Sub(begin))

	const q = `SELECT team_id, COUNT(*) FILTER (WHERE first_ts >= $2 AND first_ts < $3) AS session_count
		FROM (
			SELECT team_id, session_id, MIN(first_timestamp) AS first_ts
			FROM recording_segments
			WHERE team_id = ANY($1)
			  AND first_timestamp >= $4 AND first_timestamp < $3
			GROUP BY team_id, session_id
		) sessions
		GROUP BY team_id
		HAVING COUNT(*) FILTER (WHERE first_ts >= $2 AND first_ts < $3) > 0`

	rows, err := r.pool.Query(ctx, q, teamIDs, begin, end, previousBegin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var teamID int64
		var count int
		if err := rows.Scan(&teamID, &count); err != nil {
			return nil, err
		}
		counts[teamID] = count
	}
	return counts, rows.Err()
}
