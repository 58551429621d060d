package organizations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles the relational-store reads behind the usage-signals
// pipeline: team resolution, content counts and login recency.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TeamIDsForOrgs returns organization -> team IDs. Every requested
// organization appears in the result; organizations with no teams map to an
// empty slice rather than being absent.
func (r *Repository) TeamIDsForOrgs(ctx context.Context, orgIDs []uuid.UUID) (map[uuid.UUID][]int64, error) {
	result := make(map[uuid.UUID][]int64, len(orgIDs))
	for _, id := range orgIDs {
		result[id] = []int64{}
	}
	if len(orgIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, organization_id FROM teams WHERE organization_id = ANY($1)`, orgIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var teamID int64
		var orgID uuid.UUID
		if err := rows.Scan(&teamID, &orgID); err != nil {
			return nil, err
		}
		if _, ok := result[orgID]; ok {
			result[orgID] = append(result[orgID], teamID)
		}
	}
	return result, rows.Err()
}

// DashboardCountsInPeriod returns dashboards created per organization within
// [start, end), excluding soft-deleted rows. Organizations with no matching
// rows are absent. An empty org list short-circuits without querying.
func (r *Repository) DashboardCountsInPeriod(ctx context.Context, orgIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	return r.contentCountsInPeriod(ctx, "dashboards", orgIDs, start, end)
}

// InsightCountsInPeriod returns insights created per organization within
// [start, end), excluding soft-deleted rows.
func (r *Repository) InsightCountsInPeriod(ctx context.Context, orgIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	return r.contentCountsInPeriod(ctx, "insights", orgIDs, start, end)
}

func (r *Repository) contentCountsInPeriod(ctx context.Context, table string, orgIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	if len(orgIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	// table is one of two fixed identifiers, never caller input.
	q := `SELECT t.organization_id, COUNT(c.id)
		FROM ` + table + ` c
		INNER JOIN teams t ON t.id = c.team_id
		WHERE t.organization_id = ANY($1)
		  AND c.created_at >= $2 AND c.created_at < $3
		  AND c.deleted = FALSE
		GROUP BY t.organization_id`

	rows, err := r.pool.Query(ctx, q, orgIDs, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var orgID uuid.UUID
		var count int
		if err := rows.Scan(&orgID, &count); err != nil {
			return nil, err
		}
		counts[orgID] = count
	}
	return counts, rows.Err()
}

// LoginRecency returns whole days elapsed since the most recent member login
// per organization, relative to now. Organizations whose members have never
// logged in are absent from the map.
func (r *Repository) LoginRecency(ctx context.Context, orgIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int, error) {
	if len(orgIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	const q = `SELECT om.organization_id, MAX(u.last_login)
		FROM organization_memberships om
		INNER JOIN users u ON u.id = om.user_id
		WHERE om.organization_id = ANY($1)
		GROUP BY om.organization_id`

	rows, err := r.pool.Query(ctx, q, orgIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recency := make(map[uuid.UUID]int)
	for rows.Next() {
		var orgID uuid.UUID
		var lastLogin *time.Time
		if err := rows.Scan(&orgID, &lastLogin); err != nil {
			return nil, err
		}
		if lastLogin == nil {
			continue
		}
		recency[orgID] = int(now.Sub(*lastLogin).Hours() / 24)
	}
	return recency, rows.Err()
}

// UserIsMember reports whether the user belongs to the organization.
func (r *Repository) UserIsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM organization_memberships WHERE organization_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
