package signals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventStore is the analytical-store surface the orchestration needs.
type EventStore interface {
	TeamSignalsInPeriod(ctx context.Context, begin, end time.Time, teamIDs []int64) ([]TeamUsageSignals, error)
	TeamRecordingCountsInPeriod(ctx context.Context, begin, end time.Time, teamIDs []int64) (map[int64]int, error)
}

// OrgStore is the relational-store surface the orchestration needs.
type OrgStore interface {
	TeamIDsForOrgs(ctx context.Context, orgIDs []uuid.UUID) (map[uuid.UUID][]int64, error)
	DashboardCountsInPeriod(ctx context.Context, orgIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error)
	InsightCountsInPeriod(ctx context.Context, orgIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error)
	LoginRecency(ctx context.Context, orgIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int, error)
}

// Service computes complete usage signals per organization. All fetches of
// one invocation observe a single "now" and a single resolved team set; any
// store failure aborts the whole invocation (the caller retries).
type Service struct {
	events EventStore
	orgs   OrgStore
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewService creates a usage-signals service.
func NewService(events EventStore, orgs OrgStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{events: events, orgs: orgs, logger: logger, nowFn: time.Now}
}

// periodData holds all fetch results for one window granularity. Only the
// current window's recordings and content counts feed the output; previous
// team signals exist solely to compute momentum.
type periodData struct {
	signalsByTeam     map[int64]TeamUsageSignals
	prevSignalsByTeam map[int64]TeamUsageSignals
	recordings        map[int64]int
	dashboards        map[uuid.UUID]int
	insights          map[uuid.UUID]int
}

// AggregateForOrgs produces a UsageSignals record for every requested
// organization. Organizations with zero resolved teams get an all-default
// record; when no organization has teams, no windowed queries are issued.
func (s *Service) AggregateForOrgs(ctx context.Context, orgIDs []uuid.UUID) (map[uuid.UUID]UsageSignals, error) {
	result := make(map[uuid.UUID]UsageSignals, len(orgIDs))
	if len(orgIDs) == 0 {
		return result, nil
	}

	s.logger.Info("aggregating usage signals", zap.Int("org_count", len(orgIDs)))
	now := s.nowFn().UTC()

	p7Start := now.AddDate(0, 0, -7)
	p7PrevStart := now.AddDate(0, 0, -14)
	p30Start := now.AddDate(0, 0, -30)
	p30PrevStart := now.AddDate(0, 0, -60)

	orgToTeams, err := s.orgs.TeamIDsForOrgs(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	var allTeamIDs []int64
	for _, teams := range orgToTeams {
		allTeamIDs = append(allTeamIDs, teams...)
	}

	if len(allTeamIDs) == 0 {
		for _, orgID := range orgIDs {
			result[orgID] = defaultSignals()
		}
		return result, nil
	}

	fetchPeriod := func(start, end, prevStart time.Time) (*periodData, error) {
		current, err := s.events.TeamSignalsInPeriod(ctx, start, end, allTeamIDs)
		if err != nil {
			return nil, err
		}
		previous, err := s.events.TeamSignalsInPeriod(ctx, prevStart, start, allTeamIDs)
		if err != nil {
			return nil, err
		}
		recordings, err := s.events.TeamRecordingCountsInPeriod(ctx, start, end, allTeamIDs)
		if err != nil {
			return nil, err
		}
		dashboards, err := s.orgs.DashboardCountsInPeriod(ctx, orgIDs, start, end)
		if err != nil {
			return nil, err
		}
		insights, err := s.orgs.InsightCountsInPeriod(ctx, orgIDs, start, end)
		if err != nil {
			return nil, err
		}
		return &periodData{
			signalsByTeam:     signalsByTeam(current),
			prevSignalsByTeam: signalsByTeam(previous),
			recordings:        recordings,
			dashboards:        dashboards,
			insights:          insights,
		}, nil
	}

	p7, err := fetchPeriod(p7Start, now, p7PrevStart)
	if err != nil {
		return nil, err
	}
	p30, err := fetchPeriod(p30Start, now, p30PrevStart)
	if err != nil {
		return nil, err
	}
	loginRecency, err := s.orgs.LoginRecency(ctx, orgIDs, now)
	if err != nil {
		return nil, err
	}

	for _, orgID := range orgIDs {
		teamIDs := orgToTeams[orgID]

		agg7 := AggregateTeamsToOrg(filterTeams(p7.signalsByTeam, teamIDs))
		agg7Prev := AggregateTeamsToOrg(filterTeams(p7.prevSignalsByTeam, teamIDs))
		agg30 := AggregateTeamsToOrg(filterTeams(p30.signalsByTeam, teamIDs))
		agg30Prev := AggregateTeamsToOrg(filterTeams(p30.prevSignalsByTeam, teamIDs))

		signals := UsageSignals{
			ActiveUsers7d:       agg7.ActiveUsers,
			Sessions7d:          agg7.Sessions,
			EventsPerSession7d:  agg7.EventsPerSession,
			InsightsPerUser7d:   PerUserMetric(p7.insights[orgID], agg7.ActiveUsers),
			DashboardsPerUser7d: PerUserMetric(p7.dashboards[orgID], agg7.ActiveUsers),
			ProductsActivated7d: ProductsWithRecordings(agg7.ProductsActivated, teamIDs, p7.recordings),

			ActiveUsers30d:       agg30.ActiveUsers,
			Sessions30d:          agg30.Sessions,
			EventsPerSession30d:  agg30.EventsPerSession,
			InsightsPerUser30d:   PerUserMetric(p30.insights[orgID], agg30.ActiveUsers),
			DashboardsPerUser30d: PerUserMetric(p30.dashboards[orgID], agg30.ActiveUsers),
			ProductsActivated30d: ProductsWithRecordings(agg30.ProductsActivated, teamIDs, p30.recordings),

			ActiveUsers7dMomentum:      Momentum(float64(agg7.ActiveUsers), float64(agg7Prev.ActiveUsers)),
			Sessions7dMomentum:         Momentum(float64(agg7.Sessions), float64(agg7Prev.Sessions)),
			EventsPerSession7dMomentum: epsMomentum(agg7, agg7Prev),

			ActiveUsers30dMomentum:      Momentum(float64(agg30.ActiveUsers), float64(agg30Prev.ActiveUsers)),
			Sessions30dMomentum:         Momentum(float64(agg30.Sessions), float64(agg30Prev.Sessions)),
			EventsPerSession30dMomentum: epsMomentum(agg30, agg30Prev),
		}
		if days, ok := loginRecency[orgID]; ok {
			signals.DaysSinceLastLogin = &days
		}
		result[orgID] = signals
	}

	s.logger.Info("aggregated usage signals", zap.Int("org_count", len(orgIDs)), zap.Int("result_count", len(result)))
	return result, nil
}

func defaultSignals() UsageSignals {
	return UsageSignals{
		ProductsActivated7d:  []string{},
		ProductsActivated30d: []string{},
	}
}

func signalsByTeam(list []TeamUsageSignals) map[int64]TeamUsageSignals {
	m := make(map[int64]TeamUsageSignals, len(list))
	for _, s := range list {
		m[s.TeamID] = s
	}
	return m
}

func filterTeams(byTeam map[int64]TeamUsageSignals, teamIDs []int64) []TeamUsageSignals {
	var out []TeamUsageSignals
	for _, tid := range teamIDs {
		if s, ok := byTeam[tid]; ok {
			out = append(out, s)
		}
	}
	return out
}
