package signals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventStore struct {
	signalCalls    int
	recordingCalls int
	signalsByRange map[string][]TeamUsageSignals
	recordings     map[int64]int
}

func rangeKey(begin, end time.Time) string {
	return begin.Format(time.RFC3339) + "/" + end.Format(time.RFC3339)
}

func (f *fakeEventStore) TeamSignalsInPeriod(_ context.Context, begin, end time.Time, _ []int64) ([]TeamUsageSignals, error) {
	f.signalCalls++
	return f.signalsByRange[rangeKey(begin, end)], nil
}

func (f *fakeEventStore) TeamRecordingCountsInPeriod(_ context.Context, _, _ time.Time, _ []int64) (map[int64]int, error) {
	f.recordingCalls++
	return f.recordings, nil
}

type fakeOrgStore struct {
	teams        map[uuid.UUID][]int64
	dashboards   map[uuid.UUID]int
	insights     map[uuid.UUID]int
	loginRecency map[uuid.UUID]int
	contentCalls int
}

func (f *fakeOrgStore) TeamIDsForOrgs(_ context.Context, orgIDs []uuid.UUID) (map[uuid.UUID][]int64, error) {
	out := make(map[uuid.UUID][]int64, len(orgIDs))
	for _, id := range orgIDs {
		out[id] = f.teams[id]
	}
	return out, nil
}

func (f *fakeOrgStore) DashboardCountsInPeriod(_ context.Context, _ []uuid.UUID, _, _ time.Time) (map[uuid.UUID]int, error) {
	f.contentCalls++
	return f.dashboards, nil
}

func (f *fakeOrgStore) InsightCountsInPeriod(_ context.Context, _ []uuid.UUID, _, _ time.Time) (map[uuid.UUID]int, error) {
	f.contentCalls++
	return f.insights, nil
}

func (f *fakeOrgStore) LoginRecency(_ context.Context, _ []uuid.UUID, _ time.Time) (map[uuid.UUID]int, error) {
	return f.loginRecency, nil
}

func TestAggregateForOrgsNoTeamsSkipsWindowedQueries(t *testing.T) {
	orgID := uuid.New()
	events := &fakeEventStore{}
	orgs := &fakeOrgStore{teams: map[uuid.UUID][]int64{}}

	svc := NewService(events, orgs, nil)
	result, err := svc.AggregateForOrgs(context.Background(), []uuid.UUID{orgID})
	require.NoError(t, err)

	got, ok := result[orgID]
	require.True(t, ok)
	assert.Equal(t, 0, got.ActiveUsers7d)
	assert.Equal(t, []string{}, got.ProductsActivated7d)
	assert.Equal(t, []string{}, got.ProductsActivated30d)
	assert.Nil(t, got.EventsPerSession7d)
	assert.Nil(t, got.ActiveUsers7dMomentum)
	assert.Nil(t, got.DaysSinceLastLogin)

	assert.Equal(t, 0, events.signalCalls)
	assert.Equal(t, 0, events.recordingCalls)
	assert.Equal(t, 0, orgs.contentCalls)
}

func TestAggregateForOrgsEmptyInput(t *testing.T) {
	svc := NewService(&fakeEventStore{}, &fakeOrgStore{}, nil)
	result, err := svc.AggregateForOrgs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestAggregateForOrgsFullAssembly(t *testing.T) {
	orgID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p7 := rangeKey(now.AddDate(0, 0, -7), now)
	p7Prev := rangeKey(now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))
	p30 := rangeKey(now.AddDate(0, 0, -30), now)
	p30Prev := rangeKey(now.AddDate(0, 0, -60), now.AddDate(0, 0, -30))

	events := &fakeEventStore{
		signalsByRange: map[string][]TeamUsageSignals{
			p7: {
				{TeamID: 1, ActivePersons: 10, SessionCount: 100, TotalEvents: 1000, HasFeatureFlags: true},
			},
			p7Prev: {
				{TeamID: 1, ActivePersons: 5, SessionCount: 50, TotalEvents: 250},
			},
			p30: {
				{TeamID: 1, ActivePersons: 20, SessionCount: 200, TotalEvents: 2000, HasSurveys: true},
			},
			p30Prev: {},
		},
		recordings: map[int64]int{1: 4},
	}
	days := 3
	orgs := &fakeOrgStore{
		teams:        map[uuid.UUID][]int64{orgID: {1}},
		dashboards:   map[uuid.UUID]int{orgID: 5},
		insights:     map[uuid.UUID]int{orgID: 20},
		loginRecency: map[uuid.UUID]int{orgID: days},
	}

	svc := NewService(events, orgs, nil)
	svc.nowFn = func() time.Time { return now }

	result, err := svc.AggregateForOrgs(context.Background(), []uuid.UUID{orgID})
	require.NoError(t, err)
	got := result[orgID]

	assert.Equal(t, 10, got.ActiveUsers7d)
	assert.Equal(t, 100, got.Sessions7d)
	require.NotNil(t, got.EventsPerSession7d)
	assert.InDelta(t, 10.0, *got.EventsPerSession7d, 1e-9)
	require.NotNil(t, got.InsightsPerUser7d)
	assert.InDelta(t, 2.0, *got.InsightsPerUser7d, 1e-9)
	require.NotNil(t, got.DashboardsPerUser7d)
	assert.InDelta(t, 0.5, *got.DashboardsPerUser7d, 1e-9)
	assert.Equal(t, []string{"feature_flags", "recordings"}, got.ProductsActivated7d)

	// 7d momentum vs previous 7 days: users 5 -> 10, sessions 50 -> 100,
	// events per session 5 -> 10.
	require.NotNil(t, got.ActiveUsers7dMomentum)
	assert.InDelta(t, 100.0, *got.ActiveUsers7dMomentum, 1e-9)
	require.NotNil(t, got.Sessions7dMomentum)
	assert.InDelta(t, 100.0, *got.Sessions7dMomentum, 1e-9)
	require.NotNil(t, got.EventsPerSession7dMomentum)
	assert.InDelta(t, 100.0, *got.EventsPerSession7dMomentum, 1e-9)

	// 30d previous window is empty, so momentum is undefined.
	assert.Equal(t, 20, got.ActiveUsers30d)
	assert.Nil(t, got.ActiveUsers30dMomentum)
	assert.Nil(t, got.Sessions30dMomentum)
	assert.Nil(t, got.EventsPerSession30dMomentum)

	require.NotNil(t, got.DaysSinceLastLogin)
	assert.Equal(t, days, *got.DaysSinceLastLogin)

	// One current plus one previous signals fetch per window granularity.
	assert.Equal(t, 4, events.signalCalls)
	assert.Equal(t, 2, events.recordingCalls)
}

func TestAggregateForOrgsNoLoginsLeavesRecencyNil(t *testing.T) {
	orgID := uuid.New()
	events := &fakeEventStore{signalsByRange: map[string][]TeamUsageSignals{}}
	orgs := &fakeOrgStore{
		teams:        map[uuid.UUID][]int64{orgID: {1}},
		loginRecency: map[uuid.UUID]int{},
	}

	svc := NewService(events, orgs, nil)
	result, err := svc.AggregateForOrgs(context.Background(), []uuid.UUID{orgID})
	require.NoError(t, err)
	assert.Nil(t, result[orgID].DaysSinceLastLogin)
}
