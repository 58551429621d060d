package signals

// productFlag maps an adoption flag on TeamUsageSignals to its product name.
// Extending product coverage means adding a row here, nothing else.
type productFlag struct {
	Product string
	Active  func(t TeamUsageSignals) bool
}

var productFlags = []productFlag{
	{"feature_flags", func(t TeamUsageSignals) bool { return t.HasFeatureFlags }},
	{"surveys", func(t TeamUsageSignals) bool { return t.HasSurveys }},
	{"error_tracking", func(t TeamUsageSignals) bool { return t.HasErrorTracking }},
	{"ai", func(t TeamUsageSignals) bool { return t.HasAI }},
}

// Momentum returns the percentage change from previous to current, or nil
// when previous is zero (undefined, regardless of current).
func Momentum(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	m := ((current - previous) / previous) * 100
	return &m
}

// AggregateTeamsToOrg rolls team-level signals up to the organization:
// counts are summed, product flags are OR'd across teams. An empty input
// yields an all-zero result with an empty product list.
func AggregateTeamsToOrg(teamSignals []TeamUsageSignals) OrgAggregatedSignals {
	agg := OrgAggregatedSignals{ProductsActivated: []string{}}
	if len(teamSignals) == 0 {
		return agg
	}

	for _, t := range teamSignals {
		agg.ActiveUsers += t.ActivePersons
		agg.Sessions += t.SessionCount
		agg.TotalEvents += t.TotalEvents
	}
	if agg.Sessions > 0 {
		eps := float64(agg.TotalEvents) / float64(agg.Sessions)
		agg.EventsPerSession = &eps
	}

	for _, pf := range productFlags {
		for _, t := range teamSignals {
			if pf.Active(t) {
				agg.ProductsActivated = append(agg.ProductsActivated, pf.Product)
				break
			}
		}
	}
	return agg
}

// PerUserMetric divides a content count by active users, nil when there are
// no active users.
func PerUserMetric(count, activeUsers int) *float64 {
	if activeUsers == 0 {
		return nil
	}
	v := float64(count) / float64(activeUsers)
	return &v
}

// ProductsWithRecordings appends "recordings" to the product list when any
// of the organization's teams has a positive recording count and the entry
// is not already present.
func ProductsWithRecordings(products []string, teamIDs []int64, recordings map[int64]int) []string {
	hasRecordings := false
	for _, tid := range teamIDs {
		if recordings[tid] > 0 {
			hasRecordings = true
			break
		}
	}
	if !hasRecordings {
		return products
	}
	for _, p := range products {
		if p == "recordings" {
			return products
		}
	}
	return append(append([]string{}, products...), "recordings")
}

// epsMomentum derives events-per-session momentum only when both periods
// have a defined events-per-session value.
func epsMomentum(current, previous OrgAggregatedSignals) *float64 {
	if current.EventsPerSession == nil || previous.EventsPerSession == nil {
		return nil
	}
	return Momentum(*current.EventsPerSession, *previous.EventsPerSession)
}
