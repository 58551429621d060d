package signals

// TeamUsageSignals holds per-team counters for one time window, as returned
// by the event-store aggregation query. Teams with no events in the window
// have no record; callers treat missing as all-zero.
type TeamUsageSignals struct {
	TeamID            int64 `json:"team_id"`
	ActivePersons     int   `json:"active_persons"`
	ActiveDistinctIDs int   `json:"active_distinct_ids"`
	SessionCount      int   `json:"session_count"`
	TotalEvents       int   `json:"total_events"`
	HasFeatureFlags   bool  `json:"has_feature_flags"`
	HasSurveys        bool  `json:"has_surveys"`
	HasErrorTracking  bool  `json:"has_error_tracking"`
	HasAI             bool  `json:"has_ai"`
}

// OrgAggregatedSignals is the organization-level rollup of team signals for
// one window. EventsPerSession is nil when the org had zero sessions.
type OrgAggregatedSignals struct {
	ActiveUsers       int      `json:"active_users"`
	Sessions          int      `json:"sessions"`
	TotalEvents       int      `json:"total_events"`
	EventsPerSession  *float64 `json:"events_per_session"`
	ProductsActivated []string `json:"products_activated"`
}

// UsageSignals is the complete per-organization report across the 7-day and
// 30-day windows. All momentum and ratio fields are nil when undefined.
type UsageSignals struct {
	// 7-day metrics (current period)
	ActiveUsers7d       int      `json:"active_users_7d"`
	Sessions7d          int      `json:"sessions_7d"`
	EventsPerSession7d  *float64 `json:"events_per_session_7d"`
	InsightsPerUser7d   *float64 `json:"insights_per_user_7d"`
	DashboardsPerUser7d *float64 `json:"dashboards_per_user_7d"`
	ProductsActivated7d []string `json:"products_activated_7d"`

	// 30-day metrics (current period)
	ActiveUsers30d       int      `json:"active_users_30d"`
	Sessions30d          int      `json:"sessions_30d"`
	EventsPerSession30d  *float64 `json:"events_per_session_30d"`
	InsightsPerUser30d   *float64 `json:"insights_per_user_30d"`
	DashboardsPerUser30d *float64 `json:"dashboards_per_user_30d"`
	ProductsActivated30d []string `json:"products_activated_30d"`

	// 7-day momentum (percentage change vs previous 7 days)
	ActiveUsers7dMomentum      *float64 `json:"active_users_7d_momentum"`
	Sessions7dMomentum         *float64 `json:"sessions_7d_momentum"`
	EventsPerSession7dMomentum *float64 `json:"events_per_session_7d_momentum"`

	// 30-day momentum (percentage change vs previous 30 days)
	ActiveUsers30dMomentum      *float64 `json:"active_users_30d_momentum"`
	Sessions30dMomentum         *float64 `json:"sessions_30d_momentum"`
	EventsPerSession30dMomentum *float64 `json:"events_per_session_30d_momentum"`

	// Current state, not window-based
	DaysSinceLastLogin *int `json:"days_since_last_login"`
}
