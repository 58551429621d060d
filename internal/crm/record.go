package crm

import (
	"sort"
	"strings"

	"github.com/pulsedeck/backend/internal/signals"
)

// Account field vocabulary for the bulk update. The CRM schema is fixed;
// renaming a field here requires the matching change on the CRM side.
const (
	FieldAccountID = "Id"

	FieldActiveUsers7d        = "pulse_active_users_7d__c"
	FieldSessions7d           = "pulse_sessions_7d__c"
	FieldEventsPerSession7d   = "pulse_events_per_session_7d__c"
	FieldInsightsPerUser7d    = "pulse_insights_per_user_7d__c"
	FieldDashboardsPerUser7d  = "pulse_dashboards_per_user_7d__c"
	FieldProducts7d           = "pulse_products_7d__c"
	FieldActiveUsers30d       = "pulse_active_users_30d__c"
	FieldSessions30d          = "pulse_sessions_30d__c"
	FieldEventsPerSession30d  = "pulse_events_per_session_30d__c"
	FieldInsightsPerUser30d   = "pulse_insights_per_user_30d__c"
	FieldDashboardsPerUser30d = "pulse_dashboards_per_user_30d__c"
	FieldProducts30d          = "pulse_products_30d__c"

	FieldActiveUsers7dMomentum  = "pulse_active_users_7d_momentum__c"
	FieldSessions7dMomentum     = "pulse_sessions_7d_momentum__c"
	FieldEPS7dMomentum          = "pulse_eps_7d_momentum__c"
	FieldActiveUsers30dMomentum = "pulse_active_users_30d_momentum__c"
	FieldSessions30dMomentum    = "pulse_sessions_30d_momentum__c"
	FieldEPS30dMomentum         = "pulse_eps_30d_momentum__c"

	FieldLastLoginDays = "pulse_last_login_days__c"
)

// BuildUpdateRecord translates a UsageSignals report into a flat CRM field
// map. The account id is always present; nullable fields are omitted when
// nil, never written as null. Product lists are always written, serialized
// as a sorted, deduplicated, comma-joined string ("" when empty).
func BuildUpdateRecord(accountID string, s signals.UsageSignals) map[string]interface{} {
	record := map[string]interface{}{
		FieldAccountID: accountID,

		FieldActiveUsers7d:  s.ActiveUsers7d,
		FieldSessions7d:     s.Sessions7d,
		FieldActiveUsers30d: s.ActiveUsers30d,
		FieldSessions30d:    s.Sessions30d,

		FieldProducts7d:  SerializeProducts(s.ProductsActivated7d),
		FieldProducts30d: SerializeProducts(s.ProductsActivated30d),
	}

	putFloat(record, FieldEventsPerSession7d, s.EventsPerSession7d)
	putFloat(record, FieldInsightsPerUser7d, s.InsightsPerUser7d)
	putFloat(record, FieldDashboardsPerUser7d, s.DashboardsPerUser7d)
	putFloat(record, FieldEventsPerSession30d, s.EventsPerSession30d)
	putFloat(record, FieldInsightsPerUser30d, s.InsightsPerUser30d)
	putFloat(record, FieldDashboardsPerUser30d, s.DashboardsPerUser30d)

	putFloat(record, FieldActiveUsers7dMomentum, s.ActiveUsers7dMomentum)
	putFloat(record, FieldSessions7dMomentum, s.Sessions7dMomentum)
	putFloat(record, FieldEPS7dMomentum, s.EventsPerSession7dMomentum)
	putFloat(record, FieldActiveUsers30dMomentum, s.ActiveUsers30dMomentum)
	putFloat(record, FieldSessions30dMomentum, s.Sessions30dMomentum)
	putFloat(record, FieldEPS30dMomentum, s.EventsPerSession30dMomentum)

	if s.DaysSinceLastLogin != nil {
		record[FieldLastLoginDays] = *s.DaysSinceLastLogin
	}
	return record
}

// SerializeProducts produces the deterministic CRM representation of a
// product list: unique entries, lexicographically sorted, comma-joined.
func SerializeProducts(products []string) string {
	if len(products) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(products))
	unique := make([]string, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	sort.Strings(unique)
	return strings.Join(unique, ",")
}

func putFloat(record map[string]interface{}, field string, v *float64) {
	if v != nil {
		record[field] = *v
	}
}
