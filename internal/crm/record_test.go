package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/backend/internal/signals"
)

func TestBuildUpdateRecordOmitsNilFields(t *testing.T) {
	record := BuildUpdateRecord("acct_1", signals.UsageSignals{
		ProductsActivated7d:  []string{},
		ProductsActivated30d: []string{},
	})

	assert.Equal(t, "acct_1", record[FieldAccountID])
	assert.Equal(t, 0, record[FieldActiveUsers7d])
	assert.Equal(t, 0, record[FieldSessions30d])
	assert.Equal(t, "", record[FieldProducts7d])
	assert.Equal(t, "", record[FieldProducts30d])

	for _, field := range []string{
		FieldEventsPerSession7d, FieldInsightsPerUser7d, FieldDashboardsPerUser7d,
		FieldEventsPerSession30d, FieldInsightsPerUser30d, FieldDashboardsPerUser30d,
		FieldActiveUsers7dMomentum, FieldSessions7dMomentum, FieldEPS7dMomentum,
		FieldActiveUsers30dMomentum, FieldSessions30dMomentum, FieldEPS30dMomentum,
		FieldLastLoginDays,
	} {
		_, present := record[field]
		assert.False(t, present, "field %s should be omitted when nil", field)
	}
}

func TestBuildUpdateRecordPopulatedFields(t *testing.T) {
	eps := 12.5
	momentum := -20.0
	days := 2
	record := BuildUpdateRecord("acct_2", signals.UsageSignals{
		ActiveUsers7d:              8,
		Sessions7d:                 40,
		EventsPerSession7d:         &eps,
		ProductsActivated7d:        []string{"recordings", "feature_flags", "analytics"},
		ProductsActivated30d:       []string{},
		Sessions7dMomentum:         &momentum,
		EventsPerSession7dMomentum: &momentum,
		DaysSinceLastLogin:         &days,
	})

	assert.Equal(t, "acct_2", record[FieldAccountID])
	assert.Equal(t, 8, record[FieldActiveUsers7d])
	assert.Equal(t, 40, record[FieldSessions7d])
	assert.Equal(t, 12.5, record[FieldEventsPerSession7d])
	assert.Equal(t, "analytics,feature_flags,recordings", record[FieldProducts7d])
	assert.Equal(t, -20.0, record[FieldSessions7dMomentum])
	assert.Equal(t, -20.0, record[FieldEPS7dMomentum])
	assert.Equal(t, 2, record[FieldLastLoginDays])
}

func TestSerializeProducts(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty", []string{}, ""},
		{"nil", nil, ""},
		{"single", []string{"surveys"}, "surveys"},
		{"sorted", []string{"surveys", "ai", "recordings"}, "ai,recordings,surveys"},
		{"deduplicated", []string{"ai", "surveys", "ai"}, "ai,surveys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SerializeProducts(tt.in))
		})
	}
}

func TestSerializeProductsDoesNotMutateInput(t *testing.T) {
	in := []string{"surveys", "ai"}
	_ = SerializeProducts(in)
	require.Equal(t, []string{"surveys", "ai"}, in)
}
