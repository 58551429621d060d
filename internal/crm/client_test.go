package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpdateAccountsPartialSuccess(t *testing.T) {
	var gotAuth string
	var gotRecords []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/accounts/bulk_update", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRecords))

		json.NewEncoder(w).Encode([]UpdateResult{
			{ID: "a1", Success: true},
			{ID: "a2", Success: false, Errors: []string{"FIELD_INTEGRITY_EXCEPTION"}},
			{ID: "a3", Success: true},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token", 5*time.Second, nil)
	results, err := client.BulkUpdateAccounts(context.Background(), []map[string]interface{}{
		{"Id": "a1"}, {"Id": "a2"}, {"Id": "a3"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Len(t, gotRecords, 3)
	assert.Equal(t, 2, CountSuccesses(results))
	assert.False(t, results[1].Success)
	assert.Equal(t, []string{"FIELD_INTEGRITY_EXCEPTION"}, results[1].Errors)
}

func TestBulkUpdateAccountsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "t", 5*time.Second, nil)
	_, err := client.BulkUpdateAccounts(context.Background(), []map[string]interface{}{{"Id": "a1"}})
	assert.Error(t, err)
}

func TestBulkUpdateAccountsEmptyInputSkipsCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "t", 5*time.Second, nil)
	results, err := client.BulkUpdateAccounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestListAccountMappingsFiltersUnmapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/accounts", r.URL.Path)
		require.Equal(t, "external_org_id", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"records": []map[string]string{
				{"id": "a1", "external_org_id": "org-1"},
				{"id": "a2", "external_org_id": ""},
				{"id": "a3", "external_org_id": "org-3"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "t", 5*time.Second, nil)
	mappings, err := client.ListAccountMappings(context.Background())
	require.NoError(t, err)

	require.Len(t, mappings, 2)
	assert.Equal(t, AccountMapping{AccountID: "a1", OrgID: "org-1"}, mappings[0])
	assert.Equal(t, AccountMapping{AccountID: "a3", OrgID: "org-3"}, mappings[1])
}

func TestCountSuccesses(t *testing.T) {
	assert.Equal(t, 0, CountSuccesses(nil))
	assert.Equal(t, 1, CountSuccesses([]UpdateResult{
		{Success: true}, {Success: false},
	}))
}
