package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// UpdateResult is one record's outcome within a bulk update response.
type UpdateResult struct {
	ID      string   `json:"id"`
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// AccountMapping links a CRM account to the organization it tracks.
// Accounts without an organization id are filtered out by ListAccountMappings.
type AccountMapping struct {
	AccountID string `json:"id"`
	OrgID     string `json:"external_org_id"`
}

// Client talks to the external CRM's REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a CRM client.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// BulkUpdateAccounts sends one batched account update and returns the
// per-record results. Partial per-record failure does not fail the call;
// callers inspect each result independently.
func (c *Client) BulkUpdateAccounts(ctx context.Context, records []map[string]interface{}) ([]UpdateResult, error) {
	if len(records) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/accounts/bulk_update", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk update: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bulk update status: %d", resp.StatusCode)
	}

	var results []UpdateResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	return results, nil
}

// CountSuccesses counts records the CRM accepted.
func CountSuccesses(results []UpdateResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

// ListAccountMappings fetches every account carrying an organization id.
func (c *Client) ListAccountMappings(ctx context.Context) ([]AccountMapping, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/accounts?fields=external_org_id", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list accounts status: %d", resp.StatusCode)
	}

	var payload struct {
		Records []AccountMapping `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode accounts response: %w", err)
	}

	mappings := make([]AccountMapping, 0, len(payload.Records))
	for _, m := range payload.Records {
		if m.OrgID == "" {
			continue
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}
