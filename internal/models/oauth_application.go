package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OAuthApplication is the per-organization client registration used by the
// toolbar authorization flow. RedirectURIs is space-separated, one entry per
// deployment base URL the organization has started the flow from.
type OAuthApplication struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	ClientID       string    `json:"client_id"`
	ClientSecret   string    `json:"-"`
	RedirectURIs   string    `json:"redirect_uris"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RedirectURIList splits RedirectURIs into its non-empty entries.
func (a *OAuthApplication) RedirectURIList() []string {
	var out []string
	for _, u := range strings.Fields(a.RedirectURIs) {
		out = append(out, u)
	}
	return out
}

// HasRedirectURI reports whether uri is already registered.
func (a *OAuthApplication) HasRedirectURI(uri string) bool {
	for _, u := range a.RedirectURIList() {
		if u == uri {
			return true
		}
	}
	return false
}
