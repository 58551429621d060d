package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a project within an organization. Events in the analytical store
// are keyed by team id. AppURLs is the allow-list the toolbar may attach to.
type Team struct {
	ID             int64     `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	AppURLs        []string  `json:"app_urls"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
