package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership levels within an organization.
const (
	MembershipMember = "member"
	MembershipAdmin  = "admin"
	MembershipOwner  = "owner"
)

// Organization is the top-level account entity; teams belong to it.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrganizationMembership links a user to an organization.
type OrganizationMembership struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Level          string    `json:"level"`
	CreatedAt      time.Time `json:"created_at"`
}
