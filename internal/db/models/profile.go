// Package models - profile.go defines the Profile model linking an authenticated user
// to exactly one organization. The absence of a profile is the signal that the user
// still has to create an organization.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile represents a user's membership record. One row per user.
type Profile struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"` // Identity provider subject
	Email          string     `json:"email" db:"email"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
}

// ProfileWithOrganization is a profile joined with its organization row,
// returned by the dashboard profile load.
type ProfileWithOrganization struct {
	Profile
	OrgID   string `json:"-" db:"org_org_id"`
	OrgName string `json:"-" db:"org_name"`
}

// Organization reconstructs the joined organization as a model value for responses.
func (p *ProfileWithOrganization) Organization() Organization {
	return Organization{
		ID:    p.OrganizationID,
		OrgID: p.OrgID,
		Name:  p.OrgName,
	}
}
