// Package models - organization.go defines the Organization model representing a tenant
// that owns a set of monitored services and the profiles of its members.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant owning profiles and services
type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrgID     string    `json:"org_id" db:"org_id"` // Human-readable generated identifier (e.g. "acme-x7k2p9")
	Name      string    `json:"name" db:"name"`     // Display name as entered by the creator
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
