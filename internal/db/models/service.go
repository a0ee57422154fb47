// Package models - service.go defines the Service model: a monitored endpoint
// registered on an organization's dashboard. The metric URL is stored as an opaque
// string and is never fetched by this backend.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Service represents a registered service with its metric endpoint
type Service struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ServiceID      string    `json:"service_id" db:"service_id"` // Human-readable generated identifier
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	UserID         string    `json:"user_id" db:"user_id"` // Subject of the user who registered it
	Name           string    `json:"name" db:"name"`
	MetricURL      string    `json:"metric_url" db:"metric_url"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
