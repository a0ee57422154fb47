// service_repository.go implements ServiceRepository, providing database queries for
// the org-scoped service list and service registration.
package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mayukh2077/swift-org/internal/db/models"
)

// ServiceRepository handles database operations for services
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository creates a new service repository
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// Create inserts a new service scoped to an organization and user
func (r *ServiceRepository) Create(ctx context.Context, svc *models.Service) error {
	query := `
		INSERT INTO services (service_id, organization_id, user_id, name, metric_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		svc.ServiceID,
		svc.OrganizationID,
		svc.UserID,
		svc.Name,
		svc.MetricURL,
	).Scan(
		&svc.ID,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	return nil
}

// ListByOrganization retrieves all services for an organization, newest first
func (r *ServiceRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Service, error) {
	query := `
		SELECT id, service_id, organization_id, user_id, name, metric_url, created_at, updated_at
		FROM services
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	services := make([]*models.Service, 0)
	if err := r.db.SelectContext(ctx, &services, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	return services, nil
}

// CountByOrganization returns the number of services registered for an organization
func (r *ServiceRepository) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM services WHERE organization_id = $1`
	if err := r.db.GetContext(ctx, &count, query, orgID); err != nil {
		return 0, fmt.Errorf("failed to count services: %w", err)
	}

	return count, nil
}
