// organization_repository.go implements OrganizationRepository, providing database
// queries for organization creation, the compensating delete used when a profile
// insert fails mid-signup, and the sweep and count queries used by the background
// sweeper.
package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mayukh2077/swift-org/internal/db/models"
)

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts a new organization. The caller supplies Name and OrgID; the
// database fills in the row id and timestamps, which are written back to org.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (org_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, org.OrgID, org.Name).Scan(
		&org.ID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// Delete removes an organization. Used as the compensating step when the
// profile insert fails after the organization row was already created.
func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM organizations WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	return nil
}

// DeleteOrphans removes organizations with no profile rows, returning how many
// were deleted. Safety net for compensating deletes that themselves failed.
// Rows younger than an hour are left alone: a signup in flight between its
// organization insert and profile insert has no profile row yet, and sweeping
// it would make the profile insert fail on the foreign key.
func (r *OrganizationRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM organizations o
		WHERE NOT EXISTS (SELECT 1 FROM profiles p WHERE p.organization_id = o.id)
		AND o.created_at < NOW() - INTERVAL '1 hour'
	`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan organizations: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted organizations: %w", err)
	}

	return n, nil
}

// Count returns the total number of organizations. The background sweeper
// samples it after each sweep to feed the organizations_total gauge.
func (r *OrganizationRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM organizations`
	err := r.db.GetContext(ctx, &count, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}

	return count, nil
}
