// profile_repository.go implements ProfileRepository. A profile is the one-per-user
// row tying an identity provider subject to its organization; its absence drives the
// dashboard's redirect to the organization-creation screen.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mayukh2077/swift-org/internal/db/models"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile for the given user and organization
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, organization_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, profile.UserID, profile.Email, profile.OrganizationID).Scan(
		&profile.ID,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves a profile by the identity provider subject
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT id, user_id, email, organization_id, created_at, updated_at, last_seen_at
		FROM profiles
		WHERE user_id = $1
	`

	profile := &models.Profile{}
	err := r.db.GetContext(ctx, profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// GetWithOrganization retrieves a profile joined with its organization.
// This is the single query behind the dashboard's initial load.
func (r *ProfileRepository) GetWithOrganization(ctx context.Context, userID string) (*models.ProfileWithOrganization, error) {
	query := `
		SELECT p.id, p.user_id, p.email, p.organization_id, p.created_at, p.updated_at, p.last_seen_at,
		       o.org_id AS org_org_id, o.name AS org_name
		FROM profiles p
		INNER JOIN organizations o ON p.organization_id = o.id
		WHERE p.user_id = $1
	`

	profile := &models.ProfileWithOrganization{}
	err := r.db.GetContext(ctx, profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get profile with organization: %w", err)
	}

	return profile, nil
}

// TouchLastSeen updates the profile's last_seen_at timestamp. Best-effort;
// called fire-and-forget from the auth middleware.
func (r *ProfileRepository) TouchLastSeen(ctx context.Context, userID string) error {
	query := `UPDATE profiles SET last_seen_at = NOW() WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to touch profile last_seen_at: %w", err)
	}

	return nil
}
