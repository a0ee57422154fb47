package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mayukh2077/swift-org/internal/db/models"
)

var errDB = errors.New("db error")

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var orgCreateCols = []string{"id", "created_at", "updated_at"}

var orgRowID = uuid.New()

func newOrgRepo(t *testing.T) (*OrganizationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewOrganizationRepository(sqlx.NewDb(db, "postgres")), mock
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateOrganization_Success(t *testing.T) {
	repo, mock := newOrgRepo(t)
	newID := uuid.New()
	mock.ExpectQuery("INSERT INTO organizations").
		WithArgs("acme-x7k2p9", "Acme").
		WillReturnRows(sqlmock.NewRows(orgCreateCols).AddRow(newID, time.Now(), time.Now()))

	org := &models.Organization{OrgID: "acme-x7k2p9", Name: "Acme"}
	if err := repo.Create(context.Background(), org); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org.ID != newID {
		t.Errorf("ID = %s, want %s", org.ID, newID)
	}
	if org.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestCreateOrganization_DBError(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectQuery("INSERT INTO organizations").
		WillReturnError(errDB)

	org := &models.Organization{OrgID: "acme-x7k2p9", Name: "Acme"}
	if err := repo.Create(context.Background(), org); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// Delete / DeleteOrphans / Count
// ---------------------------------------------------------------------------

func TestDeleteOrganization_Success(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectExec("DELETE FROM organizations").
		WithArgs(orgRowID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), orgRowID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteOrphans_Success(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteOrphans(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}

func TestDeleteOrphans_SparesRecentRows(t *testing.T) {
	repo, mock := newOrgRepo(t)
	// The grace window keeps the sweeper off organizations whose signup may
	// still be between the organization insert and the profile insert.
	mock.ExpectExec(`DELETE FROM organizations o WHERE NOT EXISTS.*AND o\.created_at < NOW\(\) - INTERVAL '1 hour'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := repo.DeleteOrphans(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteOrphans_DBError(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectExec("DELETE FROM organizations").
		WillReturnError(errDB)

	if _, err := repo.DeleteOrphans(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestCountOrgs_Success(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestCountOrgs_DBError(t *testing.T) {
	repo, mock := newOrgRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnError(errDB)

	if _, err := repo.Count(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}
