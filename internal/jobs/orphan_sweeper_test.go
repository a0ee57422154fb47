package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mayukh2077/swift-org/internal/db/repositories"
	"github.com/mayukh2077/swift-org/internal/telemetry"
)

func newSweeper(t *testing.T, intervalMinutes int) (*OrphanSweeper, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := repositories.NewOrganizationRepository(sqlx.NewDb(db, "postgres"))
	return NewOrphanSweeper(repo, intervalMinutes), mock
}

func TestNewOrphanSweeper_DefaultInterval(t *testing.T) {
	s, _ := newSweeper(t, 0)
	if s.interval != time.Hour {
		t.Errorf("interval = %v, want 1h for non-positive input", s.interval)
	}

	s2, _ := newSweeper(t, 15)
	if s2.interval != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", s2.interval)
	}
}

func TestOrphanSweeper_RunSweep_DeletesOrphans(t *testing.T) {
	s, mock := newSweeper(t, 60)

	mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	s.runSweep(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrphanSweeper_RunSweep_NothingToDelete(t *testing.T) {
	s, mock := newSweeper(t, 60)

	mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	s.runSweep(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrphanSweeper_RunSweep_UpdatesOrganizationGauge(t *testing.T) {
	s, mock := newSweeper(t, 60)

	mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	s.runSweep(context.Background())

	if got := testutil.ToFloat64(telemetry.OrganizationsTotal); got != 42 {
		t.Errorf("organizations gauge = %.0f, want 42", got)
	}
	telemetry.OrganizationsTotal.Set(0)
}

func TestOrphanSweeper_RunSweep_CountFailureIsNonFatal(t *testing.T) {
	s, mock := newSweeper(t, 60)

	mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnError(context.DeadlineExceeded)

	// Must not panic; the gauge simply keeps its previous reading.
	s.runSweep(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrphanSweeper_RunSweep_DBErrorDoesNotPanic(t *testing.T) {
	s, mock := newSweeper(t, 60)

	mock.ExpectExec("DELETE FROM organizations").
		WillReturnError(context.DeadlineExceeded)

	s.runSweep(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrphanSweeper_RunSweep_NilRepo(t *testing.T) {
	s := NewOrphanSweeper(nil, 60)
	// Must not panic.
	s.runSweep(context.Background())
}

func TestOrphanSweeper_StartStop(t *testing.T) {
	s, mock := newSweeper(t, 60)

	// The initial sweep fires immediately on Start.
	mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOrphanSweeper_StartRespectsContextCancel(t *testing.T) {
	s, mock := newSweeper(t, 60)

	mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT.*FROM organizations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancel")
	}
}
