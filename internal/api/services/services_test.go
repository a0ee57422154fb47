package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mayukh2077/swift-org/internal/db/repositories"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Column definitions and row builders
// ---------------------------------------------------------------------------

var profileCols = []string{"id", "user_id", "email", "organization_id", "created_at", "updated_at", "last_seen_at"}

var serviceCols = []string{"id", "service_id", "organization_id", "user_id", "name", "metric_url", "created_at", "updated_at"}

var insertReturningCols = []string{"id", "created_at", "updated_at"}

var testOrgID = uuid.New()

func sampleProfileRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(profileCols).
		AddRow(uuid.New(), "oidc|user-1", "user@example.com", testOrgID, now, now, nil)
}

func emptyProfileRows() *sqlmock.Rows {
	return sqlmock.NewRows(profileCols)
}

func sampleServiceRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(serviceCols).
		AddRow(uuid.New(), "checkout-abcd12", testOrgID, "oidc|user-1", "Checkout", "https://checkout.example.com/metrics", now, now).
		AddRow(uuid.New(), "billing-efgh34", testOrgID, "oidc|user-1", "Billing", "https://billing.example.com/metrics", now.Add(-time.Hour), now.Add(-time.Hour))
}

func emptyServiceRows() *sqlmock.Rows {
	return sqlmock.NewRows(serviceCols)
}

func insertReturningRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(insertReturningCols).AddRow(uuid.New(), now, now)
}

// ---------------------------------------------------------------------------
// Router helper
// ---------------------------------------------------------------------------

func newServiceRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	h := NewServiceHandlers(
		repositories.NewServiceRepository(sqlxDB),
		repositories.NewProfileRepository(sqlxDB),
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "oidc|user-1")
		c.Set("email", "user@example.com")
		c.Next()
	})
	r.GET("/services", h.ListServicesHandler())
	r.POST("/services", h.CreateServiceHandler())
	return mock, r
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

// errDB is a sentinel error for DB failures in tests.
var errDB = &dbError{"database error"}

type dbError struct{ msg string }

func (e *dbError) Error() string { return e.msg }

// ---------------------------------------------------------------------------
// ListServicesHandler tests
// ---------------------------------------------------------------------------

func TestListServices_NoProfile(t *testing.T) {
	mock, r := newServiceRouter(t)

	mock.ExpectQuery("SELECT.*FROM profiles.*WHERE user_id").
		WillReturnRows(emptyProfileRows())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/services", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	resp := getJSON(w)
	if resp["code"] != "profile_not_found" {
		t.Errorf("code = %v, want profile_not_found", resp["code"])
	}
}

func TestListServices_Success(t *testing.T) {
	mock, r := newServiceRouter(t)

	mock.ExpectQuery("SELECT.*FROM profiles.*WHERE user_id").
		WillReturnRows(sampleProfileRow())
	mock.ExpectQuery("SELECT.*FROM services.*ORDER BY created_at DESC").
		WithArgs(testOrgID).
		WillReturnRows(sampleServiceRows())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/services", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	services, _ := resp["services"].([]interface{})
	if len(services) != 2 {
		t.Errorf("len(services) = %d, want 2", len(services))
	}
}

func TestListServices_EmptyListNotNull(t *testing.T) {
	mock, r := newServiceRouter(t)

	mock.ExpectQuery("SELECT.*FROM profiles.*WHERE user_id").
		WillReturnRows(sampleProfileRow())
	mock.ExpectQuery("SELECT.*FROM services.*ORDER BY created_at DESC").
		WillReturnRows(emptyServiceRows())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/services", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// A fresh organization must see [] rather than null.
	if !strings.Contains(w.Body.String(), `"services":[]`) {
		t.Errorf("body = %s, want empty services array", w.Body.String())
	}
}

func TestListServices_DBError(t *testing.T) {
	mock, r := newServiceRouter(t)

	mock.ExpectQuery("SELECT.*FROM profiles.*WHERE user_id").
		WillReturnRows(sampleProfileRow())
	mock.ExpectQuery("SELECT.*FROM services.*ORDER BY created_at DESC").
		WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/services", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// CreateServiceHandler tests
// ---------------------------------------------------------------------------

func TestCreateService_EmptyName(t *testing.T) {
	_, r := newServiceRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/services",
		jsonBody(map[string]string{"name": "  ", "metric_url": "https://x.example.com/metrics"})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateService_BadMetricURL(t *testing.T) {
	_, r := newServiceRouter(t)

	cases := []string{
		"",
		"not-a-url",
		"ftp://example.com/metrics",
		"https://",
		"//missing-scheme.example.com",
	}
	for _, raw := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/services",
			jsonBody(map[string]string{"name": "Checkout", "metric_url": raw})))

		if w.Code != http.StatusBadRequest {
			t.Errorf("metric_url %q: status = %d, want 400", raw, w.Code)
		}
	}
}

func TestCreateService_NoProfile(t *testing.T) {
	mock, r := newServiceRouter(t)

	mock.ExpectQuery("SELECT.*FROM profiles.*WHERE user_id").
		WillReturnRows(emptyProfileRows())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/services",
		jsonBody(map[string]string{"name": "Checkout", "metric_url": "https://checkout.example.com/metrics"})))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	resp := getJSON(w)
	if resp["code"] != "profile_not_found" {
		t.Errorf("code = %v, want profile_not_found", resp["code"])
	}
}

func TestCreateService_Success(t *testing.T) {
	mock, r := newServiceRouter(t)

	mock.ExpectQuery("SELECT.*FROM profiles.*WHERE user_id").
		WillReturnRows(sampleProfileRow())
	mock.ExpectQuery("INSERT INTO services").
		WithArgs(sqlmock.AnyArg(), testOrgID, "oidc|user-1", "Checkout", "https://checkout.example.com/metrics").
		WillReturnRows(insertReturningRow())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/services",
		jsonBody(map[string]string{"name": "Checkout", "metric_url": "https://checkout.example.com/metrics"})))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	svc, _ := resp["service"].(map[string]interface{})
	if svc == nil {
		t.Fatal("response missing 'service' key")
	}
	serviceID, _ := svc["service_id"].(string)
	if !strings.HasPrefix(serviceID, "checkout-") {
		t.Errorf("service_id = %q, want checkout-<suffix>", serviceID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestValidMetricURL(t *testing.T) {
	cases := []struct {
		raw   string
		valid bool
	}{
		{"https://checkout.example.com/metrics", true},
		{"http://10.0.0.5:9100/metrics", true},
		{"https://example.com", true},
		{"", false},
		{"not-a-url", false},
		{"ftp://example.com/metrics", false},
		{"https://", false},
		{"javascript:alert(1)", false},
	}
	for _, tc := range cases {
		if got := validMetricURL(tc.raw); got != tc.valid {
			t.Errorf("validMetricURL(%q) = %v, want %v", tc.raw, got, tc.valid)
		}
	}
}

func TestCreateService_InsertFails(t *testing.T) {
	mock, r := newServiceRouter(t)

	mock.ExpectQuery("SELECT.*FROM profiles.*WHERE user_id").
		WillReturnRows(sampleProfileRow())
	mock.ExpectQuery("INSERT INTO services").
		WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/services",
		jsonBody(map[string]string{"name": "Checkout", "metric_url": "https://checkout.example.com/metrics"})))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
