package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/handler"
	"github.com/matrihub/matrihub-go/internal/infra/cache"
	"github.com/matrihub/matrihub-go/internal/infra/memory"
	"github.com/matrihub/matrihub-go/internal/infra/observability"
	"github.com/matrihub/matrihub-go/internal/service"
)

func newTestRouter(t *testing.T, adminKeyHash string) http.Handler {
	t.Helper()
	svc := service.NewDirectory(
		memory.New(zap.NewNop()),
		nil,
		cache.New[[]domain.Profile](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
		6,
		200,
	)
	return handler.NewRouter(svc, observability.NewMetrics(), zap.NewNop(), "", adminKeyHash)
}

func TestRoot(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body domain.SuccessResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message == "" {
		t.Error("expected a greeting message")
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAdminRoutes_RequireKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	router := newTestRouter(t, string(hash))

	// No key.
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	// Wrong key.
	req = httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", rec.Code)
	}

	// Correct key.
	req = httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
	req.Header.Set("X-Admin-Key", "let-me-in")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with correct key, got %d", rec.Code)
	}
}

func TestAdminRoutes_UnconfiguredKey(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
	req.Header.Set("X-Admin-Key", "anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when admin key is not configured, got %d", rec.Code)
	}
}

func TestProfileDisclosure_ThroughRouter(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	router := newTestRouter(t, string(hash))

	// Create a profile.
	body := `{"name":"Amina","sex":"female","age":26,"email":"amina@example.com","mobile":"555-0100"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/profiles", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create profile: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Profile
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	path := "/v1/profiles/" + strconv.FormatInt(created.ProfileID, 10)

	// Anonymous read: contact stripped.
	req = httptest.NewRequest(http.MethodGet, path, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile: expected 200, got %d", rec.Code)
	}
	var disclosed domain.DisclosedProfile
	if err := json.NewDecoder(rec.Body).Decode(&disclosed); err != nil {
		t.Fatalf("decode disclosure: %v", err)
	}
	if disclosed.CanSeeContact || disclosed.Profile.Email != "" {
		t.Errorf("expected stripped contact for anonymous viewer, got %+v", disclosed)
	}

	// File a contact request as a viewer.
	reqBody := `{"profile_id":` + strconv.FormatInt(created.ProfileID, 10) + `,"requester_email":"rashid@example.com","amount":"5"}`
	req = httptest.NewRequest(http.MethodPost, "/v1/contact-requests", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create request: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var contactReq domain.ContactRequest
	if err := json.NewDecoder(rec.Body).Decode(&contactReq); err != nil {
		t.Fatalf("decode request: %v", err)
	}

	// Admin approves it.
	req = httptest.NewRequest(http.MethodPost, "/v1/admin/contact-requests/"+contactReq.ID+"/approve", nil)
	req.Header.Set("X-Admin-Key", "let-me-in")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve request: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The requester now sees the contact.
	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Viewer-Email", "rashid@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if err := json.NewDecoder(rec.Body).Decode(&disclosed); err != nil {
		t.Fatalf("decode disclosure: %v", err)
	}
	if !disclosed.CanSeeContact || disclosed.Profile.Mobile != "555-0100" {
		t.Errorf("expected disclosed contact for approved requester, got %+v", disclosed)
	}

	// A stranger still gets the stripped view.
	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Viewer-Email", "stranger@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if err := json.NewDecoder(rec.Body).Decode(&disclosed); err != nil {
		t.Fatalf("decode disclosure: %v", err)
	}
	if disclosed.CanSeeContact {
		t.Error("expected deny for a viewer without an approved request")
	}
}

func TestGetProfile_BadID(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-integer id, got %d", rec.Code)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	router := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/profiles/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
