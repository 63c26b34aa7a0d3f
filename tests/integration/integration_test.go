package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
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
	"github.com/matrihub/matrihub-go/internal/infra/payment"
	"github.com/matrihub/matrihub-go/internal/infra/resilience"
	"github.com/matrihub/matrihub-go/internal/service"
)

const adminKey = "integration-admin-key"

// newPaymentMock emulates the provider's payment-intents API. Amounts are in
// minor units and every created intent immediately reports succeeded.
func newPaymentMock(t *testing.T) *httptest.Server {
	t.Helper()

	intents := make(map[string]map[string]any)
	var seq int

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/payment_intents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		amount, err := strconv.ParseInt(r.PostFormValue("amount"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		seq++
		id := fmt.Sprintf("pi_mock_%d", seq)
		intent := map[string]any{
			"id":            id,
			"client_secret": id + "_secret",
			"amount":        amount,
			"currency":      r.PostFormValue("currency"),
			"status":        "succeeded",
		}
		intents[id] = intent
		json.NewEncoder(w).Encode(intent)
	})
	mux.HandleFunc("/v1/payment_intents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		intent, ok := intents[strings.TrimPrefix(r.URL.Path, "/v1/payment_intents/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(intent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	paymentMock := newPaymentMock(t)

	resilienceCfg := resilience.Config{
		MaxRetries:     1,
		InitialBackoff: 10 * time.Millisecond,
		MaxConcurrency: 10,
	}
	gateway := payment.NewClient(
		paymentMock.Client(),
		paymentMock.URL,
		"sk_test_mock",
		"usd",
		resilience.NewCircuitBreaker("payment"),
		resilienceCfg,
	)

	svc := service.NewDirectory(
		memory.New(logger),
		gateway,
		cache.New[[]domain.Profile](time.Minute),
		observability.NewMetrics(),
		logger,
		6,
		200,
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	srv := httptest.NewServer(handler.NewRouter(svc, observability.NewMetrics(), logger, "", string(hash)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body string, headers map[string]string, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createProfile(t *testing.T, baseURL, name, email string, age int) domain.Profile {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"sex":"female","age":%d,"email":%q,"mobile":"555-0100"}`, name, age, email)
	var p domain.Profile
	if code := doJSON(t, http.MethodPost, baseURL+"/v1/profiles", body, nil, &p); code != http.StatusCreated {
		t.Fatalf("create profile %s: expected 201, got %d", email, code)
	}
	return p
}

func TestContactDisclosureFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := map[string]string{"X-Admin-Key": adminKey}

	target := createProfile(t, srv.URL, "Amina", "amina@example.com", 26)
	profilePath := srv.URL + "/v1/profiles/" + strconv.FormatInt(target.ProfileID, 10)

	// A fresh viewer gets the stripped view.
	var disclosed domain.DisclosedProfile
	viewer := map[string]string{"X-Viewer-Email": "rashid@example.com"}
	if code := doJSON(t, http.MethodGet, profilePath, "", viewer, &disclosed); code != http.StatusOK {
		t.Fatalf("get profile: got %d", code)
	}
	if disclosed.CanSeeContact || disclosed.Profile.Email != "" {
		t.Fatalf("expected stripped contact before approval, got %+v", disclosed)
	}

	// Open a charge through the mock provider.
	var intent struct {
		ClientSecret    string `json:"client_secret"`
		PaymentIntentID string `json:"payment_intent_id"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/payments/intent", `{"amount":5}`, nil, &intent)
	if code != http.StatusOK {
		t.Fatalf("create charge intent: got %d", code)
	}
	if intent.ClientSecret == "" || intent.PaymentIntentID == "" {
		t.Fatalf("unexpected intent %+v", intent)
	}

	// File the contact request referencing the verified charge.
	body := fmt.Sprintf(`{"profile_id":"%d","requester_email":"rashid@example.com","amount":5,"payment_intent_id":%q}`,
		target.ProfileID, intent.PaymentIntentID)
	var contactReq domain.ContactRequest
	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/contact-requests", body, nil, &contactReq); code != http.StatusCreated {
		t.Fatalf("create contact request: got %d", code)
	}
	if contactReq.Status != domain.RequestPending || contactReq.Amount != 5 {
		t.Fatalf("unexpected request %+v", contactReq)
	}

	// A forged amount must be rejected.
	forged := fmt.Sprintf(`{"profile_id":"%d","requester_email":"mallory@example.com","amount":999,"payment_intent_id":%q}`,
		target.ProfileID, intent.PaymentIntentID)
	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/contact-requests", forged, nil, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for amount mismatch, got %d", code)
	}

	// Admin approves; the requester gains access.
	approvePath := srv.URL + "/v1/admin/contact-requests/" + contactReq.ID + "/approve"
	var approved domain.ContactRequest
	if code := doJSON(t, http.MethodPost, approvePath, "", admin, &approved); code != http.StatusOK {
		t.Fatalf("approve request: got %d", code)
	}
	if approved.Status != domain.RequestApproved || approved.Mobile != "555-0100" {
		t.Fatalf("expected approved request with contact snapshot, got %+v", approved)
	}

	if code := doJSON(t, http.MethodGet, profilePath, "", viewer, &disclosed); code != http.StatusOK {
		t.Fatalf("get profile: got %d", code)
	}
	if !disclosed.CanSeeContact || disclosed.Profile.Mobile != "555-0100" {
		t.Fatalf("expected disclosed contact after approval, got %+v", disclosed)
	}

	// Other viewers stay locked out.
	stranger := map[string]string{"X-Viewer-Email": "stranger@example.com"}
	if code := doJSON(t, http.MethodGet, profilePath, "", stranger, &disclosed); code != http.StatusOK {
		t.Fatalf("get profile: got %d", code)
	}
	if disclosed.CanSeeContact {
		t.Fatal("expected deny for viewer without approved request")
	}

	// Removing the approved request revokes access.
	removePath := srv.URL + "/v1/admin/contact-requests/" + contactReq.ID
	if code := doJSON(t, http.MethodDelete, removePath, "", admin, nil); code != http.StatusOK {
		t.Fatalf("remove request: got %d", code)
	}
	if code := doJSON(t, http.MethodGet, profilePath, "", viewer, &disclosed); code != http.StatusOK {
		t.Fatalf("get profile: got %d", code)
	}
	if disclosed.CanSeeContact {
		t.Fatal("expected access revoked after request removal")
	}
}

func TestPremiumUpgradeFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := map[string]string{"X-Admin-Key": adminKey}

	target := createProfile(t, srv.URL, "Amina", "amina@example.com", 26)
	viewer := createProfile(t, srv.URL, "Laila", "laila@example.com", 24)

	requestPath := srv.URL + "/v1/profiles/" + strconv.FormatInt(viewer.ProfileID, 10) + "/premium-request"
	if code := doJSON(t, http.MethodPost, requestPath, "", nil, nil); code != http.StatusOK {
		t.Fatalf("premium request: got %d", code)
	}

	// Requesting twice conflicts.
	if code := doJSON(t, http.MethodPost, requestPath, "", nil, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 on repeated premium request, got %d", code)
	}

	// The pending upgrade shows up on the moderation queue.
	var pending domain.ListResponse[domain.Profile]
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/admin/premium-requests", "", admin, &pending); code != http.StatusOK {
		t.Fatalf("list premium requests: got %d", code)
	}
	if pending.Total != 1 || pending.Data[0].ProfileID != viewer.ProfileID {
		t.Fatalf("unexpected pending queue %+v", pending)
	}

	approvePath := srv.URL + "/v1/admin/premium-requests/" + strconv.FormatInt(viewer.ProfileID, 10) + "/approve"
	var promoted domain.Profile
	if code := doJSON(t, http.MethodPost, approvePath, "", admin, &promoted); code != http.StatusOK {
		t.Fatalf("approve premium: got %d", code)
	}
	if promoted.Membership != domain.MembershipPremium {
		t.Fatalf("expected premium membership, got %s", promoted.Membership)
	}

	// Membership lookup reflects the upgrade.
	var membership struct {
		Membership domain.MembershipState `json:"membership"`
		IsPremium  bool                   `json:"is_premium"`
	}
	membershipURL := srv.URL + "/v1/membership?email=laila@example.com"
	if code := doJSON(t, http.MethodGet, membershipURL, "", nil, &membership); code != http.StatusOK {
		t.Fatalf("membership: got %d", code)
	}
	if !membership.IsPremium {
		t.Fatalf("expected premium membership, got %+v", membership)
	}

	// Premium viewers see every contact without paying.
	profilePath := srv.URL + "/v1/profiles/" + strconv.FormatInt(target.ProfileID, 10)
	var disclosed domain.DisclosedProfile
	premiumViewer := map[string]string{"X-Viewer-Email": "laila@example.com"}
	if code := doJSON(t, http.MethodGet, profilePath, "", premiumViewer, &disclosed); code != http.StatusOK {
		t.Fatalf("get profile: got %d", code)
	}
	if !disclosed.CanSeeContact || disclosed.Profile.Email != "amina@example.com" {
		t.Fatalf("expected full disclosure for premium viewer, got %+v", disclosed)
	}

	// The showcase lists the new premium profile with contact stripped.
	var showcase domain.ListResponse[domain.Profile]
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/profiles/premium", "", nil, &showcase); code != http.StatusOK {
		t.Fatalf("showcase: got %d", code)
	}
	if showcase.Total != 1 || showcase.Data[0].ProfileID != viewer.ProfileID {
		t.Fatalf("unexpected showcase %+v", showcase)
	}
	if showcase.Data[0].Email != "" || showcase.Data[0].Mobile != "" {
		t.Fatal("expected stripped contact on showcase")
	}
}

func TestStatsAndRevenue(t *testing.T) {
	srv := newTestServer(t)
	admin := map[string]string{"X-Admin-Key": adminKey}

	target := createProfile(t, srv.URL, "Amina", "amina@example.com", 26)

	for i, amount := range []string{"10", "25.5"} {
		body := fmt.Sprintf(`{"profile_id":"%d","requester_email":"viewer%d@example.com","amount":%q}`,
			target.ProfileID, i, amount)
		var created domain.ContactRequest
		if code := doJSON(t, http.MethodPost, srv.URL+"/v1/contact-requests", body, nil, &created); code != http.StatusCreated {
			t.Fatalf("create request: got %d", code)
		}
		if i == 0 {
			approvePath := srv.URL + "/v1/admin/contact-requests/" + created.ID + "/approve"
			if code := doJSON(t, http.MethodPost, approvePath, "", admin, nil); code != http.StatusOK {
				t.Fatalf("approve request: got %d", code)
			}
		}
	}

	var stats domain.DirectoryStats
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/admin/stats", "", admin, &stats); code != http.StatusOK {
		t.Fatalf("stats: got %d", code)
	}
	if stats.TotalProfiles != 1 || stats.ApprovedRequests != 1 || stats.PendingRequests != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.TotalRevenue != 10 {
		t.Fatalf("expected revenue from approved requests only, got %v", stats.TotalRevenue)
	}

	var engine domain.EngineMetrics
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/admin/metrics/engine", "", admin, &engine); code != http.StatusOK {
		t.Fatalf("engine metrics: got %d", code)
	}
}

func TestFavouritesFlow(t *testing.T) {
	srv := newTestServer(t)

	target := createProfile(t, srv.URL, "Amina", "amina@example.com", 26)
	viewer := map[string]string{"X-Viewer-Email": "rashid@example.com"}

	body := fmt.Sprintf(`{"profile_id":"%d"}`, target.ProfileID)
	var fav domain.Favourite
	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/favourites", body, viewer, &fav); code != http.StatusCreated {
		t.Fatalf("add favourite: got %d", code)
	}
	if fav.Name != "Amina" {
		t.Fatalf("expected display snapshot, got %+v", fav)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/v1/favourites", body, viewer, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate favourite, got %d", code)
	}

	var list domain.ListResponse[domain.Favourite]
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/favourites", "", viewer, &list); code != http.StatusOK {
		t.Fatalf("list favourites: got %d", code)
	}
	if list.Total != 1 {
		t.Fatalf("expected 1 favourite, got %d", list.Total)
	}

	removeURL := srv.URL + "/v1/favourites/" + strconv.FormatInt(target.ProfileID, 10)
	if code := doJSON(t, http.MethodDelete, removeURL, "", viewer, nil); code != http.StatusOK {
		t.Fatalf("remove favourite: got %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/favourites", "", viewer, &list); code != http.StatusOK {
		t.Fatalf("list favourites: got %d", code)
	}
	if list.Total != 0 {
		t.Fatalf("expected empty favourites, got %d", list.Total)
	}
}
