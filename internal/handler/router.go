package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/infra/observability"
	"github.com/matrihub/matrihub-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the matrimony frontend.
func NewRouter(svc *service.Directory, metrics *observability.Metrics, logger *zap.Logger, jwtSecret, adminKeyHash string) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Admin-Key", "X-Viewer-Email"},
		MaxAge:         300,
	}))
	r.Use(ViewerIdentity(jwtSecret, logger))

	// --- Operational endpoints ---
	r.Get("/", rootHandler())
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Profiles & visibility
		// =============================================
		r.Post("/profiles", createProfileHandler(svc, logger))
		r.Get("/profiles", listProfilesHandler(svc, logger))
		r.Get("/profiles/premium", premiumShowcaseHandler(svc, logger))
		r.Get("/profiles/{profileId}", getProfileHandler(svc, logger))
		r.Put("/profiles/{profileId}", updateProfileHandler(svc, logger))

		// =============================================
		// Premium membership
		// =============================================
		r.Post("/profiles/{profileId}/premium-request", requestUpgradeHandler(svc, logger))
		r.Get("/membership", membershipHandler(svc, logger))
		r.Put("/members/{email}/membership", updateMembershipHandler(svc, logger))

		// =============================================
		// Payments & contact requests
		// =============================================
		r.Post("/payments/intent", createChargeIntentHandler(svc, logger))
		r.Post("/contact-requests", createRequestHandler(svc, logger))
		r.Get("/contact-requests", listMyRequestsHandler(svc, logger))
		r.Delete("/contact-requests/{requestId}", removeRequestHandler(svc, logger))

		// =============================================
		// Favourites
		// =============================================
		r.Post("/favourites", addFavouriteHandler(svc, logger))
		r.Get("/favourites", listFavouritesHandler(svc, logger))
		r.Delete("/favourites/{profileId}", removeFavouriteHandler(svc, logger))

		// =============================================
		// Admin / moderation
		// =============================================
		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminOnly(adminKeyHash, logger))

			r.Get("/premium-requests", listPendingUpgradesHandler(svc, logger))
			r.Post("/premium-requests/{profileId}/approve", approveUpgradeHandler(svc, logger))

			r.Get("/contact-requests", listAllRequestsHandler(svc, logger))
			r.Post("/contact-requests/{requestId}/approve", approveRequestHandler(svc, logger))
			r.Delete("/contact-requests/{requestId}", removeRequestHandler(svc, logger))

			r.Get("/stats", statsHandler(svc, logger))
			r.Get("/metrics/engine", engineMetricsHandler(svc))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "matrihub-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if svc != nil {
			start := time.Now()
			_, err := svc.GetMembership(ctx, "health-check@internal")
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

// rootHandler is the liveness greeting the frontend pings on load.
func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "matrihub server is on"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
