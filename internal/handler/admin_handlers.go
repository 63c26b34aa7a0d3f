package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/service"
)

// ============================================================
// Admin / moderation handlers
// ============================================================

func listPendingUpgradesHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /admin/premium-requests")
		defer span.End()

		profiles, err := svc.ListPendingUpgrades(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Profile]{
			Data:  profiles,
			Total: len(profiles),
		})
	}
}

func approveUpgradeHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/premium-requests/{profileId}/approve")
		defer span.End()

		profileID, ok := profileIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "profile id must be an integer")
			return
		}
		span.SetAttributes(attribute.Int64("profile.id", profileID))

		promoted, err := svc.ApproveUpgrade(ctx, profileID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, promoted)
	}
}

func listAllRequestsHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /admin/contact-requests")
		defer span.End()

		requests, err := svc.ListAllRequests(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.ContactRequest]{
			Data:  requests,
			Total: len(requests),
		})
	}
}

func approveRequestHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /admin/contact-requests/{requestId}/approve")
		defer span.End()

		requestID := chi.URLParam(r, "requestId")
		span.SetAttributes(attribute.String("request.id", requestID))

		approved, err := svc.ApproveRequest(ctx, requestID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, approved)
	}
}

func statsHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /admin/stats")
		defer span.End()

		stats, err := svc.GetDirectoryStats(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func engineMetricsHandler(svc *service.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetEngineMetrics())
	}
}
