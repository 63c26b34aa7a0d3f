package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/service"
)

// ============================================================
// Profile Handlers
// ============================================================

func profileIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "profileId"), 10, 64)
	return id, err == nil
}

func createProfileHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /profiles")
		defer span.End()

		var req domain.ProfileCreate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.CreateProfile(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func listProfilesHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /profiles")
		defer span.End()

		profiles, err := svc.ListProfiles(ctx)
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

func premiumShowcaseHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /profiles/premium")
		defer span.End()

		order := r.URL.Query().Get("sort")
		if order == "" {
			order = r.URL.Query().Get("order")
		}

		profiles, err := svc.PremiumShowcase(ctx, order)
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

func getProfileHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /profiles/{profileId}")
		defer span.End()

		profileID, ok := profileIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "profile id must be an integer")
			return
		}
		span.SetAttributes(attribute.Int64("profile.id", profileID))

		disclosed, err := svc.GetProfileWithDisclosure(ctx, profileID, ViewerEmailFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, disclosed)
	}
}

func updateProfileHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /profiles/{profileId}")
		defer span.End()

		profileID, ok := profileIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "profile id must be an integer")
			return
		}

		var req domain.ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := svc.UpdateProfile(ctx, profileID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// ============================================================
// Premium membership
// ============================================================

func requestUpgradeHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /profiles/{profileId}/premium-request")
		defer span.End()

		profileID, ok := profileIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "profile id must be an integer")
			return
		}
		span.SetAttributes(attribute.Int64("profile.id", profileID))

		if err := svc.RequestUpgrade(ctx, profileID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "premium upgrade requested"})
	}
}

func updateMembershipHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /members/{email}/membership")
		defer span.End()

		var req struct {
			Membership string `json:"membership"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := svc.UpdateMembership(ctx, chi.URLParam(r, "email"), req.Membership)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func membershipHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /membership")
		defer span.End()

		email := r.URL.Query().Get("email")
		if email == "" {
			email = ViewerEmailFromContext(ctx)
		}

		membership, err := svc.GetMembership(ctx, email)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"email":      email,
			"membership": membership,
			"is_premium": membership.IsPremium(),
		})
	}
}
