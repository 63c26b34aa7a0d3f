package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/service"
)

// ============================================================
// Favourite Handlers
// ============================================================

func addFavouriteHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /favourites")
		defer span.End()

		var req struct {
			ProfileID  any    `json:"profile_id"`
			OwnerEmail string `json:"owner_email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ownerEmail := req.OwnerEmail
		if ownerEmail == "" {
			ownerEmail = ViewerEmailFromContext(ctx)
		}

		favourite, err := svc.AddFavourite(ctx, ownerEmail, rawValue(req.ProfileID))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, favourite)
	}
}

func listFavouritesHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /favourites")
		defer span.End()

		email := r.URL.Query().Get("email")
		if email == "" {
			email = ViewerEmailFromContext(ctx)
		}

		favourites, err := svc.ListFavourites(ctx, email)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Favourite]{
			Data:  favourites,
			Total: len(favourites),
		})
	}
}

func removeFavouriteHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /favourites/{profileId}")
		defer span.End()

		email := r.URL.Query().Get("email")
		if email == "" {
			email = ViewerEmailFromContext(ctx)
		}

		if err := svc.RemoveFavourite(ctx, email, chi.URLParam(r, "profileId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "favourite removed"})
	}
}
