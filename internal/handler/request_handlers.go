package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/service"
)

// ============================================================
// Payments & contact requests
// ============================================================

func createChargeIntentHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /payments/intent")
		defer span.End()

		var req struct {
			Amount any `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		intent, err := svc.CreateChargeIntent(ctx, rawValue(req.Amount))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"client_secret":     intent.ClientSecret,
			"payment_intent_id": intent.ID,
		})
	}
}

func createRequestHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /contact-requests")
		defer span.End()

		// Clients send ids and amounts as numbers or strings; decode loosely
		// and let the service coerce.
		var req struct {
			ProfileID       any    `json:"profile_id"`
			RequesterEmail  string `json:"requester_email"`
			Amount          any    `json:"amount"`
			PaymentIntentID string `json:"payment_intent_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		requesterEmail := req.RequesterEmail
		if requesterEmail == "" {
			requesterEmail = ViewerEmailFromContext(ctx)
		}

		created, err := svc.CreateRequest(ctx, &domain.ContactRequestCreate{
			ProfileID:       rawValue(req.ProfileID),
			RequesterEmail:  requesterEmail,
			Amount:          rawValue(req.Amount),
			PaymentIntentID: req.PaymentIntentID,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func listMyRequestsHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /contact-requests")
		defer span.End()

		email := r.URL.Query().Get("requester")
		if email == "" {
			email = r.URL.Query().Get("email")
		}
		if email == "" {
			email = ViewerEmailFromContext(ctx)
		}

		requests, err := svc.ListMyRequests(ctx, email)
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

func removeRequestHandler(svc *service.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /contact-requests/{requestId}")
		defer span.End()

		requestID := chi.URLParam(r, "requestId")
		span.SetAttributes(attribute.String("request.id", requestID))

		if err := svc.RemoveRequest(ctx, requestID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "contact request removed", ID: requestID})
	}
}

// rawValue renders a loosely decoded JSON value as the string the service
// coercion helpers expect. Whole floats print without an exponent so large
// ids survive the round trip.
func rawValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
