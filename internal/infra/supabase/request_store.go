package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/infra/resilience"
)

// ============================================================
// Contact requests — lifecycle via PostgREST
// ============================================================

type requestRow struct {
	ID              string  `json:"id"`
	ProfileID       int64   `json:"profile_id"`
	RequesterEmail  string  `json:"requester_email"`
	Amount          float64 `json:"amount"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Status          string  `json:"status"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Mobile          string  `json:"mobile"`
	CreatedAt       string  `json:"created_at"`
}

func (r requestRow) toDomain() domain.ContactRequest {
	return domain.ContactRequest{
		ID:              r.ID,
		ProfileID:       r.ProfileID,
		RequesterEmail:  r.RequesterEmail,
		Amount:          r.Amount,
		PaymentIntentID: r.PaymentIntentID,
		Status:          domain.RequestStatus(r.Status),
		Name:            r.Name,
		Email:           r.Email,
		Mobile:          r.Mobile,
		CreatedAt:       parseTime(r.CreatedAt),
	}
}

func (c *Client) CreateContactRequest(ctx context.Context, r *domain.ContactRequest) (*domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateContactRequest")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", r.ProfileID))

	body, err := c.doPost(ctx, "contact_requests", map[string]any{
		"id":                r.ID,
		"profile_id":        r.ProfileID,
		"requester_email":   r.RequesterEmail,
		"amount":            r.Amount,
		"payment_intent_id": r.PaymentIntentID,
		"status":            string(r.Status),
		"created_at":        r.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}

	rows, err := decodeRows[requestRow](body, "contact request")
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}
	if len(rows) == 0 {
		return nil, wrapErr("contact_requests", fmt.Errorf("insert returned no rows"))
	}

	created := rows[0].toDomain()
	c.logger.Info("supabase: contact request created",
		zap.String("request_id", created.ID),
		zap.Int64("profile_id", created.ProfileID),
	)
	return &created, nil
}

func (c *Client) GetContactRequest(ctx context.Context, id string) (*domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetContactRequest")
	defer span.End()

	path := fmt.Sprintf("contact_requests?id=eq.%s&limit=1", url.QueryEscape(id))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}

	rows, err := decodeRows[requestRow](body, "contact request")
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "contact request", ID: id}
	}

	req := rows[0].toDomain()
	return &req, nil
}

// FindApprovedRequest backs the visibility evaluator, so it runs behind the
// circuit breaker with retries like the other hot reads.
func (c *Client) FindApprovedRequest(ctx context.Context, profileID int64, requesterEmail string) (*domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindApprovedRequest")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	var found *domain.ContactRequest

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("contact_requests?profile_id=eq.%d&requester_email=eq.%s&status=eq.%s&limit=1",
			profileID, url.QueryEscape(requesterEmail), domain.RequestApproved)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		rows, err := decodeRows[requestRow](body, "contact request")
		if err != nil {
			return resilience.Permanent(err)
		}
		if len(rows) == 0 {
			return nil // no approved request for the pair
		}

		req := rows[0].toDomain()
		found = &req
		return nil
	})
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}

	return found, nil
}

func (c *Client) ListRequestsByRequester(ctx context.Context, requesterEmail string) ([]domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRequestsByRequester")
	defer span.End()

	path := fmt.Sprintf("contact_requests?requester_email=eq.%s&order=created_at.desc", url.QueryEscape(requesterEmail))
	return c.listRequests(ctx, path)
}

func (c *Client) ListRequestsByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRequestsByStatus")
	defer span.End()

	path := fmt.Sprintf("contact_requests?status=eq.%s&order=created_at.desc", status)
	return c.listRequests(ctx, path)
}

func (c *Client) ListContactRequests(ctx context.Context) ([]domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListContactRequests")
	defer span.End()

	return c.listRequests(ctx, "contact_requests?order=created_at.desc")
}

func (c *Client) listRequests(ctx context.Context, path string) ([]domain.ContactRequest, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}

	rows, err := decodeRows[requestRow](body, "contact requests")
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}

	requests := make([]domain.ContactRequest, 0, len(rows))
	for _, r := range rows {
		requests = append(requests, r.toDomain())
	}
	return requests, nil
}

// ApproveContactRequest marks the request approved and stamps the contact
// snapshot onto it in one PATCH.
func (c *Client) ApproveContactRequest(ctx context.Context, id string, snap domain.ContactSnapshot) (*domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ApproveContactRequest")
	defer span.End()

	path := fmt.Sprintf("contact_requests?id=eq.%s", url.QueryEscape(id))
	body, err := c.doPatch(ctx, path, map[string]any{
		"status": string(domain.RequestApproved),
		"name":   snap.Name,
		"email":  snap.Email,
		"mobile": snap.Mobile,
	})
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}

	rows, err := decodeRows[requestRow](body, "contact request")
	if err != nil {
		return nil, wrapErr("contact_requests", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "contact request", ID: id}
	}

	approved := rows[0].toDomain()
	c.logger.Info("supabase: contact request approved",
		zap.String("request_id", approved.ID),
		zap.Int64("profile_id", approved.ProfileID),
	)
	return &approved, nil
}

func (c *Client) DeleteContactRequest(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteContactRequest")
	defer span.End()

	path := fmt.Sprintf("contact_requests?id=eq.%s", url.QueryEscape(id))
	body, err := c.doDelete(ctx, path)
	if err != nil {
		return wrapErr("contact_requests", err)
	}

	rows, err := decodeRows[requestRow](body, "contact request")
	if err != nil {
		return wrapErr("contact_requests", err)
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "contact request", ID: id}
	}

	c.logger.Info("supabase: contact request removed", zap.String("request_id", id))
	return nil
}
