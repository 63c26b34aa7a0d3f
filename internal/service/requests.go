package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// ============================================================
// Contact request lifecycle: create -> approve | remove
// ============================================================

// CreateChargeIntent opens a disclosure-fee charge at the payment provider
// and returns the client secret the frontend confirms.
func (s *Directory) CreateChargeIntent(ctx context.Context, rawAmount string) (*domain.ChargeIntent, error) {
	ctx, span := tracer.Start(ctx, "Directory.CreateChargeIntent")
	defer span.End()

	amount, err := coerceFloat("amount", rawAmount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}
	if s.gateway == nil {
		return nil, &domain.ErrExternalService{Service: "payment", Err: errors.New("payment gateway not configured")}
	}

	return s.gateway.CreateChargeIntent(ctx, amount)
}

// CreateRequest files a paid contact request. Ids and amounts are coerced
// from the mixed representations clients send. When a payment intent id is
// supplied the charge is verified against the gateway and the recorded
// amount is the gateway's, never the client's.
func (s *Directory) CreateRequest(ctx context.Context, in *domain.ContactRequestCreate) (*domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Directory.CreateRequest")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("request_create", time.Since(start)) }()

	profileID, err := coerceInt64("profile_id", in.ProfileID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	if strings.TrimSpace(in.RequesterEmail) == "" {
		return nil, &domain.ErrValidation{Field: "requester_email", Message: "requester email is required"}
	}
	amount, err := coerceFloat("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be positive"}
	}

	// The target profile is validated at approval time, not here: the
	// frontend can file a request against a profile that is still being
	// created, and the admin review catches dangling ids.

	// A pair that already holds access must not pay twice.
	approved, err := s.store.FindApprovedRequest(ctx, profileID, in.RequesterEmail)
	if err != nil {
		return nil, err
	}
	if approved != nil {
		return nil, &domain.ErrConflict{Message: "contact access already granted for this profile"}
	}

	if in.PaymentIntentID != "" {
		verified, err := s.verifyCharge(ctx, in.PaymentIntentID, amount)
		if err != nil {
			return nil, err
		}
		amount = verified
	}

	request := &domain.ContactRequest{
		ID:              uuid.NewString(),
		ProfileID:       profileID,
		RequesterEmail:  in.RequesterEmail,
		Amount:          amount,
		PaymentIntentID: in.PaymentIntentID,
		Status:          domain.RequestPending,
		CreatedAt:       time.Now().UTC(),
	}

	created, err := s.store.CreateContactRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrRequest("pending")

	s.logger.Info("contact request created",
		zap.String("request_id", created.ID),
		zap.Int64("profile_id", created.ProfileID),
		zap.Float64("amount", created.Amount),
	)
	return created, nil
}

// verifyCharge confirms the referenced charge succeeded for the declared
// amount and returns the gateway-verified amount.
func (s *Directory) verifyCharge(ctx context.Context, intentID string, declared float64) (float64, error) {
	if s.gateway == nil {
		return 0, &domain.ErrPaymentUnverified{IntentID: intentID, Reason: "no payment gateway configured"}
	}

	intent, err := s.gateway.GetChargeIntent(ctx, intentID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return 0, &domain.ErrPaymentUnverified{IntentID: intentID, Reason: "charge not found"}
		}
		s.recordExternal(err)
		return 0, err
	}

	if intent.Status != domain.ChargeSucceeded {
		return 0, &domain.ErrPaymentUnverified{IntentID: intentID, Reason: "charge status is " + intent.Status}
	}
	if math.Abs(intent.Amount-declared) > 0.005 {
		return 0, &domain.ErrPaymentUnverified{IntentID: intentID, Reason: "charge amount does not match request"}
	}
	return intent.Amount, nil
}

// ListMyRequests returns the requester's own requests, approved ones
// carrying the contact snapshot.
func (s *Directory) ListMyRequests(ctx context.Context, requesterEmail string) ([]domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Directory.ListMyRequests")
	defer span.End()

	if strings.TrimSpace(requesterEmail) == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	return s.store.ListRequestsByRequester(ctx, requesterEmail)
}

// ListAllRequests is the admin view of the full ledger.
func (s *Directory) ListAllRequests(ctx context.Context) ([]domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Directory.ListAllRequests")
	defer span.End()

	return s.store.ListContactRequests(ctx)
}

// ApproveRequest grants the requester access to the profile's contact. The
// live contact fields are snapshotted onto the request and its amount starts
// counting as revenue. Approving an already-approved request is an
// idempotent success that refreshes the snapshot from the live profile.
func (s *Directory) ApproveRequest(ctx context.Context, requestID string) (*domain.ContactRequest, error) {
	ctx, span := tracer.Start(ctx, "Directory.ApproveRequest")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("request_approve", time.Since(start)) }()

	request, err := s.store.GetContactRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	alreadyApproved := request.Status == domain.RequestApproved

	profile, err := s.store.GetProfile(ctx, request.ProfileID)
	if err != nil {
		return nil, err
	}

	approved, err := s.store.ApproveContactRequest(ctx, requestID, domain.ContactSnapshot{
		Name:   profile.Name,
		Email:  profile.Email,
		Mobile: profile.Mobile,
	})
	if err != nil {
		return nil, err
	}

	// Re-approval refreshes the snapshot but must not double-count the
	// request or its revenue.
	if !alreadyApproved {
		s.metrics.IncrRequest("approved")
		s.metrics.RecordRevenue(approved.Amount)
	}
	s.logger.Info("contact request approved",
		zap.String("request_id", approved.ID),
		zap.Int64("profile_id", approved.ProfileID),
		zap.Float64("amount", approved.Amount),
	)
	return approved, nil
}

// RemoveRequest deletes a request in any state. Removing an approved request
// revokes the access it granted: the evaluator re-checks the ledger on every
// read, so the revocation is immediate.
func (s *Directory) RemoveRequest(ctx context.Context, requestID string) error {
	ctx, span := tracer.Start(ctx, "Directory.RemoveRequest")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))

	if err := s.store.DeleteContactRequest(ctx, requestID); err != nil {
		return err
	}

	s.logger.Info("contact request removed", zap.String("request_id", requestID))
	return nil
}
