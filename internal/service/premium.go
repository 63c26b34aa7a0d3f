package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// ============================================================
// Premium upgrade state machine: normal -> requested -> premium
// ============================================================

// RequestUpgrade files a premium upgrade for a profile. Only a normal
// member may request; repeated requests and requests from premium members
// conflict. The store transition is conditional on the current state, so two
// racing requests cannot both succeed.
func (s *Directory) RequestUpgrade(ctx context.Context, profileID int64) error {
	ctx, span := tracer.Start(ctx, "Directory.RequestUpgrade")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}

	switch profile.Membership {
	case domain.MembershipPremium:
		return &domain.ErrConflict{Message: "profile is already premium"}
	case domain.MembershipRequested:
		return &domain.ErrConflict{Message: "premium already requested"}
	}

	if err := s.store.RequestPremium(ctx, profileID); err != nil {
		return err
	}

	s.logger.Info("premium upgrade requested",
		zap.Int64("profile_id", profileID),
	)
	return nil
}

// ListPendingUpgrades returns the profiles waiting for admin approval.
func (s *Directory) ListPendingUpgrades(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Directory.ListPendingUpgrades")
	defer span.End()

	return s.store.ListPendingUpgrades(ctx)
}

// ApproveUpgrade grants premium to a profile. It is an admin override and
// deliberately idempotent: approving an already-premium profile, or one
// that never filed a request, still lands on the premium state.
func (s *Directory) ApproveUpgrade(ctx context.Context, profileID int64) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Directory.ApproveUpgrade")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	promoted, err := s.store.PromoteToPremium(ctx, profileID)
	if err != nil {
		return nil, err
	}

	// The showcase gains a member.
	s.showcase.Flush()

	s.logger.Info("premium upgrade approved",
		zap.Int64("profile_id", promoted.ProfileID),
	)
	return promoted, nil
}

// UpdateMembership sets a member's state directly, addressed by email. It
// bypasses the request/approve workflow, so premium can also be revoked here.
func (s *Directory) UpdateMembership(ctx context.Context, email, rawState string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Directory.UpdateMembership")
	defer span.End()

	state := domain.MembershipState(rawState)
	switch state {
	case domain.MembershipNormal, domain.MembershipRequested, domain.MembershipPremium:
	default:
		return nil, &domain.ErrValidation{Field: "membership", Message: "membership must be normal, requested or premium"}
	}

	profile, err := s.store.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: email}
	}

	updated, err := s.store.SetMembership(ctx, profile.ProfileID, state)
	if err != nil {
		return nil, err
	}

	// Showcase composition can change in either direction.
	s.showcase.Flush()

	s.logger.Info("membership updated",
		zap.Int64("profile_id", updated.ProfileID),
		zap.String("membership", string(state)),
	)
	return updated, nil
}
