package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// ============================================================
// Favourites
// ============================================================

// AddFavourite bookmarks a profile for the owner, storing a small display
// snapshot alongside the id.
func (s *Directory) AddFavourite(ctx context.Context, ownerEmail, rawProfileID string) (*domain.Favourite, error) {
	ctx, span := tracer.Start(ctx, "Directory.AddFavourite")
	defer span.End()

	if strings.TrimSpace(ownerEmail) == "" {
		return nil, &domain.ErrValidation{Field: "owner_email", Message: "owner email is required"}
	}
	profileID, err := coerceInt64("profile_id", rawProfileID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListFavourites(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	for _, f := range existing {
		if f.ProfileID == profileID {
			return nil, &domain.ErrConflict{Message: "profile is already in favourites"}
		}
	}

	favourite := &domain.Favourite{
		ID:         uuid.NewString(),
		OwnerEmail: ownerEmail,
		ProfileID:  profileID,
		Name:       profile.Name,
		Occupation: profile.Occupation,
		Division:   profile.Division,
		CreatedAt:  time.Now().UTC(),
	}
	return s.store.CreateFavourite(ctx, favourite)
}

func (s *Directory) ListFavourites(ctx context.Context, ownerEmail string) ([]domain.Favourite, error) {
	ctx, span := tracer.Start(ctx, "Directory.ListFavourites")
	defer span.End()

	if strings.TrimSpace(ownerEmail) == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	return s.store.ListFavourites(ctx, ownerEmail)
}

func (s *Directory) RemoveFavourite(ctx context.Context, ownerEmail, rawProfileID string) error {
	ctx, span := tracer.Start(ctx, "Directory.RemoveFavourite")
	defer span.End()

	profileID, err := coerceInt64("profile_id", rawProfileID)
	if err != nil {
		return err
	}
	return s.store.DeleteFavourite(ctx, ownerEmail, profileID)
}
