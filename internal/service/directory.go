// Package service provides the business logic layer (use cases).
// Directory implements the contact disclosure policy, the premium-upgrade
// state machine, the paid contact-request lifecycle and the revenue
// aggregates on top of the directory store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/infra/observability"
	"github.com/matrihub/matrihub-go/internal/port"
)

var tracer = otel.Tracer("service/directory")

// Directory orchestrates all directory operations via the store.
type Directory struct {
	store   port.DirectoryStore
	gateway port.PaymentGateway // nil when no payment provider is configured
	// showcase caches the public premium listing; every entry is already
	// contact-stripped so a cache hit can never leak gated fields.
	showcase      port.Cache[[]domain.Profile]
	metrics       *observability.Metrics
	logger        *zap.Logger
	showcaseLimit int
	listLimit     int
}

// NewDirectory creates the directory service with all dependencies injected.
func NewDirectory(
	store port.DirectoryStore,
	gateway port.PaymentGateway,
	showcase port.Cache[[]domain.Profile],
	metrics *observability.Metrics,
	logger *zap.Logger,
	showcaseLimit, listLimit int,
) *Directory {
	return &Directory{
		store:         store,
		gateway:       gateway,
		showcase:      showcase,
		metrics:       metrics,
		logger:        logger,
		showcaseLimit: showcaseLimit,
		listLimit:     listLimit,
	}
}

// ============================================================
// Profiles
// ============================================================

func (s *Directory) CreateProfile(ctx context.Context, in *domain.ProfileCreate) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Directory.CreateProfile")
	defer span.End()

	if strings.TrimSpace(in.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if in.Age <= 0 {
		return nil, &domain.ErrValidation{Field: "age", Message: "age must be positive"}
	}

	existing, err := s.store.GetProfileByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "a profile with this email already exists"}
	}

	profile := &domain.Profile{
		Name:       in.Name,
		Sex:        in.Sex,
		Age:        in.Age,
		Occupation: in.Occupation,
		Division:   in.Division,
		PhotoURL:   in.PhotoURL,
		Email:      in.Email,
		Mobile:     in.Mobile,
		Membership: domain.MembershipNormal,
		CreatedAt:  time.Now().UTC(),
	}

	created, err := s.store.CreateProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile created",
		zap.Int64("profile_id", created.ProfileID),
	)
	return created, nil
}

// GetProfileWithDisclosure is the visibility evaluator. The contact fields
// are stripped unless the viewer holds disclosure rights:
//   - the profile owner always sees their own contact,
//   - a premium viewer sees every contact,
//   - otherwise an approved contact request for this exact profile/viewer
//     pair is required.
//
// An absent viewer identity always denies.
func (s *Directory) GetProfileWithDisclosure(ctx context.Context, profileID int64, viewerEmail string) (*domain.DisclosedProfile, error) {
	ctx, span := tracer.Start(ctx, "Directory.GetProfileWithDisclosure")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("profile.id", profileID),
		attribute.Bool("viewer.present", viewerEmail != ""),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("disclosure_evaluate", time.Since(start))
	}()

	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.canSeeContact(ctx, profile, viewerEmail)
	if err != nil {
		s.recordExternal(err)
		return nil, err
	}

	s.metrics.RecordDisclosure(allowed)
	span.SetAttributes(attribute.Bool("disclosure.allowed", allowed))

	out := *profile
	if !allowed {
		out = out.StripContact()
	}
	return &domain.DisclosedProfile{Profile: out, CanSeeContact: allowed}, nil
}

func (s *Directory) canSeeContact(ctx context.Context, profile *domain.Profile, viewerEmail string) (bool, error) {
	if viewerEmail == "" {
		return false, nil
	}
	if viewerEmail == profile.Email {
		return true, nil
	}

	viewer, err := s.store.GetProfileByEmail(ctx, viewerEmail)
	if err != nil {
		return false, err
	}
	if viewer != nil && viewer.Membership.IsPremium() {
		return true, nil
	}

	approved, err := s.store.FindApprovedRequest(ctx, profile.ProfileID, viewerEmail)
	if err != nil {
		return false, err
	}
	return approved != nil, nil
}

func (s *Directory) UpdateProfile(ctx context.Context, profileID int64, in *domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Directory.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	updates := map[string]any{}
	if in.Name != "" {
		updates["name"] = in.Name
	}
	if in.Sex != "" {
		updates["sex"] = in.Sex
	}
	if in.Age > 0 {
		updates["age"] = in.Age
	}
	if in.Occupation != "" {
		updates["occupation"] = in.Occupation
	}
	if in.Division != "" {
		updates["division"] = in.Division
	}
	if in.PhotoURL != "" {
		updates["photo_url"] = in.PhotoURL
	}
	if in.Mobile != "" {
		updates["mobile"] = in.Mobile
	}
	if in.Email != "" {
		other, err := s.store.GetProfileByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ProfileID != profileID {
			return nil, &domain.ErrConflict{Message: "a profile with this email already exists"}
		}
		updates["email"] = in.Email
	}
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no editable fields provided"}
	}

	updated, err := s.store.UpdateProfile(ctx, profileID, updates)
	if err != nil {
		return nil, err
	}

	// Display fields may be on the cached showcase.
	s.showcase.Flush()
	return updated, nil
}

func (s *Directory) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Directory.ListProfiles")
	defer span.End()

	profiles, err := s.store.ListProfiles(ctx, s.listLimit)
	if err != nil {
		return nil, err
	}

	// Listings are public: contact fields stay gated behind the evaluator.
	for i := range profiles {
		profiles[i] = profiles[i].StripContact()
	}
	return profiles, nil
}

// PremiumShowcase returns the premium profiles for the public landing page,
// sorted by age. Results are cached and always contact-stripped.
func (s *Directory) PremiumShowcase(ctx context.Context, ageOrder string) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Directory.PremiumShowcase")
	defer span.End()

	if ageOrder == "" {
		ageOrder = "asc"
	}
	if ageOrder != "asc" && ageOrder != "desc" {
		return nil, &domain.ErrValidation{Field: "order", Message: "order must be asc or desc"}
	}

	cacheKey := fmt.Sprintf("premium:%s", ageOrder)
	if cached, ok := s.showcase.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("showcase")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("showcase")

	profiles, err := s.store.ListPremiumProfiles(ctx, ageOrder, s.showcaseLimit)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i] = profiles[i].StripContact()
	}

	s.showcase.Set(cacheKey, profiles)
	return profiles, nil
}

// GetMembership reports the membership state for an email. Unknown emails
// are treated as normal members, matching how the frontend probes accounts
// that have no biodata yet.
func (s *Directory) GetMembership(ctx context.Context, email string) (domain.MembershipState, error) {
	ctx, span := tracer.Start(ctx, "Directory.GetMembership")
	defer span.End()

	if strings.TrimSpace(email) == "" {
		return "", &domain.ErrValidation{Field: "email", Message: "email is required"}
	}

	profile, err := s.store.GetProfileByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return domain.MembershipNormal, nil
	}
	return profile.Membership, nil
}

// ============================================================
// Coercion helpers
// ============================================================

// coerceInt64 parses ids that upstream clients send as numbers or strings.
// recordExternal counts a downstream collaborator failure on the engine
// metrics so the dashboard can separate store from gateway trouble.
func (s *Directory) recordExternal(err error) {
	var ext *domain.ErrExternalService
	if errors.As(err, &ext) {
		// The store scopes its errors per call ("supabase/profiles.get");
		// the counter is labeled by collaborator only.
		name, _, _ := strings.Cut(ext.Service, "/")
		s.metrics.IncrExternalError(name)
	}
}

func coerceInt64(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("%q is not a valid integer", raw)}
	}
	return n, nil
}

func coerceFloat(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &domain.ErrValidation{Field: field, Message: fmt.Sprintf("%q is not a valid number", raw)}
	}
	return f, nil
}
