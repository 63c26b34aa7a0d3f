// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// Cache provides generic caching with TTL. Flush drops every entry; the
// service uses it when a write invalidates all cached views at once.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Flush()
}

// PaymentGateway talks to the external card-payment provider for
// disclosure-fee charges.
type PaymentGateway interface {
	// CreateChargeIntent opens a charge for the given amount in whole
	// currency units and returns the client secret the frontend confirms.
	CreateChargeIntent(ctx context.Context, amount float64) (*domain.ChargeIntent, error)

	// GetChargeIntent fetches the current state of a charge so the engine
	// can verify it before recording a contact request.
	GetChargeIntent(ctx context.Context, intentID string) (*domain.ChargeIntent, error)
}

// DirectoryStore defines all data operations for the matrimony directory.
// Implemented by the Supabase adapter and the in-memory store.
type DirectoryStore interface {
	// Profiles
	CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	GetProfile(ctx context.Context, profileID int64) (*domain.Profile, error)
	// GetProfileByEmail returns (nil, nil) when no profile carries the email.
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, profileID int64, updates map[string]any) (*domain.Profile, error)
	ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error)
	ListPremiumProfiles(ctx context.Context, ageOrder string, limit int) ([]domain.Profile, error)

	// Membership
	// RequestPremium moves a profile from normal to requested. The
	// transition is conditional on the current state: implementations
	// return ErrConflict when the profile is no longer in the normal state.
	RequestPremium(ctx context.Context, profileID int64) error
	PromoteToPremium(ctx context.Context, profileID int64) (*domain.Profile, error)
	// SetMembership writes the membership state unconditionally. It backs
	// the explicit membership update endpoint, not the upgrade workflow.
	SetMembership(ctx context.Context, profileID int64, state domain.MembershipState) (*domain.Profile, error)
	ListPendingUpgrades(ctx context.Context) ([]domain.Profile, error)

	// Contact requests
	CreateContactRequest(ctx context.Context, r *domain.ContactRequest) (*domain.ContactRequest, error)
	GetContactRequest(ctx context.Context, id string) (*domain.ContactRequest, error)
	// FindApprovedRequest returns (nil, nil) when no approved request exists
	// for the profile/requester pair.
	FindApprovedRequest(ctx context.Context, profileID int64, requesterEmail string) (*domain.ContactRequest, error)
	ListRequestsByRequester(ctx context.Context, requesterEmail string) ([]domain.ContactRequest, error)
	ListRequestsByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.ContactRequest, error)
	ListContactRequests(ctx context.Context) ([]domain.ContactRequest, error)
	ApproveContactRequest(ctx context.Context, id string, snap domain.ContactSnapshot) (*domain.ContactRequest, error)
	DeleteContactRequest(ctx context.Context, id string) error

	// Favourites
	CreateFavourite(ctx context.Context, f *domain.Favourite) (*domain.Favourite, error)
	ListFavourites(ctx context.Context, ownerEmail string) ([]domain.Favourite, error)
	DeleteFavourite(ctx context.Context, ownerEmail string, profileID int64) error

	// Stats
	CountProfiles(ctx context.Context) (int64, error)
	CountProfilesBySex(ctx context.Context, sex string) (int64, error)
	CountPremiumProfiles(ctx context.Context) (int64, error)
}
