// Package memory provides an in-process implementation of the directory
// store. It backs local development and tests, and is selected in production
// when no Supabase project is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// Store keeps all directory data in maps guarded by a single RWMutex.
// Profile ids come from an atomic counter, matching the database sequence
// the Supabase backend uses.
type Store struct {
	mu         sync.RWMutex
	profiles   map[int64]domain.Profile
	requests   map[string]domain.ContactRequest
	favourites map[string]domain.Favourite
	nextID     atomic.Int64
	logger     *zap.Logger
}

// New creates an empty in-memory store.
func New(logger *zap.Logger) *Store {
	return &Store{
		profiles:   make(map[int64]domain.Profile),
		requests:   make(map[string]domain.ContactRequest),
		favourites: make(map[string]domain.Favourite),
		logger:     logger,
	}
}

// ============================================================
// Profiles
// ============================================================

func (s *Store) CreateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.profiles {
		if existing.Email == p.Email {
			return nil, &domain.ErrConflict{Message: "a profile with this email already exists"}
		}
	}

	created := *p
	created.ProfileID = s.nextID.Add(1)
	s.profiles[created.ProfileID] = created

	s.logger.Debug("memory: profile created", zap.Int64("profile_id", created.ProfileID))
	return &created, nil
}

func (s *Store) GetProfile(_ context.Context, profileID int64) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}
	return &p, nil
}

func (s *Store) GetProfileByEmail(_ context.Context, email string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.Email == email {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateProfile(_ context.Context, profileID int64, updates map[string]any) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}

	// Same column names the PostgREST backend patches.
	for col, v := range updates {
		switch col {
		case "name":
			p.Name, _ = v.(string)
		case "sex":
			p.Sex, _ = v.(string)
		case "age":
			if age, ok := v.(int); ok {
				p.Age = age
			}
		case "occupation":
			p.Occupation, _ = v.(string)
		case "division":
			p.Division, _ = v.(string)
		case "photo_url":
			p.PhotoURL, _ = v.(string)
		case "email":
			email, _ := v.(string)
			for id, other := range s.profiles {
				if id != profileID && other.Email == email {
					return nil, &domain.ErrConflict{Message: "a profile with this email already exists"}
				}
			}
			p.Email = email
		case "mobile":
			p.Mobile, _ = v.(string)
		}
	}

	s.profiles[profileID] = p
	return &p, nil
}

func (s *Store) ListProfiles(_ context.Context, limit int) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := s.collect(func(domain.Profile) bool { return true })
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].ProfileID < profiles[j].ProfileID
	})
	return clip(profiles, limit), nil
}

func (s *Store) ListPremiumProfiles(_ context.Context, ageOrder string, limit int) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := s.collect(func(p domain.Profile) bool {
		return p.Membership.IsPremium()
	})
	sort.Slice(profiles, func(i, j int) bool {
		if ageOrder == "desc" {
			return profiles[i].Age > profiles[j].Age
		}
		return profiles[i].Age < profiles[j].Age
	})
	return clip(profiles, limit), nil
}

// ============================================================
// Membership
// ============================================================

func (s *Store) RequestPremium(_ context.Context, profileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}
	if p.Membership != domain.MembershipNormal {
		return &domain.ErrConflict{Message: "premium already requested or granted"}
	}

	p.Membership = domain.MembershipRequested
	s.profiles[profileID] = p
	return nil
}

func (s *Store) PromoteToPremium(_ context.Context, profileID int64) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}

	p.Membership = domain.MembershipPremium
	s.profiles[profileID] = p

	s.logger.Debug("memory: profile promoted", zap.Int64("profile_id", profileID))
	return &p, nil
}

func (s *Store) SetMembership(_ context.Context, profileID int64, state domain.MembershipState) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}

	p.Membership = state
	s.profiles[profileID] = p
	return &p, nil
}

func (s *Store) ListPendingUpgrades(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := s.collect(func(p domain.Profile) bool {
		return p.Membership == domain.MembershipRequested
	})
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}

// ============================================================
// Contact requests
// ============================================================

func (s *Store) CreateContactRequest(_ context.Context, r *domain.ContactRequest) (*domain.ContactRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *r
	s.requests[created.ID] = created
	return &created, nil
}

func (s *Store) GetContactRequest(_ context.Context, id string) (*domain.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "contact request", ID: id}
	}
	return &r, nil
}

func (s *Store) FindApprovedRequest(_ context.Context, profileID int64, requesterEmail string) (*domain.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.requests {
		if r.ProfileID == profileID && r.RequesterEmail == requesterEmail && r.Status == domain.RequestApproved {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) ListRequestsByRequester(_ context.Context, requesterEmail string) ([]domain.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectRequests(func(r domain.ContactRequest) bool {
		return r.RequesterEmail == requesterEmail
	}), nil
}

func (s *Store) ListRequestsByStatus(_ context.Context, status domain.RequestStatus) ([]domain.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectRequests(func(r domain.ContactRequest) bool {
		return r.Status == status
	}), nil
}

func (s *Store) ListContactRequests(_ context.Context) ([]domain.ContactRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectRequests(func(domain.ContactRequest) bool { return true }), nil
}

func (s *Store) ApproveContactRequest(_ context.Context, id string, snap domain.ContactSnapshot) (*domain.ContactRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "contact request", ID: id}
	}

	r.Status = domain.RequestApproved
	r.Name = snap.Name
	r.Email = snap.Email
	r.Mobile = snap.Mobile
	s.requests[id] = r
	return &r, nil
}

func (s *Store) DeleteContactRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return &domain.ErrNotFound{Resource: "contact request", ID: id}
	}
	delete(s.requests, id)
	return nil
}

// ============================================================
// Favourites
// ============================================================

func (s *Store) CreateFavourite(_ context.Context, f *domain.Favourite) (*domain.Favourite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *f
	s.favourites[created.ID] = created
	return &created, nil
}

func (s *Store) ListFavourites(_ context.Context, ownerEmail string) ([]domain.Favourite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	favourites := make([]domain.Favourite, 0)
	for _, f := range s.favourites {
		if f.OwnerEmail == ownerEmail {
			favourites = append(favourites, f)
		}
	}
	sort.Slice(favourites, func(i, j int) bool {
		return favourites[i].CreatedAt.After(favourites[j].CreatedAt)
	})
	return favourites, nil
}

func (s *Store) DeleteFavourite(_ context.Context, ownerEmail string, profileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, f := range s.favourites {
		if f.OwnerEmail == ownerEmail && f.ProfileID == profileID {
			delete(s.favourites, id)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "favourite", ID: fmt.Sprint(profileID)}
}

// ============================================================
// Counts
// ============================================================

func (s *Store) CountProfiles(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.profiles)), nil
}

func (s *Store) CountProfilesBySex(_ context.Context, sex string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.profiles {
		if p.Sex == sex {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountPremiumProfiles(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.profiles {
		if p.Membership.IsPremium() {
			n++
		}
	}
	return n, nil
}

// collect returns profiles matching the filter. Caller holds the lock.
func (s *Store) collect(keep func(domain.Profile) bool) []domain.Profile {
	profiles := make([]domain.Profile, 0)
	for _, p := range s.profiles {
		if keep(p) {
			profiles = append(profiles, p)
		}
	}
	return profiles
}

// collectRequests returns requests matching the filter, newest first.
// Caller holds the lock.
func (s *Store) collectRequests(keep func(domain.ContactRequest) bool) []domain.ContactRequest {
	requests := make([]domain.ContactRequest, 0)
	for _, r := range s.requests {
		if keep(r) {
			requests = append(requests, r)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests
}

func clip(profiles []domain.Profile, limit int) []domain.Profile {
	if limit > 0 && len(profiles) > limit {
		return profiles[:limit]
	}
	return profiles
}
