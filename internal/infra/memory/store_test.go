package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
)

func seed(t *testing.T, s *Store, email string, membership domain.MembershipState) *domain.Profile {
	t.Helper()
	p, err := s.CreateProfile(context.Background(), &domain.Profile{
		Name:       "Test",
		Sex:        "female",
		Age:        25,
		Email:      email,
		Mobile:     "555-0100",
		Membership: membership,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return p
}

func TestCreateProfile_SequentialIDs(t *testing.T) {
	s := New(zap.NewNop())

	a := seed(t, s, "a@example.com", domain.MembershipNormal)
	b := seed(t, s, "b@example.com", domain.MembershipNormal)

	if a.ProfileID != 1 || b.ProfileID != 2 {
		t.Errorf("expected ids 1 and 2, got %d and %d", a.ProfileID, b.ProfileID)
	}
}

func TestRequestPremium_SingleTransitionUnderContention(t *testing.T) {
	s := New(zap.NewNop())
	p := seed(t, s, "a@example.com", domain.MembershipNormal)

	// Many concurrent callers; exactly one transition may win.
	const callers = 16
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.RequestPremium(context.Background(), p.ProfileID)
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			var conflict *domain.ErrConflict
			if !errors.As(err, &conflict) {
				t.Fatalf("unexpected error: %v", err)
			}
			conflicts++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winning transition, got %d (%d conflicts)", wins, conflicts)
	}

	got, err := s.GetProfile(context.Background(), p.ProfileID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Membership != domain.MembershipRequested {
		t.Errorf("expected requested state, got %s", got.Membership)
	}
}

func TestRequestPremium_RejectedOncePremium(t *testing.T) {
	s := New(zap.NewNop())
	p := seed(t, s, "a@example.com", domain.MembershipNormal)

	if _, err := s.PromoteToPremium(context.Background(), p.ProfileID); err != nil {
		t.Fatalf("promote: %v", err)
	}

	var conflict *domain.ErrConflict
	if err := s.RequestPremium(context.Background(), p.ProfileID); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateProfile_PatchesColumns(t *testing.T) {
	s := New(zap.NewNop())
	p := seed(t, s, "a@example.com", domain.MembershipNormal)
	seed(t, s, "taken@example.com", domain.MembershipNormal)

	updated, err := s.UpdateProfile(context.Background(), p.ProfileID, map[string]any{
		"occupation": "engineer",
		"age":        31,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Occupation != "engineer" || updated.Age != 31 {
		t.Errorf("unexpected update result %+v", updated)
	}
	if updated.Email != "a@example.com" {
		t.Errorf("untouched column changed: %q", updated.Email)
	}

	var conflict *domain.ErrConflict
	if _, err := s.UpdateProfile(context.Background(), p.ProfileID, map[string]any{"email": "taken@example.com"}); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on email collision, got %v", err)
	}
}

func TestListPremiumProfiles_OrderAndLimit(t *testing.T) {
	s := New(zap.NewNop())
	ctx := context.Background()

	ages := []int{40, 22, 31}
	for i, age := range ages {
		p := seed(t, s, string(rune('a'+i))+"@example.com", domain.MembershipNormal)
		if _, err := s.UpdateProfile(ctx, p.ProfileID, map[string]any{"age": age}); err != nil {
			t.Fatalf("update age: %v", err)
		}
		if _, err := s.PromoteToPremium(ctx, p.ProfileID); err != nil {
			t.Fatalf("promote: %v", err)
		}
	}
	seed(t, s, "normal@example.com", domain.MembershipNormal)

	asc, err := s.ListPremiumProfiles(ctx, "asc", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(asc) != 3 {
		t.Fatalf("expected 3 premium profiles, got %d", len(asc))
	}
	if asc[0].Age != 22 || asc[2].Age != 40 {
		t.Errorf("expected ascending age order, got %d..%d", asc[0].Age, asc[2].Age)
	}

	desc, err := s.ListPremiumProfiles(ctx, "desc", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(desc) != 2 || desc[0].Age != 40 {
		t.Errorf("expected limited descending list, got %+v", desc)
	}
}

func TestFindApprovedRequest_ExactPairOnly(t *testing.T) {
	s := New(zap.NewNop())
	ctx := context.Background()

	if _, err := s.CreateContactRequest(ctx, &domain.ContactRequest{
		ID: "r1", ProfileID: 7, RequesterEmail: "a@example.com", Status: domain.RequestPending,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Pending never matches.
	found, err := s.FindApprovedRequest(ctx, 7, "a@example.com")
	if err != nil || found != nil {
		t.Fatalf("expected no match for pending, got %v / %v", found, err)
	}

	if _, err := s.ApproveContactRequest(ctx, "r1", domain.ContactSnapshot{Name: "N", Email: "e", Mobile: "m"}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	found, err = s.FindApprovedRequest(ctx, 7, "a@example.com")
	if err != nil || found == nil {
		t.Fatalf("expected match after approval, got %v / %v", found, err)
	}
	if found.Mobile != "m" {
		t.Errorf("expected snapshot carried, got %+v", found)
	}

	// Different profile or requester stays unmatched.
	if found, _ := s.FindApprovedRequest(ctx, 8, "a@example.com"); found != nil {
		t.Error("matched wrong profile")
	}
	if found, _ := s.FindApprovedRequest(ctx, 7, "b@example.com"); found != nil {
		t.Error("matched wrong requester")
	}

	if err := s.DeleteContactRequest(ctx, "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if found, _ := s.FindApprovedRequest(ctx, 7, "a@example.com"); found != nil {
		t.Error("expected no match after deletion")
	}
}

func TestDeleteFavourite_NotFound(t *testing.T) {
	s := New(zap.NewNop())

	var notFound *domain.ErrNotFound
	if err := s.DeleteFavourite(context.Background(), "a@example.com", 1); !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
