package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
	"github.com/matrihub/matrihub-go/internal/infra/resilience"
)

// ============================================================
// Profiles — CRUD + membership transitions via PostgREST
// ============================================================

// profileRow maps the profiles table. The table still carries two legacy
// premium signals, the is_premium bool and the membership tier text; either
// one marks a row premium. Reads fold them into a single membership state
// and writes keep all the columns consistent.
type profileRow struct {
	ProfileID        int64  `json:"profile_id"`
	Name             string `json:"name"`
	Sex              string `json:"sex"`
	Age              int    `json:"age"`
	Occupation       string `json:"occupation"`
	Division         string `json:"division"`
	PhotoURL         string `json:"photo_url"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
	IsPremium        bool   `json:"is_premium"`
	PremiumRequested bool   `json:"premium_requested"`
	Membership       string `json:"membership"`
	CreatedAt        string `json:"created_at"`
}

func (r profileRow) toDomain() domain.Profile {
	membership := domain.MembershipNormal
	switch {
	case r.IsPremium, strings.EqualFold(r.Membership, string(domain.MembershipPremium)):
		membership = domain.MembershipPremium
	case r.PremiumRequested:
		membership = domain.MembershipRequested
	}
	return domain.Profile{
		ProfileID:  r.ProfileID,
		Name:       r.Name,
		Sex:        r.Sex,
		Age:        r.Age,
		Occupation: r.Occupation,
		Division:   r.Division,
		PhotoURL:   r.PhotoURL,
		Email:      r.Email,
		Mobile:     r.Mobile,
		Membership: membership,
		CreatedAt:  parseTime(r.CreatedAt),
	}
}

// membershipColumns expands a membership state into all the legacy columns:
// the bool pair plus the membership tier text. Writing every signal keeps
// rows readable for whichever representation a reader honors.
func membershipColumns(m domain.MembershipState) map[string]any {
	return map[string]any{
		"is_premium":        m == domain.MembershipPremium,
		"premium_requested": m == domain.MembershipRequested,
		"membership":        string(m),
	}
}

// premiumFilter matches a row premium under either legacy signal.
const premiumFilter = "or=(is_premium.eq.true,membership.eq.premium)"

// notPremiumFilter excludes rows premium under either legacy signal. The
// tier column may be null on old rows, so the text check allows null.
const notPremiumFilter = "is_premium=eq.false&or=(membership.is.null,membership.neq.premium)"

// nextProfileID draws the next id from the profile_id sequence. The sequence
// lives in the database so concurrent registrations never collide.
func (c *Client) nextProfileID(ctx context.Context) (int64, error) {
	body, err := c.doRPC(ctx, "next_profile_id")
	if err != nil {
		return 0, err
	}
	var id int64
	if err := json.Unmarshal(body, &id); err != nil {
		return 0, fmt.Errorf("decode next_profile_id: %w", err)
	}
	return id, nil
}

func (c *Client) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfile")
	defer span.End()

	id, err := c.nextProfileID(ctx)
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	row := map[string]any{
		"profile_id": id,
		"name":       p.Name,
		"sex":        p.Sex,
		"age":        p.Age,
		"occupation": p.Occupation,
		"division":   p.Division,
		"photo_url":  p.PhotoURL,
		"email":      p.Email,
		"mobile":     p.Mobile,
		"created_at": p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for col, v := range membershipColumns(p.Membership) {
		row[col] = v
	}
	body, err := c.doPost(ctx, "profiles", row)
	if err != nil {
		// 23505 is the unique_violation code surfaced by the email index.
		if strings.Contains(err.Error(), "23505") {
			return nil, &domain.ErrConflict{Message: "a profile with this email already exists"}
		}
		return nil, wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profile")
	if err != nil {
		return nil, wrapErr("profiles", err)
	}
	if len(rows) == 0 {
		return nil, wrapErr("profiles", fmt.Errorf("insert returned no rows"))
	}

	created := rows[0].toDomain()
	c.logger.Info("supabase: profile created",
		zap.Int64("profile_id", created.ProfileID),
	)
	return &created, nil
}

// GetProfile is on the visibility evaluator's hot path, so reads go through
// the circuit breaker with retries.
func (c *Client) GetProfile(ctx context.Context, profileID int64) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	var profile *domain.Profile

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("profiles?profile_id=eq.%d&limit=1", profileID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		rows, err := decodeRows[profileRow](body, "profile")
		if err != nil {
			return resilience.Permanent(err)
		}
		if len(rows) == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)})
		}

		p := rows[0].toDomain()
		profile = &p
		return nil
	})
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	return profile, nil
}

func (c *Client) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfileByEmail")
	defer span.End()

	var profile *domain.Profile

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("profiles?email=eq.%s&limit=1", url.QueryEscape(email))
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}

		rows, err := decodeRows[profileRow](body, "profile")
		if err != nil {
			return resilience.Permanent(err)
		}
		if len(rows) == 0 {
			return nil // absence is not an error here
		}

		p := rows[0].toDomain()
		profile = &p
		return nil
	})
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	return profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, profileID int64, updates map[string]any) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	path := fmt.Sprintf("profiles?profile_id=eq.%d", profileID)
	body, err := c.doPatch(ctx, path, updates)
	if err != nil {
		if strings.Contains(err.Error(), "23505") {
			return nil, &domain.ErrConflict{Message: "a profile with this email already exists"}
		}
		return nil, wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profile")
	if err != nil {
		return nil, wrapErr("profiles", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}

	updated := rows[0].toDomain()
	return &updated, nil
}

func (c *Client) ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	path := fmt.Sprintf("profiles?order=profile_id.asc&limit=%d", limit)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profiles")
	if err != nil {
		return nil, wrapErr("profiles", err)
	}
	return rowsToProfiles(rows), nil
}

func (c *Client) ListPremiumProfiles(ctx context.Context, ageOrder string, limit int) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPremiumProfiles")
	defer span.End()

	order := "age.asc"
	if ageOrder == "desc" {
		order = "age.desc"
	}
	path := fmt.Sprintf("profiles?%s&order=%s&limit=%d", premiumFilter, order, limit)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profiles")
	if err != nil {
		return nil, wrapErr("profiles", err)
	}
	return rowsToProfiles(rows), nil
}

// RequestPremium flips a profile to the requested state. The PATCH filter
// pins the current state, so a concurrent admin approval or duplicate click
// matches zero rows instead of silently downgrading the membership.
func (c *Client) RequestPremium(ctx context.Context, profileID int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.RequestPremium")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	path := fmt.Sprintf("profiles?profile_id=eq.%d&premium_requested=eq.false&%s", profileID, notPremiumFilter)
	body, err := c.doPatch(ctx, path, membershipColumns(domain.MembershipRequested))
	if err != nil {
		return wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profile")
	if err != nil {
		return wrapErr("profiles", err)
	}
	if len(rows) == 0 {
		return &domain.ErrConflict{Message: "premium already requested or granted"}
	}
	return nil
}

// PromoteToPremium is the admin approval. It is unconditional on the current
// state so approving twice stays idempotent.
func (c *Client) PromoteToPremium(ctx context.Context, profileID int64) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.PromoteToPremium")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	path := fmt.Sprintf("profiles?profile_id=eq.%d", profileID)
	body, err := c.doPatch(ctx, path, membershipColumns(domain.MembershipPremium))
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profile")
	if err != nil {
		return nil, wrapErr("profiles", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}

	promoted := rows[0].toDomain()
	c.logger.Info("supabase: profile promoted to premium",
		zap.Int64("profile_id", promoted.ProfileID),
	)
	return &promoted, nil
}

// SetMembership writes a membership state directly, bypassing the upgrade
// workflow. Every legacy column is written so older readers stay correct.
func (c *Client) SetMembership(ctx context.Context, profileID int64, state domain.MembershipState) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SetMembership")
	defer span.End()
	span.SetAttributes(attribute.Int64("profile.id", profileID))

	path := fmt.Sprintf("profiles?profile_id=eq.%d", profileID)
	body, err := c.doPatch(ctx, path, membershipColumns(state))
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profile")
	if err != nil {
		return nil, wrapErr("profiles", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: fmt.Sprint(profileID)}
	}

	updated := rows[0].toDomain()
	c.logger.Info("supabase: membership updated",
		zap.Int64("profile_id", updated.ProfileID),
		zap.String("membership", string(state)),
	)
	return &updated, nil
}

func (c *Client) ListPendingUpgrades(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPendingUpgrades")
	defer span.End()

	path := "profiles?premium_requested=eq.true&" + notPremiumFilter + "&order=created_at.asc"
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, wrapErr("profiles", err)
	}

	rows, err := decodeRows[profileRow](body, "profiles")
	if err != nil {
		return nil, wrapErr("profiles", err)
	}
	return rowsToProfiles(rows), nil
}

// ============================================================
// Counts for the admin dashboard
// ============================================================

func (c *Client) CountProfiles(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountProfiles")
	defer span.End()

	n, err := c.doCount(ctx, "profiles?select=profile_id")
	if err != nil {
		return 0, wrapErr("profiles", err)
	}
	return n, nil
}

func (c *Client) CountProfilesBySex(ctx context.Context, sex string) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountProfilesBySex")
	defer span.End()

	n, err := c.doCount(ctx, fmt.Sprintf("profiles?select=profile_id&sex=eq.%s", url.QueryEscape(sex)))
	if err != nil {
		return 0, wrapErr("profiles", err)
	}
	return n, nil
}

func (c *Client) CountPremiumProfiles(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountPremiumProfiles")
	defer span.End()

	n, err := c.doCount(ctx, "profiles?select=profile_id&"+premiumFilter)
	if err != nil {
		return 0, wrapErr("profiles", err)
	}
	return n, nil
}

func rowsToProfiles(rows []profileRow) []domain.Profile {
	profiles := make([]domain.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.toDomain())
	}
	return profiles
}
