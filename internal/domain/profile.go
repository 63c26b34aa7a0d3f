// Package domain defines the core business entities for the matrimony
// directory. These models are independent of external services and represent
// the canonical data structures used throughout the engine.
package domain

import "time"

// ============================================================
// Profile / Membership
// ============================================================

// MembershipState is the explicit premium-upgrade state of a profile.
// Legacy rows carry two separate premium signals (an is_premium boolean and a
// membership text field); the store adapters fold both into this single state
// so illegal combinations cannot be represented in the domain.
type MembershipState string

const (
	MembershipNormal    MembershipState = "normal"
	MembershipRequested MembershipState = "requested"
	MembershipPremium   MembershipState = "premium"
)

// IsPremium reports whether the state grants blanket disclosure rights.
func (m MembershipState) IsPremium() bool {
	return m == MembershipPremium
}

// Profile is a member's matrimony biodata record.
// Email and Mobile are the disclosure-gated contact fields; everything else
// is public.
type Profile struct {
	ProfileID  int64           `json:"profile_id"`
	Name       string          `json:"name"`
	Sex        string          `json:"sex"`
	Age        int             `json:"age"`
	Occupation string          `json:"occupation,omitempty"`
	Division   string          `json:"division,omitempty"`
	PhotoURL   string          `json:"photo_url,omitempty"`
	Email      string          `json:"email,omitempty"`
	Mobile     string          `json:"mobile,omitempty"`
	Membership MembershipState `json:"membership"`
	CreatedAt  time.Time       `json:"created_at"`
}

// StripContact returns a copy of the profile with the gated contact fields
// removed. Used by the visibility evaluator before responding to viewers
// without disclosure rights.
func (p Profile) StripContact() Profile {
	p.Email = ""
	p.Mobile = ""
	return p
}

// DisclosedProfile is the visibility evaluator's response: the profile
// (contact fields stripped or present) plus the disclosure decision. The
// boolean is the only signal exposed about why contact is hidden.
type DisclosedProfile struct {
	Profile       Profile `json:"profile"`
	CanSeeContact bool    `json:"can_see_contact"`
}

// ProfileCreate is the payload for registering a new profile. The profile id
// is assigned by the store's atomic sequence, never by the caller.
type ProfileCreate struct {
	Name       string `json:"name"`
	Sex        string `json:"sex"`
	Age        int    `json:"age"`
	Occupation string `json:"occupation,omitempty"`
	Division   string `json:"division,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile,omitempty"`
}

// ProfileUpdate carries the editable biodata fields. Zero values mean
// "leave unchanged"; membership and profile id are never editable here.
type ProfileUpdate struct {
	Name       string `json:"name,omitempty"`
	Sex        string `json:"sex,omitempty"`
	Age        int    `json:"age,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Division   string `json:"division,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
	Email      string `json:"email,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
}
