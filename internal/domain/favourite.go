package domain

import "time"

// Favourite is a bookmark of another member's profile. It stores a small
// display snapshot so favourite listings render without joining back to the
// profile table.
type Favourite struct {
	ID         string    `json:"id"`
	OwnerEmail string    `json:"owner_email"`
	ProfileID  int64     `json:"profile_id"`
	Name       string    `json:"name"`
	Occupation string    `json:"occupation,omitempty"`
	Division   string    `json:"division,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
