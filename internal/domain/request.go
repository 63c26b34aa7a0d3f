package domain

import "time"

// ============================================================
// Contact disclosure requests
// ============================================================

// RequestStatus is the lifecycle state of a contact request. There is no
// rejected state: moderators remove requests instead, which also revokes any
// previously granted access.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
)

// ContactRequest is a paid request by a viewer to see one profile's contact
// fields. Amount is the gateway-verified charge in whole currency units.
// The Name/Email/Mobile snapshot is captured at approval time and is what
// the requester's own listing shows; the live profile remains the source of
// truth for the visibility evaluator.
type ContactRequest struct {
	ID              string        `json:"id"`
	ProfileID       int64         `json:"profile_id"`
	RequesterEmail  string        `json:"requester_email"`
	Amount          float64       `json:"amount"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	Status          RequestStatus `json:"status"`
	Name            string        `json:"name,omitempty"`
	Email           string        `json:"email,omitempty"`
	Mobile          string        `json:"mobile,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ContactRequestCreate is the inbound payload for filing a request. ProfileID
// and Amount arrive as strings because upstream clients send them in mixed
// representations; the service coerces and validates both.
type ContactRequestCreate struct {
	ProfileID       string `json:"profile_id"`
	RequesterEmail  string `json:"requester_email"`
	Amount          string `json:"amount"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

// ContactSnapshot is the contact data copied onto a request at approval.
type ContactSnapshot struct {
	Name   string
	Email  string
	Mobile string
}

// ============================================================
// Payments
// ============================================================

// ChargeIntent is the gateway-side record of a disclosure-fee charge.
// Amount is in whole currency units, converted from the gateway's minor
// units by the payment client.
type ChargeIntent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"client_secret,omitempty"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

// ChargeSucceeded is the gateway status a charge must carry before a
// contact request referencing it is accepted.
const ChargeSucceeded = "succeeded"
