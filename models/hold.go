package models

import "time"

// HoldStatus tracks where a hold is in its lifecycle.
type HoldStatus string

const (
	HoldStatusPending    HoldStatus = "pending"
	HoldStatusLive       HoldStatus = "live"
	HoldStatusExpired    HoldStatus = "expired"
	HoldStatusSuperseded HoldStatus = "superseded"
	HoldStatusCancelled  HoldStatus = "cancelled"
)

// Hold is a short-lived exclusive claim on one slot. ExpiresAt always
// comes from the server response; only the server knows the true TTL
// and clock. Display zones are re-resolved per view, never stored here.
type Hold struct {
	ID          string          `json:"holdId"`
	OfferingID  string          `json:"offeringId"`
	SlotInstant time.Time       `json:"slotInstant"`
	Mode        AppointmentMode `json:"appointmentMode"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// HoldTick is one countdown sample against a hold's ExpiresAt.
// Urgent is a UI threshold with no server meaning.
type HoldTick struct {
	Remaining time.Duration `json:"remainingMs"`
	Urgent    bool          `json:"urgent"`
	Expired   bool          `json:"expired"`
}
