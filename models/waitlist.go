package models

import "time"

// WaitlistRequest asks the backend to notify the user when a slot near
// the desired instant opens up. Independent of the hold lifecycle.
type WaitlistRequest struct {
	ProfessionalID     string    `json:"professionalId"`
	ServiceID          string    `json:"serviceId"`
	DesiredInstant     time.Time `json:"desiredInstant"`
	FlexibilityMinutes int       `json:"flexibilityMinutes"`
	Notes              string    `json:"notes,omitempty"`
}

// WaitlistEntry is the created record echoed back by the backend.
type WaitlistEntry struct {
	ID             string    `json:"id"`
	ProfessionalID string    `json:"professionalId"`
	ServiceID      string    `json:"serviceId"`
	DesiredInstant time.Time `json:"desiredInstant"`
	CreatedAt      time.Time `json:"createdAt"`
}
