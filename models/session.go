package models

import "time"

// SelectionState is what the user currently has picked inside one
// booking session. Zero values mean "nothing selected yet".
type SelectionState struct {
	Mode           AppointmentMode `json:"mode,omitempty"`
	ModeForced     bool            `json:"modeForced,omitempty"`
	SelectedDay    string          `json:"selectedDay,omitempty"`
	SelectedBucket TimeBucket      `json:"selectedBucket,omitempty"`
	BucketExplicit bool            `json:"bucketExplicit,omitempty"`
	SelectedSlot   *time.Time      `json:"selectedSlot,omitempty"`
}

// BookingSession holds context for one open booking drawer. One session
// is constructed per "open" event and discarded on close; it is the only
// place a hold id lives between requests.
type BookingSession struct {
	SessionID string         `json:"sessionId"`
	UserID    string         `json:"userId,omitempty"`
	Key       SelectionKey   `json:"key"`
	ZoneID    string         `json:"resolvedZone,omitempty"`
	Selection SelectionState `json:"selection"`
	Hold      *Hold          `json:"hold,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
