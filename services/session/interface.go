package session

import (
	"context"
	"time"

	"slotline/models"
)

// SelectionEvent is one discrete user action inside the drawer. Exactly
// one field is meaningful per event.
type SelectionEvent struct {
	Mode   models.AppointmentMode `json:"mode,omitempty"`
	Day    string                 `json:"day,omitempty"`
	Bucket models.TimeBucket      `json:"bucket,omitempty"`
	Slot   *time.Time             `json:"slot,omitempty"`
}

// HoldView is the countdown snapshot handed to the client.
type HoldView struct {
	Hold *models.Hold    `json:"hold,omitempty"`
	Tick models.HoldTick `json:"tick"`
}

// Service coordinates one booking drawer per open event: selection
// state, availability fetching and the hold lifecycle.
type Service interface {
	// Open creates a new session for one drawer-open event.
	Open(ctx context.Context, userID string, key models.SelectionKey) (*models.BookingSession, error)

	// Get restores a session. When the session carries a hold id from a
	// prior process, the hold is re-read from the server first; a
	// missing hold clears the local reference.
	Get(ctx context.Context, sessionID string) (*models.BookingSession, error)

	// Close cancels the session and tears down any live hold.
	Close(ctx context.Context, sessionID string) error

	// DaySummaries fetches the bookable horizon for the session's key
	// and reconciles the selection state with it.
	DaySummaries(ctx context.Context, sessionID string) (*models.AvailabilitySummary, *models.BookingSession, error)

	// DaySlots fetches the selected day's slots and reconciles bucket
	// and slot selection with them.
	DaySlots(ctx context.Context, sessionID string) ([]time.Time, *models.BookingSession, error)

	// ApplySelection applies one discrete selection event. Hold
	// invalidation happens before the new state commits.
	ApplySelection(ctx context.Context, sessionID string, event SelectionEvent) (*models.BookingSession, error)

	// PlaceHold reserves the session's selected slot. Any prior hold is
	// superseded first.
	PlaceHold(ctx context.Context, sessionID, offeringID string) (*models.Hold, error)

	// HoldStatus samples the countdown of the session's hold.
	HoldStatus(ctx context.Context, sessionID string) (*HoldView, error)
}
