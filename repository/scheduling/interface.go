package scheduling

import (
	"context"
	"time"

	"slotline/models"
)

// API is the reservation backend contract the coordinator consumes.
// Wire shapes are the server's concern; every method returns either a
// success value or a typed *APIError.
type API interface {
	// GetAvailabilitySummary fetches the bookable horizon for one
	// selection. The echoed mode/serviceId and resolved zone are
	// authoritative over the request parameters.
	GetAvailabilitySummary(ctx context.Context, key models.SelectionKey) (*models.AvailabilitySummary, error)

	// GetDaySlots fetches open slot instants for one professional on
	// one day. professionalID may differ from key.ProfessionalID when
	// fanning out to secondary professionals.
	GetDaySlots(ctx context.Context, professionalID string, key models.SelectionKey, date string) (*models.DaySlots, error)

	// CreateHold places an exclusive, time-boxed claim on a slot.
	// ExpiresAt in the result comes from the server, never a local clock.
	CreateHold(ctx context.Context, offeringID string, slotInstant time.Time, mode models.AppointmentMode) (*models.Hold, error)

	// GetHold re-reads a hold by id; a KindNotFound error means the hold
	// is gone and all local state for it must clear.
	GetHold(ctx context.Context, holdID string) (*models.Hold, error)

	// DeleteHold releases a hold. Callers treat it as fire-and-forget;
	// the server TTL is the backstop against orphaned reservations.
	DeleteHold(ctx context.Context, holdID string) error

	// JoinWaitlist registers interest in a slot near the desired
	// instant. Independent of the hold lifecycle.
	JoinWaitlist(ctx context.Context, req models.WaitlistRequest) (*models.WaitlistEntry, error)
}
