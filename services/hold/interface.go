package hold

import (
	"context"
	"time"

	"slotline/models"
)

// Manager owns the single live hold of one booking session: creation,
// countdown, supersession and teardown. At most one hold is live at a
// time; creating a new one best-effort deletes any prior id first.
type Manager interface {
	// Current returns the live hold, or nil. After expiry it is nil and
	// stays nil until a brand-new Create.
	Current() *models.Hold

	// Expired reports whether the latched-expired state is set.
	Expired() bool

	// Create places a hold on a slot. Any previously known hold id gets
	// a non-awaited delete before the request goes out. ExpiresAt in the
	// result is the server's, never a local computation.
	Create(ctx context.Context, offeringID string, slotInstant time.Time, mode models.AppointmentMode) (*models.Hold, error)

	// Tick samples the countdown against the server expiry. Expired
	// latches: once reported it never unreports without a new hold.
	Tick(now time.Time) models.HoldTick

	// Invalidate tears down the current hold (superseded or cancelled).
	// The delete is fire-and-forget; the caller never blocks on it.
	Invalidate(status models.HoldStatus)

	// Hydrate re-reads a hold from the server when its identity came
	// from a non-authoritative source. A missing hold clears all local
	// state and returns (nil, nil).
	Hydrate(ctx context.Context, holdID string) (*models.Hold, error)

	// MarkInvalid applies the hold-invalid recovery: a dependent request
	// rejected because the hold vanished or mismatched, which is treated
	// exactly like a local expiry.
	MarkInvalid()

	// Stop tears down the countdown goroutine. Idempotent.
	Stop()
}
