package availability

import (
	"context"
	"time"

	"slotline/models"
)

// Service fetches and caches day-level availability per selection key.
type Service interface {
	// GetDaySummaries returns the ordered bookable horizon for key.
	// The response's resolved zone and echoed serviceId/mode override
	// any optimistic local assumption.
	GetDaySummaries(ctx context.Context, key models.SelectionKey) (*models.AvailabilitySummary, error)

	// GetDaySlots returns the open slot instants for one day, merged
	// across the primary professional and any secondaries. A failed
	// secondary branch degrades to empty; a failed primary surfaces.
	GetDaySlots(ctx context.Context, key models.SelectionKey, date string) ([]time.Time, error)
}
