package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"slotline/models"
	"slotline/repository/scheduling"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultAvailabilityService implements Service on top of the scheduling
// backend, with per-key caching, in-flight deduplication and a soft
// re-issue throttle.
type DefaultAvailabilityService struct {
	Repo           scheduling.API
	Cache          *MemoryCache
	TTL            time.Duration
	ThrottleWindow time.Duration
	Logger         *zap.Logger

	// Now is the clock; overridable in tests.
	Now func() time.Time

	group singleflight.Group
}

func NewDefaultAvailabilityService(repo scheduling.API, ttl, throttle time.Duration, logger *zap.Logger) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{
		Repo:           repo,
		Cache:          NewMemoryCache(),
		TTL:            ttl,
		ThrottleWindow: throttle,
		Logger:         logger,
		Now:            time.Now,
	}
}

func (s *DefaultAvailabilityService) GetDaySummaries(ctx context.Context, key models.SelectionKey) (*models.AvailabilitySummary, error) {
	ck := key.CacheKey()
	now := s.Now()

	if payload, fresh, ok := s.Cache.Lookup(ck, now, s.TTL); ok {
		summary := payload.(*models.AvailabilitySummary)
		if fresh || s.Cache.CompletedWithin(ck, now, s.ThrottleWindow) {
			return summary, nil
		}
		// Stale but servable: hand back the cached horizon immediately
		// and refresh behind it. A failed refresh leaves the entry alone.
		go s.refreshSummary(key, ck)
		return summary, nil
	}

	result, err, _ := s.group.Do(ck, func() (any, error) {
		return s.fetchSummary(ctx, key, ck)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.AvailabilitySummary), nil
}

func (s *DefaultAvailabilityService) refreshSummary(key models.SelectionKey, ck string) {
	_, err, _ := s.group.Do(ck, func() (any, error) {
		return s.fetchSummary(context.Background(), key, ck)
	})
	if err != nil {
		s.Logger.Warn("background availability refresh failed",
			zap.String("key", ck), zap.Error(err))
	}
}

func (s *DefaultAvailabilityService) fetchSummary(ctx context.Context, key models.SelectionKey, ck string) (*models.AvailabilitySummary, error) {
	summary, err := s.Repo.GetAvailabilitySummary(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch availability summary: %w", err)
	}
	s.Cache.Store(ck, summary, s.Now())
	return summary, nil
}

func (s *DefaultAvailabilityService) GetDaySlots(ctx context.Context, key models.SelectionKey, date string) ([]time.Time, error) {
	dk := key.DayCacheKey(date)
	now := s.Now()

	if payload, fresh, ok := s.Cache.Lookup(dk, now, s.TTL); ok {
		slots := payload.([]time.Time)
		if fresh || s.Cache.CompletedWithin(dk, now, s.ThrottleWindow) {
			return slots, nil
		}
		go s.refreshDaySlots(key, date, dk)
		return slots, nil
	}

	result, err, _ := s.group.Do(dk, func() (any, error) {
		return s.fetchDaySlots(ctx, key, date, dk)
	})
	if err != nil {
		return nil, err
	}
	return result.([]time.Time), nil
}

func (s *DefaultAvailabilityService) refreshDaySlots(key models.SelectionKey, date, dk string) {
	_, err, _ := s.group.Do(dk, func() (any, error) {
		return s.fetchDaySlots(context.Background(), key, date, dk)
	})
	if err != nil {
		s.Logger.Warn("background slot refresh failed",
			zap.String("key", dk), zap.Error(err))
	}
}

// fetchDaySlots fans out to the primary professional plus any
// secondaries and applies the merged result only once every branch has
// settled. Secondary failures degrade to empty lists so one failed
// branch never blanks the whole view; a primary failure surfaces and
// leaves any existing cache entry untouched.
func (s *DefaultAvailabilityService) fetchDaySlots(ctx context.Context, key models.SelectionKey, date, dk string) ([]time.Time, error) {
	professionals := []string{key.ProfessionalID}
	if summary, err := s.GetDaySummaries(ctx, key); err == nil {
		for _, ref := range summary.Secondaries {
			if ref.ID != "" && ref.ID != key.ProfessionalID {
				professionals = append(professionals, ref.ID)
			}
		}
	} else {
		s.Logger.Debug("slot fan-out proceeding without summary", zap.Error(err))
	}

	type branch struct {
		slots []time.Time
		err   error
	}
	results := make([]branch, len(professionals))
	done := make(chan int, len(professionals))
	for i, professionalID := range professionals {
		go func(i int, professionalID string) {
			day, err := s.Repo.GetDaySlots(ctx, professionalID, key, date)
			if err != nil {
				results[i] = branch{err: err}
			} else {
				results[i] = branch{slots: day.Slots}
			}
			done <- i
		}(i, professionalID)
	}
	for range professionals {
		<-done
	}

	// Primary failure is user-visible.
	if err := results[0].err; err != nil {
		return nil, fmt.Errorf("failed to fetch slots for %s: %w", date, err)
	}

	merged := append([]time.Time(nil), results[0].slots...)
	for i := 1; i < len(results); i++ {
		if results[i].err != nil {
			s.Logger.Debug("secondary slot branch failed",
				zap.String("professionalId", professionals[i]), zap.Error(results[i].err))
			continue
		}
		merged = append(merged, results[i].slots...)
	}
	merged = dedupeSorted(merged)

	s.Cache.Store(dk, merged, s.Now())
	return merged, nil
}

// dedupeSorted sorts instants ascending and drops duplicates; slots are
// unique by instant within one day's list.
func dedupeSorted(slots []time.Time) []time.Time {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	out := slots[:0]
	for _, t := range slots {
		if len(out) == 0 || !out[len(out)-1].Equal(t) {
			out = append(out, t)
		}
	}
	return out
}
