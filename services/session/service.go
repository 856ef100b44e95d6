package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"slotline/models"
	"slotline/repository/scheduling"
	"slotline/services/availability"
	"slotline/services/hold"
	"slotline/services/selection"
	"slotline/services/zone"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoSlotSelected blocks hold placement until the user picked a slot.
var ErrNoSlotSelected = errors.New("no slot selected")

// ErrNoDaySelected blocks slot fetches until a day is picked or
// defaulted by the day-summary reconciliation.
var ErrNoDaySelected = errors.New("no day selected")

// ExpiryScheduler enqueues a cleanup job for the moment a hold's server
// expiry passes, so a session abandoned mid-checkout does not keep
// pointing at a dead hold. Best effort; the countdown is the primary
// path.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, sessionID string, h models.Hold) error
}

// runtime is the in-process half of one session: the hold manager with
// its countdown goroutine, a per-session lock serializing state
// transitions, and still-current counters for fetch supersession.
type runtime struct {
	mu         sync.Mutex
	holds      *hold.DefaultHoldManager
	summarySeq atomic.Uint64
	slotSeq    atomic.Uint64
}

// DefaultSessionService implements Service.
type DefaultSessionService struct {
	Store        Store
	Availability availability.Service
	Repo         scheduling.API
	Expiry       ExpiryScheduler
	Logger       *zap.Logger
	TTL          time.Duration
	Now          func() time.Time

	mu       sync.Mutex
	runtimes map[string]*runtime
}

func NewDefaultSessionService(store Store, avail availability.Service, repo scheduling.API, ttl time.Duration, logger *zap.Logger) *DefaultSessionService {
	return &DefaultSessionService{
		Store:        store,
		Availability: avail,
		Repo:         repo,
		Logger:       logger,
		TTL:          ttl,
		Now:          time.Now,
		runtimes:     make(map[string]*runtime),
	}
}

func (s *DefaultSessionService) Open(ctx context.Context, userID string, key models.SelectionKey) (*models.BookingSession, error) {
	session := &models.BookingSession{
		SessionID: uuid.New().String(),
		UserID:    userID,
		Key:       key,
		Selection: models.SelectionState{Mode: key.Mode},
		CreatedAt: s.Now(),
	}
	if err := s.Store.Put(ctx, session, s.TTL); err != nil {
		return nil, err
	}
	s.getRuntime(session.SessionID)
	return session, nil
}

func (s *DefaultSessionService) Get(ctx context.Context, sessionID string) (*models.BookingSession, error) {
	rt := s.getRuntime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return s.loadAndHydrate(ctx, sessionID, rt)
}

func (s *DefaultSessionService) Close(ctx context.Context, sessionID string) error {
	rt := s.getRuntime(sessionID)
	rt.mu.Lock()
	rt.holds.Invalidate(models.HoldStatusCancelled)
	rt.holds.Stop()
	rt.mu.Unlock()

	s.mu.Lock()
	delete(s.runtimes, sessionID)
	s.mu.Unlock()

	return s.Store.Delete(ctx, sessionID)
}

func (s *DefaultSessionService) DaySummaries(ctx context.Context, sessionID string) (*models.AvailabilitySummary, *models.BookingSession, error) {
	rt := s.getRuntime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := s.loadAndHydrate(ctx, sessionID, rt)
	if err != nil {
		return nil, nil, err
	}

	seq := rt.summarySeq.Add(1)
	summary, err := s.Availability.GetDaySummaries(ctx, session.Key)
	if err != nil {
		return nil, nil, err
	}
	if rt.summarySeq.Load() != seq {
		// Superseded by a newer fetch for the same purpose; its result
		// owns the state now.
		return summary, session, nil
	}

	loc := zone.Sanitize(summary.ZoneID, summary.Primary.ZoneID)
	machine := selection.NewMachine(&session.Selection, rt.holds, s.Logger)
	machine.ApplySummary(summary, loc, s.Now())

	// The echoed serviceId/mode are authoritative over what we asked for.
	if summary.ServiceID != "" {
		session.Key.ServiceID = summary.ServiceID
	}
	session.Key.Mode = session.Selection.Mode
	session.ZoneID = loc.String()
	session.Hold = rt.holds.Current()

	if err := s.Store.Put(ctx, session, s.TTL); err != nil {
		return nil, nil, err
	}
	return summary, session, nil
}

func (s *DefaultSessionService) DaySlots(ctx context.Context, sessionID string) ([]time.Time, *models.BookingSession, error) {
	rt := s.getRuntime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := s.loadAndHydrate(ctx, sessionID, rt)
	if err != nil {
		return nil, nil, err
	}
	if session.Selection.SelectedDay == "" {
		return nil, nil, fmt.Errorf("session %s: %w", sessionID, ErrNoDaySelected)
	}

	seq := rt.slotSeq.Add(1)
	slots, err := s.Availability.GetDaySlots(ctx, session.Key, session.Selection.SelectedDay)
	if err != nil {
		return nil, nil, err
	}
	if rt.slotSeq.Load() != seq {
		return slots, session, nil
	}

	loc := zone.Sanitize(session.ZoneID)
	machine := selection.NewMachine(&session.Selection, rt.holds, s.Logger)
	machine.ApplySlots(slots, loc)
	session.Hold = rt.holds.Current()

	if err := s.Store.Put(ctx, session, s.TTL); err != nil {
		return nil, nil, err
	}
	return slots, session, nil
}

func (s *DefaultSessionService) ApplySelection(ctx context.Context, sessionID string, event SelectionEvent) (*models.BookingSession, error) {
	rt := s.getRuntime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := s.loadAndHydrate(ctx, sessionID, rt)
	if err != nil {
		return nil, err
	}

	machine := selection.NewMachine(&session.Selection, rt.holds, s.Logger)
	switch {
	case event.Mode != "":
		if err := machine.PickMode(event.Mode); err != nil {
			return nil, err
		}
		session.Key.Mode = session.Selection.Mode
	case event.Day != "":
		machine.PickDay(event.Day)
	case event.Bucket != "":
		machine.PickBucket(event.Bucket)
	case event.Slot != nil:
		machine.PickSlot(*event.Slot)
	default:
		return nil, fmt.Errorf("empty selection event for session %s", sessionID)
	}

	session.Hold = rt.holds.Current()
	if err := s.Store.Put(ctx, session, s.TTL); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *DefaultSessionService) PlaceHold(ctx context.Context, sessionID, offeringID string) (*models.Hold, error) {
	rt := s.getRuntime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := s.loadAndHydrate(ctx, sessionID, rt)
	if err != nil {
		return nil, err
	}
	if session.Selection.SelectedSlot == nil {
		return nil, ErrNoSlotSelected
	}

	created, err := rt.holds.Create(ctx, offeringID, *session.Selection.SelectedSlot, session.Selection.Mode)
	if err != nil {
		session.Hold = nil
		if putErr := s.Store.Put(ctx, session, s.TTL); putErr != nil {
			s.Logger.Warn("failed to persist session after hold failure", zap.Error(putErr))
		}
		return nil, err
	}

	session.Hold = created
	if err := s.Store.Put(ctx, session, s.TTL); err != nil {
		return nil, err
	}

	if s.Expiry != nil {
		if err := s.Expiry.ScheduleExpiry(ctx, sessionID, *created); err != nil {
			s.Logger.Warn("failed to schedule hold expiry cleanup",
				zap.String("holdId", created.ID), zap.Error(err))
		}
	}
	return created, nil
}

func (s *DefaultSessionService) HoldStatus(ctx context.Context, sessionID string) (*HoldView, error) {
	rt := s.getRuntime(sessionID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	session, err := s.loadAndHydrate(ctx, sessionID, rt)
	if err != nil {
		return nil, err
	}

	tick := rt.holds.Tick(s.Now())
	current := rt.holds.Current()
	if tick.Expired && session.Hold != nil {
		// Expiry already cleared the manager; mirror it into the
		// persisted session so no stale hold id remains anywhere.
		session.Hold = nil
		session.Selection.SelectedSlot = nil
		if err := s.Store.Put(ctx, session, s.TTL); err != nil {
			return nil, err
		}
	}
	return &HoldView{Hold: current, Tick: tick}, nil
}

// loadAndHydrate loads the session and, when the runtime has no live
// hold but the stored session references one, re-reads that hold from
// the server. The session blob is a non-authoritative source of hold
// identity; the server answer wins, and "missing" clears the reference.
func (s *DefaultSessionService) loadAndHydrate(ctx context.Context, sessionID string, rt *runtime) (*models.BookingSession, error) {
	session, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Hold != nil && rt.holds.Current() == nil {
		if rt.holds.Expired() {
			// A locally expired hold must never come back, even if the
			// server still thinks it is live.
			session.Hold = nil
			session.Selection.SelectedSlot = nil
			if err := s.Store.Put(ctx, session, s.TTL); err != nil {
				return nil, err
			}
			return session, nil
		}
		hydrated, err := rt.holds.Hydrate(ctx, session.Hold.ID)
		if err != nil {
			return nil, err
		}
		session.Hold = hydrated
		if hydrated == nil {
			session.Selection.SelectedSlot = nil
		}
		if err := s.Store.Put(ctx, session, s.TTL); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *DefaultSessionService) getRuntime(sessionID string) *runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.runtimes[sessionID]; ok {
		return rt
	}
	manager := hold.NewDefaultHoldManager(s.Repo, s.Logger)
	manager.Now = s.Now
	manager.OnExpire = s.expireCallback(sessionID)
	rt := &runtime{holds: manager}
	s.runtimes[sessionID] = rt
	return rt
}

// expireCallback clears the persisted hold reference when the countdown
// hits zero, so the expiry is visible even before the next poll.
func (s *DefaultSessionService) expireCallback(sessionID string) func(models.Hold) {
	return func(expired models.Hold) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		session, err := s.Store.Get(ctx, sessionID)
		if err != nil {
			return
		}
		if session.Hold == nil || session.Hold.ID != expired.ID {
			return
		}
		session.Hold = nil
		session.Selection.SelectedSlot = nil
		if err := s.Store.Put(ctx, session, s.TTL); err != nil {
			s.Logger.Warn("failed to persist expiry cleanup",
				zap.String("sessionId", sessionID), zap.Error(err))
			return
		}
		s.Logger.Info("hold expired",
			zap.String("sessionId", sessionID), zap.String("holdId", expired.ID))
	}
}
