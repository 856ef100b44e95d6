package hold

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slotline/models"
	"slotline/repository/scheduling"

	"go.uber.org/zap"
)

const (
	// DefaultTickInterval is the countdown sampling cadence; sub-second
	// precision is unnecessary.
	DefaultTickInterval = 500 * time.Millisecond
	// DefaultUrgentThreshold is the UI urgency cutoff. No server meaning.
	DefaultUrgentThreshold = 2 * time.Minute
)

// DefaultHoldManager implements Manager for one booking session.
type DefaultHoldManager struct {
	Repo            scheduling.API
	Logger          *zap.Logger
	Now             func() time.Time
	TickInterval    time.Duration
	UrgentThreshold time.Duration

	// OnExpire fires exactly once per hold when the countdown hits zero,
	// after local state is already cleared. Optional.
	OnExpire func(expired models.Hold)

	mu          sync.Mutex
	hold        *models.Hold
	status      models.HoldStatus
	expired     bool
	expireFired bool
	stopTicker  chan struct{}
}

func NewDefaultHoldManager(repo scheduling.API, logger *zap.Logger) *DefaultHoldManager {
	return &DefaultHoldManager{
		Repo:            repo,
		Logger:          logger,
		Now:             time.Now,
		TickInterval:    DefaultTickInterval,
		UrgentThreshold: DefaultUrgentThreshold,
	}
}

func (m *DefaultHoldManager) Current() *models.Hold {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hold == nil {
		return nil
	}
	out := *m.hold
	return &out
}

// Expired reports whether the latched-expired state is set. It resets
// only on a brand-new Create or Hydrate.
func (m *DefaultHoldManager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

func (m *DefaultHoldManager) Create(ctx context.Context, offeringID string, slotInstant time.Time, mode models.AppointmentMode) (*models.Hold, error) {
	m.mu.Lock()
	prior := m.hold
	m.hold = nil
	m.status = models.HoldStatusPending
	m.expired = false
	m.expireFired = false
	m.stopCountdownLocked()
	m.mu.Unlock()

	// The old hold lapses on its own server expiry even if this fails.
	if prior != nil {
		m.deleteAsync(prior.ID)
	}

	created, err := m.Repo.CreateHold(ctx, offeringID, slotInstant, mode)
	if err != nil {
		m.mu.Lock()
		m.status = ""
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to create hold: %w", err)
	}

	m.mu.Lock()
	m.hold = created
	m.status = models.HoldStatusLive
	m.startCountdownLocked()
	out := *created
	m.mu.Unlock()
	return &out, nil
}

func (m *DefaultHoldManager) Tick(now time.Time) models.HoldTick {
	m.mu.Lock()
	if m.expired {
		m.mu.Unlock()
		return models.HoldTick{Expired: true}
	}
	if m.hold == nil {
		m.mu.Unlock()
		return models.HoldTick{}
	}

	remaining := m.hold.ExpiresAt.Sub(now)
	if remaining <= 0 {
		expiredHold := *m.hold
		m.hold = nil
		m.status = models.HoldStatusExpired
		m.expired = true
		fire := !m.expireFired && m.OnExpire != nil
		m.expireFired = true
		m.stopCountdownLocked()
		m.mu.Unlock()
		if fire {
			m.OnExpire(expiredHold)
		}
		return models.HoldTick{Expired: true}
	}
	m.mu.Unlock()
	return models.HoldTick{
		Remaining: remaining,
		Urgent:    remaining <= m.UrgentThreshold,
	}
}

func (m *DefaultHoldManager) Invalidate(status models.HoldStatus) {
	m.mu.Lock()
	prior := m.hold
	m.hold = nil
	m.status = status
	m.expired = false
	m.expireFired = false
	m.stopCountdownLocked()
	m.mu.Unlock()

	if prior != nil {
		m.deleteAsync(prior.ID)
	}
}

func (m *DefaultHoldManager) MarkInvalid() {
	m.mu.Lock()
	prior := m.hold
	m.hold = nil
	m.status = models.HoldStatusExpired
	m.expired = true
	m.expireFired = true
	m.stopCountdownLocked()
	m.mu.Unlock()

	if prior != nil {
		m.deleteAsync(prior.ID)
	}
}

func (m *DefaultHoldManager) Hydrate(ctx context.Context, holdID string) (*models.Hold, error) {
	remote, err := m.Repo.GetHold(ctx, holdID)
	if scheduling.IsNotFound(err) {
		// Missing on the server: every local guess about this hold is wrong.
		m.mu.Lock()
		m.hold = nil
		m.status = ""
		m.expired = false
		m.expireFired = false
		m.stopCountdownLocked()
		m.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate hold %s: %w", holdID, err)
	}

	// Server truth wins over any local belief about expiry, instant or mode.
	m.mu.Lock()
	m.hold = remote
	m.status = models.HoldStatusLive
	m.expired = false
	m.expireFired = false
	m.stopCountdownLocked()
	m.startCountdownLocked()
	out := *remote
	m.mu.Unlock()
	return &out, nil
}

func (m *DefaultHoldManager) Stop() {
	m.mu.Lock()
	m.stopCountdownLocked()
	m.mu.Unlock()
}

// deleteAsync issues a fire-and-forget delete. Failures are swallowed;
// the server TTL is the backstop against orphaned reservations.
func (m *DefaultHoldManager) deleteAsync(holdID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Repo.DeleteHold(ctx, holdID); err != nil {
			m.Logger.Debug("hold delete failed, relying on server expiry",
				zap.String("holdId", holdID), zap.Error(err))
		}
	}()
}

// startCountdownLocked launches the countdown goroutine. The caller must
// hold m.mu; never more than one instance runs per session.
func (m *DefaultHoldManager) startCountdownLocked() {
	stop := make(chan struct{})
	m.stopTicker = stop
	go func() {
		ticker := time.NewTicker(m.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if m.Tick(m.Now()).Expired {
					return
				}
			}
		}
	}()
}

func (m *DefaultHoldManager) stopCountdownLocked() {
	if m.stopTicker != nil {
		close(m.stopTicker)
		m.stopTicker = nil
	}
}
