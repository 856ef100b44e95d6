package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"slotline/models"
	"slotline/repository/scheduling"

	"go.uber.org/zap"
)

// memStore is the in-memory Store used in tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]models.BookingSession
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]models.BookingSession)}
}

func (m *memStore) Get(ctx context.Context, sessionID string) (*models.BookingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := s
	return &out, nil
}

func (m *memStore) Put(ctx context.Context, session *models.BookingSession, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.SessionID] = *session
	return nil
}

func (m *memStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// fakeAvailability implements availability.Service with canned data.
type fakeAvailability struct {
	summary *models.AvailabilitySummary
	slots   map[string][]time.Time
}

func (f *fakeAvailability) GetDaySummaries(ctx context.Context, key models.SelectionKey) (*models.AvailabilitySummary, error) {
	out := *f.summary
	return &out, nil
}

func (f *fakeAvailability) GetDaySlots(ctx context.Context, key models.SelectionKey, date string) ([]time.Time, error) {
	return f.slots[date], nil
}

// fakeBackend implements scheduling.API, recording hold traffic.
type fakeBackend struct {
	mu     sync.Mutex
	calls  []string
	nextID string
	ttl    time.Duration
	now    func() time.Time
	remote *models.Hold
	getErr error
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) GetAvailabilitySummary(ctx context.Context, key models.SelectionKey) (*models.AvailabilitySummary, error) {
	return nil, &scheduling.APIError{Kind: scheduling.KindValidation, Message: "unused"}
}

func (f *fakeBackend) GetDaySlots(ctx context.Context, professionalID string, key models.SelectionKey, date string) (*models.DaySlots, error) {
	return nil, &scheduling.APIError{Kind: scheduling.KindValidation, Message: "unused"}
}

func (f *fakeBackend) CreateHold(ctx context.Context, offeringID string, slotInstant time.Time, mode models.AppointmentMode) (*models.Hold, error) {
	f.record("create:" + f.nextID)
	return &models.Hold{
		ID:          f.nextID,
		OfferingID:  offeringID,
		SlotInstant: slotInstant,
		Mode:        mode,
		ExpiresAt:   f.now().Add(f.ttl),
	}, nil
}

func (f *fakeBackend) GetHold(ctx context.Context, holdID string) (*models.Hold, error) {
	f.record("get:" + holdID)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.remote, nil
}

func (f *fakeBackend) DeleteHold(ctx context.Context, holdID string) error {
	f.record("delete:" + holdID)
	return nil
}

func (f *fakeBackend) JoinWaitlist(ctx context.Context, req models.WaitlistRequest) (*models.WaitlistEntry, error) {
	return nil, &scheduling.APIError{Kind: scheduling.KindValidation, Message: "unused"}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testSummary() *models.AvailabilitySummary {
	return &models.AvailabilitySummary{
		ZoneID:       "America/New_York",
		ServiceID:    "svc-1",
		AllowedModes: []models.AppointmentMode{models.ModeInPerson, models.ModeMobile},
		Days: []models.DaySummary{
			{Date: "2026-06-16", OpenSlotCount: 3},
			{Date: "2026-06-17", OpenSlotCount: 0},
		},
		Primary: models.ProfessionalRef{ID: "pro-1", ZoneID: "America/New_York"},
	}
}

func newTestService(backend *fakeBackend, clock *testClock) (*DefaultSessionService, *memStore) {
	backend.now = clock.Now
	store := newMemStore()
	avail := &fakeAvailability{
		summary: testSummary(),
		slots: map[string][]time.Time{
			"2026-06-16": {
				time.Date(2026, time.June, 16, 17, 0, 0, 0, time.UTC), // 13:00 New York
				time.Date(2026, time.June, 16, 18, 0, 0, 0, time.UTC),
				time.Date(2026, time.June, 16, 19, 0, 0, 0, time.UTC),
			},
		},
	}
	svc := NewDefaultSessionService(store, avail, backend, 30*time.Minute, zap.NewNop())
	svc.Now = clock.Now
	return svc, store
}

func openSession(t *testing.T, svc *DefaultSessionService) *models.BookingSession {
	t.Helper()
	session, err := svc.Open(context.Background(), "user-1", models.SelectionKey{
		ProfessionalID: "pro-1",
		ServiceID:      "svc-1",
		Mode:           models.ModeInPerson,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return session
}

func waitForCall(t *testing.T, backend *fakeBackend, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		for _, c := range backend.callLog() {
			if c == want {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("call %q never happened; log: %v", want, backend.callLog())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDaySummaries_AppliesDefaults(t *testing.T) {
	backend := &fakeBackend{ttl: 600 * time.Second}
	svc, _ := newTestService(backend, newTestClock())
	ctx := context.Background()
	session := openSession(t, svc)

	summary, updated, err := svc.DaySummaries(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("day summaries: %v", err)
	}
	if len(summary.Days) != 2 {
		t.Fatalf("expected horizon of 2 days, got %d", len(summary.Days))
	}
	if updated.Selection.SelectedDay != "2026-06-16" {
		t.Fatalf("expected default day from server list, got %q", updated.Selection.SelectedDay)
	}
	if updated.ZoneID != "America/New_York" {
		t.Fatalf("expected resolved zone persisted, got %q", updated.ZoneID)
	}
}

func TestDaySlots_AppliesBucketCorrection(t *testing.T) {
	backend := &fakeBackend{ttl: 600 * time.Second}
	svc, _ := newTestService(backend, newTestClock())
	ctx := context.Background()
	session := openSession(t, svc)

	if _, _, err := svc.DaySummaries(ctx, session.SessionID); err != nil {
		t.Fatalf("day summaries: %v", err)
	}
	slots, updated, err := svc.DaySlots(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	// All slots are 13:00-15:00 New York: afternoon is the default bucket.
	if updated.Selection.SelectedBucket != models.BucketAfternoon {
		t.Fatalf("expected afternoon bucket, got %s", updated.Selection.SelectedBucket)
	}
}

func TestPickThenRepick_SupersedesHold(t *testing.T) {
	backend := &fakeBackend{ttl: 600 * time.Second}
	svc, store := newTestService(backend, newTestClock())
	ctx := context.Background()
	session := openSession(t, svc)
	if _, _, err := svc.DaySummaries(ctx, session.SessionID); err != nil {
		t.Fatalf("day summaries: %v", err)
	}

	t1 := time.Date(2026, time.June, 16, 17, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, time.June, 16, 18, 0, 0, 0, time.UTC)

	backend.nextID = "h1"
	if _, err := svc.ApplySelection(ctx, session.SessionID, SelectionEvent{Slot: &t1}); err != nil {
		t.Fatalf("pick t1: %v", err)
	}
	h1, err := svc.PlaceHold(ctx, session.SessionID, "off-1")
	if err != nil {
		t.Fatalf("hold t1: %v", err)
	}
	if h1.ID != "h1" {
		t.Fatalf("expected h1, got %s", h1.ID)
	}

	backend.nextID = "h2"
	if _, err := svc.ApplySelection(ctx, session.SessionID, SelectionEvent{Slot: &t2}); err != nil {
		t.Fatalf("pick t2: %v", err)
	}
	h2, err := svc.PlaceHold(ctx, session.SessionID, "off-1")
	if err != nil {
		t.Fatalf("hold t2: %v", err)
	}

	waitForCall(t, backend, "delete:h1")
	deletes := 0
	for _, c := range backend.callLog() {
		if c == "delete:h1" {
			deletes++
		}
	}
	if deletes != 1 {
		t.Fatalf("expected exactly one delete of h1, log: %v", backend.callLog())
	}

	persisted, err := store.Get(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if persisted.Hold == nil || persisted.Hold.ID != h2.ID {
		t.Fatalf("expected h2 persisted, got %+v", persisted.Hold)
	}
}

func TestHoldExpiry_ClearsSessionState(t *testing.T) {
	backend := &fakeBackend{ttl: 600 * time.Second, nextID: "h1"}
	clock := newTestClock()
	svc, store := newTestService(backend, clock)
	ctx := context.Background()
	session := openSession(t, svc)
	if _, _, err := svc.DaySummaries(ctx, session.SessionID); err != nil {
		t.Fatalf("day summaries: %v", err)
	}

	slot := time.Date(2026, time.June, 16, 17, 0, 0, 0, time.UTC)
	if _, err := svc.ApplySelection(ctx, session.SessionID, SelectionEvent{Slot: &slot}); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if _, err := svc.PlaceHold(ctx, session.SessionID, "off-1"); err != nil {
		t.Fatalf("hold: %v", err)
	}

	clock.Advance(601 * time.Second)
	view, err := svc.HoldStatus(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("hold status: %v", err)
	}
	if !view.Tick.Expired || view.Hold != nil {
		t.Fatalf("expected expired view, got %+v", view)
	}

	persisted, err := store.Get(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if persisted.Hold != nil {
		t.Fatal("stale hold id survived expiry")
	}
	if persisted.Selection.SelectedSlot != nil {
		t.Fatal("selected slot survived expiry")
	}

	// Expiry stays latched on later polls.
	view, err = svc.HoldStatus(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("second hold status: %v", err)
	}
	if !view.Tick.Expired {
		t.Fatalf("expiry did not latch: %+v", view)
	}
}

func TestGet_HydratesRestoredSession(t *testing.T) {
	clock := newTestClock()
	remote := &models.Hold{
		ID:          "h9",
		OfferingID:  "off-1",
		SlotInstant: clock.Now().Add(24 * time.Hour),
		Mode:        models.ModeInPerson,
		ExpiresAt:   clock.Now().Add(5 * time.Minute),
	}
	backend := &fakeBackend{remote: remote}
	svc, store := newTestService(backend, clock)
	ctx := context.Background()

	// A session written by a previous process: its hold data is a guess.
	stale := *remote
	stale.ExpiresAt = clock.Now().Add(time.Hour)
	seeded := &models.BookingSession{
		SessionID: "restored-1",
		Key:       models.SelectionKey{ProfessionalID: "pro-1", ServiceID: "svc-1", Mode: models.ModeInPerson},
		Hold:      &stale,
		CreatedAt: clock.Now(),
	}
	if err := store.Put(ctx, seeded, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	restored, err := svc.Get(ctx, "restored-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if restored.Hold == nil || !restored.Hold.ExpiresAt.Equal(remote.ExpiresAt) {
		t.Fatalf("server expiry must win over the local guess, got %+v", restored.Hold)
	}
	waitForCall(t, backend, "get:h9")
}

func TestGet_MissingHoldClearsReference(t *testing.T) {
	clock := newTestClock()
	backend := &fakeBackend{getErr: &scheduling.APIError{Kind: scheduling.KindNotFound, Message: "gone"}}
	svc, store := newTestService(backend, clock)
	ctx := context.Background()

	slot := clock.Now().Add(24 * time.Hour)
	seeded := &models.BookingSession{
		SessionID: "restored-2",
		Key:       models.SelectionKey{ProfessionalID: "pro-1", ServiceID: "svc-1", Mode: models.ModeInPerson},
		Selection: models.SelectionState{SelectedSlot: &slot},
		Hold:      &models.Hold{ID: "h-gone", ExpiresAt: clock.Now().Add(time.Hour)},
		CreatedAt: clock.Now(),
	}
	if err := store.Put(ctx, seeded, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	restored, err := svc.Get(ctx, "restored-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if restored.Hold != nil {
		t.Fatalf("missing hold must clear, got %+v", restored.Hold)
	}
	if restored.Selection.SelectedSlot != nil {
		t.Fatal("selected slot must clear with the missing hold")
	}
	persisted, _ := store.Get(ctx, "restored-2")
	if persisted.Hold != nil {
		t.Fatal("cleared hold leaked back into the store")
	}
}

func TestModeChange_InvalidatesHold(t *testing.T) {
	backend := &fakeBackend{ttl: 600 * time.Second, nextID: "h1"}
	svc, _ := newTestService(backend, newTestClock())
	ctx := context.Background()
	session := openSession(t, svc)
	if _, _, err := svc.DaySummaries(ctx, session.SessionID); err != nil {
		t.Fatalf("day summaries: %v", err)
	}

	slot := time.Date(2026, time.June, 16, 17, 0, 0, 0, time.UTC)
	if _, err := svc.ApplySelection(ctx, session.SessionID, SelectionEvent{Slot: &slot}); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if _, err := svc.PlaceHold(ctx, session.SessionID, "off-1"); err != nil {
		t.Fatalf("hold: %v", err)
	}

	updated, err := svc.ApplySelection(ctx, session.SessionID, SelectionEvent{Mode: models.ModeMobile})
	if err != nil {
		t.Fatalf("mode change: %v", err)
	}
	if updated.Hold != nil {
		t.Fatal("hold must clear on mode change")
	}
	if updated.Key.Mode != models.ModeMobile {
		t.Fatalf("key mode not updated, got %s", updated.Key.Mode)
	}
	waitForCall(t, backend, "delete:h1")
}

func TestPlaceHold_RequiresSelectedSlot(t *testing.T) {
	backend := &fakeBackend{ttl: 600 * time.Second}
	svc, _ := newTestService(backend, newTestClock())
	ctx := context.Background()
	session := openSession(t, svc)

	if _, err := svc.PlaceHold(ctx, session.SessionID, "off-1"); err != ErrNoSlotSelected {
		t.Fatalf("expected ErrNoSlotSelected, got %v", err)
	}
}
