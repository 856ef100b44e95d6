package availability

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"slotline/models"
	"slotline/repository/scheduling"

	"go.uber.org/zap"
)

// fakeClock is a manually advanced clock for cache-expiry tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeBackend implements scheduling.API with canned responses and call
// counters.
type fakeBackend struct {
	summary      *models.AvailabilitySummary
	summaryErr   error
	slotsByDay   map[string][]time.Time
	slotErrs     map[string]error // keyed by professionalID
	delay        time.Duration
	summaryCalls atomic.Int64
	slotCalls    atomic.Int64
}

func (f *fakeBackend) GetAvailabilitySummary(ctx context.Context, key models.SelectionKey) (*models.AvailabilitySummary, error) {
	f.summaryCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	out := *f.summary
	return &out, nil
}

func (f *fakeBackend) GetDaySlots(ctx context.Context, professionalID string, key models.SelectionKey, date string) (*models.DaySlots, error) {
	f.slotCalls.Add(1)
	if err := f.slotErrs[professionalID]; err != nil {
		return nil, err
	}
	return &models.DaySlots{Slots: f.slotsByDay[date]}, nil
}

func (f *fakeBackend) CreateHold(ctx context.Context, offeringID string, slotInstant time.Time, mode models.AppointmentMode) (*models.Hold, error) {
	return nil, &scheduling.APIError{Kind: scheduling.KindValidation, Message: "not implemented"}
}

func (f *fakeBackend) GetHold(ctx context.Context, holdID string) (*models.Hold, error) {
	return nil, &scheduling.APIError{Kind: scheduling.KindNotFound, Message: "missing"}
}

func (f *fakeBackend) DeleteHold(ctx context.Context, holdID string) error { return nil }

func (f *fakeBackend) JoinWaitlist(ctx context.Context, req models.WaitlistRequest) (*models.WaitlistEntry, error) {
	return &models.WaitlistEntry{ID: "w1"}, nil
}

func testKey() models.SelectionKey {
	return models.SelectionKey{
		ProfessionalID: "pro-1",
		ServiceID:      "svc-1",
		Mode:           models.ModeInPerson,
	}
}

func testSummary() *models.AvailabilitySummary {
	return &models.AvailabilitySummary{
		ZoneID:       "America/New_York",
		ServiceID:    "svc-1",
		Mode:         models.ModeInPerson,
		AllowedModes: []models.AppointmentMode{models.ModeInPerson},
		Days: []models.DaySummary{
			{Date: "2026-06-16", OpenSlotCount: 3},
			{Date: "2026-06-17", OpenSlotCount: 0},
		},
		Primary: models.ProfessionalRef{ID: "pro-1", ZoneID: "America/New_York"},
	}
}

func newService(backend *fakeBackend, clock *fakeClock) *DefaultAvailabilityService {
	svc := NewDefaultAvailabilityService(backend, 30*time.Second, 800*time.Millisecond, zap.NewNop())
	svc.Now = clock.Now
	return svc
}

func TestGetDaySummaries_ConcurrentFetchesDedup(t *testing.T) {
	backend := &fakeBackend{summary: testSummary(), delay: 30 * time.Millisecond}
	svc := newService(backend, newFakeClock())

	const n = 8
	var wg sync.WaitGroup
	results := make([]*models.AvailabilitySummary, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetDaySummaries(context.Background(), testKey())
		}(i)
	}
	wg.Wait()

	if got := backend.summaryCalls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 network request, got %d", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("fetch %d failed: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("fetch %d resolved with a different payload", i)
		}
	}
}

func TestGetDaySummaries_ThrottleSuppressesRefetch(t *testing.T) {
	backend := &fakeBackend{summary: testSummary()}
	clock := newFakeClock()
	svc := newService(backend, clock)
	svc.TTL = 500 * time.Millisecond // stale before the throttle window closes

	if _, err := svc.GetDaySummaries(context.Background(), testKey()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	clock.Advance(600 * time.Millisecond)

	summary, err := svc.GetDaySummaries(context.Background(), testKey())
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if summary == nil || len(summary.Days) != 2 {
		t.Fatalf("expected cached horizon, got %+v", summary)
	}
	if got := backend.summaryCalls.Load(); got != 1 {
		t.Fatalf("throttle should suppress the refetch, got %d calls", got)
	}
}

func TestGetDaySummaries_StaleWhileRevalidate(t *testing.T) {
	backend := &fakeBackend{summary: testSummary()}
	clock := newFakeClock()
	svc := newService(backend, clock)

	if _, err := svc.GetDaySummaries(context.Background(), testKey()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	clock.Advance(31 * time.Second)

	// Stale entry is served immediately; a refresh runs behind it.
	summary, err := svc.GetDaySummaries(context.Background(), testKey())
	if err != nil {
		t.Fatalf("stale fetch: %v", err)
	}
	if len(summary.Days) != 2 {
		t.Fatalf("expected cached horizon, got %+v", summary)
	}

	deadline := time.Now().Add(2 * time.Second)
	for backend.summaryCalls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("background refresh never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGetDaySummaries_FailureLeavesCacheUntouched(t *testing.T) {
	backend := &fakeBackend{summary: testSummary()}
	clock := newFakeClock()
	svc := newService(backend, clock)

	if _, err := svc.GetDaySummaries(context.Background(), testKey()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	backend.summaryErr = &scheduling.APIError{Kind: scheduling.KindTransport, Message: "down"}
	clock.Advance(31 * time.Second)

	// Stale-but-valid data keeps displaying even though the refresh fails.
	summary, err := svc.GetDaySummaries(context.Background(), testKey())
	if err != nil {
		t.Fatalf("stale fetch should serve cached data, got %v", err)
	}
	if len(summary.Days) != 2 {
		t.Fatalf("expected cached horizon, got %+v", summary)
	}

	payload, _, ok := svc.Cache.Lookup(testKey().CacheKey(), clock.Now(), svc.TTL)
	if !ok {
		t.Fatal("cache entry vanished after failed refresh")
	}
	if got := payload.(*models.AvailabilitySummary); len(got.Days) != 2 {
		t.Fatalf("cache entry mutated after failed refresh: %+v", got)
	}
}

func TestGetDaySlots_SecondaryBranchDegradesToEmpty(t *testing.T) {
	summary := testSummary()
	summary.Secondaries = []models.ProfessionalRef{{ID: "pro-2"}}
	day := "2026-06-16"
	s1 := time.Date(2026, time.June, 16, 13, 0, 0, 0, time.UTC)
	s2 := time.Date(2026, time.June, 16, 14, 0, 0, 0, time.UTC)
	backend := &fakeBackend{
		summary:    summary,
		slotsByDay: map[string][]time.Time{day: {s2, s1}},
		slotErrs:   map[string]error{"pro-2": &scheduling.APIError{Kind: scheduling.KindTransport, Message: "down"}},
	}
	svc := newService(backend, newFakeClock())

	slots, err := svc.GetDaySlots(context.Background(), testKey(), day)
	if err != nil {
		t.Fatalf("secondary failure must not surface: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 primary slots, got %d", len(slots))
	}
	if !slots[0].Equal(s1) || !slots[1].Equal(s2) {
		t.Fatalf("slots not sorted ascending: %v", slots)
	}
}

func TestGetDaySlots_PrimaryFailureSurfaces(t *testing.T) {
	backend := &fakeBackend{
		summary:  testSummary(),
		slotErrs: map[string]error{"pro-1": &scheduling.APIError{Kind: scheduling.KindTransport, Message: "down"}},
	}
	svc := newService(backend, newFakeClock())

	if _, err := svc.GetDaySlots(context.Background(), testKey(), "2026-06-16"); err == nil {
		t.Fatal("expected primary failure to surface")
	}
}

func TestGetDaySlots_EmptyDayAndCachedReturn(t *testing.T) {
	day1, day2 := "2026-06-16", "2026-06-17"
	slots1 := []time.Time{
		time.Date(2026, time.June, 16, 13, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 16, 14, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 16, 15, 0, 0, 0, time.UTC),
	}
	backend := &fakeBackend{
		summary:    testSummary(),
		slotsByDay: map[string][]time.Time{day1: slots1},
	}
	svc := newService(backend, newFakeClock())
	ctx := context.Background()

	got, err := svc.GetDaySlots(ctx, testKey(), day1)
	if err != nil || len(got) != 3 {
		t.Fatalf("day1: got %d slots, err %v", len(got), err)
	}

	// An empty day yields an empty list, not an error.
	got, err = svc.GetDaySlots(ctx, testKey(), day2)
	if err != nil {
		t.Fatalf("empty day errored: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slot list, got %d", len(got))
	}

	// Returning to day1 inside the TTL serves the cache.
	before := backend.slotCalls.Load()
	got, err = svc.GetDaySlots(ctx, testKey(), day1)
	if err != nil || len(got) != 3 {
		t.Fatalf("cached day1: got %d slots, err %v", len(got), err)
	}
	if backend.slotCalls.Load() != before {
		t.Fatal("cached return issued a new network call")
	}
}

func TestSelectionKey_BiasQuantization(t *testing.T) {
	a := testKey()
	a.ViewerBias = &models.GeoPoint{Lat: 40.712311, Lng: -74.005912}
	b := testKey()
	b.ViewerBias = &models.GeoPoint{Lat: 40.712349, Lng: -74.005877}

	if a.CacheKey() != b.CacheKey() {
		t.Fatalf("GPS jitter churned the cache key: %s vs %s", a.CacheKey(), b.CacheKey())
	}

	c := testKey()
	c.ViewerBias = &models.GeoPoint{Lat: 40.8123, Lng: -74.0059}
	if a.CacheKey() == c.CacheKey() {
		t.Fatal("distinct locations collapsed to one cache key")
	}
}
