package service

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"
)

const (
	testCreditsKey = "ai-chat-credits-ip-203.0.113.7"
	testResetKey   = "ai-chat-last-reset-ip-203.0.113.7"
)

// newTestCreditService disables the background ticker and pins the clock
// before hydration runs; reset transitions are exercised through hydration
// and checkResetDue.
func newTestCreditService(kv storage.KV, now time.Time) *CreditService {
	return NewCreditService(kv, testCreditsKey, testResetKey, 50, 24*time.Hour, 0,
		WithCreditClock(func() time.Time { return now }))
}

func TestFirstRunStartsAtLimit(t *testing.T) {
	kv := storage.NewMemoryKV()
	c := newTestCreditService(kv, time.Now())

	if got := c.Check(); got != 50 {
		t.Errorf("Check = %d, want 50 on first run", got)
	}
	if saved, ok, _ := kv.Get(testCreditsKey); !ok || saved != "50" {
		t.Errorf("persisted credits = %q (ok=%v), want \"50\"", saved, ok)
	}
	if _, ok, _ := kv.Get(testResetKey); !ok {
		t.Error("last reset not persisted on first run")
	}
}

func TestConsumeDecrementsAndPersists(t *testing.T) {
	kv := storage.NewMemoryKV()
	c := newTestCreditService(kv, time.Now())

	if !c.Consume() {
		t.Fatal("Consume returned false with full credits")
	}
	if got := c.Check(); got != 49 {
		t.Errorf("Check = %d, want 49", got)
	}
	if saved, _, _ := kv.Get(testCreditsKey); saved != "49" {
		t.Errorf("persisted credits = %q, want \"49\"", saved)
	}
}

func TestConsumeFloorsAtZero(t *testing.T) {
	c := newTestCreditService(storage.NewMemoryKV(), time.Now())

	for i := 0; i < 50; i++ {
		if !c.Consume() {
			t.Fatalf("Consume %d returned false before the limit", i+1)
		}
	}
	if got := c.Check(); got != 0 {
		t.Fatalf("Check = %d after 50 consumes, want 0", got)
	}
	if c.Consume() {
		t.Error("51st Consume returned true")
	}
	if got := c.Check(); got != 0 {
		t.Errorf("Check = %d after failed consume, want 0 (idempotent at floor)", got)
	}
	if !c.OutOfCredits() {
		t.Error("OutOfCredits = false at zero")
	}
}

func TestHydrationKeepsFreshState(t *testing.T) {
	kv := storage.NewMemoryKV()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	savedReset := now.Add(-2 * time.Hour)
	kv.Set(testCreditsKey, "17")
	kv.Set(testResetKey, savedReset.Format(time.RFC3339Nano))

	c := newTestCreditService(kv, now)
	if got := c.Check(); got != 17 {
		t.Errorf("Check = %d, want 17 from saved state", got)
	}
	if !c.LastReset().Equal(savedReset) {
		t.Errorf("LastReset = %v, want saved %v", c.LastReset(), savedReset)
	}
}

// With the saved reset just past the 24h deadline, hydration performs the
// reset transition before first use.
func TestHydrationResetsOverdueWindow(t *testing.T) {
	kv := storage.NewMemoryKV()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	kv.Set(testCreditsKey, "3")
	kv.Set(testResetKey, now.Add(-24*time.Hour-time.Second).Format(time.RFC3339Nano))

	c := newTestCreditService(kv, now)
	if got := c.Check(); got != 50 {
		t.Errorf("Check = %d, want 50 after overdue reset", got)
	}
	if !c.LastReset().Equal(now) {
		t.Errorf("LastReset = %v, want %v", c.LastReset(), now)
	}
	if saved, _, _ := kv.Get(testCreditsKey); saved != "50" {
		t.Errorf("persisted credits = %q, want \"50\"", saved)
	}
}

func TestHydrationDiscardsCorruptState(t *testing.T) {
	kv := storage.NewMemoryKV()
	kv.Set(testCreditsKey, "not-a-number")
	kv.Set(testResetKey, "not-a-time")

	c := newTestCreditService(kv, time.Now())
	if got := c.Check(); got != 50 {
		t.Errorf("Check = %d, want 50 after discarding corrupt state", got)
	}
}

func TestHydrationClampsOutOfRangeCredits(t *testing.T) {
	kv := storage.NewMemoryKV()
	now := time.Now()
	kv.Set(testCreditsKey, strconv.Itoa(9999))
	kv.Set(testResetKey, now.Format(time.RFC3339Nano))

	c := newTestCreditService(kv, now)
	if got := c.Check(); got != 50 {
		t.Errorf("Check = %d, want clamp to 50", got)
	}
}

func TestResetRefillsUnconditionally(t *testing.T) {
	c := newTestCreditService(storage.NewMemoryKV(), time.Now())
	c.Consume()
	c.Consume()

	c.Reset()
	if got := c.Check(); got != 50 {
		t.Errorf("Check = %d after Reset, want 50", got)
	}
}

func TestRecordExhaustedZeroesCounter(t *testing.T) {
	kv := storage.NewMemoryKV()
	c := newTestCreditService(kv, time.Now())

	c.RecordExhausted()
	if got := c.Check(); got != 0 {
		t.Errorf("Check = %d after RecordExhausted, want 0", got)
	}
	if saved, _, _ := kv.Get(testCreditsKey); saved != "0" {
		t.Errorf("persisted credits = %q, want \"0\"", saved)
	}
}

func TestTimeUntilReset(t *testing.T) {
	kv := storage.NewMemoryKV()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	kv.Set(testCreditsKey, "10")
	kv.Set(testResetKey, now.Add(-20*time.Hour).Format(time.RFC3339Nano))

	c := newTestCreditService(kv, now)
	if got := c.TimeUntilReset(); got != 4*time.Hour {
		t.Errorf("TimeUntilReset = %v, want 4h", got)
	}
}

func TestTimeUntilResetFloorsAtZero(t *testing.T) {
	c := newTestCreditService(storage.NewMemoryKV(), time.Now())
	c.mu.Lock()
	c.lastReset = c.now().Add(-25 * time.Hour)
	c.mu.Unlock()

	if got := c.TimeUntilReset(); got != 0 {
		t.Errorf("TimeUntilReset = %v, want 0", got)
	}
}

// The read-decrement-write sequence must hold under concurrent consumers:
// exactly limit successes, never a negative counter.
func TestConcurrentConsume(t *testing.T) {
	c := newTestCreditService(storage.NewMemoryKV(), time.Now())

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Consume() {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 50 {
		t.Errorf("succeeded = %d, want exactly 50", succeeded)
	}
	if got := c.Check(); got != 0 {
		t.Errorf("Check = %d, want 0", got)
	}
}

func TestTickerResetTransition(t *testing.T) {
	kv := storage.NewMemoryKV()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCreditService(kv, now)
	c.Consume()

	// Move the clock past the deadline and run the check the ticker
	// performs each second.
	c.now = func() time.Time { return now.Add(24*time.Hour + time.Second) }
	c.checkResetDue()

	if got := c.Check(); got != 50 {
		t.Errorf("Check = %d after deadline tick, want 50", got)
	}
}
