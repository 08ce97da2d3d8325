package service

import (
	"strconv"
	"sync"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/storage"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"
)

// Key bases for credit persistence, namespaced by resolved identity before
// they reach storage.
const (
	CreditsKeyBase   = "ai-chat-credits"
	LastResetKeyBase = "ai-chat-last-reset"
)

// CreditService meters outbound AI requests: a counter capped at the daily
// limit, reset on a rolling window. All read-decrement-write sequences are
// mutex-guarded so the counter never goes negative, and the reset timer is
// owned by the service itself rather than any consumer.
type CreditService struct {
	kv           storage.KV
	creditsKey   string
	lastResetKey string
	limit        int
	window       time.Duration

	mu        sync.Mutex
	credits   int
	lastReset time.Time

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type CreditOption func(*CreditService)

// WithCreditClock replaces the wall clock. Options run before hydration so
// the injected clock also drives the overdue-reset decision.
func WithCreditClock(now func() time.Time) CreditOption {
	return func(c *CreditService) { c.now = now }
}

// NewCreditService hydrates the counter from storage, performing the
// overdue-reset transition before first use, and starts the background
// reset ticker. Call Stop at teardown.
func NewCreditService(kv storage.KV, creditsKey, lastResetKey string, limit int, window, tick time.Duration, opts ...CreditOption) *CreditService {
	c := &CreditService{
		kv:           kv,
		creditsKey:   creditsKey,
		lastResetKey: lastResetKey,
		limit:        limit,
		window:       window,
		now:          time.Now,
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.hydrate()

	if tick > 0 {
		go c.run(tick)
	}
	return c
}

func (c *CreditService) hydrate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	savedCredits, okCredits, err := c.kv.Get(c.creditsKey)
	if err != nil {
		logger.Errorf("Failed to read saved credits: %v", err)
	}
	savedReset, okReset, err := c.kv.Get(c.lastResetKey)
	if err != nil {
		logger.Errorf("Failed to read last reset: %v", err)
	}

	if okCredits && okReset {
		credits, errC := strconv.Atoi(savedCredits)
		lastReset, errR := time.Parse(time.RFC3339Nano, savedReset)
		if errC == nil && errR == nil {
			if c.now().Sub(lastReset) >= c.window {
				c.resetLocked()
			} else {
				c.credits = clamp(credits, 0, c.limit)
				c.lastReset = lastReset
			}
			return
		}
		logger.Warnf("Saved credit state unreadable, resetting")
	}

	// First run for this identity.
	c.resetLocked()
}

func (c *CreditService) run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkResetDue()
		case <-c.stop:
			return
		}
	}
}

// checkResetDue performs the reset transition once the window has elapsed.
func (c *CreditService) checkResetDue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.now().Sub(c.lastReset) >= c.window {
		c.resetLocked()
	}
}

// Check is a pure local read. Remote quota exhaustion is learned reactively
// from observed 429 responses, never by probing the API with a throwaway
// request.
func (c *CreditService) Check() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credits
}

// Consume spends one credit. Returns false, leaving state untouched, when
// the counter is already at zero.
func (c *CreditService) Consume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.credits <= 0 {
		return false
	}
	c.credits--
	c.persistCreditsLocked()
	return true
}

// Reset unconditionally refills the counter and restarts the window.
func (c *CreditService) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// RecordExhausted zeroes the counter in response to an observed provider
// quota error, keeping the local meter in step with reality.
func (c *CreditService) RecordExhausted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.credits = 0
	c.persistCreditsLocked()
	logger.Warnf("Provider reported quota exhaustion, local credits zeroed")
}

func (c *CreditService) OutOfCredits() bool {
	return c.Check() <= 0
}

// TimeUntilReset is the remaining window time, floored at zero.
func (c *CreditService) TimeUntilReset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.lastReset.Add(c.window).Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *CreditService) LastReset() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReset
}

func (c *CreditService) Limit() int {
	return c.limit
}

func (c *CreditService) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *CreditService) resetLocked() {
	c.credits = c.limit
	c.lastReset = c.now()
	c.persistCreditsLocked()
	if err := c.kv.Set(c.lastResetKey, c.lastReset.Format(time.RFC3339Nano)); err != nil {
		logger.Errorf("Failed to persist last reset: %v", err)
	}
}

func (c *CreditService) persistCreditsLocked() {
	if err := c.kv.Set(c.creditsKey, strconv.Itoa(c.credits)); err != nil {
		logger.Errorf("Failed to persist credits: %v", err)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
