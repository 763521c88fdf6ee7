package capture

import (
	"sync"
	"time"
)

// DefaultCooldown is how long an identity stays suppressed after a record.
const DefaultCooldown = 5 * time.Second

// Cooldown suppresses repeated record attempts for the same identity. Each
// capture session owns one. An identity is Suppressed from the moment Mark is
// called until the window has elapsed, then Idle again.
type Cooldown struct {
	mu         sync.Mutex
	window     time.Duration
	now        func() time.Time
	suppressed map[string]time.Time
}

// NewCooldown creates a controller. now may be nil to use the wall clock.
func NewCooldown(window time.Duration, now func() time.Time) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Cooldown{
		window:     window,
		now:        now,
		suppressed: make(map[string]time.Time),
	}
}

// Suppressed reports whether employeeID was marked less than one window ago.
// Expired entries are pruned on the way.
func (c *Cooldown) Suppressed(employeeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.prune(now)
	_, ok := c.suppressed[employeeID]
	return ok
}

// Mark puts employeeID into the suppressed state starting now. Call it only
// after a record attempt succeeded (created or already marked).
func (c *Cooldown) Mark(employeeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppressed[employeeID] = c.now()
}

// Len is the number of identities currently suppressed.
func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(c.now())
	return len(c.suppressed)
}

// Window returns the suppression period.
func (c *Cooldown) Window() time.Duration { return c.window }

func (c *Cooldown) prune(now time.Time) {
	for id, at := range c.suppressed {
		if now.Sub(at) >= c.window {
			delete(c.suppressed, id)
		}
	}
}
