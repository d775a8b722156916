package moderation

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCooldown = 30 * time.Second
	cooldownEntries = 4096
)

// Grant is the answer of Cooldowns.TryAcquire.
type Grant struct {
	Granted   bool
	Remaining time.Duration
}

// Cooldowns tracks the last granted report time per user.
type Cooldowns struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	last   *expirable.LRU[int64, time.Time]
}

func NewCooldowns(window time.Duration, now func() time.Time) *Cooldowns {
	if now == nil {
		now = time.Now
	}
	ttl := window
	if ttl <= 0 {
		// expirable treats a zero TTL as no expiry
		ttl = time.Millisecond
	}
	return &Cooldowns{
		window: window,
		now:    now,
		last:   expirable.NewLRU[int64, time.Time](cooldownEntries, nil, ttl),
	}
}

// TryAcquire grants the user a report slot unless the window since their last grant is still open.
// A denial leaves the stored timestamp untouched.
func (c *Cooldowns) TryAcquire(userID int64) Grant {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.last.Peek(userID); ok {
		if elapsed := now.Sub(last); elapsed < c.window {
			return Grant{Remaining: c.window - elapsed}
		}
	}
	c.last.Add(userID, now)
	return Grant{Granted: true}
}

func (c *Cooldowns) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last.Purge()
}
