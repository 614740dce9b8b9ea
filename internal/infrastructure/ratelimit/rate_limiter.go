package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionSendMedia   = "send_media"
	ActionTyping      = "typing"
	ActionReaction    = "reaction"
	ActionMutation    = "mutation"
	ActionGroup       = "group"

	idleBucketTTL = time.Hour
)

// Limit is a sustained rate with a burst allowance.
type Limit struct {
	PerMinute int
	Burst     int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting for different users and actions
type RateLimiter struct {
	limits   map[string]Limit
	fallback Limit
	buckets  map[string]*bucket
	mutex    sync.Mutex
	now      func() time.Time
}

// DefaultLimits returns the per-action limits used by the bridge. sendPerMinute
// applies to text and track sends.
func DefaultLimits(sendPerMinute int) map[string]Limit {
	if sendPerMinute <= 0 {
		sendPerMinute = 30
	}
	return map[string]Limit{
		ActionSendMessage: {PerMinute: sendPerMinute, Burst: 10},
		ActionSendMedia:   {PerMinute: 10, Burst: 3},
		ActionTyping:      {PerMinute: 60, Burst: 10},
		ActionReaction:    {PerMinute: 60, Burst: 10},
		ActionMutation:    {PerMinute: 20, Burst: 5},
		ActionGroup:       {PerMinute: 10, Burst: 3},
	}
}

func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		fallback: Limit{PerMinute: 20, Burst: 5},
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

// Allow consumes a token for the user's action. When none is available it
// returns how long until the next one.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{limiter: newLimiter(rl.limitFor(action))}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// GetStatus returns the tokens currently available for a user action.
func (rl *RateLimiter) GetStatus(userID, action string) (tokens int, maxTokens int) {
	rl.mutex.Lock()
	b, exists := rl.buckets[userID+":"+action]
	rl.mutex.Unlock()

	if !exists {
		return 0, 0
	}
	return int(b.limiter.TokensAt(rl.now())), b.limiter.Burst()
}

func (rl *RateLimiter) limitFor(action string) Limit {
	if l, ok := rl.limits[action]; ok {
		return l
	}
	return rl.fallback
}

// Cleanup removes buckets that haven't been used for an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idleBucketTTL {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup periodically until stop is closed.
func (rl *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

func newLimiter(l Limit) *rate.Limiter {
	burst := l.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(l.PerMinute)/60.0), burst)
}
