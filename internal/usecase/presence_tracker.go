package usecase

import (
	"context"
	"sort"
	"time"

	"tunechat/internal/domain/entity"
	"tunechat/internal/domain/repository"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

const (
	DefaultTypingIdle = 3 * time.Second
	DefaultTypingTTL  = 5 * time.Second

	presenceWriteTimeout = 5 * time.Second
	presenceQueueSize    = 64
)

type presenceWrite struct {
	typing bool
	signal entity.TypingSignal
}

// PresenceTracker publishes the local typing signal and filters the remote
// ones. Its state is owned by the engine loop; remote writes go through a
// single writer goroutine so an upsert and the delete that follows it are
// never reordered.
type PresenceTracker struct {
	conversationID string
	identity       entity.Identity
	repo           repository.PresenceRepository
	idle           time.Duration
	ttl            time.Duration
	now            func() time.Time
	post           func(func()) bool

	writes     chan presenceWrite
	drained    chan struct{}
	typing     bool
	timer      *time.Timer
	generation int
	signals    []entity.TypingSignal
	visible    []entity.TypingSignal
}

func NewPresenceTracker(conversationID string, identity entity.Identity, repo repository.PresenceRepository, idle, ttl time.Duration, now func() time.Time) *PresenceTracker {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &PresenceTracker{
		conversationID: conversationID,
		identity:       identity,
		repo:           repo,
		idle:           idle,
		ttl:            ttl,
		now:            now,
		post:           func(fn func()) bool { fn(); return true },
		writes:         make(chan presenceWrite, presenceQueueSize),
		drained:        make(chan struct{}),
	}
}

// run drains queued writes until the queue is closed.
func (t *PresenceTracker) run() {
	defer close(t.drained)
	for w := range t.writes {
		ctx, cancel := context.WithTimeout(context.Background(), presenceWriteTimeout)
		var err error
		if w.typing {
			err = t.repo.Upsert(ctx, t.conversationID, w.signal)
		} else {
			err = t.repo.Delete(ctx, t.conversationID, t.identity.UserID)
		}
		cancel()
		if err != nil {
			logger.Debug("Presence write degraded for %s: %v", t.identity.UserID, errors.PresenceWriteFailed(err))
		}
	}
}

func (t *PresenceTracker) enqueue(w presenceWrite) {
	select {
	case t.writes <- w:
	default:
		logger.Debug("Presence write queue full, dropping typing=%v for %s", w.typing, t.identity.UserID)
	}
}

// SetLocalTyping is called on the engine loop.
func (t *PresenceTracker) SetLocalTyping(isTyping bool) {
	if !isTyping {
		t.clear()
		return
	}
	if !t.typing {
		t.typing = true
		t.enqueue(presenceWrite{
			typing: true,
			signal: entity.TypingSignal{
				UserID:      t.identity.UserID,
				DisplayName: t.identity.DisplayName,
				LastSentAt:  t.now().UnixMilli(),
			},
		})
	}
	t.arm()
}

func (t *PresenceTracker) arm() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.generation++
	gen := t.generation
	t.timer = time.AfterFunc(t.idle, func() {
		t.post(func() { t.expire(gen) })
	})
}

func (t *PresenceTracker) expire(gen int) {
	if gen != t.generation || !t.typing {
		return
	}
	t.clear()
}

func (t *PresenceTracker) clear() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.generation++
	if !t.typing {
		return
	}
	t.typing = false
	t.enqueue(presenceWrite{typing: false})
}

func (t *PresenceTracker) IsTyping() bool {
	return t.typing
}

// OnSnapshot stores the latest remote presence records and reports whether the
// visible typing list changed.
func (t *PresenceTracker) OnSnapshot(signals []entity.TypingSignal) bool {
	t.signals = append([]entity.TypingSignal(nil), signals...)
	return t.Refresh()
}

// Refresh re-applies the staleness filter against the current time.
func (t *PresenceTracker) Refresh() bool {
	next := FilterTyping(t.signals, t.identity.UserID, t.now(), t.ttl)
	if sameSignals(next, t.visible) {
		return false
	}
	t.visible = next
	return true
}

func (t *PresenceTracker) Signals() []entity.TypingSignal {
	return append([]entity.TypingSignal(nil), t.signals...)
}

// Stop cancels the idle timer, removes the local record if one is live, and
// closes the write queue once it has drained.
func (t *PresenceTracker) Stop() {
	t.clear()
	close(t.writes)
}

// FilterTyping keeps the records of other users sent within ttl of now.
func FilterTyping(signals []entity.TypingSignal, localUserID string, now time.Time, ttl time.Duration) []entity.TypingSignal {
	out := make([]entity.TypingSignal, 0, len(signals))
	for _, sig := range signals {
		if sig.UserID == localUserID || !sig.Fresh(now, ttl) {
			continue
		}
		out = append(out, sig)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func sameSignals(a, b []entity.TypingSignal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
