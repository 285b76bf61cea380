package reasoner

import (
	"errors"
	"sync"
	"time"
)

// ErrUnavailable is returned when the availability breaker is open.
var ErrUnavailable = errors.New("reasoning capability unavailable")

// AvailabilityBreaker trips after consecutive capability failures so a slow or
// down capability fails fast instead of stalling every directional run. It is
// distinct from the per-direction refinement attempt counter.
type AvailabilityBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	cooldown         time.Duration
	failures         int
	openedAt         time.Time
	now              func() time.Time
}

func NewAvailabilityBreaker(failureThreshold int, cooldown time.Duration) *AvailabilityBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &AvailabilityBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. While open, it lets one probe
// through per cooldown window.
func (b *AvailabilityBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.failureThreshold {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		// Half-open: permit a probe, and push the window forward so
		// concurrent callers don't all probe at once.
		b.openedAt = b.now()
		return nil
	}
	return ErrUnavailable
}

func (b *AvailabilityBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

func (b *AvailabilityBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures == b.failureThreshold {
		b.openedAt = b.now()
	}
}
