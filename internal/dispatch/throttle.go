package dispatch

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/binjuice/internal/event"
)

// throttle allows at most one sound per kind per interval. A nil throttle
// allows everything.
type throttle struct {
	now      func() time.Time
	limiters [event.NumKinds]*rate.Limiter
}

func newThrottle(interval time.Duration, now func() time.Time) *throttle {
	if interval <= 0 {
		return nil
	}

	t := &throttle{now: now}
	for i := range t.limiters {
		t.limiters[i] = rate.NewLimiter(rate.Every(interval), 1)
	}
	return t
}

func (t *throttle) allow(kind event.Kind) bool {
	if t == nil || !kind.Valid() {
		return true
	}
	return t.limiters[kind].AllowN(t.now(), 1)
}
