package rate

import (
	"sync"

	xrate "golang.org/x/time/rate"
)

// maxKeys bounds the limiter map; past it the map is reset.
const maxKeys = 10000

// Throttle hands out one token bucket per key. It is safe for concurrent use.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*xrate.Limiter
	limit    xrate.Limit
	burst    int
}

// NewThrottle allows perSecond requests per key with the given burst. A
// non-positive perSecond returns nil, and a nil Throttle allows everything.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if perSecond <= 0 {
		return nil
	}
	return &Throttle{
		limiters: make(map[string]*xrate.Limiter),
		limit:    xrate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow consumes a token for key.
func (t *Throttle) Allow(key string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	lim, ok := t.limiters[key]
	if !ok {
		if len(t.limiters) >= maxKeys {
			t.limiters = make(map[string]*xrate.Limiter)
		}
		lim = xrate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = lim
	}
	t.mu.Unlock()
	return lim.Allow()
}
