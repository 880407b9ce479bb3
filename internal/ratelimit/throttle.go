package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// Throttle is a coarse per-client token bucket applied in front of the
// auth endpoints, independent of the login failure limiter.
type Throttle struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
}

func NewThrottle(rps float64, burst int) *Throttle {
	t := &Throttle{
		clients: make(map[string]*client),
		r:       rate.Limit(rps),
		burst:   burst,
	}
	// cleanup stale entries every minute
	go func() {
		for {
			time.Sleep(time.Minute)
			t.mu.Lock()
			for key, c := range t.clients {
				if time.Since(c.seen) > 3*time.Minute {
					delete(t.clients, key)
				}
			}
			t.mu.Unlock()
		}
	}()
	return t
}

func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(t.r, t.burst)}
		t.clients[key] = c
	}
	c.seen = time.Now()
	return c.lim.Allow()
}
