package newsapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate-limits admin login attempts per IP address with a
// token bucket per IP: max attempts at once, refilled over window.
type LoginLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	limit   rate.Limit
	burst   int
	window  time.Duration
	done    chan struct{}
	once    sync.Once
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLoginLimiter allows max attempts per window for each IP.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		window:  window,
		done:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow reports whether ip may attempt a login now and consumes a token.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = time.Now()
	l.mu.Unlock()
	return b.lim.Allow()
}

// Close stops the background cleanup.
func (l *LoginLimiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// cleanup forgets IPs idle for longer than a window; their bucket would be
// full again anyway.
func (l *LoginLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip, b := range l.buckets {
				if b.seen.Before(cutoff) {
					delete(l.buckets, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}
