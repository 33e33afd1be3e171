package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client+IP
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      10 * time.Minute,
	}
}

func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Reserve takes a token for key; a zero wait means the request may proceed.
func (rl *RateLimiter) Reserve(key string) (time.Duration, bool) {
	now := time.Now()
	lim := rl.get(key, now)
	if lim.AllowN(now, 1) {
		return 0, true
	}
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return time.Minute, false
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return wait, false
}

// Prune drops visitors idle for longer than the TTL.
func (rl *RateLimiter) Prune(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, key)
			n++
		}
	}
	return n
}

// RateLimit rejects requests over the per-client budget with 429.
// The limiter is pruned opportunistically; no background goroutine is started.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	var (
		pruneMu   sync.Mutex
		lastPrune = time.Now()
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isProbe(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if pruneMu.TryLock() {
				if now := time.Now(); now.Sub(lastPrune) > time.Minute {
					rl.Prune(now)
					lastPrune = now
				}
				pruneMu.Unlock()
			}

			key := GetClientFromContext(r.Context()) + ":" + clientIP(r)
			if wait, ok := rl.Reserve(key); !ok {
				writeRetryError(w, wait, "rate limit exceeded, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
