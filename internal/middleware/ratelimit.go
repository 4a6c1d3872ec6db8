// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/studyvault/studyvault/internal/config"
	"github.com/studyvault/studyvault/internal/core"
)

// Policy names, used as the second segment of the Redis key.
const (
	PolicyCredentials = "credentials"
	PolicyUploads     = "uploads"
)

// maxPeekBody bounds how much of a credential form is buffered to find the
// submitted email.
const maxPeekBody = 16 << 10

type RateLimitConfig struct {
	Policy   string
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

// RateLimiter enforces one policy with redis_rate. While Redis is
// unreachable it counts in process instead.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		fallback: &localLimiter{buckets: make(map[string]*localBucket)},
		config:   cfg,
	}
}

// CredentialLimiter throttles login and signup attempts per client address,
// route and submitted email.
func CredentialLimiter(rdb *redis.Client, cfg config.LimitConfig) *RateLimiter {
	return NewRateLimiter(rdb, RateLimitConfig{
		Policy:   PolicyCredentials,
		Limit:    PerWindow(cfg.Requests, cfg.Burst, cfg.Window),
		KeyFunc:  KeyByCredential,
		FailOpen: true,
	})
}

// UploadLimiter throttles book uploads per signed-in account. It must run
// behind the authenticator.
func UploadLimiter(rdb *redis.Client, cfg config.LimitConfig) *RateLimiter {
	return NewRateLimiter(rdb, RateLimitConfig{
		Policy:  PolicyUploads,
		Limit:   PerWindow(cfg.Requests, cfg.Burst, cfg.Window),
		KeyFunc: KeyByUser,
	})
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := core.Key("ratelimit", rl.config.Policy, rl.config.KeyFunc(r))

		res, err := rl.allow(r.Context(), key)
		if err != nil {
			if rl.config.FailOpen {
				slog.WarnContext(r.Context(), "rate limiter error, failing open",
					"policy", rl.config.Policy,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}
			core.JSONError(w, err)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit.Rate))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))

		if res.Allowed == 0 {
			retry := max(res.RetryAfter, time.Second)
			h.Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
			core.JSONError(w, core.RateLimitedError(retry))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (*redis_rate.Result, error) {
	res, err := rl.limiter.Allow(ctx, key, rl.config.Limit)
	if err != nil {
		slog.DebugContext(ctx, "redis rate limit unavailable, counting locally", "error", err)
		return rl.fallback.allow(key, rl.config.Limit, time.Now())
	}
	return res, nil
}

func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return "ip:" + strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ip:" + xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// KeyByUser keys on the authenticated account, falling back to the client
// address for anonymous requests.
func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return KeyByIP(r)
}

// KeyByCredential keys on client address, route and the email in the JSON
// body. The email is hashed and the body is left readable for the handler.
func KeyByCredential(r *http.Request) string {
	key := KeyByIP(r) + ":" + r.URL.Path
	if email := peekEmail(r); email != "" {
		key += ":" + core.HashToken(email)[:16]
	}
	return key
}

func peekEmail(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if err != nil {
		return ""
	}

	var form struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(buf, &form) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(form.Email))
}

// PerWindow allows rate requests per window with the given burst.
func PerWindow(rate, burst int, window time.Duration) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: window,
	}
}

const localBucketTTL = 10 * time.Minute

type localBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// localLimiter is a token bucket per key, swept of idle keys on use.
type localLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit, now time.Time) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, core.NewAppError(nil, "rate limit misconfigured", http.StatusInternalServerError, "INTERNAL_ERROR")
	}
	every := limit.Period / time.Duration(limit.Rate)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > localBucketTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > localBucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(every), limit.Burst)}
		l.buckets[key] = b
	}
	b.seen = now

	res := &redis_rate.Result{Limit: limit, RetryAfter: -1, ResetAfter: every}
	if b.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = every
	}
	res.Remaining = max(int(b.limiter.TokensAt(now)), 0)
	return res, nil
}
