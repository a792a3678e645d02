package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/auth"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

type ctxKey int

const claimsKey ctxKey = iota

// ClaimsFromContext returns the verified token claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// AuthMiddleware verifies bearer tokens and gates routes by role.
type AuthMiddleware struct {
	secretKey []byte
	logger    logging.Logger
}

func NewAuthMiddleware(secretKey []byte, logger logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{secretKey: secretKey, logger: logger}
}

func extractToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token and stores the
// claims in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
			return
		}

		claims, err := auth.ParseToken(tokenString, m.secretKey)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request through only when the token's role meets or
// exceeds required. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
				return
			}
			if !claims.Role.AtLeast(required) {
				m.logger.Warn(r.Context(), "role check failed", "user_id", claims.UserID, "role", claims.Role, "required", required)
				writeJSON(w, http.StatusForbidden, errorResponse{Message: "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-client token bucket keyed on remote IP.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	visitors sync.Map
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{rps: rate.Limit(rps), burst: burst}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		rl.visitors.Range(func(key, value any) bool {
			if time.Since(value.(*visitor).lastSeen) > 3*time.Minute {
				rl.visitors.Delete(key)
			}
			return true
		})
	}
}

// Handler is the chi middleware form of the limiter.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Real-IP")
		if ip == "" {
			ip = r.RemoteAddr
		}

		v, _ := rl.visitors.LoadOrStore(ip, &visitor{
			limiter:  rate.NewLimiter(rl.rps, rl.burst),
			lastSeen: time.Now(),
		})
		vis := v.(*visitor)
		vis.lastSeen = time.Now()

		if !vis.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
