// internal/api/middleware.go
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uracles/mini-wallet-application/internal/apperr"
	"github.com/uracles/mini-wallet-application/internal/logging"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRequestID
	ctxKeyPeerIP
)

// UserIDFromContext reports the authenticated user, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(int64)
	return id, ok
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func peerIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKeyPeerIP).(string)
	return ip
}

// RequestContext tags every request with an id and the peer address, and
// logs the request line with its outcome.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()

		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		ctx = context.WithValue(ctx, ctxKeyPeerIP, ip)

		w.Header().Set("X-Request-Id", requestID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.Info("request handled",
			zap.String("requestId", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

// Authenticate resolves the bearer token into a user id on the context.
// A missing token passes through unauthenticated — the resolvers decide
// which operations demand identity — but a present-and-invalid token is
// rejected outright.
func Authenticate(verify func(string) (int64, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header || token == "" {
				writeError(w, r, http.StatusUnauthorized, apperr.CodeUnauthenticated, "malformed authorization header")
				return
			}

			userID, err := verify(token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, apperr.CodeUnauthenticated, apperr.MessageOf(err))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit applies the general per-caller quota. Authenticated callers are
// keyed by user id, anonymous ones by peer address.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := callerIdentity(r.Context())

			remaining, retryAfter, ok := limiter.Allow(identity, ClassGeneral)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Quota(ClassGeneral)))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			if !ok {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]interface{}{
					"code":        apperr.CodeRateLimited,
					"message":     "rate limit exceeded",
					"retry_after": int(retryAfter.Seconds()) + 1,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func callerIdentity(ctx context.Context) string {
	if userID, ok := UserIDFromContext(ctx); ok {
		return fmt.Sprintf("user:%d", userID)
	}
	return "ip:" + peerIPFromContext(ctx)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code apperr.Code, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"code":    code,
		"message": message,
	})
}
