// Package middleware applies the per-address login throttle to HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"idbcrm/internal/ratelimit/models"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	"idbcrm/pkg/requestcontext"
)

// Limiter checks one attempt from a client address.
type Limiter interface {
	AllowIP(ctx context.Context, ip string) (*models.Result, error)
}

// LimitByIP rejects clients over their window with 429. Store failures let
// the request through.
func LimitByIP(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			res, err := limiter.AllowIP(ctx, ip)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				logger.WarnContext(ctx, "rate limit exceeded",
					"client_ip", ip,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
