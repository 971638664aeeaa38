// Package middleware holds the authentication and authorization middleware
// that turns a bearer token into a scope.Actor for handlers.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	request "idbcrm/pkg/platform/middleware/request"
)

// TokenVerifier decodes a bearer token into the actor it was issued for.
type TokenVerifier interface {
	Verify(token string) (scope.Actor, error)
}

// ActiveChecker reports whether a partner may still act. Tokens of
// deactivated partners are rejected even before they expire.
type ActiveChecker interface {
	IsActive(ctx context.Context, id domain.PartnerID) (bool, error)
}

type contextKeyActor struct{}

// ContextKeyActor is exported for tests that build contexts by hand.
var ContextKeyActor = contextKeyActor{}

// WithActor stores the authenticated actor in ctx.
func WithActor(ctx context.Context, a scope.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, a)
}

// ActorFrom returns the authenticated actor. Handlers pass it explicitly to
// services; nothing below the handler reads it from context.
func ActorFrom(ctx context.Context) (scope.Actor, bool) {
	a, ok := ctx.Value(ContextKeyActor).(scope.Actor)
	return a, ok
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(verifier TokenVerifier, active ActiveChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			actor, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			if active != nil {
				ok, err := active.IsActive(ctx, actor.ID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check partner status",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "Failed to validate token"))
					return
				}
				if !ok {
					logger.WarnContext(ctx, "unauthorized access - partner inactive",
						"actor_id", actor.ID,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Account is disabled"))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
		})
	}
}

// RequireRole rejects authenticated actors whose role is not listed. It must
// run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...scope.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, ok := ActorFrom(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !slices.Contains(roles, actor.Role) {
				logger.WarnContext(ctx, "forbidden - role not permitted",
					"actor_id", actor.ID,
					"role", actor.Role,
					"path", r.URL.Path,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole(logger, scope.RoleAdmin).
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, scope.RoleAdmin)
}

// RequireActor returns the authenticated actor, writing 401 when the route was
// mounted without RequireAuth.
func RequireActor(w http.ResponseWriter, r *http.Request) (scope.Actor, bool) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return scope.Actor{}, false
	}
	return actor, true
}
