// Package admin guards operational endpoints (metrics, outbox status) with a
// static token that is separate from partner JWTs.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/httputil"
	request "idbcrm/pkg/platform/middleware/request"
)

// HeaderOpsToken carries the operations token.
const HeaderOpsToken = "X-Ops-Token"

// RequireOpsToken rejects requests whose X-Ops-Token does not match. An empty
// expected token disables the routes entirely.
func RequireOpsToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderOpsToken)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "ops token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "ops token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
