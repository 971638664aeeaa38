package testutil

import (
	"net/http"

	"idbcrm/internal/platform/middleware"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
)

// WithActor attaches an authenticated actor to the request, as RequireAuth
// would after verifying a token.
func WithActor(req *http.Request, actor scope.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

// Admin returns an admin actor with a fresh id.
func Admin() scope.Actor {
	return scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleAdmin}
}

// BranchActor returns an actor of role in branch.
func BranchActor(role scope.Role, branch domain.BranchID) scope.Actor {
	b := branch
	return scope.Actor{ID: domain.New[domain.PartnerID](), Role: role, BranchID: &b}
}

// Agent returns an agent without a branch.
func Agent() scope.Actor {
	return scope.Actor{ID: domain.New[domain.PartnerID](), Role: scope.RoleAgent}
}
