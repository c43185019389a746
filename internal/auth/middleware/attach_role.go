package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type UserLookup interface {
	FindByID(ctx context.Context, id int64) (users.User, error)
}

// AttachRoleFromDB replaces the token role with the stored one so role
// changes apply before the token expires. Deleted users are rejected.
// With allowClaimFallback the token role is kept when the lookup fails
// for reasons other than a missing user.
func AttachRoleFromDB(lookup UserLookup, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := rbac.ActorFromContext(ctx)
			if actor == nil {
				writeError(w, http.StatusUnauthorized, rbac.ErrUnauthenticated.Error())
				return
			}

			u, err := lookup.FindByID(ctx, actor.ID)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithActor(ctx, u.Actor())))
			case errors.Is(err, users.ErrUserNotFound):
				writeError(w, http.StatusUnauthorized, "unknown user")
			case allowClaimFallback:
				log.Printf("[auth] role lookup for user %d failed, using token role: %v", actor.ID, err)
				next.ServeHTTP(w, r)
			default:
				log.Printf("[auth] role lookup for user %d: %v", actor.ID, err)
				writeError(w, http.StatusServiceUnavailable, "identity lookup failed")
			}
		})
	}
}
