// AngelaMos | 2026
// usersync.go

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/carterperez-dev/flashdeck/internal/core"
)

// UserSyncer makes sure the authenticated identity has a local user row.
type UserSyncer interface {
	SyncUser(ctx context.Context, userID, email string) error
}

// SyncUser must run after Authenticator. Users are created lazily on first
// authenticated contact when the identity webhook has not delivered yet.
func SyncUser(syncer UserSyncer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				core.Unauthorized(w, "")
				return
			}

			err := syncer.SyncUser(r.Context(), userID, GetUserEmail(r.Context()))
			if errors.Is(err, core.ErrTokenRevoked) {
				core.JSONError(w, core.TokenRevokedError())
				return
			}
			if err != nil {
				core.InternalServerError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
