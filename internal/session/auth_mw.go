package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"StoreFront/pkg/kit"
)

const SessionHeader = "X-Session-Id"

type ctxKey string

const (
	sessionIDKey ctxKey = "session_id"
	identityKey  ctxKey = "identity"
)

type Identity struct {
	UserID string
	Email  string
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}

// WithSession resolves the client's session ID from the request header,
// minting a fresh one when absent. The ID is echoed back so the client
// can persist it.
func WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := strings.TrimSpace(r.Header.Get(SessionHeader))
		if sid == "" {
			sid = "s_" + uuid.NewString()
		}
		w.Header().Set(SessionHeader, sid)

		ctx := context.WithValue(r.Context(), sessionIDKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalIdentity attaches claims when a bearer token is presented.
// Anonymous requests pass through; a presented-but-invalid token does
// not.
func OptionalIdentity(jwt *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" || jwt == nil {
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(authz, "Bearer ") {
				kit.WriteError(w, r, http.StatusUnauthorized, "malformed token", nil)
				return
			}

			claims, err := jwt.Parse(strings.TrimPrefix(authz, "Bearer "))
			if err != nil || claims.UserID == "" {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				UserID: claims.UserID,
				Email:  claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
