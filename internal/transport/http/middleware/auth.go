package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"videotube/internal/httputil"
	"videotube/internal/model"
	"videotube/internal/token"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const accountIDKey contextKey = "account_id"

// AccessTokenCookie is the cookie browsers carry the access token in.
const AccessTokenCookie = "access_token"

// Auth rejects requests without a valid access token.
// Checks the Authorization header first, then falls back to the cookie.
func Auth(signer *token.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := accessToken(r)
			if raw == "" {
				httputil.WriteUnauthorized(w, "missing authentication token")
				return
			}

			accountID, _, err := signer.ParseAccess(raw)
			if err != nil {
				httputil.WriteServiceError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through. An invalid token is treated as anonymous.
func OptionalAuth(signer *token.Signer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := accessToken(r); raw != "" {
				if accountID, _, err := signer.ParseAccess(raw); err == nil {
					r = r.WithContext(WithAccountID(r.Context(), accountID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessToken(r *http.Request) string {
	// Expected format: "Bearer <token>"
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func WithAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountIDFromContext returns the authenticated account, if any.
func AccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// ViewerFromContext is the caller for visibility and like rollups; uuid.Nil when anonymous.
func ViewerFromContext(ctx context.Context) uuid.UUID {
	id, _ := AccountIDFromContext(ctx)
	return id
}

// RequireAccountID is for handlers mounted behind Auth.
func RequireAccountID(ctx context.Context) (uuid.UUID, error) {
	id, ok := AccountIDFromContext(ctx)
	if !ok {
		return uuid.Nil, model.NewError(model.ErrUnauthorized, "authentication required")
	}
	return id, nil
}
