package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/sleepfit-stats/internal/apperror"
	"github.com/sakif/sleepfit-stats/internal/model"
)

// TokenCookie is the cookie set by the Fitbit login redirect. It is read
// only when no Authorization header is present.
const TokenCookie = "token"

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the identity.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller, attached to the request context by
// RequireAuth and OptionalAuth.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// UserLookup resolves a token subject to a stored user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller, or false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

// RequireAuth rejects requests without a valid bearer token whose subject
// is an existing user. The middleware chain runs
// req → M1 → M2 → Handler → M2 → M1 → resp, so handlers behind it can
// rely on IdentityFromContext.
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, tokens, users)
			if err != nil {
				if !errors.Is(err, apperror.ErrUnauthorized) {
					logger.Error("resolving bearer token", slog.String("error", err.Error()))
					writeAuthError(w, http.StatusInternalServerError, `{"error":"internal_error","message":"An internal error occurred"}`)
					return
				}
				writeAuthError(w, http.StatusUnauthorized, `{"error":"unauthorized","message":"valid authentication required"}`)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(tokens *TokenService, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := authenticate(r, tokens, users); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <jwt>", falling
// back to the token cookie.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func authenticate(r *http.Request, tokens *TokenService, users UserLookup) (Identity, error) {
	raw := BearerToken(r)
	if raw == "" {
		return Identity{}, apperror.Unauthorized("missing bearer token")
	}

	userID, err := tokens.Validate(raw)
	if err != nil {
		return Identity{}, apperror.Unauthorized("invalid bearer token")
	}

	u, err := users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return Identity{}, apperror.Unauthorized("user no longer exists")
		}
		return Identity{}, err
	}

	return Identity{UserID: u.ID, Email: u.Email, Name: u.Name}, nil
}

func writeAuthError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body + "\n"))
}
