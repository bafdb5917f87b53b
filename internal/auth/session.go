// Package auth handles the session credential: the HttpOnly cookie carrying
// the opaque token, and the middleware that resolves it to an identity.
package auth

import (
	"context"
	"errors"
	"net/http"

	"shopwithus/internal/apperror"
)

// SessionCookieName is the cookie holding the opaque session token.
const SessionCookieName = "sessionId"

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write the
// identity value in a request context — no collisions with other packages.
type contextKey string

const identityKey contextKey = "prolificID"

// SessionResolver resolves an opaque session token to the Prolific ID it is
// bound to. Implemented by service.SessionService; kept as an interface here
// so the middleware has no dependency on the service package.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// SetSessionCookie binds the session token to the browser.
// HttpOnly keeps it out of reach of page scripts; SameSite=Strict means the
// browser only sends it on same-site requests. No MaxAge — it is a session
// cookie, gone when the browser closes.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// TokenFromRequest reads the raw session token from the request cookie.
// Returns "" if the cookie is absent.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RequireSession enforces a valid session on protected routes.
//
// It reads the session cookie, resolves the token to a Prolific ID, and
// stores the identity in the request context. A missing cookie stops the
// chain with 401; a token no record holds stops it with 404 — the
// distinction matters to the frontend, which treats both as "go log in"
// but logs them differently.
func RequireSession(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)

			identity, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				writeResolveError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeResolveError maps a session-resolution failure to its status code.
// The full writeError helper lives in the handler package; duplicating the
// two cases we need here avoids an import cycle (handler imports this
// package for IdentityFromContext).
func writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		http.Error(w, `{"error":"unauthenticated","message":"Not authenticated"}`, http.StatusUnauthorized)
	case errors.Is(err, apperror.ErrNotFound):
		http.Error(w, `{"error":"not_found","message":"User not found"}`, http.StatusNotFound)
	default:
		http.Error(w, `{"error":"internal_error","message":"Internal server error"}`, http.StatusInternalServerError)
	}
}

// IdentityFromContext retrieves the authenticated Prolific ID set by
// RequireSession. Returns ("", false) on routes outside the middleware.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(string)
	return id, ok && id != ""
}
