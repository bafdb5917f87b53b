// Package handler contains the HTTP handlers: the thin glue between the
// chi router and the service layer. Handlers parse requests, call a service
// method, and write a response — no business rules in here.
package handler

import (
	"log/slog"
	"net/http"

	"shopwithus/internal/auth"
	"shopwithus/internal/service"
)

// SessionHandler owns the login/logout flow and the identity probe the
// frontend uses on every page load.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type loginRequest struct {
	ProlificID string `json:"prolificId"`
}

// HandleLogin authenticates a participant by Prolific ID.
//
// HTTP: POST /login
// Body: {"prolificId": "..."}
//
// On success the opaque session token is delivered as an HttpOnly,
// SameSite=Strict cookie — the response body never contains it.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.sessions.Login(r.Context(), req.ProlificID)
	if err != nil {
		h.logger.Warn("login failed",
			slog.String("prolificId", req.ProlificID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Login successful"})
}

type userInfoResponse struct {
	ProlificID string `json:"prolificId"`
}

// HandleUserInfo returns the identity bound to the caller's session.
//
// HTTP: GET /user-info
// Auth: required (RequireSession sets the identity in context)
//
// The consent sequencer calls this first on every landing-page load.
func (h *SessionHandler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Unreachable on a RequireSession-protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "Not authenticated",
		})
		return
	}

	writeJSON(w, http.StatusOK, userInfoResponse{ProlificID: identity})
}

// HandleLogout invalidates the caller's session and sends them back to the
// login page.
//
// HTTP: GET /logout
//
// Idempotent: an absent or unknown token still clears the cookie and
// redirects. The record outlives the session — only the token is cleared,
// consent decisions are kept.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)

	if err := h.sessions.Logout(r.Context(), token); err != nil {
		// Still log the participant out of the browser; the stale token can
		// be cleaned up on their next login.
		h.logger.Error("logout failed", slog.String("error", err.Error()))
	}

	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}
