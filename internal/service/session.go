// Package service contains the business logic layer: session management and
// the consent ledger. Handlers translate HTTP to and from these methods;
// repositories do the persistence. Neither concern leaks in here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"shopwithus/internal/apperror"
	"shopwithus/internal/model"
	"shopwithus/internal/repository"
)

// SessionService is the session authority: it issues the opaque token on
// login, resolves it on each request, and invalidates it on logout.
type SessionService struct {
	participants repository.ParticipantRepository
	logger       *slog.Logger
}

// NewSessionService creates a SessionService. The repository is injected so
// tests can pass a fake and main can pass SQLite.
func NewSessionService(participants repository.ParticipantRepository, logger *slog.Logger) *SessionService {
	return &SessionService{
		participants: participants,
		logger:       logger,
	}
}

// Login finds or creates the participant record for the given Prolific ID
// and issues a fresh session token bound to it.
//
// The token is a random UUID — opaque, unguessable, carries no claims. A new
// login overwrites any previous token, so at most one session is live per
// identity at a time.
func (s *SessionService) Login(ctx context.Context, prolificID string) (string, error) {
	prolificID = strings.TrimSpace(prolificID)
	if prolificID == "" {
		return "", apperror.ValidationFailed("prolificId", "Prolific ID is required")
	}

	p, err := s.participants.FindByProlificID(ctx, prolificID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		// First login: create the record. LLM data-use consent defaults to
		// true; both popup triggers (cookie_response, toggle_response) start
		// unset so the consent flow runs from the top.
		p = &model.Participant{
			ProlificID: prolificID,
			LLMConsent: true,
		}
		if err := s.participants.Insert(ctx, p); err != nil {
			return "", fmt.Errorf("service/session: creating participant %q: %w", prolificID, err)
		}
		s.logger.Info("participant created", slog.String("prolificId", prolificID))
	case err != nil:
		return "", fmt.Errorf("service/session: looking up participant %q: %w", prolificID, err)
	}

	token := uuid.NewString()
	err = s.participants.UpdateFields(ctx, prolificID, repository.Fields{
		"session_id": token,
	})
	if err != nil {
		return "", fmt.Errorf("service/session: storing session for %q: %w", prolificID, err)
	}

	s.logger.Info("login successful", slog.String("prolificId", prolificID))
	return token, nil
}

// Resolve maps a session token to the Prolific ID it is bound to.
// An absent token is an authentication failure (401); a token no record
// holds is a lookup failure (404).
func (s *SessionService) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperror.Unauthenticated("Not authenticated")
	}

	p, err := s.participants.FindBySessionID(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.NotFound("user", "session")
		}
		return "", fmt.Errorf("service/session: resolving session: %w", err)
	}

	return p.ProlificID, nil
}

// Logout clears the session token on the matching record. Idempotent: an
// absent or unknown token is not an error — the caller is logged out either
// way.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	p, err := s.participants.FindBySessionID(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/session: looking up session on logout: %w", err)
	}

	err = s.participants.UpdateFields(ctx, p.ProlificID, repository.Fields{
		"session_id": nil,
	})
	if err != nil {
		return fmt.Errorf("service/session: clearing session for %q: %w", p.ProlificID, err)
	}

	s.logger.Info("logout successful", slog.String("prolificId", p.ProlificID))
	return nil
}
