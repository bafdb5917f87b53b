package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shopwithus/internal/apperror"
	"shopwithus/internal/model"
	"shopwithus/internal/repository"
)

// ConsentService owns the consent ledger: the cookie decision, the LLM
// data-use decision, and the two feedback texts on the participant record.
//
// All writes are field-level merges through UpdateFields, never full-record
// replacement, so a cookie-consent write and an LLM-consent write for the
// same participant cannot clobber each other. Writes are independently
// durable: recording a report and recording consent are separate calls, and
// one failing never rolls back the other.
type ConsentService struct {
	participants repository.ParticipantRepository
	logger       *slog.Logger
}

func NewConsentService(participants repository.ParticipantRepository, logger *slog.Logger) *ConsentService {
	return &ConsentService{
		participants: participants,
		logger:       logger,
	}
}

// LLMConsentStatus is the LLM-related slice of the ledger.
// Toggle is nil while no explicit decision has been recorded — the trigger
// for showing the LLM popup.
type LLMConsentStatus struct {
	UseData bool
	Toggle  *bool
}

// Status reports whether a cookie-consent decision exists for the identity,
// plus the full record snapshot the frontend renders from.
func (s *ConsentService) Status(ctx context.Context, prolificID string) (bool, *model.Participant, error) {
	p, err := s.participants.FindByProlificID(ctx, prolificID)
	if err != nil {
		return false, nil, err
	}
	return p.HasConsented(), p, nil
}

// LLMConsent returns the recorded LLM data-use decision for the identity.
func (s *ConsentService) LLMConsent(ctx context.Context, prolificID string) (*LLMConsentStatus, error) {
	p, err := s.participants.FindByProlificID(ctx, prolificID)
	if err != nil {
		return nil, err
	}
	return &LLMConsentStatus{
		UseData: p.LLMConsent,
		Toggle:  p.ToggleResponse,
	}, nil
}

// RecordCookieConsent persists the cookie popup decision, with the optional
// feedback text from the "more options" path.
func (s *ConsentService) RecordCookieConsent(ctx context.Context, prolificID, response string, reportText *string) error {
	prolificID = strings.TrimSpace(prolificID)
	if prolificID == "" || response == "" {
		return apperror.ValidationFailed("response", "Prolific ID and response are required")
	}
	if err := rejectReserved(prolificID); err != nil {
		return err
	}
	if response != model.CookieResponseAgree && response != model.CookieResponseReport {
		return apperror.ValidationFailed("response",
			fmt.Sprintf("response must be %q or %q", model.CookieResponseAgree, model.CookieResponseReport))
	}

	// Confirm the record exists so a typo'd identity is a 404, not a silent
	// no-op on the merge.
	if _, err := s.participants.FindByProlificID(ctx, prolificID); err != nil {
		return err
	}

	err := s.participants.UpdateFields(ctx, prolificID, repository.Fields{
		"cookie_response": response,
		"report_text":     reportText,
	})
	if err != nil {
		return fmt.Errorf("service/consent: saving cookie consent for %q: %w", prolificID, err)
	}

	s.logger.Info("cookie consent saved",
		slog.String("prolificId", prolificID),
		slog.String("response", response),
	)
	return nil
}

// RecordLLMConsent persists the LLM data-use decision and the explicit
// toggle state together. No prior cookie consent is required — ordering is
// the caller's concern.
func (s *ConsentService) RecordLLMConsent(ctx context.Context, prolificID string, useData, toggle bool) error {
	prolificID = strings.TrimSpace(prolificID)
	if prolificID == "" {
		return apperror.ValidationFailed("prolificId", "Prolific ID is required")
	}

	if _, err := s.participants.FindByProlificID(ctx, prolificID); err != nil {
		return err
	}

	err := s.participants.UpdateFields(ctx, prolificID, repository.Fields{
		"llm_consent":     useData,
		"toggle_response": toggle,
	})
	if err != nil {
		return fmt.Errorf("service/consent: saving LLM consent for %q: %w", prolificID, err)
	}

	s.logger.Info("llm consent saved",
		slog.String("prolificId", prolificID),
		slog.Bool("useData", useData),
		slog.Bool("toggleResponse", toggle),
	)
	return nil
}

// RecordLLMReport persists feedback written on the LLM settings surface.
// Deliberately independent of RecordLLMConsent: submitting a report issues
// two writes, and a consent failure never drops the report (or vice versa).
func (s *ConsentService) RecordLLMReport(ctx context.Context, prolificID, reportText string) error {
	prolificID = strings.TrimSpace(prolificID)
	if prolificID == "" || reportText == "" {
		return apperror.ValidationFailed("reportText", "Prolific ID and reportText are required")
	}
	if err := rejectReserved(prolificID); err != nil {
		return err
	}

	if _, err := s.participants.FindByProlificID(ctx, prolificID); err != nil {
		return err
	}

	err := s.participants.UpdateFields(ctx, prolificID, repository.Fields{
		"report_llm_text": reportText,
	})
	if err != nil {
		return fmt.Errorf("service/consent: saving LLM report for %q: %w", prolificID, err)
	}

	s.logger.Info("llm report saved", slog.String("prolificId", prolificID))
	return nil
}

// rejectReserved refuses the frontend's "I don't know who this is" fallback
// identity. A consent row under that name would be unattributable.
func rejectReserved(prolificID string) error {
	if prolificID == model.ReservedProlificID {
		return apperror.ValidationFailed("prolificId",
			fmt.Sprintf("Invalid prolificId: %q is not allowed", model.ReservedProlificID))
	}
	return nil
}
