package handler

import (
	"log/slog"
	"net/http"

	"shopwithus/internal/auth"
	"shopwithus/internal/model"
	"shopwithus/internal/service"
)

// ConsentHandler exposes the consent ledger over HTTP.
//
// The read endpoints (check-consent, get-llm-consent) are session-scoped:
// the identity comes from the cookie, so a participant can only read their
// own record. The write endpoints carry the identity in the body — the
// popups already hold it, and a write races the page being torn down, so
// the original kept them cookie-independent. We keep that contract.
type ConsentHandler struct {
	consents *service.ConsentService
	logger   *slog.Logger
}

func NewConsentHandler(consents *service.ConsentService, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{
		consents: consents,
		logger:   logger,
	}
}

type checkConsentResponse struct {
	HasConsented bool               `json:"hasConsented"`
	UserResponse *model.Participant `json:"userResponse"`
}

// HandleCheckConsent reports whether the caller has made a cookie-consent
// decision, plus the record snapshot.
//
// HTTP: GET /check-consent
// Auth: required
func (h *ConsentHandler) HandleCheckConsent(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	hasConsented, record, err := h.consents.Status(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkConsentResponse{
		HasConsented: hasConsented,
		UserResponse: record,
	})
}

type saveConsentRequest struct {
	ProlificID string  `json:"prolificId"`
	Response   string  `json:"response"`
	ReportText *string `json:"reportText"`
}

// HandleSaveConsent records the cookie popup decision.
//
// HTTP: POST /save-consent
// Body: {"prolificId": "...", "response": "agree"|"report", "reportText": "..."?}
func (h *ConsentHandler) HandleSaveConsent(w http.ResponseWriter, r *http.Request) {
	var req saveConsentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := h.consents.RecordCookieConsent(r.Context(), req.ProlificID, req.Response, req.ReportText)
	if err != nil {
		h.logger.Warn("save-consent failed",
			slog.String("prolificId", req.ProlificID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Consent saved"})
}

type llmConsentResponse struct {
	UseData        bool  `json:"useData"`
	ToggleResponse *bool `json:"toggleResponse"`
}

// HandleGetLLMConsent returns the caller's LLM data-use decision.
//
// HTTP: GET /get-llm-consent
// Auth: required
//
// toggleResponse is null until an explicit decision is recorded — that null
// is what makes the sequencer show the LLM popup.
func (h *ConsentHandler) HandleGetLLMConsent(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	status, err := h.consents.LLMConsent(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, llmConsentResponse{
		UseData:        status.UseData,
		ToggleResponse: status.Toggle,
	})
}

type saveLLMConsentRequest struct {
	ProlificID     string `json:"prolificId"`
	UseData        bool   `json:"useData"`
	ToggleResponse bool   `json:"toggleResponse"`
}

// HandleSaveLLMConsent records the LLM data-use decision and toggle state.
//
// HTTP: POST /save-llm-consent
// Body: {"prolificId": "...", "useData": bool, "toggleResponse": bool}
func (h *ConsentHandler) HandleSaveLLMConsent(w http.ResponseWriter, r *http.Request) {
	var req saveLLMConsentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := h.consents.RecordLLMConsent(r.Context(), req.ProlificID, req.UseData, req.ToggleResponse)
	if err != nil {
		h.logger.Warn("save-llm-consent failed",
			slog.String("prolificId", req.ProlificID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "LLM consent saved"})
}

type saveLLMReportRequest struct {
	ProlificID string `json:"prolificId"`
	ReportText string `json:"reportText"`
	// The settings page sends its toggle state along with the report; the
	// report write ignores it (consent is a separate write), but rejecting
	// it as an unknown field would break the client.
	ToggleResponse *bool `json:"toggleResponse"`
}

// HandleSaveLLMReport records feedback from the LLM settings surface.
//
// HTTP: POST /save-llm-report
// Body: {"prolificId": "...", "reportText": "..."}
//
// Independent of save-llm-consent on purpose: the client issues both, and
// one failing must not drop the other.
func (h *ConsentHandler) HandleSaveLLMReport(w http.ResponseWriter, r *http.Request) {
	var req saveLLMReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err := h.consents.RecordLLMReport(r.Context(), req.ProlificID, req.ReportText)
	if err != nil {
		h.logger.Warn("save-llm-report failed",
			slog.String("prolificId", req.ProlificID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "LLM report saved"})
}
