package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopwithus/internal/model"
)

// ============================================================
// CHECK CONSENT
// ============================================================

func TestHandleCheckConsent_FreshParticipant(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "PROLIFIC_1")

	rec := env.doJSON(t, http.MethodGet, "/check-consent", "", cookie)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body checkConsentResponse
	decodeBody(t, rec, &body)
	assert.False(t, body.HasConsented)
	require.NotNil(t, body.UserResponse)
	assert.Equal(t, "PROLIFIC_1", body.UserResponse.ProlificID)
	assert.Nil(t, body.UserResponse.CookieResponse)
}

func TestHandleCheckConsent_AfterDecision(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "PROLIFIC_1")

	rec := env.doJSON(t, http.MethodPost, "/save-consent",
		`{"prolificId": "PROLIFIC_1", "response": "agree"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/check-consent", "", cookie)

	var body checkConsentResponse
	decodeBody(t, rec, &body)
	assert.True(t, body.HasConsented)
	require.NotNil(t, body.UserResponse.CookieResponse)
	assert.Equal(t, model.CookieResponseAgree, *body.UserResponse.CookieResponse)
}

func TestHandleCheckConsent_Unauthenticated(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/check-consent", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================
// SAVE CONSENT
// ============================================================

func TestHandleSaveConsent_Report(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "PROLIFIC_1")

	rec := env.doJSON(t, http.MethodPost, "/save-consent",
		`{"prolificId": "PROLIFIC_1", "response": "report", "reportText": "too much tracking"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var ack MessageResponse
	decodeBody(t, rec, &ack)
	assert.Equal(t, "Consent saved", ack.Message)

	rec = env.doJSON(t, http.MethodGet, "/check-consent", "", cookie)
	var body checkConsentResponse
	decodeBody(t, rec, &body)
	require.NotNil(t, body.UserResponse.CookieResponse)
	assert.Equal(t, model.CookieResponseReport, *body.UserResponse.CookieResponse)
	require.NotNil(t, body.UserResponse.ReportText)
	assert.Equal(t, "too much tracking", *body.UserResponse.ReportText)
}

func TestHandleSaveConsent_Invalid(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "PROLIFIC_1")

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "missing prolific id",
			body:     `{"response": "agree"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing response",
			body:     `{"prolificId": "PROLIFIC_1"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "reserved placeholder id",
			body:     `{"prolificId": "unknown", "response": "agree"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "response outside vocabulary",
			body:     `{"prolificId": "PROLIFIC_1", "response": "maybe"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "participant never logged in",
			body:     `{"prolificId": "STRANGER", "response": "agree"}`,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/save-consent", tt.body, nil)
			assert.Equal(t, tt.wantCode, rec.Code)

			var body ErrorResponse
			decodeBody(t, rec, &body)
			assert.NotEmpty(t, body.Message)
		})
	}
}

// ============================================================
// LLM CONSENT
// ============================================================

func TestHandleGetLLMConsent_Defaults(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "PROLIFIC_1")

	rec := env.doJSON(t, http.MethodGet, "/get-llm-consent", "", cookie)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body llmConsentResponse
	decodeBody(t, rec, &body)
	assert.True(t, body.UseData, "participants start opted in")
	assert.Nil(t, body.ToggleResponse, "no explicit decision yet")
}

func TestHandleSaveLLMConsent_OptOut(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "PROLIFIC_1")

	rec := env.doJSON(t, http.MethodPost, "/save-llm-consent",
		`{"prolificId": "PROLIFIC_1", "useData": false, "toggleResponse": false}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/get-llm-consent", "", cookie)

	var body llmConsentResponse
	decodeBody(t, rec, &body)
	assert.False(t, body.UseData)
	require.NotNil(t, body.ToggleResponse)
	assert.False(t, *body.ToggleResponse)
}

func TestHandleSaveLLMConsent_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/save-llm-consent",
		`{"prolificId": "", "useData": true, "toggleResponse": true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/save-llm-consent",
		`{"prolificId": "STRANGER", "useData": true, "toggleResponse": true}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================
// LLM REPORT
// ============================================================

func TestHandleSaveLLMReport(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "PROLIFIC_1")

	// The settings page sends its toggle state alongside the report; the
	// endpoint accepts it without treating it as a consent write.
	rec := env.doJSON(t, http.MethodPost, "/save-llm-report",
		`{"prolificId": "PROLIFIC_1", "reportText": "toggle kept resetting", "toggleResponse": true}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var ack MessageResponse
	decodeBody(t, rec, &ack)
	assert.Equal(t, "LLM report saved", ack.Message)

	// The report write must not count as an LLM consent decision.
	rec = env.doJSON(t, http.MethodGet, "/get-llm-consent", "", cookie)
	var body llmConsentResponse
	decodeBody(t, rec, &body)
	assert.Nil(t, body.ToggleResponse)
}

func TestHandleSaveLLMReport_Invalid(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "PROLIFIC_1")

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "empty report",
			body:     `{"prolificId": "PROLIFIC_1", "reportText": ""}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "reserved placeholder id",
			body:     `{"prolificId": "unknown", "reportText": "hello"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "participant never logged in",
			body:     `{"prolificId": "STRANGER", "reportText": "hello"}`,
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/save-llm-report", tt.body, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
