// Package model defines the data structures used throughout the application.
package model

import "time"

// Consent decisions a participant can make on the cookie popup.
// Anything else is rejected at the service layer.
const (
	CookieResponseAgree  = "agree"
	CookieResponseReport = "report"
)

// ReservedProlificID is never accepted as an identity. The frontend falls
// back to the string "unknown" when it cannot resolve who is logged in, and
// a consent write under that name would be unattributable.
const ReservedProlificID = "unknown"

// Participant is one row per experiment participant, keyed by their
// Prolific ID. It doubles as the consent ledger: every consent decision the
// participant makes lands on this record as a field-level merge.
//
// WHY POINTER FIELDS?
// CookieResponse and ToggleResponse carry three states, not two: the popups
// must be shown exactly while no decision has been recorded, so "unset" has
// to be distinguishable from any decided value. nil means unset; the column
// is NULL until the first decision arrives. LLMConsent stays a plain bool
// because it defaults to true at creation and never needs an unset state.
type Participant struct {
	ID             string     `json:"id"`
	ProlificID     string     `json:"prolificId"`
	SessionID      string     `json:"-"` // opaque credential, never serialized to clients
	CookieResponse *string    `json:"cookieResponse"`
	ReportText     *string    `json:"reportText"`
	LLMConsent     bool       `json:"llmConsent"`
	ToggleResponse *bool      `json:"toggleResponse"`
	ReportLLMText  *string    `json:"reportLLMText"`
	Timestamp      time.Time  `json:"timestamp"`
}

// HasConsented reports whether a cookie-consent decision has been recorded.
// The cookie popup is shown iff this is false.
func (p *Participant) HasConsented() bool {
	return p.CookieResponse != nil
}

// HasToggleResponse reports whether an explicit LLM data-use decision has
// been recorded. The LLM popup is shown iff consent is recorded and this
// is still false.
func (p *Participant) HasToggleResponse() bool {
	return p.ToggleResponse != nil
}
