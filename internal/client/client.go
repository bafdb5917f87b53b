// Package client is a Go client for the ShopWithUs consent API. It holds
// the session cookie in a jar, so after Login every call is authenticated
// the same way a browser's would be.
//
// It implements sequencer.ConsentAPI and popup.ConsentWriter, which is what
// lets cmd/participant run the full consent flow headlessly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client talks to one ShopWithUs server on behalf of one participant.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL (e.g.
// "http://localhost:3000"). The cookie jar cannot fail to construct with a
// nil options struct, but the signature keeps the error anyway so callers
// don't learn to ignore it.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("client: creating cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
			// The logout endpoint redirects to the login page; following it
			// would be harmless but pointless for an API client.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// apiError is the server's standard {error, message} failure body.
type apiError struct {
	Status  int
	Type    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// do issues one request and decodes a successful JSON body into out (when
// non-nil). 4xx/5xx responses come back as *apiError with the decoded body
// when the server sent one.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	reqBody := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("client: encoding request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	// Redirects count as success: logout answers with a 302 to the login
	// page and the jar has already recorded the cleared cookie.
	if res.StatusCode >= 400 {
		apiErr := &apiError{Status: res.StatusCode}
		_ = json.NewDecoder(res.Body).Decode(apiErr) // body may not be JSON
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("client: decoding %s response: %w", path, err)
		}
	}
	return nil
}

// Login authenticates as the given Prolific ID. On success the session
// cookie lands in the jar and authenticates every later call.
func (c *Client) Login(ctx context.Context, prolificID string) error {
	body := map[string]string{"prolificId": prolificID}
	return c.do(ctx, http.MethodPost, "/login", body, nil)
}

// Logout invalidates the session server-side and drops the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/logout", nil, nil)
}

// UserInfo returns the Prolific ID bound to the session.
func (c *Client) UserInfo(ctx context.Context) (string, error) {
	var out struct {
		ProlificID string `json:"prolificId"`
	}
	if err := c.do(ctx, http.MethodGet, "/user-info", nil, &out); err != nil {
		return "", err
	}
	return out.ProlificID, nil
}

// ConsentStatus reports whether a cookie-consent decision is recorded.
func (c *Client) ConsentStatus(ctx context.Context) (bool, error) {
	var out struct {
		HasConsented bool `json:"hasConsented"`
	}
	if err := c.do(ctx, http.MethodGet, "/check-consent", nil, &out); err != nil {
		return false, err
	}
	return out.HasConsented, nil
}

// LLMConsent returns the LLM data-use decision; toggle is nil while no
// explicit decision has been recorded.
func (c *Client) LLMConsent(ctx context.Context) (bool, *bool, error) {
	var out struct {
		UseData        bool  `json:"useData"`
		ToggleResponse *bool `json:"toggleResponse"`
	}
	if err := c.do(ctx, http.MethodGet, "/get-llm-consent", nil, &out); err != nil {
		return false, nil, err
	}
	return out.UseData, out.ToggleResponse, nil
}

// SaveConsent records a cookie popup decision.
func (c *Client) SaveConsent(ctx context.Context, prolificID, response string, reportText *string) error {
	body := map[string]any{
		"prolificId": prolificID,
		"response":   response,
		"reportText": reportText,
	}
	return c.do(ctx, http.MethodPost, "/save-consent", body, nil)
}

// SaveLLMConsent records the LLM data-use decision and toggle state.
func (c *Client) SaveLLMConsent(ctx context.Context, prolificID string, useData, toggle bool) error {
	body := map[string]any{
		"prolificId":     prolificID,
		"useData":        useData,
		"toggleResponse": toggle,
	}
	return c.do(ctx, http.MethodPost, "/save-llm-consent", body, nil)
}

// SaveLLMReport records settings-page feedback.
func (c *Client) SaveLLMReport(ctx context.Context, prolificID, reportText string) error {
	body := map[string]string{
		"prolificId": prolificID,
		"reportText": reportText,
	}
	return c.do(ctx, http.MethodPost, "/save-llm-report", body, nil)
}
