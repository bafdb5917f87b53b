// Package popup drives the three consent overlays: the cookie notice, the
// LLM data-use notice, and the opt-out confirmation dialog.
//
// The invariant this package owns is exclusivity: at most one overlay is
// visible at a time, and showing a new one first removes whatever is up.
// The rendering itself is behind the Surface port — the browser layer and
// the headless client plug in their own.
package popup

import (
	"context"
	"log/slog"
	"time"
)

// Kind identifies which overlay is visible.
type Kind int

const (
	KindNone Kind = iota
	KindCookie
	KindLLM
	KindOptOutConfirm
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCookie:
		return "cookie"
	case KindLLM:
		return "llm"
	case KindOptOutConfirm:
		return "opt-out-confirm"
	}
	return "unknown"
}

// Surface is the rendering target. Render replaces whatever is on screen;
// Clear removes the current overlay.
type Surface interface {
	Render(k Kind)
	Clear()
}

// ConsentWriter is the server surface the presenter writes decisions to.
// Implemented by client.Client; the browser layer's fetch calls are its
// other implementation.
type ConsentWriter interface {
	SaveConsent(ctx context.Context, prolificID, response string, reportText *string) error
	SaveLLMConsent(ctx context.Context, prolificID string, useData, toggle bool) error
	SaveLLMReport(ctx context.Context, prolificID, reportText string) error
}

// Navigator handles the LLM popup's "Settings" action, which leaves the
// popup flow entirely.
type Navigator interface {
	NavigateTo(path string)
}

// Presenter coordinates the overlays for one participant.
//
// Consent saves here are best-effort and never retried: a failed write is
// logged and the flow moves on exactly as if it had succeeded. The one
// thing worse than losing a consent record in a user study is wedging the
// participant behind a popup that will not go away.
type Presenter struct {
	surface  Surface
	writer   ConsentWriter
	nav      Navigator
	logger   *slog.Logger
	delay    time.Duration
	schedule func(time.Duration, func())

	prolificID string
	current    Kind
	toggleOn   bool
	// last report text actually submitted, so the page-unload flush can
	// tell "typed and abandoned" apart from "already saved"
	submittedReport string
}

// Config for the presenter; Schedule is injectable for tests (production
// uses time.AfterFunc semantics: wait, then run).
type Config struct {
	DisplayDelay time.Duration
	Schedule     func(time.Duration, func())
}

func DefaultConfig() Config {
	return Config{
		DisplayDelay: time.Second,
		Schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

func New(surface Surface, writer ConsentWriter, nav Navigator, cfg Config, logger *slog.Logger) *Presenter {
	if cfg.Schedule == nil {
		cfg.Schedule = DefaultConfig().Schedule
	}
	return &Presenter{
		surface:  surface,
		writer:   writer,
		nav:      nav,
		logger:   logger,
		delay:    cfg.DisplayDelay,
		schedule: cfg.Schedule,
		current:  KindNone,
		toggleOn: true, // LLM toggle defaults to consent granted
	}
}

// Current returns the overlay currently on screen.
func (p *Presenter) Current() Kind {
	return p.current
}

// ToggleOn returns the LLM toggle's UI state.
func (p *Presenter) ToggleOn() bool {
	return p.toggleOn
}

// show enforces exclusivity: anything already up comes down first.
func (p *Presenter) show(k Kind) {
	if p.current != KindNone {
		p.surface.Clear()
	}
	p.current = k
	p.surface.Render(k)
}

func (p *Presenter) dismiss() {
	if p.current != KindNone {
		p.surface.Clear()
		p.current = KindNone
	}
}

// ShowCookiePopup puts up the cookie notice for the given participant.
func (p *Presenter) ShowCookiePopup(prolificID string) {
	p.prolificID = prolificID
	p.show(KindCookie)
}

// ShowLLMPopup puts up the LLM data-use notice.
func (p *Presenter) ShowLLMPopup(prolificID string) {
	p.prolificID = prolificID
	p.toggleOn = true
	p.show(KindLLM)
}

// Agree records the "agree" cookie decision and moves on to the LLM popup.
func (p *Presenter) Agree(ctx context.Context) {
	p.saveCookieDecision(ctx, "agree", nil)
}

// SubmitReport records the "report" decision with the participant's
// feedback text from the more-options box.
func (p *Presenter) SubmitReport(ctx context.Context, text string) {
	p.saveCookieDecision(ctx, "report", &text)
}

// saveCookieDecision persists the decision, dismisses the popup, and
// schedules the LLM popup after the display delay. Save failure is
// non-blocking: the popup still comes down and the LLM popup still follows,
// so a flaky network never strands the participant.
func (p *Presenter) saveCookieDecision(ctx context.Context, response string, reportText *string) {
	if err := p.writer.SaveConsent(ctx, p.prolificID, response, reportText); err != nil {
		p.logger.Error("saving cookie consent failed",
			slog.String("prolificId", p.prolificID),
			slog.String("error", err.Error()),
		)
	}
	p.dismiss()
	id := p.prolificID
	p.schedule(p.delay, func() {
		p.ShowLLMPopup(id)
	})
}

// SetToggle handles the LLM popup's data-use switch.
//
// Switching ON persists immediately. Switching OFF does not: the UI state
// reverts to on and the opt-out confirmation dialog goes up — only
// confirming there persists the opt-out. Mirrors the production popup,
// where the off position is always intercepted.
func (p *Presenter) SetToggle(ctx context.Context, on bool) {
	if on {
		p.toggleOn = true
		p.saveLLM(ctx, true, true)
		return
	}
	// Intercept and revert; the confirmation dialog decides.
	p.toggleOn = true
	p.show(KindOptOutConfirm)
}

// CancelOptOut discards the opt-out with no write and restores the LLM
// popup.
func (p *Presenter) CancelOptOut() {
	p.show(KindLLM)
}

// ConfirmOptOut persists useData=false, toggle=false and turns the UI
// toggle off, then returns to the LLM popup.
func (p *Presenter) ConfirmOptOut(ctx context.Context) {
	p.toggleOn = false
	p.saveLLM(ctx, false, false)
	p.show(KindLLM)
}

// OpenSettings leaves the popup flow for the account-settings surface.
func (p *Presenter) OpenSettings() {
	p.dismiss()
	p.nav.NavigateTo("/account-settings")
}

// SubmitLLMReport persists settings-page feedback, then the consent state.
// Two independent writes in that order: a consent failure never drops the
// report, and vice versa.
func (p *Presenter) SubmitLLMReport(ctx context.Context, text string) {
	if err := p.writer.SaveLLMReport(ctx, p.prolificID, text); err != nil {
		p.logger.Error("saving LLM report failed",
			slog.String("prolificId", p.prolificID),
			slog.String("error", err.Error()),
		)
	} else {
		p.submittedReport = text
	}
	p.saveLLM(ctx, true, p.toggleOn)
}

// FlushReport is the best-effort save-on-exit for the settings page: if the
// participant typed feedback and navigated away without submitting, write
// it. At-most-best-effort — the page is going away, a failure is only
// logged.
func (p *Presenter) FlushReport(ctx context.Context, text string) {
	if text == "" || text == p.submittedReport {
		return
	}
	if err := p.writer.SaveLLMReport(ctx, p.prolificID, text); err != nil {
		p.logger.Warn("flushing unsaved LLM report failed",
			slog.String("prolificId", p.prolificID),
			slog.String("error", err.Error()),
		)
		return
	}
	p.submittedReport = text
}

func (p *Presenter) saveLLM(ctx context.Context, useData, toggle bool) {
	if err := p.writer.SaveLLMConsent(ctx, p.prolificID, useData, toggle); err != nil {
		p.logger.Error("saving LLM consent failed",
			slog.String("prolificId", p.prolificID),
			slog.Bool("useData", useData),
			slog.String("error", err.Error()),
		)
	}
}
