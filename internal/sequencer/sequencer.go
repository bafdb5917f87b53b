// Package sequencer decides which consent popup, if any, a participant sees
// when they land on the home page.
//
// The first version of this flow was a pyramid of nested fetch callbacks in
// the browser. The ordering rules and the retry policy were impossible to
// test in isolation, so it is now an explicit state machine: an enumerated
// State and a single transition function. The browser script and the
// headless participant client both drive the same sequence.
package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// State enumerates the machine's states. Fetching states suspend on a
// network call; Show states, Done and Failed are terminal.
type State int

const (
	StateInit State = iota
	StateFetchingIdentity
	StateFetchingCookieConsent
	StateFetchingLLMConsent
	StateRetryWait
	StateShowCookiePopup
	StateShowLLMPopup
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:                  "init",
	StateFetchingIdentity:      "fetching-identity",
	StateFetchingCookieConsent: "fetching-cookie-consent",
	StateFetchingLLMConsent:    "fetching-llm-consent",
	StateRetryWait:             "retry-wait",
	StateShowCookiePopup:       "show-cookie-popup",
	StateShowLLMPopup:          "show-llm-popup",
	StateDone:                  "done",
	StateFailed:                "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the machine stops in this state. Showing a popup
// ends the sequence: the cookie popup's own completion callback is what
// eventually triggers the LLM popup, never this machine.
func (s State) Terminal() bool {
	switch s {
	case StateShowCookiePopup, StateShowLLMPopup, StateDone, StateFailed:
		return true
	}
	return false
}

// ConsentAPI is the server surface the sequencer reads from. Implemented by
// client.Client over HTTP; tests use a scripted fake.
type ConsentAPI interface {
	// UserInfo resolves the caller's session to their Prolific ID.
	UserInfo(ctx context.Context) (string, error)
	// ConsentStatus reports whether a cookie-consent decision exists.
	ConsentStatus(ctx context.Context) (bool, error)
	// LLMConsent returns the LLM decision; toggle is nil while unset.
	LLMConsent(ctx context.Context) (useData bool, toggle *bool, err error)
}

// Presenter receives the sequencer's outcome: which popup to put up, or the
// persistent error notice after retries are exhausted.
type Presenter interface {
	ShowCookiePopup(identity string)
	ShowLLMPopup(identity string)
	ShowError(message string)
}

// Config tunes the machine. The defaults mirror the production flow: a
// one-second popup display delay and five whole-sequence attempts with a
// fixed one-delay backoff between them. Linear, not exponential — a
// low-traffic consent gate does not need backoff sophistication, it needs
// predictability.
type Config struct {
	DisplayDelay time.Duration
	MaxAttempts  int
	// Sleep is injectable so tests can count waits instead of taking them.
	Sleep func(time.Duration)
}

func DefaultConfig() Config {
	return Config{
		DisplayDelay: time.Second,
		MaxAttempts:  5,
		Sleep:        time.Sleep,
	}
}

// Sequencer drives one consent-popup decision per Run call.
type Sequencer struct {
	api       ConsentAPI
	presenter Presenter
	cfg       Config
	logger    *slog.Logger

	state    State
	identity string
	attempt  int
	lastErr  error
}

func New(api ConsentAPI, presenter Presenter, cfg Config, logger *slog.Logger) *Sequencer {
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Sequencer{
		api:       api,
		presenter: presenter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run drives the machine from Init to a terminal state and returns it.
// All side effects (popup display, error notice, waits) happen inside the
// transitions.
func (s *Sequencer) Run(ctx context.Context) State {
	s.state = StateInit
	s.attempt = 1
	for !s.state.Terminal() {
		next := s.next(ctx)
		s.logger.Debug("sequencer transition",
			slog.String("from", s.state.String()),
			slog.String("to", next.String()),
			slog.Int("attempt", s.attempt),
		)
		s.state = next
	}
	return s.state
}

// State returns the machine's current (or final) state.
func (s *Sequencer) State() State {
	return s.state
}

// next is the single transition function.
func (s *Sequencer) next(ctx context.Context) State {
	if ctx.Err() != nil {
		s.lastErr = ctx.Err()
		return StateFailed
	}

	switch s.state {
	case StateInit:
		return StateFetchingIdentity

	case StateFetchingIdentity:
		identity, err := s.api.UserInfo(ctx)
		if err != nil {
			return s.retryOrFail(err)
		}
		identity = strings.TrimSpace(identity)
		if identity == "" {
			// A blank identity is a server-side data problem, not a
			// transient fault. No number of retries fixes it.
			s.lastErr = fmt.Errorf("no Prolific ID found")
			s.presenter.ShowError(s.errorNotice())
			return StateFailed
		}
		s.identity = identity
		return StateFetchingCookieConsent

	case StateFetchingCookieConsent:
		hasConsented, err := s.api.ConsentStatus(ctx)
		if err != nil {
			return s.retryOrFail(err)
		}
		if !hasConsented {
			// The display delay elapses before the popup goes up, and the
			// sequence stops here: the LLM popup is the cookie popup's
			// completion callback's problem, never this machine's.
			s.cfg.Sleep(s.cfg.DisplayDelay)
			s.presenter.ShowCookiePopup(s.identity)
			return StateShowCookiePopup
		}
		return StateFetchingLLMConsent

	case StateFetchingLLMConsent:
		_, toggle, err := s.api.LLMConsent(ctx)
		if err != nil {
			return s.retryOrFail(err)
		}
		if toggle == nil {
			s.cfg.Sleep(s.cfg.DisplayDelay)
			s.presenter.ShowLLMPopup(s.identity)
			return StateShowLLMPopup
		}
		// Both decisions recorded: nothing to show.
		return StateDone

	case StateRetryWait:
		s.cfg.Sleep(s.cfg.DisplayDelay)
		s.attempt++
		// The whole sequence restarts from the identity fetch.
		return StateFetchingIdentity
	}

	// Terminal states exit the Run loop before next is called again.
	s.lastErr = fmt.Errorf("transition from terminal state %s", s.state)
	return StateFailed
}

// retryOrFail decides what a fetch failure means: another attempt, or the
// persistent error notice. Attempt counting is per sequence, not per fetch,
// so three failures in one pass and three passes failing once each exhaust
// the budget identically.
func (s *Sequencer) retryOrFail(err error) State {
	s.lastErr = err
	s.logger.Warn("consent sequence fetch failed",
		slog.Int("attempt", s.attempt),
		slog.String("error", err.Error()),
	)
	if s.attempt >= s.cfg.MaxAttempts {
		s.presenter.ShowError(s.errorNotice())
		return StateFailed
	}
	return StateRetryWait
}

func (s *Sequencer) errorNotice() string {
	return fmt.Sprintf("Failed: %v. Please try again or log in.", s.lastErr)
}
