// Command participant runs the consent flow headlessly against a running
// server: log in, walk the popup sequence, answer each popup, and print
// the resulting record state. Useful as a smoke test after deployment and
// for seeding participants during development.
//
// Usage:
//
//	participant -url http://localhost:3000 -id PROLIFIC_42
//	participant -id PROLIFIC_43 -response report -report "tracking concerns"
//	participant -id PROLIFIC_44 -opt-out
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"shopwithus/internal/client"
	"shopwithus/internal/model"
	"shopwithus/internal/sequencer"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:3000", "server base URL")
		id       = flag.String("id", "", "Prolific ID to log in as (required)")
		response = flag.String("response", model.CookieResponseAgree, "cookie popup answer: agree or report")
		report   = flag.String("report", "", "report text when -response=report")
		optOut   = flag.Bool("opt-out", false, "decline LLM data use on the LLM popup")
		debug    = flag.Bool("debug", false, "log state transitions")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*baseURL, *id, *response, *report, *optOut, logger); err != nil {
		logger.Error("participant run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(baseURL, id, response, report string, optOut bool, logger *slog.Logger) error {
	if id == "" {
		return fmt.Errorf("-id is required")
	}

	c, err := client.New(baseURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := c.Login(ctx, id); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	logger.Info("logged in", slog.String("prolificId", id))

	answerer := &autoAnswerer{
		client:   c,
		logger:   logger,
		response: response,
		report:   report,
		optOut:   optOut,
	}

	cfg := sequencer.DefaultConfig()
	cfg.DisplayDelay = 0 // no reason to simulate reading time headlessly
	seq := sequencer.New(c, answerer, cfg, logger)

	// Showing a popup ends a sequence run, the way loading the home page
	// starts a fresh one in the browser. Re-run until nothing is left to
	// show; each pass must answer a popup or we are looping for nothing.
	final := seq.Run(ctx)
	for final == sequencer.StateShowCookiePopup || final == sequencer.StateShowLLMPopup {
		if answerer.lastAnswerFailed {
			return fmt.Errorf("flow stalled in %s: popup answer was rejected", final)
		}
		final = seq.Run(ctx)
	}
	logger.Info("flow finished", slog.String("state", final.String()))
	if final == sequencer.StateFailed {
		return fmt.Errorf("flow ended in %s", final)
	}

	useData, toggle, err := c.LLMConsent(ctx)
	if err != nil {
		return fmt.Errorf("reading final state: %w", err)
	}
	consented, err := c.ConsentStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading final state: %w", err)
	}
	fmt.Printf("participant %s: hasConsented=%v useData=%v toggleResponse=%v\n",
		id, consented, useData, formatToggle(toggle))
	return nil
}

func formatToggle(toggle *bool) string {
	if toggle == nil {
		return "unset"
	}
	return fmt.Sprintf("%v", *toggle)
}

// autoAnswerer answers each popup immediately with the decisions given on
// the command line, standing in for a participant clicking through.
type autoAnswerer struct {
	client           *client.Client
	logger           *slog.Logger
	response         string
	report           string
	optOut           bool
	lastAnswerFailed bool
}

func (a *autoAnswerer) ShowCookiePopup(identity string) {
	var reportText *string
	if a.response == model.CookieResponseReport {
		reportText = &a.report
	}
	if err := a.client.SaveConsent(context.Background(), identity, a.response, reportText); err != nil {
		a.logger.Error("saving cookie consent", slog.String("error", err.Error()))
		a.lastAnswerFailed = true
		return
	}
	a.logger.Info("answered cookie popup", slog.String("response", a.response))
}

func (a *autoAnswerer) ShowLLMPopup(identity string) {
	useData := !a.optOut
	if err := a.client.SaveLLMConsent(context.Background(), identity, useData, useData); err != nil {
		a.logger.Error("saving llm consent", slog.String("error", err.Error()))
		a.lastAnswerFailed = true
		return
	}
	a.logger.Info("answered llm popup", slog.Bool("useData", useData))
}

func (a *autoAnswerer) ShowError(message string) {
	a.logger.Error("flow error shown", slog.String("message", message))
}
