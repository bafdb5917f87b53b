// Package server wires the application together: router, middleware,
// handlers, and the store — the composition root. main.go stays minimal and
// everything here is constructable in tests without a real listener.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"shopwithus/internal/auth"
	"shopwithus/internal/config"
	"shopwithus/internal/handler"
	"shopwithus/internal/middleware"
	sqliteRepo "shopwithus/internal/repository/sqlite"
	"shopwithus/internal/service"
)

// Server owns the router and the store handle. The store is explicitly
// constructed here and injected downward — no package-level connection
// state anywhere in the app.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the dependency chain:
//
//	sqlite.DB → SessionService / ConsentService → handlers → routes
//
// Services receive the repository interface, handlers receive services, and
// nothing below the handlers ever sees HTTP.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router for httptest-based integration tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware, pages, and the consent API.
//
// Route map:
//
//	GET  /                  login page
//	GET  /home, /personalization, /account-settings, /llm-consent, /thank-you
//	GET  /static/*          assets
//	POST /login             issue session cookie
//	GET  /user-info         session → identity            (cookie)
//	GET  /check-consent     cookie-consent status         (cookie)
//	GET  /get-llm-consent   LLM-consent status            (cookie)
//	POST /save-consent      record cookie decision
//	POST /save-llm-consent  record LLM decision
//	POST /save-llm-report   record settings-page feedback
//	GET  /logout            clear session, redirect to /
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	pages, err := handler.NewPagesHandler(s.config.TemplateDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating pages handler: %w", err)
	}
	s.router.Get("/", pages.HandlePage("login"))
	for _, page := range []string{"home", "personalization", "account-settings", "llm-consent", "thank-you"} {
		s.router.Get("/"+page, pages.HandlePage(page))
	}

	sessions := service.NewSessionService(s.db, s.logger)
	consents := service.NewConsentService(s.db, s.logger)
	sessionHandler := handler.NewSessionHandler(sessions, s.logger)
	consentHandler := handler.NewConsentHandler(consents, s.logger)

	s.router.Post("/login", sessionHandler.HandleLogin)
	s.router.Get("/logout", sessionHandler.HandleLogout)

	// Reads are session-scoped: a participant can only query their own
	// record, so these sit behind the session middleware.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))
		r.Get("/user-info", sessionHandler.HandleUserInfo)
		r.Get("/check-consent", consentHandler.HandleCheckConsent)
		r.Get("/get-llm-consent", consentHandler.HandleGetLLMConsent)
	})

	// Writes carry the identity in the body (see ConsentHandler).
	s.router.Post("/save-consent", consentHandler.HandleSaveConsent)
	s.router.Post("/save-llm-consent", consentHandler.HandleSaveLLMConsent)
	s.router.Post("/save-llm-report", consentHandler.HandleSaveLLMReport)

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30s, and
// close the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
