// Package server is the composition root: it wires the database, services,
// handlers, and middleware together and defines every route.
//
// Dependency flow:
//
//	main.go builds Config → server.New opens sqlite.DB, builds the auth
//	primitives (TokenService, CodeHasher, GoogleProvider, email Sender),
//	the services, and the handlers, then registers routes.
//
// Handlers never touch the database; services never touch HTTP.
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

	"github.com/sakif/hd-notes/internal/auth"
	"github.com/sakif/hd-notes/internal/email"
	"github.com/sakif/hd-notes/internal/handler"
	"github.com/sakif/hd-notes/internal/middleware"
	sqliteRepo "github.com/sakif/hd-notes/internal/repository/sqlite"
	"github.com/sakif/hd-notes/internal/service"
)

// authRateLimit is the per-IP request rate allowed on /auth endpoints.
const authRateLimit = 5.0 // requests per second

// Config holds everything the server needs from the environment.
type Config struct {
	Port   int
	DBPath string

	JWTSecret     string
	RefreshSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Server owns the router and the resources that must be released on
// shutdown (currently just the database).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and registers all routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
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

// setupRoutes builds the services and handlers and maps every route.
//
//	POST /auth/signup, /auth/signupverify, /auth/login, /auth/loginverify,
//	     /auth/resend, /auth/google          (rate-limited per IP)
//	GET  /auth/google/login, /auth/google/callback (only when OAuth configured)
//	GET  /home/notes, POST /home/addNote, DELETE /home/deleteNote/{id}
//	     (JWT required)
//	GET  /healthz
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.RefreshSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// SMTP is optional in development: without a host, codes are logged
	// instead of mailed.
	var sender email.Sender
	if s.config.SMTPHost != "" {
		sender = email.NewSMTPSender(
			s.config.SMTPHost, s.config.SMTPPort,
			s.config.SMTPFrom, s.config.SMTPUser, s.config.SMTPPass,
			s.logger,
		)
	} else {
		s.logger.Warn("SMTP not configured — OTP codes will be logged, not emailed")
		sender = &email.LogSender{Logger: s.logger}
	}

	var google *auth.GoogleProvider
	if s.config.GoogleClientID != "" {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	} else {
		s.logger.Warn("GOOGLE_CLIENT_ID not set — Google sign-in is disabled")
	}

	// A typed nil *GoogleProvider must not end up inside the interface,
	// or the nil check in the service would pass and calls would panic.
	var verifier service.IdentityVerifier
	if google != nil {
		verifier = google
	}

	authService := service.NewAuthService(
		s.db, s.db, tokens, auth.NewCodeHasher(), sender, verifier, s.logger,
	)
	noteService := service.NewNoteService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, google, s.logger)
	noteHandler := handler.NewNoteHandler(noteService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authLimiter := middleware.NewAuthLimiter(authRateLimit)
	s.router.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(authLimiter))

		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/signupverify", authHandler.HandleSignupVerify)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/loginverify", authHandler.HandleLoginVerify)
		r.Post("/resend", authHandler.HandleResend)
		r.Post("/google", authHandler.HandleGoogle)

		if google != nil {
			r.Get("/google/login", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		}
	})

	s.router.Route("/home", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/notes", noteHandler.HandleList)
		r.Post("/addNote", noteHandler.HandleCreate)
		r.Delete("/deleteNote/{id}", noteHandler.HandleDelete)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s),
// close the database (flushes the WAL).
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
