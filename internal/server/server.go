// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New builds every dependency in one place
// (storage → services → handlers) and setupRoutes maps URLs to handlers.
// Nothing below this package knows how its collaborators are constructed.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config ─┐
//	mail.Sender ───┼→ Server.New
//	               ├─ sqlite.DB → UserDB, TermDB, TitleDB, ReviewDB, CommentDB
//	               ├─ auth.TokenService, auth.CodeService
//	               ├─ service.*Service (repository interfaces only)
//	               └─ handler.*Handler (services only)
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/auth"
	"github.com/RomanK74/api-yamdb/internal/config"
	"github.com/RomanK74/api-yamdb/internal/handler"
	"github.com/RomanK74/api-yamdb/internal/mail"
	"github.com/RomanK74/api-yamdb/internal/metrics"
	"github.com/RomanK74/api-yamdb/internal/middleware"
	sqliteRepo "github.com/RomanK74/api-yamdb/internal/repository/sqlite"
	"github.com/RomanK74/api-yamdb/internal/service"
)

// limiterCleanupInterval is how often idle per-IP limiters are dropped.
const limiterCleanupInterval = 10 * time.Minute

// Server owns the router and the database connection. The database is closed
// when Start returns, or by Close for servers that are never started.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
}

// New opens the database and wires every layer.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it cannot be confused with
// the modernc.org/sqlite driver package.
func New(cfg config.Config, logger *slog.Logger, mailer mail.Sender) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		limiter: middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, logger),
	}

	if err := s.setupRoutes(mailer); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE (all JSON, under /api/v1):
//
//	POST   /auth/email                                     request a confirmation code
//	POST   /auth/token                                     redeem it for tokens
//	POST   /auth/token/refresh                             new access token
//	GET    /users, POST /users                             admin
//	GET    /users/me, PATCH /users/me                      signed in
//	GET    /users/{username}, PATCH, DELETE                admin
//	GET    /categories, POST, DELETE /categories/{slug}
//	GET    /genres, POST, DELETE /genres/{slug}
//	GET    /titles, POST, GET/PATCH/DELETE /titles/{titleID}
//	GET    /titles/{titleID}/reviews, POST, GET/PATCH/DELETE .../{reviewID}
//	GET    .../reviews/{reviewID}/comments, POST, GET/PATCH/DELETE .../{commentID}
//
// plus GET /healthz and GET /metrics at the root.
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Recoverer → Logger → metrics. The API group then adds
// bearer authentication; the auth group adds a per-IP rate limit.
func (s *Server) setupRoutes(mailer mail.Sender) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(s.metrics.Instrument)

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.AccessTokenTTL, s.config.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	users := s.db.Users()

	authService := service.NewAuthService(users, auth.NewCodeService(), tokens, mailer,
		service.AuthConfig{From: s.config.NoReplyEmail, CodeTTL: s.config.ConfirmationCodeTTL}, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(service.NewUserService(users, s.logger), s.logger)
	categoryHandler := handler.NewTermHandler(
		service.NewTermService(s.db.Categories(), access.ResourceCategory, s.logger), s.logger)
	genreHandler := handler.NewTermHandler(
		service.NewTermService(s.db.Genres(), access.ResourceGenre, s.logger), s.logger)
	titleHandler := handler.NewTitleHandler(service.NewTitleService(s.db.Titles(), s.logger), s.logger)
	reviewHandler := handler.NewReviewHandler(
		service.NewReviewService(s.db.Reviews(), s.db.Titles(), s.logger), s.logger)
	commentHandler := handler.NewCommentHandler(
		service.NewCommentService(s.db.Comments(), s.db.Reviews(), s.logger), s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens, users))

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.limiter.Handler)
			r.Post("/email", authHandler.HandleRequestCode)
			r.Post("/token", authHandler.HandleToken)
			r.Post("/token/refresh", authHandler.HandleRefresh)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleList)
			r.Post("/", userHandler.HandleCreate)
			r.Get("/me", userHandler.HandleMe)
			r.Patch("/me", userHandler.HandleUpdateMe)
			r.Get("/{username}", userHandler.HandleGet)
			r.Patch("/{username}", userHandler.HandleUpdate)
			r.Delete("/{username}", userHandler.HandleDelete)
		})

		for prefix, h := range map[string]*handler.TermHandler{"/categories": categoryHandler, "/genres": genreHandler} {
			r.Route(prefix, func(r chi.Router) {
				r.Get("/", h.HandleList)
				r.Post("/", h.HandleCreate)
				r.Delete("/{slug}", h.HandleDelete)
			})
		}

		r.Route("/titles", func(r chi.Router) {
			r.Get("/", titleHandler.HandleList)
			r.Post("/", titleHandler.HandleCreate)

			r.Route("/{titleID}", func(r chi.Router) {
				r.Get("/", titleHandler.HandleGet)
				r.Patch("/", titleHandler.HandleUpdate)
				r.Delete("/", titleHandler.HandleDelete)

				r.Route("/reviews", func(r chi.Router) {
					r.Get("/", reviewHandler.HandleList)
					r.Post("/", reviewHandler.HandleCreate)

					r.Route("/{reviewID}", func(r chi.Router) {
						r.Get("/", reviewHandler.HandleGet)
						r.Patch("/", reviewHandler.HandleUpdate)
						r.Delete("/", reviewHandler.HandleDelete)

						r.Route("/comments", func(r chi.Router) {
							r.Get("/", commentHandler.HandleList)
							r.Post("/", commentHandler.HandleCreate)
							r.Get("/{commentID}", commentHandler.HandleGet)
							r.Patch("/{commentID}", commentHandler.HandleUpdate)
							r.Delete("/{commentID}", commentHandler.HandleDelete)
						})
					})
				})
			})
		})
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
//  1. stop accepting connections
//  2. wait up to 30s for in-flight requests
//  3. close the database
func (s *Server) Start() error {
	defer s.db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.limiter.StartCleanup(ctx, limiterCleanupInterval)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api/v1/", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
