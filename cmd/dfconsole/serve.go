// ABOUTME: The serve command and HTTP server wiring for the web console.
// ABOUTME: Mounts health check, session token forwarding, CSRF protection, and the admin routes.

package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389/dfconsole/internal/admin"
	"github.com/2389/dfconsole/internal/alerts"
	"github.com/2389/dfconsole/internal/auth"
	"github.com/2389/dfconsole/internal/config"
	"github.com/2389/dfconsole/internal/drafts"
	"github.com/2389/dfconsole/internal/license"
	"github.com/2389/dfconsole/internal/logging"
	"github.com/2389/dfconsole/internal/store"
)

const pruneInterval = 24 * time.Hour

func newServeCmd(a *app) *cobra.Command {
	var (
		port   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web console",
		Long: `Start the dfconsole web console.

The server provides:
  • Admin console at http://localhost:PORT/admin
  • JSON resource pages at http://localhost:PORT/api/resources/{resource}
  • Health check at http://localhost:PORT/healthz

Authentication:
  The console forwards a platform session token taken from the
  X-DreamFactory-Session-Token header, the df_session cookie, or an
  Authorization Bearer token. Without one it uses DF_SESSION_TOKEN.

Environment Variables:
  DFCONSOLE_PORT          Server port (default: 8080)
  DFCONSOLE_DB_PATH       API call log database
  DFCONSOLE_SESSION_KEY   Key signing the alert cookie
  DFCONSOLE_CSRF_KEY      Enables CSRF protection on console forms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Port
			}
			if !cmd.Flags().Changed("db") {
				dbPath = getDefaultDBPath(a.cfg.DBPath, a.logger)
			}
			return runServe(cmd.Context(), a, port, dbPath)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to listen on")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "API call log database path")
	return cmd
}

func runServe(ctx context.Context, a *app, port, dbPath string) error {
	dbPath, err := validateAndCleanDBPath(dbPath)
	if err != nil {
		return err
	}

	srv, err := newServer(a.cfg, dbPath, a.logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.pruneLoop(ctx)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	a.logger.Info("dfconsole listening",
		zap.String("addr", httpServer.Addr),
		zap.String("platform", a.cfg.BaseURL),
		zap.String("db", dbPath))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// server is the console's HTTP handler together with what it owns.
type server struct {
	http.Handler
	store    *store.Store
	handlers *admin.Handlers
	retain   time.Duration
}

func newServer(cfg config.Config, dbPath string, logger *zap.Logger) (*server, error) {
	s, err := store.New(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	api := newClient(cfg, logger, s)
	handlers := admin.NewHandlers(admin.Deps{
		API:   api,
		Store: s,
		License: license.NewChecker(api,
			license.WithLicenseServer(cfg.LicenseURL, cfg.LicenseKey),
			license.WithTTL(cfg.LicenseTTL),
			license.WithLogger(logger)),
		Alerts:   alerts.New([]byte(cfg.SessionKey), cfg.SecureCookies, logger),
		Drafts:   drafts.NewGenerator(cfg.OpenAIKey, cfg.OpenAIModel, logger),
		PageSize: cfg.PageSize,
		Logger:   logger,
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(logger))
	r.Use(auth.Middleware)
	if cfg.CSRFKey != "" {
		r.Use(csrfProtect(cfg.CSRFKey, cfg.SecureCookies))
	} else {
		logger.Warn("DFCONSOLE_CSRF_KEY not set, console forms are not CSRF protected")
	}

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	// Favicon
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusFound)
	})

	handlers.RegisterRoutes(r)

	return &server{
		Handler:  r,
		store:    s,
		handlers: handlers,
		retain:   time.Duration(cfg.RetainLogsDays) * 24 * time.Hour,
	}, nil
}

// pruneLoop drops old call records now and then once a day until ctx ends.
func (s *server) pruneLoop(ctx context.Context) {
	s.handlers.PruneCalls(s.retain)

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.handlers.PruneCalls(s.retain)
		}
	}
}

func (s *server) Close() error {
	return s.store.Close()
}

// csrfProtect wraps gorilla/csrf. Keys of any length are hashed to the 32
// bytes it requires. Over plain HTTP the Referer check for TLS is skipped.
func csrfProtect(key string, secure bool) func(http.Handler) http.Handler {
	sum := sha256.Sum256([]byte(key))
	protect := csrf.Protect(sum[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
