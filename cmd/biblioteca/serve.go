package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/aanand-mishra/biblioteca/internal/auth"
	"github.com/aanand-mishra/biblioteca/internal/config"
	"github.com/aanand-mishra/biblioteca/internal/http/handlers/account"
	"github.com/aanand-mishra/biblioteca/internal/http/handlers/api"
	"github.com/aanand-mishra/biblioteca/internal/http/handlers/catalog"
	"github.com/aanand-mishra/biblioteca/internal/http/middleware"
	"github.com/aanand-mishra/biblioteca/internal/http/render"
	"github.com/aanand-mishra/biblioteca/internal/session"
	"github.com/aanand-mishra/biblioteca/internal/storage"
)

func newServeCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), loadConfig())
		},
	}
}

// serve runs the server until SIGINT or SIGTERM.
//
// STARTUP SEQUENCE:
//  1. Connect to the database and apply the schema
//  2. Repair availability flags left inconsistent by out-of-band edits
//  3. Start the session janitor
//  4. Register routes and start the HTTP server in a goroutine
//  5. Block until a signal arrives, then shut down gracefully
func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting biblioteca",
		slog.String("env", cfg.Env),
		slog.String("version", version),
	)

	store, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise storage", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	slog.Info("storage initialised", slog.String("driver", cfg.Storage.Driver))

	repaired, err := store.ReconcileAvailability(ctx)
	if err != nil {
		slog.Error("failed to reconcile availability", slog.String("error", err.Error()))
		return err
	}
	if repaired > 0 {
		slog.Warn("repaired book availability", slog.Int64("books", repaired))
	}

	sessions := session.NewMemoryStore(cfg.Session.TTL)
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go sessions.Run(janitorCtx, cfg.Session.CleanupInterval)

	rnd, err := render.New()
	if err != nil {
		slog.Error("failed to parse templates", slog.String("error", err.Error()))
		return err
	}

	router := newRouter(app{
		storage:  store,
		sessions: sessions,
		cookies:  session.Cookies{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure},
		render:   rnd,
		today:    catalog.Today,
	})

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		slog.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed after Shutdown.
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Buffered so the signal is not missed if we are briefly busy.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	slog.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}

// app is everything the router hands to the handler factories.
type app struct {
	storage  storage.Storage
	sessions session.Store
	cookies  session.Cookies
	render   *render.Renderer
	today    func() string
}

// newRouter wires every route. Route table:
//
//	GET  /                   dashboard (login required)
//	GET  /login, POST /login
//	GET  /register, POST /register
//	GET  /logout
//	GET  /libros?q=          books, active loans, loan form (login required)
//	POST /add_book           (login required)
//	POST /create_loan        (login required)
//	POST /return_loan        (login required)
//	GET  /api/...            JSON reads (login required, 401 otherwise)
func newRouter(a app) http.Handler {
	gate := middleware.Gate{Sessions: a.sessions, Cookies: a.cookies}

	accounts := account.Deps{
		Auth:     auth.NewService(a.storage),
		Sessions: a.sessions,
		Cookies:  a.cookies,
		Render:   a.render,
	}
	books := catalog.Deps{
		Storage:  a.storage,
		Render:   a.render,
		Validate: validator.New(),
		Today:    a.today,
	}

	router := http.NewServeMux()

	router.Handle("GET /{$}", gate.Page(account.Home(accounts)))
	router.HandleFunc("GET /login", account.LoginPage(accounts))
	router.HandleFunc("POST /login", account.Login(accounts))
	router.HandleFunc("GET /register", account.RegisterPage(accounts))
	router.HandleFunc("POST /register", account.Register(accounts))
	router.HandleFunc("GET /logout", account.Logout(accounts))

	router.Handle("GET /libros", gate.Page(catalog.List(books)))
	router.Handle("POST /add_book", gate.Page(catalog.AddBook(books)))
	router.Handle("POST /create_loan", gate.Page(catalog.CreateLoan(books)))
	router.Handle("POST /return_loan", gate.Page(catalog.ReturnLoan(books)))

	router.Handle("GET /api/books", gate.API(api.ListBooks(a.storage)))
	router.Handle("GET /api/books/{id}", gate.API(api.GetBook(a.storage)))
	router.Handle("GET /api/users", gate.API(api.ListUsers(a.storage)))
	router.Handle("GET /api/users/{id}", gate.API(api.GetUser(a.storage)))
	router.Handle("GET /api/loans/active", gate.API(api.ActiveLoans(a.storage)))

	return middleware.Logger(router)
}
