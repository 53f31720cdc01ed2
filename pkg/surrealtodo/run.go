package surrealtodo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/engine"
)

const shutdownTimeout = 5 * time.Second

// Router builds the HTTP handler serving the whole API.
//
// # API Endpoints
//
// Health Check (no caller required):
//
//	GET    /health                       - Service health status
//	GET    /api/health                   - Same, under the API prefix
//
// Lists:
//
//	POST   /api/lists                    - Create an empty list owned by the caller
//	GET    /api/lists/{id}               - Get a list the caller belongs to
//	PATCH  /api/lists/{id}               - Apply a title/items patch
//	DELETE /api/lists/{id}               - Delete a list (owner only)
//	PUT    /api/lists/{id}/frozen        - Freeze or unfreeze (owner only)
//	POST   /api/lists/{id}/share         - Share with a directory user by email
//	GET    /api/users/{userId}/lists     - Lists the caller participates in
//
// Realtime:
//
//	GET    /api/ws                       - Websocket; subprotocol "cbor" or "json"
//
// Every /api route other than health resolves the caller through
// [auth.Middleware]: a bearer token when a secret is configured, otherwise
// the X-User-ID header. Errors carry {"error", "reason"} with reason one of
// invalid_argument, not_found, forbidden, locked, conflict, internal or
// unauthenticated.
func (a *App) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(requestLogger(a.log))

	// Health check routes are registered before the authenticated subrouter
	router.HandleFunc("/health", a.handleHealth).Methods("GET")
	router.HandleFunc("/api/health", a.handleHealth).Methods("GET")

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(a.verifier))

	// List routes
	api.HandleFunc("/lists", a.handleCreateList).Methods("POST")
	api.HandleFunc("/lists/{id}", a.handleGetList).Methods("GET")
	api.HandleFunc("/lists/{id}", a.handleUpdateList).Methods("PATCH")
	api.HandleFunc("/lists/{id}", a.handleDeleteList).Methods("DELETE")
	api.HandleFunc("/lists/{id}/frozen", a.handleSetFrozen).Methods("PUT")
	api.HandleFunc("/lists/{id}/share", a.handleShareList).Methods("POST")
	api.HandleFunc("/users/{userId}/lists", a.handleListsForUser).Methods("GET")

	// Websocket transport
	api.Handle("/ws", a.hub).Methods("GET")

	return router
}

// Run serves [App.Router] on the configured port until ctx is cancelled or
// the listener fails. On cancellation in-flight requests get up to five
// seconds to finish; open websocket sessions are closed by [App.Close].
//
// The users of cmd are seeded first. While running, SIGHUP toggles
// read-only mode.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	seedCtx, cancelSeed := context.WithTimeout(context.WithoutCancel(ctx), a.opTimeout())
	err := a.SeedUsers(seedCtx, cmd.Users)
	cancelSeed()
	if err != nil {
		return err
	}
	if a.config.Store == StoreMemory && len(cmd.Users) == 0 {
		a.log.Warn("in-memory directory is empty; pass -user email[:id] to run so lists can be created")
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go a.toggleReadOnlyOn(ctx, hup)

	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	a.log.Info("starting server",
		"addr", addr,
		"delivery", string(a.engine.Mode()),
		"auth", a.verifier != nil,
		"readOnly", a.IsReadOnly(),
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (a *App) opTimeout() time.Duration {
	if a.config.OpTimeout > 0 {
		return a.config.OpTimeout
	}
	return engine.DefaultOpTimeout
}

// toggleReadOnlyOn flips read-only mode on every value from signals until ctx
// is done.
func (a *App) toggleReadOnlyOn(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			a.SetReadOnly(!a.IsReadOnly())
		}
	}
}
