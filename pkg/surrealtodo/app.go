package surrealtodo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/engine"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/hub"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/logger"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/presence"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/postgres"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/sqlite"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/store/surrealdb"
)

// StoreKind names a persistence backend.
type StoreKind string

const (
	StoreMemory    StoreKind = "memory"
	StoreSQLite    StoreKind = "sqlite"
	StorePostgres  StoreKind = "postgres"
	StoreSurrealDB StoreKind = "surrealdb"
)

// Config holds application configuration.
type Config struct {
	// Database configuration
	Store         StoreKind
	SQLitePath    string
	PostgresDSN   string
	SurrealDBURL  string
	SurrealDBNS   string
	SurrealDBDB   string
	SurrealDBUser string
	SurrealDBPass string
	ReadOnly      bool // When true, all write operations are rejected

	// Synchronization
	Delivery    engine.DeliveryMode
	PresenceTTL time.Duration
	OpTimeout   time.Duration

	// Server configuration
	ServerPort string
	// JWTSecret enables bearer token authentication on /api. Empty means
	// development mode, where callers identify themselves with X-User-ID.
	JWTSecret string

	// Logging
	LogFile   string
	LogFormat string
	LogLevel  string
	// LogWriter replaces stdout as the log destination. Ignored when LogFile
	// is set.
	LogWriter io.Writer
}

// App holds the application state.
type App struct {
	config   *Config
	store    store.Store
	logData  *logger.LogData
	log      logger.Logger
	verifier *auth.Verifier
	presence *presence.Tracker
	hub      *hub.Hub
	engine   *engine.Engine
	readOnly atomic.Bool // Runtime read-only state (can be toggled)
}

// New creates a new application instance. The returned App owns the store
// connection and must be closed.
func New(config *Config) (*App, error) {
	app := &App{config: config}
	app.readOnly.Store(config.ReadOnly)

	if err := app.initLogger(); err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	appStore, err := openStore(config)
	if err != nil {
		_ = app.logData.Close()
		return nil, err
	}
	app.log.Info("store opened", "store", string(config.Store))

	// Wrap the store with read-only protection
	app.store = store.NewReadOnlyStore(appStore, app.IsReadOnly)

	if config.JWTSecret != "" {
		app.verifier, err = auth.NewVerifier(config.JWTSecret)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
	} else {
		app.log.Warn("no token secret configured, trusting the X-User-ID header")
	}

	app.presence = presence.New(config.PresenceTTL, presence.WithOnExpire(func(userID string) {
		app.log.Debug("presence expired", "user", userID)
	}))

	app.hub = hub.New(hub.Config{
		Presence:    app.presence,
		Logger:      app.log,
		RequireAuth: app.verifier != nil,
	})

	app.engine, err = engine.New(engine.Config{
		Lists:     app.store,
		Users:     app.store,
		Presence:  app.presence,
		Transport: app.hub,
		Mode:      config.Delivery,
		OpTimeout: config.OpTimeout,
		Logger:    app.log,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	app.hub.SetHandler(app.engine)

	return app, nil
}

func (a *App) initLogger() error {
	level := zerolog.InfoLevel
	if a.config.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(a.config.LogLevel)
		if err != nil {
			return err
		}
		level = parsed
	}

	build := logger.New().WithFormat(a.config.LogFormat).WithLevel(level)
	if a.config.LogWriter != nil {
		build = build.FromBuffer(a.config.LogWriter)
	}
	if a.config.LogFile != "" {
		build = build.FromPath(a.config.LogFile)
	}

	logData, err := build.Make()
	if err != nil {
		return err
	}
	a.logData = logData
	a.log = logData.Leveled()
	return nil
}

func openStore(config *Config) (store.Store, error) {
	switch config.Store {
	case StoreMemory, "":
		return store.NewMemoryStore(), nil
	case StoreSQLite:
		s, err := sqlite.NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		return s, nil
	case StorePostgres:
		s, err := postgres.NewPostgresStore(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return s, nil
	case StoreSurrealDB:
		s, err := surrealdb.NewSurrealStore(
			config.SurrealDBURL,
			config.SurrealDBNS,
			config.SurrealDBDB,
			config.SurrealDBUser,
			config.SurrealDBPass,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", config.Store)
	}
}

// Close stops every session and releases the store and the log file.
func (a *App) Close() error {
	var errs []error
	if a.hub != nil {
		a.hub.Close()
	}
	if a.presence != nil {
		a.presence.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	if a.logData != nil {
		if err := a.logData.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store returns the underlying store (useful for testing)
func (a *App) Store() store.Store {
	return a.store
}

// Engine returns the synchronization engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// SetReadOnly switches read-only mode. While enabled every mutation fails with
// a forbidden error and reads keep working. [App.Run] calls it on SIGHUP.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Info("read-only mode changed", "readOnly", readOnly)
}

// IsReadOnly reports whether the application is in read-only mode.
func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// getEnv retrieves an environment variable value with a fallback default value.
// Empty variables count as unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
