package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/pyquest/internal/auth"
	"github.com/felixgeelhaar/pyquest/internal/catalog"
	"github.com/felixgeelhaar/pyquest/internal/config"
	"github.com/felixgeelhaar/pyquest/internal/domain"
	"github.com/felixgeelhaar/pyquest/internal/outbox"
	"github.com/felixgeelhaar/pyquest/internal/progress"
	"github.com/felixgeelhaar/pyquest/internal/queue"
	"github.com/felixgeelhaar/pyquest/internal/repository"
	"github.com/felixgeelhaar/pyquest/internal/session"
	"github.com/felixgeelhaar/pyquest/internal/storage/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	Auth     *auth.Service
	Catalog  *catalog.Registry
	Progress *progress.Service
	Sessions *session.Service
	Producer *queue.Producer
	Results  *queue.ResultConsumer
	Relay    *outbox.Relay

	sqliteDB *sqlite.DB
	pgDB     *sql.DB
	pgPool   *pgxpool.Pool
	queue    *queue.Connection
}

// NewApp creates a new application instance with all dependencies wired.
// Storage is selected by the configured database driver; the queue
// connection feeds both the playground run flow and the outbox relay.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	var (
		authRepo auth.Repository
		store    progress.Store
		source   outbox.Source
	)

	switch cfg.DatabaseDriver {
	case "postgres":
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.pgDB = db
		if err := repository.EnsureSchema(ctx, db); err != nil {
			app.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		app.pgPool = pool

		pgStore := repository.NewProgressStore(db)
		authRepo = auth.NewPostgresRepository(pool)
		store = pgStore
		source = pgStore

	default: // sqlite
		db, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		app.sqliteDB = db
		if err := db.Migrate(); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}

		liteStore := sqlite.NewProgressStore(db)
		authRepo = sqlite.NewAuthStore(db)
		store = liteStore
		source = liteStore
	}

	app.Auth = auth.NewService(authRepo, time.Duration(cfg.SessionMaxAge)*time.Second)

	loader := catalog.NewLoader(cfg.CoursesPath)
	app.Catalog = catalog.NewRegistry(loader)
	if err := app.Catalog.Load(); err != nil {
		app.Close()
		return nil, fmt.Errorf("load courses: %w", err)
	}

	app.Progress = progress.NewService(store, app.Catalog, domain.NewEventDispatcher(), slog.Default())
	app.Sessions = session.NewService(app.Catalog, app.Progress, session.NewMemoryStore(), slog.Default())

	conn, err := queue.NewConnection(cfg.RabbitMQURL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("connect to queue: %w", err)
	}
	app.queue = conn
	app.Producer = queue.NewProducer(conn)
	app.Results = queue.NewResultConsumer(conn)
	app.Relay = outbox.NewRelay(source, app.Producer, outbox.DefaultRelayConfig(), slog.Default())

	return app, nil
}

// Start begins the background flows: the result consumer feeding waiting
// playground requests and the outbox relay draining domain events.
func (a *App) Start(ctx context.Context) error {
	if err := a.Results.Start(ctx); err != nil {
		return fmt.Errorf("start result consumer: %w", err)
	}
	go a.Relay.Run(ctx)
	return nil
}

// Queue returns the shared queue connection.
func (a *App) Queue() *queue.Connection {
	return a.queue
}

// PingDB checks connectivity to whichever database backs the app.
func (a *App) PingDB(ctx context.Context) error {
	if a.pgDB != nil {
		return a.pgDB.PingContext(ctx)
	}
	return a.sqliteDB.PingContext(ctx)
}

// Close cleans up application resources
func (a *App) Close() error {
	if a.Results != nil {
		a.Results.Stop()
	}
	if a.queue != nil {
		a.queue.Close()
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}

	var err error
	if a.pgDB != nil {
		err = a.pgDB.Close()
	}
	if a.sqliteDB != nil {
		err = a.sqliteDB.Close()
	}
	return err
}
