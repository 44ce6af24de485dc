package app

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"ghostlore.app/aiservice"
	"ghostlore.app/api"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/database"
	"ghostlore.app/repository"
	"ghostlore.app/scheduler"
	"ghostlore.app/service"
)

// Application represents the main application with all its dependencies
type Application struct {
	config    *config.Config
	db        *gorm.DB
	cache     *cache.Client
	server    *api.Server
	scheduler *scheduler.Scheduler
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, err
	}

	if err := app.initializeCache(); err != nil {
		return nil, err
	}

	app.initializeServices()

	return app, nil
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

func (app *Application) initializeDatabase() error {
	slog.Info("Initializing database...")

	db, err := database.InitDB(app.config.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return fmt.Errorf("initialize database connection: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		return fmt.Errorf("run database migrations: %w", err)
	}

	app.db = db
	slog.Info("Database initialized successfully")
	return nil
}

// initializeCache connects the cache store. A connection failure is not
// fatal: every cache-backed path except session writes degrades to the
// database, and the client reconnects on demand.
func (app *Application) initializeCache() error {
	slog.Info("Connecting cache store...")

	client := cache.NewClient(&app.config.Redis, cache.DefaultFailurePolicy())
	if err := client.Connect(context.Background()); err != nil {
		slog.Warn("Cache store unreachable, continuing degraded", "error", err)
	}

	app.cache = client
	return nil
}

func (app *Application) initializeServices() {
	slog.Info("Initializing services...")

	aiClient := aiservice.NewClient(&app.config.AIService)
	invalidator := cache.NewInvalidator(app.cache, cache.DefaultInvalidationBudget)

	userRepo := repository.NewUserRepository(app.db)
	prefsRepo := repository.NewPreferencesRepository(app.db)
	ghostRepo := repository.NewGhostRepository(app.db)
	storyRepo := repository.NewStoryRepository(app.db)
	bookmarkRepo := repository.NewBookmarkRepository(app.db)
	progressRepo := repository.NewProgressRepository(app.db)
	interactionRepo := repository.NewInteractionRepository(app.db)
	recommendationRepo := repository.NewRecommendationRepository(app.db)
	conversationRepo := repository.NewConversationRepository(app.db)

	cacheCfg := app.config.Cache

	app.server = api.NewServer(api.ServerOptions{
		DB:          app.db,
		Config:      app.config,
		Cache:       app.cache,
		AI:          aiClient,
		Auth:        service.NewAuthService(app.db, userRepo, app.cache, app.config.Auth),
		Users:       service.NewUserService(app.db, userRepo, app.cache, invalidator, cacheCfg),
		Preferences: service.NewPreferencesService(app.db, prefsRepo, app.cache, invalidator, cacheCfg),
		Ghosts:      service.NewGhostService(app.db, ghostRepo, prefsRepo, app.cache, invalidator, cacheCfg),
		Stories:     service.NewStoryService(app.db, storyRepo, app.cache, invalidator, cacheCfg),
		Bookmarks:   service.NewBookmarkService(app.db, bookmarkRepo, app.cache, invalidator, cacheCfg),
		Progress:    service.NewProgressService(app.db, progressRepo, app.cache, invalidator, cacheCfg),
		Recommendations: service.NewRecommendationService(
			app.db, recommendationRepo, interactionRepo, prefsRepo,
			aiClient, app.cache, invalidator, cacheCfg),
		Twin: service.NewTwinService(
			app.db, conversationRepo, interactionRepo, prefsRepo,
			aiClient, invalidator),
	})
	app.scheduler = scheduler.NewScheduler(app.config, aiClient, recommendationRepo)

	slog.Info("Services initialized successfully")
}

// Start starts the application
func (app *Application) Start() error {
	slog.Info("Starting application...")

	slog.Info("Starting scheduler...")
	app.scheduler.Start()

	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			slog.Warn("Error closing cache client", "error", err)
		}
	}

	if app.db != nil {
		if err := database.CloseDB(app.db); err != nil {
			slog.Warn("Error closing database", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}
