// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/studyvault/studyvault/internal/admin"
	"github.com/studyvault/studyvault/internal/auth"
	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/catalog"
	"github.com/studyvault/studyvault/internal/config"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
	"github.com/studyvault/studyvault/internal/health"
	"github.com/studyvault/studyvault/internal/middleware"
	"github.com/studyvault/studyvault/internal/reader"
	"github.com/studyvault/studyvault/internal/server"
	"github.com/studyvault/studyvault/internal/session"
	"github.com/studyvault/studyvault/internal/sidebar"
	"github.com/studyvault/studyvault/internal/user"
	"github.com/studyvault/studyvault/internal/web"
)

const (
	drainDelay    = 5 * time.Second
	evictInterval = time.Minute
	apiPrefix     = "/v1"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and web client",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), optionalConfig())
	},
}

//nolint:funlen // bootstrap code is inherently verbose
func run(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	client := backend.New(cfg.Backend)
	if !client.Connected() {
		logger.Warn("backend not configured, running disconnected",
			"hint", core.NotConnectedMessage,
		)
	}

	var db *core.Database
	if cfg.Database.URL != "" {
		db, err = core.NewDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		client = backend.WithRowStores(client,
			user.NewRepository(db.DB),
			catalog.NewRepository(db.DB),
		)
		logger.Info("database connected",
			"max_open_conns", cfg.Database.MaxOpenConns,
			"max_idle_conns", cfg.Database.MaxIdleConns,
		)
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	files, err := filestore.Open(cfg.FileStore.Path)
	if err != nil {
		return err
	}
	logger.Info("file store opened",
		"path", cfg.FileStore.Path,
		"schema_version", filestore.SchemaVersion(),
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	resolver := user.NewResolver(client.Profiles(), cfg.Auth.AdminEmail, cfg.Auth.ProfileTimeout, logger)
	tokens := auth.NewTokenRepository(redis.Client)

	workspaces := session.NewManager(session.Config{
		Client:     client,
		Resolver:   resolver,
		Tokens:     tokens,
		Files:      files,
		Auth:       cfg.Auth,
		Catalog:    cfg.Catalog,
		SessionTTL: cfg.JWT.SessionExpire,
		Logger:     logger,
	})
	go workspaces.Run(ctx, evictInterval, cfg.Auth.WorkspaceIdle)

	uploader := catalog.NewUploader(catalog.UploaderConfig{
		Storage:     client.Storage(),
		Files:       files,
		MaxFileSize: cfg.Upload.MaxFileSize,
		Logger:      logger,
	})

	authHandler := auth.NewHandler(workspaces, jwtManager)
	userHandler := user.NewHandler(resolver, workspaces.UserScope)
	catalogHandler := catalog.NewHandler(workspaces.CatalogScope, uploader)
	readerHandler := reader.NewHandler(workspaces.ReaderScope, files)
	sidebarHandler := sidebar.NewHandler(workspaces.SidebarScope)
	webHandler := web.NewHandler(cfg.Web.StaticDir, apiPrefix)

	deps := []health.Dependency{
		{Name: "redis", Checker: redis},
		{Name: "filestore", Checker: files},
		{Name: "backend", Checker: health.CheckerFunc(client.Ping), Optional: true},
	}
	if db != nil {
		deps = append(deps, health.Dependency{Name: "database", Checker: db})
	}
	healthHandler := health.NewHandler(deps...)

	adminCfg := admin.HandlerConfig{
		Client:     client,
		Files:      files,
		Scope:      workspaces.CatalogScope,
		Sessions:   tokens,
		Workspaces: workspaces.Len,
		RedisStats: redis.PoolStats,
		RedisPing:  redis.Ping,
	}
	if db != nil {
		adminCfg.DBStats = db.Stats
		adminCfg.DBPing = db.Ping
	}
	adminHandler := admin.NewHandler(adminCfg)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	webHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	optionalAuth := middleware.OptionalAuth(jwtManager)
	adminOnly := middleware.RequireAdmin
	authLimit := middleware.CredentialLimiter(redis.Client, cfg.RateLimit.Credentials).Handler
	uploadLimit := middleware.UploadLimiter(redis.Client, cfg.RateLimit.Uploads).Handler

	router.Route(apiPrefix, func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, optionalAuth, authLimit)
		userHandler.RegisterRoutes(r, authenticator)
		catalogHandler.RegisterRoutes(r, authenticator, adminOnly, uploadLimit)
		readerHandler.RegisterRoutes(r, authenticator)
		sidebarHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	workspaces.Shutdown()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := files.Close(); err != nil {
		logger.Error("file store close error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}
