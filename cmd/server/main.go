package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/api"
	"github.com/sirosfoundation/go-xsf/internal/auth"
	"github.com/sirosfoundation/go-xsf/internal/backend"
	"github.com/sirosfoundation/go-xsf/internal/command"
	"github.com/sirosfoundation/go-xsf/internal/dispatch"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/samples"
	"github.com/sirosfoundation/go-xsf/internal/server"
	"github.com/sirosfoundation/go-xsf/internal/service"
	"github.com/sirosfoundation/go-xsf/internal/session"
	"github.com/sirosfoundation/go-xsf/pkg/config"
	"github.com/sirosfoundation/go-xsf/pkg/logging"
	"github.com/sirosfoundation/go-xsf/pkg/middleware"
	"github.com/sirosfoundation/go-xsf/pkg/tracing"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting XSF Server",
		zap.String("version", version),
		zap.String("build_time", buildTime),
	)

	shutdownTracing, err := tracing.Setup(context.Background(), cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	// Initialize storage backend
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.New(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	logger.Info("Storage backend initialized", zap.String("type", cfg.Storage.Type))

	// Ping storage to verify connection
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	err = store.Ping(ctx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to ping storage", zap.Error(err))
	}

	// Credentials and tokens
	throttle := middleware.NewAuthRateLimiter(cfg.Auth.RateLimit, logger)
	var userThrottle service.Throttle
	if cfg.Auth.RateLimit.Enabled {
		userThrottle = throttle
	}
	users := service.NewUserService(store.Users(), userThrottle, logger)

	blacklist := service.NewTokenBlacklist(5*time.Minute, logger)
	blacklist.Start()
	defer blacklist.Stop()
	tokens := auth.NewTokens(cfg.JWT, blacklist)

	// Commands and routes
	registry := command.NewRegistry(logger)
	if err := samples.Register(registry, samples.Deps{
		People:      store.People(),
		Credentials: users,
		Tokens:      tokens,
		Logger:      logger,
	}); err != nil {
		logger.Fatal("Failed to register commands", zap.Error(err))
	}

	types := route.NewTypes()
	if err := samples.RegisterTypes(types); err != nil {
		logger.Fatal("Failed to register input types", zap.Error(err))
	}

	registrar := route.NewRegistrar(registry, types, logger)
	if cfg.RoutesFile != "" {
		if err := registrar.LoadFile(cfg.RoutesFile); err != nil {
			logger.Fatal("Failed to load routes file", zap.Error(err), zap.String("path", cfg.RoutesFile))
		}
	}

	table := route.NewTable(logger)
	if err := registrar.Build(table); err != nil {
		logger.Fatal("Failed to build route table", zap.Error(err))
	}

	authorizer := auth.New(cfg.Auth, logger)
	if d, ok := authorizer.(*auth.Default); ok {
		if err := d.Rules().Validate(table.Routes()); err != nil {
			logger.Fatal("Invalid authorization rule", zap.Error(err))
		}
	}

	// Sessions
	prefix := cfg.Server.Prefix()
	sessions := session.NewManager(store.Sessions(), cfg.Session, prefix, logger)
	cleanup := session.NewCleanupWorker(store.Sessions(), cfg.Session.CleanupSchedule(), logger)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start session cleanup", zap.Error(err))
	}
	defer cleanup.Stop()

	pipeline := dispatch.New(table, registry,
		dispatch.WithPrefix(prefix),
		dispatch.WithAuthorizer(authorizer),
		dispatch.WithMarshaller(dispatch.NewJSONMarshaller(cfg.Marshaller, logger)),
		dispatch.WithDecorators(decorators(cfg, store, users, tokens, logger)...),
		dispatch.WithSessions(sessions),
		dispatch.WithApplication(dispatch.NewApplication(map[string]any{
			"version":  version,
			"base_url": cfg.Server.BaseURL,
		})),
		dispatch.WithLogger(logger),
	)

	// HTTP servers
	mgr := server.NewManager(&server.ServerConfig{
		HTTPAddress:    cfg.Server.Host,
		HTTPPort:       cfg.Server.Port,
		AdminPort:      cfg.Server.AdminPort,
		AdminToken:     cfg.Server.AdminToken,
		AdminRateLimit: cfg.Auth.RateLimit,
		CORS:           cfg.CORS,
		LoggingLevel:   cfg.Logging.Level,
	}, logger)
	mgr.AddProvider(server.NewStatusProvider(api.NewHandlers(table, store, prefix, version, logger)))
	mgr.AddProvider(server.NewDispatchProvider(pipeline))
	mgr.AddProvider(server.NewAdminProvider(api.NewAdminHandlers(table, users, sessions, logger)))

	if err := mgr.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start servers", zap.Error(err))
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mgr.Shutdown(ctx); err != nil {
		logger.Error("Servers forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// decorators returns the principal decorators enabled by the configuration,
// in the order they run. The session decorator always runs first.
func decorators(cfg *config.Config, store backend.Backend, users *service.UserService, tokens *auth.Tokens, logger *zap.Logger) []dispatch.Decorator {
	out := []dispatch.Decorator{auth.NewSessionDecorator(store.Users(), logger)}

	if cfg.Auth.Authorizer == config.AuthorizerRemoteUser {
		out = append(out, auth.NewRemoteUserDecorator(cfg.Auth.RemoteUserHeader, store.Users(), logger))
	}
	if cfg.Auth.BearerToken && tokens.Enabled() {
		out = append(out, auth.NewBearerDecorator(tokens, logger))
	}
	if cfg.Auth.BasicAuth {
		out = append(out, auth.NewBasicDecorator(users, logger))
	}
	return out
}
