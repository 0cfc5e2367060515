package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/pkg/config"
	"github.com/sirosfoundation/go-xsf/pkg/middleware"
)

// RouteProvider contributes routes to the shared public router.
type RouteProvider interface {
	// RegisterRoutes adds the provider's routes to the router.
	RegisterRoutes(router *gin.Engine)

	// Name returns the provider name for logging
	Name() string
}

// AdminRouteProvider contributes routes to the admin server. Both groups
// are rooted at /admin; protected requires the admin token.
type AdminRouteProvider interface {
	RegisterAdminRoutes(public, protected *gin.RouterGroup)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPAddress string
	HTTPPort    int

	// Admin server settings
	AdminPort  int
	AdminToken string
	// AdminRateLimit throttles failed admin token attempts per client IP
	AdminRateLimit config.RateLimitConfig

	CORS         config.CORSConfig
	LoggingLevel string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HTTPAddress: "0.0.0.0",
		HTTPPort:    8080,
	}
}

// Manager builds the public and admin routers from its providers and owns
// the lifecycle of their HTTP servers.
type Manager struct {
	cfg    *ServerConfig
	logger *zap.Logger

	providers []RouteProvider

	httpServer  *http.Server
	adminServer *http.Server

	httpRouter  *gin.Engine
	adminRouter *gin.Engine
	adminToken  string
}

// NewManager creates a new server manager
func NewManager(cfg *ServerConfig, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		logger:    logger.Named("server"),
		providers: make([]RouteProvider, 0),
	}
}

// AddProvider adds a RouteProvider to the manager.
// Call this before Build or Start.
func (m *Manager) AddProvider(p RouteProvider) {
	m.providers = append(m.providers, p)
	m.logger.Debug("Added route provider", zap.String("name", p.Name()))
}

// Build creates the routers without starting any listener. Start calls it
// when it has not been called yet.
func (m *Manager) Build() error {
	if m.cfg.LoggingLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	m.httpRouter = m.buildRouter()
	for _, p := range m.providers {
		m.logger.Info("Registering HTTP routes", zap.String("provider", p.Name()))
		p.RegisterRoutes(m.httpRouter)
	}

	if m.cfg.AdminPort > 0 {
		router, err := m.buildAdminRouter()
		if err != nil {
			return err
		}
		m.adminRouter = router
	}
	return nil
}

// Start builds routers and starts the http servers
func (m *Manager) Start(ctx context.Context) error {
	if m.httpRouter == nil {
		if err := m.Build(); err != nil {
			return err
		}
	}

	httpAddr := fmt.Sprintf("%s:%d", m.cfg.HTTPAddress, m.cfg.HTTPPort)
	m.httpServer = newHTTPServer(httpAddr, m.httpRouter)
	m.serve("HTTP server", m.httpServer)

	if m.adminRouter != nil {
		adminAddr := fmt.Sprintf("%s:%d", m.cfg.HTTPAddress, m.cfg.AdminPort)
		m.adminServer = newHTTPServer(adminAddr, m.adminRouter)
		m.serve("Admin server", m.adminServer)
	}

	return nil
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (m *Manager) serve(name string, srv *http.Server) {
	go func() {
		m.logger.Info(name+" listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error(name+" error", zap.Error(err))
		}
	}()
}

// Shutdown gracefully shuts down all servers
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error

	if m.httpServer != nil {
		if err := m.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if m.adminServer != nil {
		if err := m.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// buildRouter creates a new router with common middleware
func (m *Manager) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(m.logger))
	router.Use(cors.New(corsConfig(m.cfg.CORS)))
	return router
}

// corsConfig translates the CORS settings. No origins, or a "*" entry,
// allows every origin.
func corsConfig(c config.CORSConfig) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     c.AllowedOrigins,
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     c.AllowedHeaders,
		ExposeHeaders:    c.ExposedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           time.Duration(c.MaxAge) * time.Second,
	}
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	return cfg
}

// buildAdminRouter creates the admin router from the admin route providers.
func (m *Manager) buildAdminRouter() (*gin.Engine, error) {
	token := m.cfg.AdminToken
	if token == "" {
		var err error
		token, err = middleware.GenerateAdminToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate admin token: %w", err)
		}
		m.logger.Info("Generated admin API token (set XSF_SERVER_ADMIN_TOKEN to use a fixed token)",
			zap.String("token", token))
	}
	m.adminToken = token

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(m.logger))

	public := router.Group("/admin")

	limiter := middleware.NewAuthRateLimiter(m.cfg.AdminRateLimit, m.logger)
	admin := router.Group("/admin")
	admin.Use(middleware.AuthRateLimitMiddlewareWithIdentifier(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	}))
	admin.Use(middleware.AdminAuthMiddleware(token, m.logger))

	for _, p := range m.providers {
		if ap, ok := p.(AdminRouteProvider); ok {
			m.logger.Info("Registering admin routes", zap.String("provider", p.Name()))
			ap.RegisterAdminRoutes(public, admin)
		}
	}
	return router, nil
}

// HTTPRouter returns the public router. It is nil until Build or Start.
func (m *Manager) HTTPRouter() *gin.Engine {
	return m.httpRouter
}

// AdminRouter returns the admin router, or nil when the admin server is disabled.
func (m *Manager) AdminRouter() *gin.Engine {
	return m.adminRouter
}

// AdminToken returns the token the admin router accepts.
func (m *Manager) AdminToken() string {
	return m.adminToken
}
