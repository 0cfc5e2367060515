package server

import (
	"github.com/gin-gonic/gin"

	"github.com/sirosfoundation/go-xsf/internal/api"
	"github.com/sirosfoundation/go-xsf/internal/dispatch"
)

// StatusProvider serves /health and /status on the public router
type StatusProvider struct {
	handlers *api.Handlers
}

// NewStatusProvider creates a new status route provider
func NewStatusProvider(handlers *api.Handlers) *StatusProvider {
	return &StatusProvider{handlers: handlers}
}

func (p *StatusProvider) Name() string { return "status" }

func (p *StatusProvider) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", p.handlers.Health)
	router.GET("/status", p.handlers.Status)
}

// DispatchProvider mounts the dispatch pipeline under its prefix. Every
// method is forwarded so the route table decides what exists. Without a
// prefix the pipeline serves every path no other provider claims.
type DispatchProvider struct {
	pipeline *dispatch.Pipeline
}

// NewDispatchProvider creates a new dispatch route provider
func NewDispatchProvider(pipeline *dispatch.Pipeline) *DispatchProvider {
	return &DispatchProvider{pipeline: pipeline}
}

func (p *DispatchProvider) Name() string { return "dispatch" }

func (p *DispatchProvider) RegisterRoutes(router *gin.Engine) {
	if p.pipeline.Prefix() == "" {
		router.NoRoute(p.pipeline.Handle)
		return
	}
	router.Any(p.pipeline.Prefix()+"/*path", p.pipeline.Handle)
}

// AdminProvider contributes the internal admin API. It adds nothing to the
// public router.
type AdminProvider struct {
	handlers *api.AdminHandlers
}

// NewAdminProvider creates a new admin route provider
func NewAdminProvider(handlers *api.AdminHandlers) *AdminProvider {
	return &AdminProvider{handlers: handlers}
}

func (p *AdminProvider) Name() string { return "admin" }

func (p *AdminProvider) RegisterRoutes(*gin.Engine) {}

func (p *AdminProvider) RegisterAdminRoutes(public, protected *gin.RouterGroup) {
	public.GET("/status", p.handlers.AdminStatus)
	p.handlers.RegisterRoutes(protected)
}
