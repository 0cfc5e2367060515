package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/storage"
)

// ServiceName is reported by the status endpoints.
const ServiceName = "xsf"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the public status endpoints
type Handlers struct {
	table   *route.Table
	store   Pinger
	prefix  string
	version string
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance. store may be nil.
func NewHandlers(table *route.Table, store Pinger, prefix, version string, logger *zap.Logger) *Handlers {
	return &Handlers{
		table:   table,
		store:   store,
		prefix:  prefix,
		version: version,
		logger:  logger.Named("handlers"),
	}
}

// Status handles the /status endpoint
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

// Health handles the /health endpoint. It fails with 503 when the
// storage backend cannot be reached.
func (h *Handlers) Health(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Storage ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  storage.ErrDatabase.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, h.status())
}

func (h *Handlers) status() StatusResponse {
	routes := 0
	if h.table != nil {
		routes = h.table.Len()
	}
	return StatusResponse{
		Status:       "ok",
		Service:      ServiceName,
		Prefix:       h.prefix,
		Routes:       routes,
		APIVersion:   CurrentAPIVersion,
		Capabilities: APICapabilities[CurrentAPIVersion],
		Version:      h.version,
	}
}
