package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/route"
	"github.com/sirosfoundation/go-xsf/internal/service"
	"github.com/sirosfoundation/go-xsf/internal/storage"
)

// SessionDestroyer removes a server-side session.
type SessionDestroyer interface {
	Destroy(ctx context.Context, id string) error
}

// AdminHandlers contains handlers for internal admin API endpoints
type AdminHandlers struct {
	table    *route.Table
	users    *service.UserService
	sessions SessionDestroyer
	logger   *zap.Logger
}

// NewAdminHandlers creates a new AdminHandlers instance. sessions may be nil.
func NewAdminHandlers(table *route.Table, users *service.UserService, sessions SessionDestroyer, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{
		table:    table,
		users:    users,
		sessions: sessions,
		logger:   logger.Named("admin"),
	}
}

// RouteResponse represents a route table entry in API responses
type RouteResponse struct {
	Method        string `json:"method"`
	URI           string `json:"uri"`
	Command       string `json:"command"`
	Input         string `json:"input,omitempty"`
	InputKey      string `json:"input_key,omitempty"`
	Cached        bool   `json:"cached"`
	Authenticated bool   `json:"authenticated"`
	PerMethod     bool   `json:"per_method"`
	Rule          string `json:"rule,omitempty"`
}

func routeToResponse(r *route.Route) RouteResponse {
	resp := RouteResponse{
		Method:        r.Method,
		URI:           r.URI,
		Command:       r.CommandName,
		Input:         r.InputTypeName(),
		Cached:        r.Cached,
		Authenticated: r.Authenticated,
		PerMethod:     r.Handler != nil,
		Rule:          r.Rule,
	}
	if resp.Input != "" {
		resp.InputKey = r.BindingKey()
	}
	return resp
}

// UserRequest represents the request body for creating a user
type UserRequest = domain.RegisterRequest

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	Orgs        []string  `json:"orgs,omitempty"`
	Admin       bool      `json:"admin"`
	CreatedAt   time.Time `json:"created_at"`
}

func userToResponse(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID.String(),
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
		Orgs:        u.Orgs,
		Admin:       u.Admin,
		CreatedAt:   u.CreatedAt,
	}
}

// AdminStatus returns the admin server status
// GET /admin/status
func (h *AdminHandlers) AdminStatus(c *gin.Context) {
	routes := 0
	if h.table != nil {
		routes = h.table.Len()
	}
	c.JSON(http.StatusOK, StatusResponse{
		Status:       "ok",
		Service:      ServiceName + "-admin",
		Routes:       routes,
		APIVersion:   CurrentAPIVersion,
		Capabilities: APICapabilities[CurrentAPIVersion],
	})
}

// ListRoutes returns the route table ordered by URI then method. The
// optional command query parameter restricts the listing to one command.
// GET /admin/routes
func (h *AdminHandlers) ListRoutes(c *gin.Context) {
	filter := c.Query("command")

	response := make([]RouteResponse, 0, h.table.Len())
	for _, r := range h.table.Routes() {
		if filter != "" && r.CommandName != filter {
			continue
		}
		response = append(response, routeToResponse(r))
	}
	sort.SliceStable(response, func(i, j int) bool {
		if response[i].URI != response[j].URI {
			return response[i].URI < response[j].URI
		}
		return response[i].Method < response[j].Method
	})

	c.JSON(http.StatusOK, gin.H{"routes": response})
}

// ResolveRoute reports which route a method and URI would dispatch to
// GET /admin/routes/resolve?method=GET&uri=/hello/world/a/b
func (h *AdminHandlers) ResolveRoute(c *gin.Context) {
	uri := c.Query("uri")
	if uri == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uri is required"})
		return
	}
	method := strings.ToUpper(c.DefaultQuery("method", http.MethodGet))

	info, ok := h.table.Lookup(uri, method)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No route matches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"route":           routeToResponse(info.Route),
		"path_parameters": info.PathParameters,
	})
}

// ListUsers returns all users
// GET /admin/users
func (h *AdminHandlers) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	response := make([]*UserResponse, len(users))
	for i, u := range users {
		response[i] = userToResponse(u)
	}

	c.JSON(http.StatusOK, gin.H{"users": response})
}

// GetUser returns a specific user
// GET /admin/users/:id
func (h *AdminHandlers) GetUser(c *gin.Context) {
	userID := domain.UserID(c.Param("id"))

	user, err := h.users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to get user", zap.Error(err), zap.String("user_id", userID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

// CreateUser registers a new user
// POST /admin/users
func (h *AdminHandlers) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		case errors.Is(err, storage.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to create user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		}
		return
	}

	h.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	c.JSON(http.StatusCreated, userToResponse(user))
}

// DeleteUser deletes a user
// DELETE /admin/users/:id
func (h *AdminHandlers) DeleteUser(c *gin.Context) {
	userID := domain.UserID(c.Param("id"))

	if err := h.users.DeleteUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("Failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// DeleteSession ends a server-side session
// DELETE /admin/sessions/:id
func (h *AdminHandlers) DeleteSession(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Sessions are not enabled"})
		return
	}

	id := c.Param("id")
	if err := h.sessions.Destroy(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.logger.Error("Failed to delete session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		return
	}

	h.logger.Info("Session deleted", zap.String("session_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

// RegisterRoutes mounts the admin endpoints on group, which is expected
// to be protected by the admin token middleware.
func (h *AdminHandlers) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/routes", h.ListRoutes)
	group.GET("/routes/resolve", h.ResolveRoute)

	users := group.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	group.DELETE("/sessions/:id", h.DeleteSession)
}
