package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirosfoundation/go-xsf/internal/domain"
	"github.com/sirosfoundation/go-xsf/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrRateLimited        = errors.New("too many authentication attempts")
)

// Throttle limits repeated authentication attempts per login.
type Throttle interface {
	Allow(identifier string) bool
	RecordFailure(identifier string)
}

// UserService handles account registration and credential checks
type UserService struct {
	users    storage.UserStore
	throttle Throttle
	cost     int
	logger   *zap.Logger
}

// NewUserService creates a new UserService. throttle may be nil.
func NewUserService(users storage.UserStore, throttle Throttle, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:    users,
		throttle: throttle,
		cost:     bcrypt.DefaultCost,
		logger:   logger.Named("user-service"),
	}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) WithCost(cost int) *UserService {
	s.cost = cost
	return s
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Register registers a new user
func (s *UserService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", storage.ErrInvalidInput)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUserExists
	}
	if req.Email != "" {
		if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
			return nil, ErrUserExists
		}
	}

	hash, err := HashPassword(req.Password, s.cost)
	if err != nil {
		return nil, err
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &domain.User{
		ID:           domain.NewUserID(),
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Roles:        req.Roles,
		Orgs:         req.Orgs,
		Admin:        req.Admin,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate verifies a login and password. A login containing "@" is
// looked up as an e-mail address, anything else as a username.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	if login == "" {
		return nil, ErrInvalidCredentials
	}
	if s.throttle != nil && !s.throttle.Allow(login) {
		return nil, ErrRateLimited
	}

	user, err := s.lookup(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.fail(login)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.PasswordHash == "" {
		s.fail(login)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.fail(login)
		return nil, ErrInvalidCredentials
	}

	s.logger.Debug("User authenticated", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *UserService) lookup(ctx context.Context, login string) (*domain.User, error) {
	if strings.Contains(login, "@") {
		return s.users.GetByEmail(ctx, login)
	}
	return s.users.GetByUsername(ctx, login)
}

func (s *UserService) fail(login string) {
	if s.throttle != nil {
		s.throttle.RecordFailure(login)
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns every user ordered by username
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.GetAll(ctx)
}

// DeleteUser deletes a user
func (s *UserService) DeleteUser(ctx context.Context, id domain.UserID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("User deleted", zap.String("user_id", id.String()))
	return nil
}
