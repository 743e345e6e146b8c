package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/cache"
	"musiccatalog/internal/database"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	UserIDHeader = "X-User-Id"
	RoleHeader   = "X-Role"

	maxDisplayNameLength = 120
)

// Service resolves header identities against the users table and manages
// user records. It does not issue or verify credentials.
type Service struct {
	db     *database.Database
	users  *cache.UserCache
	logger *logrus.Logger
}

// NewService creates an identity service. users may be nil to disable caching.
func NewService(db *database.Database, users *cache.UserCache, logger *logrus.Logger) *Service {
	return &Service{db: db, users: users, logger: logger}
}

// Resolve turns the raw identity headers into a Principal. Both headers
// are required and the role must match the stored one.
func (s *Service) Resolve(ctx context.Context, userIDHeader, roleHeader string) (Principal, error) {
	userIDHeader = strings.TrimSpace(userIDHeader)
	roleHeader = strings.TrimSpace(roleHeader)
	if userIDHeader == "" || roleHeader == "" {
		return Principal{}, &apperrors.AuthenticationError{
			Message: fmt.Sprintf("Provide %s and %s headers.", UserIDHeader, RoleHeader),
		}
	}

	userID, err := strconv.ParseInt(userIDHeader, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, &apperrors.AuthenticationError{Message: "invalid " + UserIDHeader + " header"}
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}

	if string(user.Role) != roleHeader {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"role":    roleHeader,
		}).Warn("Role header does not match stored role")
		return Principal{}, apperrors.Forbidden("Role/header mismatch")
	}

	return Principal{UserID: user.ID, Role: user.Role}, nil
}

// GetUser returns a user, consulting the cache first
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if s.users != nil {
		if user, ok := s.users.GetUser(id); ok {
			return user, nil
		}
	}

	user, err := s.db.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if s.users != nil {
		s.users.SetUser(user)
	}
	return user, nil
}

// CreateUser validates and stores a new user
func (s *Service) CreateUser(ctx context.Context, email, displayName string, role models.Role) (*models.User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, apperrors.Invalid("email", "invalid_email", "value is not a valid email address")
	}
	n := len([]rune(displayName))
	if n == 0 || n > maxDisplayNameLength {
		return nil, apperrors.Invalid("display_name", "invalid_length",
			fmt.Sprintf("display_name must be between 1 and %d characters", maxDisplayNameLength))
	}
	if !role.Valid() {
		return nil, apperrors.Invalid("role", "invalid_choice", "role must be ADMIN or USER")
	}

	if _, err := s.db.GetUserByEmail(ctx, email); err == nil {
		return nil, apperrors.Invalid("email", "duplicate", "email already registered")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	user, err := s.db.CreateUser(ctx, models.User{Email: email, DisplayName: displayName, Role: role})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("Created user")
	return user, nil
}

// ListUsers returns every user
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.db.ListUsers(ctx)
}
