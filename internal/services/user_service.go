package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/fahndung/backend/internal/models"
	"github.com/fahndung/backend/internal/supabase"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// UserAdmin is the interface that wraps the identity backend's administrative operations
type UserAdmin interface {
	// Method ListProfiles retrieves all staff profiles, newest first.
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	// Method UpdateProfileRole sets the role of the profile with "userID" and returns the stored row.
	//
	// A missing profile row is reported as a policy-denied error.
	UpdateProfileRole(ctx context.Context, userID string, role models.Role) (*models.Profile, error)
	// Method DeleteUser removes the identity with "userID" and its profile row.
	DeleteUser(ctx context.Context, userID string) error
	// Method CreateUser creates a confirmed identity with a password.
	CreateUser(ctx context.Context, email, password string) (*models.User, error)
	// Method UpsertProfile creates the profile row of "user" or merges into the existing one.
	UpsertProfile(ctx context.Context, user models.User, name string, role models.Role) error
}

type userService struct {
	admin  UserAdmin
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(admin UserAdmin, logger *zap.Logger) *userService {
	return &userService{
		admin:  admin,
		logger: logger,
	}
}

// ListUsers returns every staff profile
func (s *userService) ListUsers(ctx context.Context, actor Actor) ([]models.Profile, error) {
	if !actor.Permissions().CanManageUsers {
		return nil, ErrForbidden
	}

	profiles, err := s.admin.ListProfiles(ctx)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	return profiles, nil
}

// UpdateRole changes the role of another user.
// Only a super admin may grant the super admin role; nobody may change their own role.
func (s *userService) UpdateRole(ctx context.Context, actor Actor, userID string, role models.Role) (*models.Profile, error) {
	if !actor.Permissions().CanManageUsers {
		return nil, ErrForbidden
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role", ErrValidation)
	}
	if userID == actor.UserID {
		return nil, fmt.Errorf("%w: own role cannot be changed", ErrForbidden)
	}
	if role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: only super admins can grant %s", ErrForbidden, role)
	}

	profile, err := s.admin.UpdateProfileRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, supabase.ErrPolicyDenied) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.logger.Info("user role changed",
		zap.String("user_id", userID),
		zap.String("role", role.String()),
		zap.String("changed_by", actor.UserID),
	)
	return profile, nil
}

// DeleteUser removes another user's identity and profile
func (s *userService) DeleteUser(ctx context.Context, actor Actor, userID string) error {
	if !actor.Permissions().CanManageUsers {
		return ErrForbidden
	}
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if userID == actor.UserID {
		return fmt.Errorf("%w: own account cannot be deleted", ErrForbidden)
	}

	if err := s.admin.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("user deleted", zap.String("user_id", userID), zap.String("deleted_by", actor.UserID))
	return nil
}

// CreateStaffUser creates an identity with a profile of the given role.
// It is meant for provisioning and runs without an actor.
func (s *userService) CreateStaffUser(ctx context.Context, email, password, name string, role models.Role) (*models.Profile, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role", ErrValidation)
	}

	user, err := s.admin.CreateUser(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if user.Email == "" {
		user.Email = email
	}

	if err := s.admin.UpsertProfile(ctx, *user, name, role); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("staff user created", zap.String("user_id", user.ID), zap.String("role", role.String()))
	return &models.Profile{ID: user.ID, Email: user.Email, Name: name, Role: role}, nil
}

// SetRole sets the role of a user without an acting user, creating the profile row if it is missing
func (s *userService) SetRole(ctx context.Context, userID string, role models.Role) (*models.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role", ErrValidation)
	}

	profile, err := s.admin.UpdateProfileRole(ctx, userID, role)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, supabase.ErrPolicyDenied) {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	// No profile row yet
	if err := s.admin.UpsertProfile(ctx, models.User{ID: userID}, "", role); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return &models.Profile{ID: userID, Role: role}, nil
}
