package services

import (
	"context"
	"errors"
	"strings"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/auth"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/repositories"

	"github.com/jackc/pgx/v5"
)

type UserService struct {
	Repo       *repositories.UserRepository
	JWTManager *auth.JWTManager
}

func NewUserService(repo *repositories.UserRepository, jwtManager *auth.JWTManager) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
	}
}

// CreateUser provisions an engineer or admin account. Admin only.
func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, apperr.Validation("name, email, and password are required")
	}
	if req.Role != "" && req.Role != models.RoleAdmin && req.Role != models.RoleEngineer {
		return nil, apperr.Validation("role must be %q or %q", models.RoleAdmin, models.RoleEngineer)
	}

	if existing, _ := s.Repo.GetByEmail(ctx, req.Email); existing != nil && existing.ID != 0 {
		return nil, apperr.Validation("user with this email already exists")
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hashedPassword,
		Role:         req.Role,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Resource: "user"}
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns all accounts
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.Repo.List(ctx)
}

// ListEngineers returns active engineers for assignment dropdowns
func (s *UserService) ListEngineers(ctx context.Context) ([]*models.User, error) {
	return s.Repo.ListEngineers(ctx)
}

// UpdateUser updates an account; password changes only when provided
func (s *UserService) UpdateUser(ctx context.Context, id int, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = strings.TrimSpace(req.Name)
	user.Email = strings.TrimSpace(req.Email)
	user.Phone = strings.TrimSpace(req.Phone)
	if req.Role != "" {
		user.Role = req.Role
	}
	user.PasswordHash = ""
	if req.Password != "" {
		hashed, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}

	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		if err := s.Repo.ToggleActiveStatus(ctx, id, *req.IsActive); err != nil {
			return nil, err
		}
		user.IsActive = *req.IsActive
	}
	return user, nil
}

// DeleteUser removes an account
func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	return s.Repo.Delete(ctx, id)
}

// Login authenticates by email and password. Accounts with 2FA enabled
// get a temp token and must complete the TOTP step before receiving a
// session token.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.Repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, &apperr.AuthorizationError{Msg: "invalid email or password"}
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, &apperr.AuthorizationError{Msg: "invalid email or password"}
	}
	if !user.IsActive {
		return nil, &apperr.AuthorizationError{Msg: "account is disabled"}
	}

	if user.TOTPEnabled {
		tempToken, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, err
		}
		return &models.AuthResponse{
			TempToken:   tempToken,
			RequiresTwo: true,
		}, nil
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token: token,
		User:  user,
	}, nil
}
