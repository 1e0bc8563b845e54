package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence collaborator for accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthenticated)

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RequestInfo is client metadata recorded with sign-ins.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// AuthService signs users up and in and issues JWTs.
type AuthService struct {
	users UserStore
	audit *AuditService
	cost  int
}

func NewAuthService(users UserStore, audit *AuditService) *AuthService {
	return &AuthService{users: users, audit: audit, cost: bcrypt.DefaultCost}
}

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*domain.User, string, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(&in); err != nil {
		return nil, "", err
	}

	u, err := s.createUser(ctx, in.Email, in.Username, in.Password, nil)
	if err != nil {
		return nil, "", err
	}
	if s.audit != nil {
		s.audit.Log(ctx, u.ID, domain.AuditActionSignUp, domain.AuditCategoryAuth, nil)
	}

	token, err := GenerateJWT(u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("token generation: %w", err)
	}
	return u, token, nil
}

func (s *AuthService) SignIn(ctx context.Context, in SignInInput, req RequestInfo) (*domain.User, string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(&in); err != nil {
		return nil, "", err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if s.audit != nil {
		s.audit.LogSignIn(ctx, u.ID, req.IP, req.UserAgent)
	}

	token, err := GenerateJWT(u.ID)
	if err != nil {
		return nil, "", fmt.Errorf("token generation: %w", err)
	}
	return u, token, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	if userID <= 0 {
		return nil, domain.ErrUnauthenticated
	}
	return s.users.GetByID(ctx, userID)
}

// EnsureDefaultAdmin creates the admin account when no user exists yet.
// Otherwise it returns the account registered under email, if any.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, email, password string) (*domain.User, bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		u, err := s.users.GetByEmail(ctx, email)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return u, false, err
	}

	u, err := s.createUser(ctx, strings.ToLower(email), "Administrador", password, []string{domain.RoleAdmin})
	if err != nil {
		return nil, false, err
	}
	logger.Info("default admin created", "user_id", u.ID, "email", u.Email)
	return u, true, nil
}

func (s *AuthService) createUser(ctx context.Context, email, username, password string, roles []string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Roles:        roles,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
