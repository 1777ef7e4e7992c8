package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/shop-api/internal/apperr"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/utils"
)

// AuthResult is returned by signup and signin.
type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// IdentityService registers and authenticates users.
type IdentityService struct {
	users      repository.UserRepository
	secret     string
	ttl        time.Duration
	bcryptCost int
	log        *zap.Logger
}

// NewIdentityService panics on a nil repository or an empty secret.
func NewIdentityService(users repository.UserRepository, secret string, ttl time.Duration, bcryptCost int, log *zap.Logger) *IdentityService {
	if users == nil {
		panic("nil UserRepository")
	}
	if secret == "" {
		panic("empty JWT secret")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityService{users: users, secret: secret, ttl: ttl, bcryptCost: bcryptCost, log: log}
}

// Signup creates an account. An empty requested role means customer; only
// an admin caller may create another admin.
func (s *IdentityService) Signup(ctx context.Context, caller model.Identity, username, password, requestedRole string) (*AuthResult, error) {
	if blank(username) || password == "" {
		return nil, apperr.New(apperr.KindValidation, "username and password are required")
	}

	role := model.RoleCustomer
	if rr := strings.TrimSpace(requestedRole); rr != "" {
		parsed, ok := model.ParseRole(rr)
		if !ok || parsed == model.RoleGuest {
			return nil, apperr.New(apperr.KindInvalidRole, "role must be customer or admin")
		}
		role = parsed
	}
	if role == model.RoleAdmin && !caller.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "only an admin can create an admin")
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperr.New(apperr.KindDuplicateUsername, "username already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.New(apperr.KindDuplicateUsername, "username already exists")
		}
		return nil, apperr.Internal(err)
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.String("role", string(u.Role)))
	return s.issue(u)
}

// Signin checks the credentials. Unknown usernames and wrong passwords
// fail identically.
func (s *IdentityService) Signin(ctx context.Context, username, password string) (*AuthResult, error) {
	invalid := apperr.New(apperr.KindInvalidCredentials, "invalid username or password")

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			return nil, invalid
		}
		return nil, apperr.Internal(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, invalid
	}
	return s.issue(u)
}

// EnsureAdmin creates the bootstrap admin account unless a user with that
// name already exists.
func (s *IdentityService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			s.log.Warn("bootstrap admin name is held by a non-admin account", zap.String("username", username))
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if password == "" {
		return errors.New("bootstrap admin password is empty")
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	u := &model.User{Username: username, PasswordHash: hash, Role: model.RoleAdmin}
	if err := s.users.Create(ctx, u); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	s.log.Info("bootstrap admin created", zap.String("username", username))
	return nil
}

func (s *IdentityService) issue(u *model.User) (*AuthResult, error) {
	tok, err := utils.NewAccessToken(s.secret, u.Identity(), s.ttl)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{User: u, Token: tok.Token, ExpiresAt: tok.Exp}, nil
}
