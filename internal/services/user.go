package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/recipeapp/apiserver/internal/store"
	"github.com/recipeapp/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	hashCost int
}

// UserServiceOption configures a UserService.
type UserServiceOption func(*UserService)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) UserServiceOption {
	return func(s *UserService) {
		s.hashCost = cost
	}
}

func NewUserService(repo UserRepository, opts ...UserServiceOption) *UserService {
	s := &UserService{repo: repo, hashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserOption sets an optional field on a user being created.
type UserOption func(*types.User)

func WithName(name string) UserOption {
	return func(u *types.User) {
		u.Name = name
	}
}

func WithStaff() UserOption {
	return func(u *types.User) {
		u.IsStaff = true
	}
}

func WithSuperuser() UserOption {
	return func(u *types.User) {
		u.IsSuperuser = true
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser creates an active user with a normalized email and a hashed
// password. An empty password leaves the account unable to log in.
func (s *UserService) CreateUser(ctx context.Context, email, password string, opts ...UserOption) (types.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return types.User{}, ErrEmailRequired
	}

	user := types.User{Email: email, IsActive: true}
	for _, opt := range opts {
		opt(&user)
	}

	if password != "" {
		hash, err := s.hashPassword(password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, err
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// CreateSuperuser creates a user with staff and superuser rights.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string, opts ...UserOption) (types.User, error) {
	opts = append(opts, WithStaff(), WithSuperuser())
	return s.CreateUser(ctx, email, password, opts...)
}

// Authenticate returns the active user matching the credentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("authenticate: %w", err)
	}
	if !user.IsActive || !user.CheckPassword(password) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	Name     *string
	Password *string
}

// UpdateProfile applies a partial profile update for user id.
func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Password != nil {
		hash, err := s.hashPassword(*update.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = hash
	}

	return s.repo.Update(ctx, user)
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
