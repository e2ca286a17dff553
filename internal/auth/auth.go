// Package auth verifies credentials and registers new accounts.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/biblioteca/internal/password"
	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/types"
)

// ErrInvalidCredentials covers both an unknown username and a wrong
// password, so callers cannot tell which usernames exist.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Users is the part of storage.Storage auth needs.
type Users interface {
	AddUser(ctx context.Context, username, surname, password string, email *string) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (types.User, error)
}

// Service logs users in and registers them.
type Service struct {
	users    Users
	validate *validator.Validate
}

func NewService(users Users) *Service {
	return &Service{users: users, validate: NewValidator()}
}

// NewValidator returns a validator that also knows the "password" tag,
// which bounds a password by the bytes bcrypt will hash.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return password.Fits(fl.Field().String())
	})
	return v
}

// Login returns the user matching form, or ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, form types.LoginForm) (types.User, error) {
	if err := s.validate.Struct(form); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, form.Username)
	if errors.Is(err, storage.ErrUserNotFound) {
		password.Burn(form.Password)
		return types.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, fmt.Errorf("auth.Login: %w", err)
	}

	if err := password.Verify(user.PasswordHash, form.Password); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Register validates form and creates the account. Validation failures
// are returned as validator.ValidationErrors; a taken username or email
// as storage.ErrUserExists.
func (s *Service) Register(ctx context.Context, form types.RegisterForm) (int64, error) {
	if err := s.validate.Struct(form); err != nil {
		return 0, err
	}

	var email *string
	if form.Email != "" {
		email = &form.Email
	}

	id, err := s.users.AddUser(ctx, form.Username, form.Surname, form.Password, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return 0, storage.ErrUserExists
		}
		return 0, fmt.Errorf("auth.Register: %w", err)
	}

	return id, nil
}
