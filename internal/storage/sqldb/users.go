package sqldb

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/aanand-mishra/biblioteca/internal/password"
	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/types"
)

const insertUser = `INSERT INTO users (username, surname, password_hash, email)
	VALUES (?, ?, ?, ?) RETURNING id`

func (s *Store) usersQuery() *goqu.SelectDataset {
	return s.qb.From("users").
		Select("id", "username", "surname", "password_hash", "email").
		Order(goqu.C("username").Asc())
}

// AddUser stores a bcrypt hash of password, never the password itself.
// An empty email is stored as NULL so that several users may omit it.
func (s *Store) AddUser(ctx context.Context, username, surname, plain string, email *string) (int64, error) {
	hash, err := password.Hash(plain)
	if err != nil {
		return 0, fmt.Errorf("AddUser: %w", err)
	}

	if email != nil && *email == "" {
		email = nil
	}

	var id int64
	err = s.db.QueryRowxContext(ctx, s.db.Rebind(insertUser), username, surname, hash, email).Scan(&id)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return 0, storage.ErrUserExists
		}
		return 0, fmt.Errorf("AddUser: %w", err)
	}
	return id, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	var user types.User
	if err := s.selectOne(ctx, &user, s.usersQuery().Where(goqu.C("id").Eq(id))); err != nil {
		return types.User{}, notFound(err, storage.ErrUserNotFound)
	}
	return user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	var user types.User
	if err := s.selectOne(ctx, &user, s.usersQuery().Where(goqu.C("username").Eq(username))); err != nil {
		return types.User{}, notFound(err, storage.ErrUserNotFound)
	}
	return user, nil
}

// ListUsers omits password hashes.
func (s *Store) ListUsers(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0)
	ds := s.usersQuery().Select("id", "username", "surname", "email")
	if err := s.selectAll(ctx, &users, ds); err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	return users, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("CountUsers: %w", err)
	}
	return n, nil
}
