// Package repository implements server persistence on PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Quaternijkon/betterfly/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// PostgresAuthRepository stores users and their tokens.
type PostgresAuthRepository struct {
	DB *sql.DB
}

func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// CreateUser inserts u. An empty login is stored as NULL so that any number of
// anonymous users can coexist with the unique constraint.
func (r *PostgresAuthRepository) CreateUser(ctx context.Context, u models.User) error {
	var login sql.NullString
	if u.Login != "" {
		login = sql.NullString{String: u.Login, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, provider, login, token, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Provider, login, u.Token, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepository) getUser(ctx context.Context, where string, arg string) (models.User, error) {
	var (
		u     models.User
		login sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, provider, login, token, created_at FROM users WHERE `+where+` = $1`, arg,
	).Scan(&u.ID, &u.Provider, &login, &u.Token, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by %s: %w", where, err)
	}
	u.Login = login.String
	return u, nil
}

// GetUserByLogin looks up a named account.
func (r *PostgresAuthRepository) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	return r.getUser(ctx, "login", login)
}

// GetUserByToken resolves a bearer token to its user.
func (r *PostgresAuthRepository) GetUserByToken(ctx context.Context, token string) (models.User, error) {
	return r.getUser(ctx, "token", token)
}
