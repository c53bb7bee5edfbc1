package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Quaternijkon/betterfly/internal/models"
)

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

var userColumns = []string{"id", "provider", "login", "token", "created_at"}

func TestCreateUser_AnonymousStoresNullLogin(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (id, provider, login, token, created_at)`)).
		WithArgs("u1", "anonymous", nil, "tok", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateUser(context.Background(), models.User{ID: "u1", Provider: "anonymous", Token: "tok", CreatedAt: created})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("u1", "login", "alice", "tok", sqlmock.AnyArg()).
		WillReturnError(errors.New("duplicate key"))

	err := repo.CreateUser(context.Background(), models.User{ID: "u1", Provider: "login", Login: "alice", Token: "tok"})
	if err == nil || !regexp.MustCompile(`create user: duplicate key`).MatchString(err.Error()) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestGetUserByToken(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, provider, login, token, created_at FROM users WHERE token = $1`)).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "anonymous", nil, "tok", created))

	u, err := repo.GetUserByToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || u.Login != "" || !u.CreatedAt.Equal(created) {
		t.Errorf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetUserByLogin_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE login = $1`)).
		WithArgs("bob").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByLogin(context.Background(), "bob")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v; want ErrUserNotFound", err)
	}
}

func TestGetUserByLogin_QueryError(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE login = $1`)).
		WithArgs("bob").
		WillReturnError(errors.New("conn reset"))

	_, err := repo.GetUserByLogin(context.Background(), "bob")
	if err == nil || errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected a query error, got %v", err)
	}
}
