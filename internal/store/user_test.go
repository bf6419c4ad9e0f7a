package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/recipeapp/apiserver/types"
)

var userRowColumns = []string{"id", "email", "name", "password_hash", "is_active", "is_staff", "is_superuser", "created_at", "updated_at"}

func TestUserCreate_Success(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	q := `(?s)INSERT\s+INTO\s+users\s*\(email,\s*name,\s*password_hash,\s*is_active,\s*is_staff,\s*is_superuser,\s*created_at,\s*updated_at\)\s*VALUES.*RETURNING\s+id`
	mock.ExpectQuery(q).
		WithArgs("alice@example.com", "Alice", "hash", true, false, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	got, err := repo.Create(context.Background(), types.User{
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "hash",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 || got.Email != "alice@example.com" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), types.User{Email: "alice@example.com"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserGetByEmail_Found(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*email.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "alice@example.com", "Alice", "hash", true, false, false, now, now))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != 1 || got.Name != "Alice" || !got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestUserGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(99).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserUpdate_NoRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)UPDATE\s+users\s+SET`).
		WithArgs("a@example.com", "A", "hash", true, sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), types.User{ID: 5, Email: "a@example.com", Name: "A", PasswordHash: "hash", IsActive: true})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}
