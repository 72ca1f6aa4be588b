package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/repository"
)

func TestTokenRepository_GetByValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(tokenColumns).
		AddRow("token-1", "user-1", "signed-value", "bearer", false, false, createdAt)

	mock.ExpectQuery(`SELECT .*FROM blog\.tokens`).WithArgs("signed-value").WillReturnRows(rows)

	token, err := repo.GetByValue(context.Background(), "signed-value")
	if err != nil {
		t.Fatalf("GetByValue returned error: %v", err)
	}
	if token.ID != "token-1" || token.UserID != "user-1" {
		t.Fatalf("unexpected token: %+v", token)
	}
	if !token.IsLive() {
		t.Fatal("expected live token")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_GetByValueNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM blog\.tokens`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(tokenColumns))

	_, err = repo.GetByValue(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_ReplaceUserTokens(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	now := time.Now().UTC()
	access := domain.Token{ID: "access-1", UserID: "user-1", Value: "access-value", Type: domain.TokenTypeBearer, CreatedAt: now}
	refresh := domain.Token{ID: "refresh-1", UserID: "user-1", Value: "refresh-value", Type: domain.TokenTypeBearer, CreatedAt: now}

	// Delete of the old set, then a single multi-row insert.
	mock.ExpectExec(`DELETE FROM blog\.tokens`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO blog\.tokens`).
		WithArgs(
			access.ID, access.UserID, access.Value, "bearer", false, false, now,
			refresh.ID, refresh.UserID, refresh.Value, "bearer", false, false, now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	if err := repo.ReplaceUserTokens(context.Background(), "user-1", access, refresh); err != nil {
		t.Fatalf("ReplaceUserTokens returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectExec(`UPDATE blog\.tokens SET expired = \$1, revoked = \$2`).
		WithArgs(true, true, false, false, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	revoked, err := repo.RevokeAllForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RevokeAllForUser returned error: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("expected 2 revoked rows, got %d", revoked)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
