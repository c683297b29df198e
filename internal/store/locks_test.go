package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return New(mockDB, logging.NewLogger()), mock
}

func TestClaimGranted(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO comment_locks").
		WithArgs("c-1", "brand-1", "instagram").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if !s.Claim(context.Background(), "c-1", "brand-1", "instagram") {
		t.Fatal("expected claim granted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestClaimDeniedOnDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO comment_locks").
		WithArgs("c-1", "brand-1", "instagram").
		WillReturnError(&pq.Error{Code: "23505"})

	if s.Claim(context.Background(), "c-1", "brand-1", "instagram") {
		t.Fatal("expected claim denied on unique violation")
	}
}

func TestClaimFailsOpenOnStorageError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO comment_locks").
		WithArgs("c-1", "brand-1", "instagram").
		WillReturnError(errors.New("connection refused"))

	if !s.Claim(context.Background(), "c-1", "brand-1", "instagram") {
		t.Fatal("expected claim granted when store is unavailable")
	}
}

func TestSweepExpiredLocks(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM comment_locks").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := s.SweepExpiredLocks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
}
