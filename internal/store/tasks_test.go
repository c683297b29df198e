package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCreateTask(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO tareas").
		WithArgs("brand-1", sqlmock.AnyArg(), "Nueva publicación detectada", sqlmock.AnyArg(),
			"aprobacion_regla", "alta", TaskPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := s.CreateTask(context.Background(), Task{
		BrandID:        "brand-1",
		BrandName:      sql.NullString{String: "Mi Marca", Valid: true},
		Titulo:         "Nueva publicación detectada",
		Descripcion:    sql.NullString{String: "Se detectó una nueva publicación", Valid: true},
		Tipo:           "aprobacion_regla",
		Prioridad:      "alta",
		Estado:         TaskPending,
		AsignadoA:      sql.NullInt64{Int64: 7, Valid: true},
		NombreAsignado: sql.NullString{String: "Pedro", Valid: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
}

func TestCompleteTask(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE tareas").
		WithArgs(TaskApproved, sqlmock.AnyArg(), int64(42), TaskPending, TaskModified).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.CompleteTask(context.Background(), 42, TaskApproved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected task completed")
	}
}

func TestCompleteTaskAlreadyTerminal(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE tareas").
		WithArgs(TaskRejected, sqlmock.AnyArg(), int64(42), TaskPending, TaskModified).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.CompleteTask(context.Background(), 42, TaskRejected)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no pending task to match")
	}
}

func TestMarkTaskModified(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE tareas").
		WithArgs(TaskModified, int64(42), TaskPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.MarkTaskModified(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected task marked modified")
	}
}

func TestGetPendingApprovalNormalizesPhone(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT telefono, tarea_id, post_id, tipo, estado").
		WithArgs("56991112222").
		WillReturnRows(sqlmock.NewRows([]string{"telefono", "tarea_id", "post_id", "tipo", "estado"}).
			AddRow("56991112222", 42, "post-1", "aprobacion_regla", "pendiente"))

	p, err := s.GetPendingApproval(context.Background(), "+56 9 9111-2222")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || p.TareaID != 42 || p.PostID != "post-1" {
		t.Fatalf("unexpected pending approval: %+v", p)
	}
}
