package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Task states.
const (
	TaskPending   = "pendiente"
	TaskApproved  = "aprobada"
	TaskRejected  = "rechazada"
	TaskModified  = "modificada"
	TaskCompleted = "completada"
)

// Task is one human-in-the-loop work item from tareas.
type Task struct {
	ID             int64
	BrandID        string
	BrandName      sql.NullString
	Titulo         string
	Descripcion    sql.NullString
	Tipo           string
	Prioridad      string
	Estado         string
	AsignadoA      sql.NullInt64
	NombreAsignado sql.NullString
	Activo         bool
}

// CreateTask inserts a system-generated approval task and returns its id.
func (s *Store) CreateTask(ctx context.Context, t Task) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tareas
			(id_marca, nombre_marca, titulo, descripcion, tipo, prioridad,
			 estado, asignado_a, nombre_asignado, creado_por_sistema)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		RETURNING id
	`, t.BrandID, t.BrandName, t.Titulo, t.Descripcion, t.Tipo, t.Prioridad,
		t.Estado, t.AsignadoA, t.NombreAsignado).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating task: %w", err)
	}
	return id, nil
}

// GetTask loads a task by id, or nil when it does not exist.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, id_marca, nombre_marca, titulo, descripcion, tipo, prioridad,
		       estado, asignado_a, nombre_asignado, activo
		FROM tareas
		WHERE id = $1
	`, id).Scan(&t.ID, &t.BrandID, &t.BrandName, &t.Titulo, &t.Descripcion, &t.Tipo,
		&t.Prioridad, &t.Estado, &t.AsignadoA, &t.NombreAsignado, &t.Activo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return &t, nil
}

// CompleteTask moves an open task to a terminal state and stamps the
// completion time. Tasks waiting on edits (modificada) can still be
// decided. Returns false when the task was already terminal.
func (s *Store) CompleteTask(ctx context.Context, id int64, estado string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tareas
		SET estado = $1, fecha_completada = $2
		WHERE id = $3 AND estado IN ($4, $5) AND activo
	`, estado, time.Now(), id, TaskPending, TaskModified)
	if err != nil {
		return false, fmt.Errorf("completing task: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkTaskModified flags a pending task as awaiting out-of-band edits
// without terminating it.
func (s *Store) MarkTaskModified(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tareas
		SET estado = $1
		WHERE id = $2 AND estado = $3 AND activo
	`, TaskModified, id, TaskPending)
	if err != nil {
		return false, fmt.Errorf("marking task modified: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
