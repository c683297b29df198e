package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Publication approval states.
const (
	ApprovalPending  = "pendiente"
	ApprovalActive   = "activo"
	ApprovalRejected = "rechazada"
)

// ContextRow is one atomic fact about a brand from base_cuentas. The
// historical column names carry embedded spaces and are quoted in every
// query; they are opaque labels, never computed on.
type ContextRow struct {
	ID               int64
	BrandName        sql.NullString
	BrandID          string
	Active           bool
	Categoria        string
	Clave            string
	Valor            string
	Prioridad        int
	EstadoAprobacion sql.NullString
	FechaCaducidad   sql.NullTime
	CreadoEn         time.Time
}

// ListActiveContextRows loads every active context row for a brand,
// newest first. Publication rows that were never approved are excluded
// by the active flag itself (they are stored inactive until approval).
func (s *Store) ListActiveContextRows(ctx context.Context, brandID string) ([]ContextRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, "Nombre marca", "ID marca", "Estado", categoria, clave, valor,
		       prioridad, estado_aprobacion, fecha_caducidad, creado_en
		FROM base_cuentas
		WHERE "ID marca" = $1 AND "Estado"
		ORDER BY creado_en DESC
	`, brandID)
	if err != nil {
		return nil, fmt.Errorf("listing context rows: %w", err)
	}
	defer rows.Close()

	var out []ContextRow
	for rows.Next() {
		var r ContextRow
		if err := rows.Scan(&r.ID, &r.BrandName, &r.BrandID, &r.Active, &r.Categoria,
			&r.Clave, &r.Valor, &r.Prioridad, &r.EstadoAprobacion, &r.FechaCaducidad, &r.CreadoEn); err != nil {
			return nil, fmt.Errorf("scanning context row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PublicationExists reports whether a publication row already exists for
// the brand and post, regardless of its approval state.
func (s *Store) PublicationExists(ctx context.Context, brandID, postID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM base_cuentas
			WHERE "ID marca" = $1 AND categoria = 'publicacion' AND clave = $2
		)
	`, brandID, postID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking publication existence: %w", err)
	}
	return exists, nil
}

// PublicationRow is the input for persisting a detected publication.
type PublicationRow struct {
	BrandID   string
	BrandName string
	PostID    string
	Value     string
	Approval  string // pendiente | activo
	Expiry    time.Time
	CreatedAt time.Time
}

// InsertPublication persists a detected publication as a context row of
// category publicacion with priority 2. The row is active only when it
// enters already approved; pending rows stay inactive until the human
// decision flips them.
func (s *Store) InsertPublication(ctx context.Context, p PublicationRow) error {
	active := p.Approval == ApprovalActive
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO base_cuentas
			("Nombre marca", "ID marca", "Estado", categoria, clave, valor,
			 prioridad, estado_aprobacion, fecha_caducidad, creado_en)
		VALUES ($1, $2, $3, 'publicacion', $4, $5, 2, $6, $7, $8)
	`, p.BrandName, p.BrandID, active, p.PostID, p.Value, p.Approval, p.Expiry, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting publication row: %w", err)
	}
	return nil
}

// ApprovePublication activates a pending publication rule. Returns false
// when no pending row matched (already decided or never existed).
func (s *Store) ApprovePublication(ctx context.Context, postID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE base_cuentas
		SET "Estado" = TRUE, estado_aprobacion = $1
		WHERE clave = $2 AND categoria = 'publicacion' AND estado_aprobacion = $3
	`, ApprovalActive, postID, ApprovalPending)
	if err != nil {
		return false, fmt.Errorf("approving publication: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RejectPublication marks a pending publication rule rejected and keeps
// it out of context assembly.
func (s *Store) RejectPublication(ctx context.Context, postID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE base_cuentas
		SET "Estado" = FALSE, estado_aprobacion = $1
		WHERE clave = $2 AND categoria = 'publicacion' AND estado_aprobacion = $3
	`, ApprovalRejected, postID, ApprovalPending)
	if err != nil {
		return false, fmt.Errorf("rejecting publication: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetActivePrompt returns the newest active prompt row for a brand, or
// empty when none is configured.
func (s *Store) GetActivePrompt(ctx context.Context, brandID string) (string, error) {
	var valor string
	err := s.db.QueryRowContext(ctx, `
		SELECT valor
		FROM base_cuentas
		WHERE "ID marca" = $1 AND categoria = 'prompt' AND "Estado"
		ORDER BY creado_en DESC
		LIMIT 1
	`, brandID).Scan(&valor)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying prompt: %w", err)
	}
	return valor, nil
}
