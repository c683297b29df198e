package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PendingApproval tracks the one open WhatsApp approval request per
// phone number, linking the assignee's eventual reply back to its task
// and publication.
type PendingApproval struct {
	Telefono string
	TareaID  int64
	PostID   string
	Tipo     string
	Estado   string
}

func normalizePhone(telefono string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "+", "")
	return replacer.Replace(telefono)
}

// SavePendingApproval records an outstanding approval request, replacing
// any previous one for the same phone.
func (s *Store) SavePendingApproval(ctx context.Context, p PendingApproval) error {
	tipo := p.Tipo
	if tipo == "" {
		tipo = "aprobacion_regla"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO whatsapp_pending_approvals (telefono, tarea_id, post_id, tipo, estado)
		VALUES ($1, $2, $3, $4, 'pendiente')
		ON CONFLICT (telefono) DO UPDATE
		SET tarea_id = EXCLUDED.tarea_id,
		    post_id = EXCLUDED.post_id,
		    tipo = EXCLUDED.tipo,
		    estado = 'pendiente',
		    creado_en = now()
	`, normalizePhone(p.Telefono), p.TareaID, p.PostID, tipo)
	if err != nil {
		return fmt.Errorf("saving pending approval: %w", err)
	}
	return nil
}

// GetPendingApproval returns the open approval request for a phone, or
// nil when there is none.
func (s *Store) GetPendingApproval(ctx context.Context, telefono string) (*PendingApproval, error) {
	var p PendingApproval
	err := s.db.QueryRowContext(ctx, `
		SELECT telefono, tarea_id, post_id, tipo, estado
		FROM whatsapp_pending_approvals
		WHERE telefono = $1 AND estado = 'pendiente'
	`, normalizePhone(telefono)).Scan(&p.Telefono, &p.TareaID, &p.PostID, &p.Tipo, &p.Estado)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying pending approval: %w", err)
	}
	return &p, nil
}

// ClearPendingApproval removes the open request for a phone after the
// assignee has answered.
func (s *Store) ClearPendingApproval(ctx context.Context, telefono string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM whatsapp_pending_approvals
		WHERE telefono = $1
	`, normalizePhone(telefono))
	if err != nil {
		return fmt.Errorf("clearing pending approval: %w", err)
	}
	return nil
}
