package store

import (
	"context"
	"fmt"
)

// CommentLog is one audit entry for a processed comment or DM.
type CommentLog struct {
	BrandID          string
	BrandName        string
	Plataforma       string
	CommentID        string
	SenderID         string
	MediaID          string
	TextoPublicacion string
	Comentario       string
	EsInapropiado    bool
	RazonInapropiado string
	Respuesta        string
	MensajeInbox     string
	RespuestaEnviada bool
	DMEnviado        bool
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// InsertCommentLog appends one audit entry. Long texts are truncated so
// a pathological comment cannot bloat the log table.
func (s *Store) InsertCommentLog(ctx context.Context, l CommentLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs_comentarios
			(id_marca, nombre_marca, plataforma, comment_id, sender_id, media_id,
			 texto_publicacion, comentario_original, es_inapropiado, razon_inapropiado,
			 respuesta_comentario, mensaje_inbox, respuesta_enviada, dm_enviado)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, l.BrandID, l.BrandName, l.Plataforma, l.CommentID, l.SenderID, l.MediaID,
		truncate(l.TextoPublicacion, 1000), truncate(l.Comentario, 1000),
		l.EsInapropiado, l.RazonInapropiado, l.Respuesta, l.MensajeInbox,
		l.RespuestaEnviada, l.DMEnviado)
	if err != nil {
		return fmt.Errorf("inserting comment log: %w", err)
	}
	return nil
}
