// Package generation produces reply text for comments and DMs. The model
// call is an opaque collaborator: every failure path degrades to a static
// fallback so processing never depends on the model being reachable.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Pbezama/admin-panel-back/internal/knowledge"
)

// ReplyDecision is the structured verdict for one comment.
type ReplyDecision struct {
	EsInapropiado       bool   `json:"es_inapropiado"`
	RazonInapropiado    string `json:"razon_inapropiado"`
	RespuestaComentario string `json:"respuesta_comentario"`
	MensajeInbox        string `json:"mensaje_inbox"`
}

// Generator turns brand context plus an inbound text into replies.
type Generator interface {
	CommentReply(ctx context.Context, bc *knowledge.BrandContext, postDescription, commentText string) ReplyDecision
	DMReply(ctx context.Context, bc *knowledge.BrandContext, userID, message string) string
}

// FallbackDecision is used when no brand context exists or the model
// call fails.
func FallbackDecision() ReplyDecision {
	return ReplyDecision{
		RespuestaComentario: "¡Gracias por tu comentario! Te escribiremos por interno para ayudarte. 😊",
		MensajeInbox:        "¡Hola! Cuéntame, ¿en qué te podemos ayudar?",
	}
}

// FallbackDMReply is the static DM answer for the same failure paths.
func FallbackDMReply() string {
	return "¡Gracias por tu mensaje! Te responderemos pronto. 😊"
}

func buildSystemPrompt(bc *knowledge.BrandContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres un asistente de atención al cliente para %q.\n", bc.BrandName)
	b.WriteString("Respondes comentarios en redes sociales de forma cálida, cercana y profesional.\n\n")
	fmt.Fprintf(&b, "FECHA: %s\n\n", time.Now().Format("2006-01-02"))

	b.WriteString("INFORMACIÓN OBLIGATORIA (siempre usar):\n")
	if len(bc.Always) == 0 {
		b.WriteString("• (Sin información obligatoria)\n")
	}
	for _, item := range bc.Always {
		fmt.Fprintf(&b, "• %s: %s\n", item.Clave, item.Valor)
	}

	b.WriteString("\nINFORMACIÓN RELEVANTE (usar si aplica):\n")
	for _, item := range bc.Relevant {
		fmt.Fprintf(&b, "• [%s] %s: %s\n", item.Categoria, item.Clave, item.Valor)
	}

	if len(bc.Promotions) > 0 {
		b.WriteString("\nPROMOCIONES ACTIVAS:\n")
		for _, item := range bc.Promotions {
			fmt.Fprintf(&b, "• %s: %s\n", item.Clave, item.Valor)
		}
	}

	if len(bc.Publications) > 0 {
		b.WriteString("\nPUBLICACIONES RECIENTES:\n")
		for _, item := range bc.Publications {
			fmt.Fprintf(&b, "• %s\n", item.Valor)
		}
	}

	b.WriteString(`
REGLAS:
1. Si es GROSERO/AGRESIVO: es_inapropiado=true
2. Si preguntan PRECIOS no disponibles: invitar a consultar por inbox
3. MÁXIMO 100 tokens por respuesta
4. Genera DOS respuestas diferentes:
   a) respuesta_comentario: Respuesta PÚBLICA
   b) mensaje_inbox: Mensaje PRIVADO (NO decir "te escribiremos")
`)
	return b.String()
}

func buildUserPrompt(postDescription, commentText string) string {
	if postDescription == "" {
		postDescription = "(sin descripción)"
	} else if len([]rune(postDescription)) > 300 {
		postDescription = string([]rune(postDescription)[:300])
	}
	return fmt.Sprintf(`PUBLICACIÓN: %q
COMENTARIO: %q

Responde en JSON (sin markdown):
{"es_inapropiado": true/false, "razon_inapropiado": "razón o null", "respuesta_comentario": "respuesta pública", "mensaje_inbox": "mensaje privado"}`,
		postDescription, commentText)
}

// parseDecision extracts a ReplyDecision from the model output, tolerating
// markdown code fences. An unparseable answer becomes a decision whose
// public reply is the raw text, clipped.
func parseDecision(raw string) ReplyDecision {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if parts := strings.Split(text, "```"); len(parts) > 1 {
			text = parts[1]
		}
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimSpace(text)
	}

	var decision ReplyDecision
	if err := json.Unmarshal([]byte(text), &decision); err == nil {
		return decision
	}

	reply := raw
	if len([]rune(reply)) > 200 {
		reply = string([]rune(reply)[:200])
	}
	if reply == "" {
		reply = "¡Gracias por tu comentario!"
	}
	return ReplyDecision{
		RespuestaComentario: reply,
		MensajeInbox:        "¡Hola! ¿En qué podemos ayudarte? 😊",
	}
}
