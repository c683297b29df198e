package events

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// WhatsAppPayload is the envelope the WhatsApp Business API posts to the
// webhook endpoint.
type WhatsAppPayload struct {
	Object string          `json:"object"`
	Entry  []WhatsAppEntry `json:"entry"`
}

type WhatsAppEntry struct {
	ID      string           `json:"id"`
	Changes []WhatsAppChange `json:"changes"`
}

type WhatsAppChange struct {
	Field string        `json:"field"`
	Value WhatsAppValue `json:"value"`
}

type WhatsAppValue struct {
	Messages []WhatsAppMessage `json:"messages"`
	Statuses []json.RawMessage `json:"statuses"`
}

// WhatsAppMessage is one inbound message. Type selects which of the
// optional payloads is present.
type WhatsAppMessage struct {
	From        string               `json:"from"`
	ID          string               `json:"id"`
	Type        string               `json:"type"`
	Text        *WhatsAppText        `json:"text"`
	Interactive *WhatsAppInteractive `json:"interactive"`
}

type WhatsAppText struct {
	Body string `json:"body"`
}

type WhatsAppInteractive struct {
	Type        string         `json:"type"`
	ButtonReply *WhatsAppReply `json:"button_reply"`
	ListReply   *WhatsAppReply `json:"list_reply"`
}

type WhatsAppReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// WhatsApp normalizes a WhatsApp webhook payload. Only approval replies
// are produced; delivery statuses and unrecognized message types are
// dropped with a diagnostic.
func (n *Normalizer) WhatsApp(payload *WhatsAppPayload) []InboundEvent {
	if payload == nil {
		return nil
	}

	var out []InboundEvent
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				_ = status
				n.logger.WithField("entry_id", entry.ID).Debug("WhatsApp status update, dropping")
			}
			for _, msg := range change.Value.Messages {
				if ev, ok := n.normalizeWhatsAppMessage(msg); ok {
					out = append(out, ev)
				}
			}
		}
	}
	return out
}

func (n *Normalizer) normalizeWhatsAppMessage(msg WhatsAppMessage) (InboundEvent, bool) {
	var raw string
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			raw = msg.Text.Body
		}
	case "interactive":
		if msg.Interactive != nil {
			switch {
			case msg.Interactive.ButtonReply != nil:
				raw = msg.Interactive.ButtonReply.ID
			case msg.Interactive.ListReply != nil:
				raw = msg.Interactive.ListReply.ID
			}
		}
	default:
		n.logger.WithFields(logging.Fields{
			"from": msg.From,
			"type": msg.Type,
		}).Debug("Unsupported WhatsApp message type, dropping")
		return nil, false
	}

	if msg.From == "" || raw == "" {
		return nil, false
	}

	decision, taskID, ok := ParseDecision(raw)
	if !ok {
		n.logger.WithFields(logging.Fields{
			"from": msg.From,
			"text": raw,
		}).Debug("WhatsApp message is not an approval reply, dropping")
		return nil, false
	}

	return ApprovalReplyEvent{
		TaskID:   taskID,
		Decision: decision,
		From:     msg.From,
	}, true
}

// ParseDecision interprets a WhatsApp reply as an approval decision.
// Button ids carry the task id ("aprobar_42"); free-text answers map to
// a decision with task id zero and are resolved by sender downstream.
func ParseDecision(raw string) (Decision, int64, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))

	for _, decision := range []Decision{DecisionApprove, DecisionReject, DecisionModify} {
		prefix := string(decision) + "_"
		if strings.HasPrefix(text, prefix) {
			taskID, err := strconv.ParseInt(text[len(prefix):], 10, 64)
			if err != nil {
				return "", 0, false
			}
			return decision, taskID, true
		}
	}

	switch {
	case text == "si" || text == "sí" || text == "1" || strings.Contains(text, "aprobar"):
		return DecisionApprove, 0, true
	case text == "no" || text == "2" || strings.Contains(text, "rechazar"):
		return DecisionReject, 0, true
	case text == "modificar" || text == "3" ||
		strings.Contains(text, "editar") || strings.Contains(text, "cambiar"):
		return DecisionModify, 0, true
	}

	return "", 0, false
}
