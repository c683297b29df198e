package events

import (
	"encoding/json"
	"testing"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		raw      string
		decision Decision
		taskID   int64
		ok       bool
	}{
		{"aprobar_42", DecisionApprove, 42, true},
		{"rechazar_7", DecisionReject, 7, true},
		{"modificar_99", DecisionModify, 99, true},
		{"Si", DecisionApprove, 0, true},
		{"sí", DecisionApprove, 0, true},
		{"1", DecisionApprove, 0, true},
		{"si, aprobar", DecisionApprove, 0, true},
		{"no", DecisionReject, 0, true},
		{"2", DecisionReject, 0, true},
		{"No, rechazar", DecisionReject, 0, true},
		{"modificar", DecisionModify, 0, true},
		{"3", DecisionModify, 0, true},
		{"quiero editar el texto", DecisionModify, 0, true},
		{"aprobar_abc", "", 0, false},
		{"hola", "", 0, false},
		{"", "", 0, false},
	}

	for _, tt := range tests {
		decision, taskID, ok := ParseDecision(tt.raw)
		if ok != tt.ok || decision != tt.decision || taskID != tt.taskID {
			t.Errorf("ParseDecision(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.raw, decision, taskID, ok, tt.decision, tt.taskID, tt.ok)
		}
	}
}

func decodeWhatsApp(t *testing.T, body string) *WhatsAppPayload {
	t.Helper()
	var payload WhatsAppPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	return &payload
}

func TestWhatsAppButtonReply(t *testing.T) {
	payload := decodeWhatsApp(t, `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "waba-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messages": [{
						"from": "56991112222",
						"id": "wamid.1",
						"type": "interactive",
						"interactive": {
							"type": "button_reply",
							"button_reply": {"id": "aprobar_15", "title": "Si, aprobar"}
						}
					}]
				}
			}]
		}]
	}`)

	out := testNormalizer().WhatsApp(payload)
	if len(out) != 1 {
		t.Fatalf("expected 1 event, got %d", len(out))
	}
	ev := out[0].(ApprovalReplyEvent)
	if ev.Decision != DecisionApprove || ev.TaskID != 15 || ev.From != "56991112222" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestWhatsAppTextReply(t *testing.T) {
	payload := decodeWhatsApp(t, `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "waba-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messages": [{
						"from": "56991112222",
						"id": "wamid.2",
						"type": "text",
						"text": {"body": "no"}
					}]
				}
			}]
		}]
	}`)

	out := testNormalizer().WhatsApp(payload)
	if len(out) != 1 {
		t.Fatalf("expected 1 event, got %d", len(out))
	}
	ev := out[0].(ApprovalReplyEvent)
	if ev.Decision != DecisionReject || ev.TaskID != 0 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestWhatsAppStatusesDropped(t *testing.T) {
	payload := decodeWhatsApp(t, `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "waba-1",
			"changes": [{
				"field": "messages",
				"value": {
					"statuses": [{"status": "delivered", "recipient_id": "56991112222"}]
				}
			}]
		}]
	}`)

	if out := testNormalizer().WhatsApp(payload); len(out) != 0 {
		t.Fatalf("expected statuses dropped, got %d events", len(out))
	}
}

func TestWhatsAppUnrelatedTextDropped(t *testing.T) {
	payload := decodeWhatsApp(t, `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "waba-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messages": [{
						"from": "56991112222",
						"id": "wamid.3",
						"type": "text",
						"text": {"body": "hola buenas tardes"}
					}]
				}
			}]
		}]
	}`)

	if out := testNormalizer().WhatsApp(payload); len(out) != 0 {
		t.Fatalf("expected unrelated text dropped, got %d events", len(out))
	}
}
