// Package whatsapp sends approval requests and confirmations through
// the WhatsApp Business Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Config holds the WhatsApp Business credentials. When either value is
// empty the client is disabled and sends become no-ops.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
}

// Client talks to the WhatsApp Business Cloud API.
type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	logger        logging.Logger
}

// NewClient creates a WhatsApp client. A client without credentials is
// still usable, it just reports itself as disabled.
func NewClient(cfg Config, logger logging.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// Enabled reports whether the client has credentials to send messages.
func (c *Client) Enabled() bool {
	return c.accessToken != "" && c.phoneNumberID != ""
}

// PostSummary is the post metadata shown in an approval request.
type PostSummary struct {
	Caption   string
	MediaType string
	Permalink string
}

// SendApprovalRequest sends an interactive message with approve, reject
// and modify buttons so the assignee can decide from their phone.
func (c *Client) SendApprovalRequest(ctx context.Context, telefono, pageName string, taskID int64, post PostSummary) error {
	if !c.Enabled() {
		c.logger.Warn("WhatsApp credentials missing, approval request not sent")
		return nil
	}

	caption := post.Caption
	if caption == "" {
		caption = "(sin descripción)"
	}
	captionRunes := []rune(caption)
	if len(captionRunes) > 150 {
		caption = string(captionRunes[:150]) + "..."
	}

	body := fmt.Sprintf(
		"📣 Nueva publicación detectada en *%s*\n\n%s\n\n¿Quieres activar las respuestas automáticas para esta publicación?\n\nSi - Aprobar regla\nNo - Rechazar\nModificar - Ver en dashboard",
		pageName, caption,
	)

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                telefono,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "button",
			"body": map[string]string{"text": body},
			"action": map[string]any{
				"buttons": []map[string]any{
					button(fmt.Sprintf("aprobar_%d", taskID), "Si, aprobar"),
					button(fmt.Sprintf("rechazar_%d", taskID), "No, rechazar"),
					button(fmt.Sprintf("modificar_%d", taskID), "Modificar"),
				},
			},
		},
	}
	return c.send(ctx, payload)
}

// SendText sends a plain text message, used for decision confirmations.
func (c *Client) SendText(ctx context.Context, telefono, mensaje string) error {
	if !c.Enabled() {
		return nil
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                telefono,
		"type":              "text",
		"text":              map[string]string{"body": mensaje},
	}
	return c.send(ctx, payload)
}

func button(id, title string) map[string]any {
	return map[string]any{
		"type":  "reply",
		"reply": map[string]string{"id": id, "title": title},
	}
}

func (c *Client) send(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp: API returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
