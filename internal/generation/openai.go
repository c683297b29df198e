package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Pbezama/admin-panel-back/internal/knowledge"
	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// Config holds the model endpoint settings.
type Config struct {
	APIKey string
	APIURL string
	Model  string
}

// OpenAIGenerator calls the chat-completions API. It satisfies Generator
// and never returns an error to callers; failures degrade to fallbacks.
type OpenAIGenerator struct {
	client  *http.Client
	apiKey  string
	apiURL  string
	model   string
	history *ConversationHistory
	logger  logging.Logger
}

func NewOpenAIGenerator(cfg Config, logger logging.Logger) *OpenAIGenerator {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  cfg.APIKey,
		apiURL:  apiURL,
		model:   model,
		history: NewConversationHistory(),
		logger:  logger,
	}
}

// CommentReply generates the public/private reply pair for a comment.
func (g *OpenAIGenerator) CommentReply(ctx context.Context, bc *knowledge.BrandContext, postDescription, commentText string) ReplyDecision {
	if bc == nil {
		return FallbackDecision()
	}

	messages := []chatMessage{
		{Role: "system", Content: buildSystemPrompt(bc)},
		{Role: "user", Content: buildUserPrompt(postDescription, commentText)},
	}

	raw, err := g.complete(ctx, messages, 500)
	if err != nil {
		g.logger.WithError(err).Warn("Comment reply generation failed, using fallback")
		return FallbackDecision()
	}
	return parseDecision(raw)
}

// DMReply generates a conversational answer for a direct message,
// carrying the recent transcript for context.
func (g *OpenAIGenerator) DMReply(ctx context.Context, bc *knowledge.BrandContext, userID, message string) string {
	if bc == nil {
		return "¡Hola! Gracias por escribirnos. ¿En qué podemos ayudarte?"
	}

	systemPrompt := fmt.Sprintf("Eres atención al cliente de %q respondiendo DMs.\nSé breve, amable y conversacional. Máximo 100 tokens.", bc.BrandName)

	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	for _, m := range g.history.Recent(userID) {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	raw, err := g.complete(ctx, messages, 200)
	if err != nil {
		g.logger.WithError(err).Warn("DM reply generation failed, using fallback")
		return FallbackDMReply()
	}

	g.history.Add(userID, "user", message)
	g.history.Add(userID, "assistant", raw)
	return raw
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) complete(ctx context.Context, messages []chatMessage, maxTokens int) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("openai: api key not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
