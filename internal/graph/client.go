// Package graph wraps the Meta Graph API calls the service needs:
// reading post details, replying to comments, sending DMs, and hiding
// inappropriate comments. Access tokens are per connected page, so every
// call takes the token explicitly.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Client wraps the Meta Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a Graph API client. baseURL may be empty to use the
// production endpoint.
func NewClient(baseURL string, logger logging.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// PostDetails is the subset of post metadata persisted with a detected
// publication.
type PostDetails struct {
	PostID    string
	Caption   string
	MediaType string
	MediaURL  string
	Permalink string
	Timestamp string
}

// GetPostDetails fetches the metadata of a post. A nil result with nil
// error means the API answered with a domain error (deleted post,
// expired token); callers fall back to the webhook payload.
func (c *Client) GetPostDetails(ctx context.Context, postID, token string) (*PostDetails, error) {
	if postID == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("fields", "id,caption,message,media_type,media_url,permalink,timestamp,attachments")
	params.Set("access_token", token)

	var data struct {
		apiError
		ID        string `json:"id"`
		Caption   string `json:"caption"`
		Message   string `json:"message"`
		MediaType string `json:"media_type"`
		MediaURL  string `json:"media_url"`
		Permalink string `json:"permalink"`
		Timestamp string `json:"timestamp"`
	}
	if err := c.get(ctx, "/"+postID, params, &data); err != nil {
		return nil, err
	}
	if data.Error != nil {
		c.logger.WithFields(logging.Fields{
			"post_id": postID,
			"code":    data.Error.Code,
			"message": data.Error.Message,
		}).Warn("Graph API error fetching post details")
		return nil, nil
	}

	caption := data.Caption
	if caption == "" {
		caption = data.Message
	}
	mediaType := data.MediaType
	if mediaType == "" {
		mediaType = "unknown"
	}
	return &PostDetails{
		PostID:    data.ID,
		Caption:   caption,
		MediaType: mediaType,
		MediaURL:  data.MediaURL,
		Permalink: data.Permalink,
		Timestamp: data.Timestamp,
	}, nil
}

// GetPostCaption fetches only the caption or message text of a post.
// Errors degrade to an empty caption.
func (c *Client) GetPostCaption(ctx context.Context, mediaID, token string) string {
	if mediaID == "" {
		return ""
	}

	params := url.Values{}
	params.Set("fields", "caption,message")
	params.Set("access_token", token)

	var data struct {
		apiError
		Caption string `json:"caption"`
		Message string `json:"message"`
	}
	if err := c.get(ctx, "/"+mediaID, params, &data); err != nil {
		c.logger.WithError(err).WithField("media_id", mediaID).Warn("Failed to fetch post caption")
		return ""
	}
	if data.Error != nil {
		return ""
	}
	if data.Caption != "" {
		return data.Caption
	}
	return data.Message
}

// ReplyToInstagramComment posts a public reply under an Instagram
// comment and returns the new comment's id.
func (c *Client) ReplyToInstagramComment(ctx context.Context, commentID, message, token string) (string, error) {
	return c.postComment(ctx, "/"+commentID+"/replies", message, token)
}

// ReplyToFacebookComment posts a public reply under a Facebook comment
// and returns the new comment's id.
func (c *Client) ReplyToFacebookComment(ctx context.Context, commentID, message, token string) (string, error) {
	return c.postComment(ctx, "/"+commentID+"/comments", message, token)
}

func (c *Client) postComment(ctx context.Context, path, message, token string) (string, error) {
	params := url.Values{}
	params.Set("message", message)
	params.Set("access_token", token)

	var data struct {
		apiError
		ID string `json:"id"`
	}
	if err := c.post(ctx, path, params, &data); err != nil {
		return "", err
	}
	if data.Error != nil {
		return "", fmt.Errorf("graph: reply failed: %s", data.Error.Message)
	}
	if data.ID == "" {
		return "", fmt.Errorf("graph: reply response without id")
	}
	return data.ID, nil
}

// SendDirectMessage sends a private message to a user through the page
// inbox and returns the message id.
func (c *Client) SendDirectMessage(ctx context.Context, recipientID, message, token string) (string, error) {
	payload := map[string]any{
		"recipient":      map[string]string{"id": recipientID},
		"message":        map[string]string{"text": message},
		"messaging_type": "RESPONSE",
		"access_token":   token,
	}

	var data struct {
		apiError
		MessageID string `json:"message_id"`
	}
	if err := c.postJSON(ctx, "/me/messages", payload, &data); err != nil {
		return "", err
	}
	if data.Error != nil {
		return "", fmt.Errorf("graph: dm failed: %s", data.Error.Message)
	}
	return data.MessageID, nil
}

// HideComment hides an inappropriate comment from the public thread.
func (c *Client) HideComment(ctx context.Context, commentID, token string) error {
	params := url.Values{}
	params.Set("is_hidden", "true")
	params.Set("access_token", token)

	var data apiError
	if err := c.post(ctx, "/"+commentID, params, &data); err != nil {
		return err
	}
	if data.Error != nil {
		return fmt.Errorf("graph: hide comment failed: %s", data.Error.Message)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("graph: create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("graph: create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("graph: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("graph: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("graph: decode response: %w", err)
	}
	return nil
}
