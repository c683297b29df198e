package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, logging.NewLogger())
}

func TestGetPostDetails(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post_123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("access_token"); got != "tok" {
			t.Errorf("expected access token, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":         "post_123",
			"caption":    "Nueva coleccion",
			"media_type": "IMAGE",
			"permalink":  "https://instagram.com/p/abc",
			"timestamp":  "2026-08-01T12:00:00+0000",
		})
	})

	details, err := client.GetPostDetails(context.Background(), "post_123", "tok")
	if err != nil {
		t.Fatalf("GetPostDetails: %v", err)
	}
	if details == nil {
		t.Fatal("expected details")
	}
	if details.Caption != "Nueva coleccion" {
		t.Errorf("caption = %q", details.Caption)
	}
	if details.Permalink != "https://instagram.com/p/abc" {
		t.Errorf("permalink = %q", details.Permalink)
	}
}

func TestGetPostDetailsMessageFallback(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"id":      "fb_post",
			"message": "Texto del post de Facebook",
		})
	})

	details, err := client.GetPostDetails(context.Background(), "fb_post", "tok")
	if err != nil {
		t.Fatalf("GetPostDetails: %v", err)
	}
	if details.Caption != "Texto del post de Facebook" {
		t.Errorf("caption = %q", details.Caption)
	}
	if details.MediaType != "unknown" {
		t.Errorf("media type = %q", details.MediaType)
	}
}

func TestGetPostDetailsAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Unsupported get request", "code": 100},
		})
	})

	details, err := client.GetPostDetails(context.Background(), "gone", "tok")
	if err != nil {
		t.Fatalf("expected graceful nil, got error: %v", err)
	}
	if details != nil {
		t.Errorf("expected nil details, got %+v", details)
	}
}

func TestGetPostCaption(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("fields"); got != "caption,message" {
			t.Errorf("fields = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"caption": "Hola mundo"})
	})

	if got := client.GetPostCaption(context.Background(), "media_1", "tok"); got != "Hola mundo" {
		t.Errorf("caption = %q", got)
	}
}

func TestReplyToInstagramComment(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/cmt_1/replies" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("message"); got != "Gracias!" {
			t.Errorf("message = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "reply_99"})
	})

	id, err := client.ReplyToInstagramComment(context.Background(), "cmt_1", "Gracias!", "tok")
	if err != nil {
		t.Fatalf("ReplyToInstagramComment: %v", err)
	}
	if id != "reply_99" {
		t.Errorf("reply id = %q", id)
	}
}

func TestReplyToFacebookCommentError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cmt_2/comments" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Permission denied", "code": 200},
		})
	})

	if _, err := client.ReplyToFacebookComment(context.Background(), "cmt_2", "Hola", "tok"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSendDirectMessage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload struct {
			Recipient     map[string]string `json:"recipient"`
			Message       map[string]string `json:"message"`
			MessagingType string            `json:"messaging_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Recipient["id"] != "user_5" {
			t.Errorf("recipient = %q", payload.Recipient["id"])
		}
		if payload.MessagingType != "RESPONSE" {
			t.Errorf("messaging_type = %q", payload.MessagingType)
		}
		json.NewEncoder(w).Encode(map[string]string{"message_id": "mid_1"})
	})

	id, err := client.SendDirectMessage(context.Background(), "user_5", "Hola!", "tok")
	if err != nil {
		t.Fatalf("SendDirectMessage: %v", err)
	}
	if id != "mid_1" {
		t.Errorf("message id = %q", id)
	}
}

func TestHideComment(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("is_hidden"); got != "true" {
			t.Errorf("is_hidden = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	if err := client.HideComment(context.Background(), "cmt_3", "tok"); err != nil {
		t.Fatalf("HideComment: %v", err)
	}
}
