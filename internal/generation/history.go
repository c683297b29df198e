package generation

import (
	"sync"
	"time"
)

const (
	historyMaxMessages = 20
	historyExpiry      = 60 * time.Minute
	historyPromptTail  = 5
)

// Message is one turn of a DM conversation.
type Message struct {
	Role    string
	Content string
}

type historyEntry struct {
	msg Message
	at  time.Time
}

// ConversationHistory keeps a short per-user DM transcript so replies
// stay contextual. Idle conversations expire after an hour; each keeps
// at most the last 20 messages.
type ConversationHistory struct {
	mu           sync.Mutex
	histories    map[string][]historyEntry
	lastActivity map[string]time.Time
}

func NewConversationHistory() *ConversationHistory {
	return &ConversationHistory{
		histories:    make(map[string][]historyEntry),
		lastActivity: make(map[string]time.Time),
	}
}

// Add appends one message to a user's transcript.
func (h *ConversationHistory) Add(userID, role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.expireLocked(userID)
	h.histories[userID] = append(h.histories[userID], historyEntry{
		msg: Message{Role: role, Content: content},
		at:  time.Now(),
	})
	h.lastActivity[userID] = time.Now()

	if n := len(h.histories[userID]); n > historyMaxMessages {
		h.histories[userID] = h.histories[userID][n-historyMaxMessages:]
	}
}

// Recent returns the tail of a user's transcript for prompt inclusion.
func (h *ConversationHistory) Recent(userID string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.expireLocked(userID)
	entries := h.histories[userID]
	if len(entries) > historyPromptTail {
		entries = entries[len(entries)-historyPromptTail:]
	}

	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.msg)
	}
	return out
}

// Clear drops a user's transcript.
func (h *ConversationHistory) Clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.histories, userID)
	delete(h.lastActivity, userID)
}

func (h *ConversationHistory) expireLocked(userID string) {
	if last, ok := h.lastActivity[userID]; ok && time.Since(last) > historyExpiry {
		delete(h.histories, userID)
		delete(h.lastActivity, userID)
	}
}
