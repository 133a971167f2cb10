package flow

import (
	"time"

	"github.com/BTreeMap/Simsar/internal/models"
)

// History is the append-only message log of one conversation.
type History struct {
	messages []models.Message
	now      func() time.Time
}

// NewHistory returns an empty history. Restored messages are copied.
func NewHistory(restored ...models.Message) *History {
	h := &History{now: time.Now}
	h.messages = append(h.messages, restored...)
	return h
}

// Append records one message.
func (h *History) Append(role, content string) {
	h.messages = append(h.messages, models.Message{Role: role, Content: content, Timestamp: h.now()})
}

// AppendUser records a user message.
func (h *History) AppendUser(content string) { h.Append(models.RoleUser, content) }

// AppendAssistant records an assistant message.
func (h *History) AppendAssistant(content string) { h.Append(models.RoleAssistant, content) }

// Len returns the number of messages.
func (h *History) Len() int { return len(h.messages) }

// All returns a copy of every message in order.
func (h *History) All() []models.Message {
	return append([]models.Message(nil), h.messages...)
}

// RecentPairs groups messages into consecutive pairs from the start and returns the
// last n complete pairs flattened. A trailing unpaired message is left out.
func (h *History) RecentPairs(n int) []models.Message {
	if n <= 0 {
		return nil
	}
	complete := len(h.messages) - len(h.messages)%2
	start := complete - 2*n
	if start < 0 {
		start = 0
	}
	return append([]models.Message(nil), h.messages[start:complete]...)
}
