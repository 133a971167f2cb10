package messaging

import (
	"context"
	"sync"
)

// SentMessage is one message captured by MockSender.
type SentMessage struct {
	To   string
	Body string
}

// MockSender records outgoing messages instead of delivering them.
type MockSender struct {
	mu   sync.Mutex
	Sent []SentMessage
	Err  error
}

// SendMessage implements Sender.
func (m *MockSender) SendMessage(ctx context.Context, to, body string) error {
	if m.Err != nil {
		return m.Err
	}
	canonical, err := CanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.Sent = append(m.Sent, SentMessage{To: canonical, Body: body})
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of the messages sent so far.
func (m *MockSender) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Sent...)
}
