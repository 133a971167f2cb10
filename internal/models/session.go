// Package models defines session snapshot structures for persisting conversations.
package models

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel identifies where a session's messages come from.
type Channel string

const (
	ChannelAPI Channel = "api"
	ChannelSMS Channel = "sms"
	ChannelCLI Channel = "cli"
)

// SessionSnapshot is the serializable state of one agent session.
type SessionSnapshot struct {
	ID              string      `json:"id"`
	Channel         Channel     `json:"channel"`
	Recipient       string      `json:"recipient,omitempty"` // canonical phone number for SMS sessions
	Phase           Phase       `json:"phase"`
	Profile         UserProfile `json:"profile"`
	History         []Message   `json:"history"`
	LastMentionedID string      `json:"last_mentioned_id,omitempty"`
	ShownIDs        []string    `json:"shown_ids,omitempty"`
	Version         int64       `json:"version"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
