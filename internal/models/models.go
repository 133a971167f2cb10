// Package models defines the core data structures for Simsar.
//
// It includes the conversation phase and profile types shared by the reasoning layer,
// knowledge-base records, session snapshots, and the JSON envelope used by the API.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length (in runes) of one user message
	MaxMessageLength = 2000
)

// Error variables for better error handling and testability
var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptySessionID  = errors.New("session ID cannot be empty")
	ErrInvalidChannel  = errors.New("invalid channel")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Channel Channel `json:"channel,omitempty"`
}

// Validate checks the requested channel, defaulting it to ChannelAPI.
func (r *CreateSessionRequest) Validate() error {
	switch r.Channel {
	case "":
		r.Channel = ChannelAPI
	case ChannelAPI, ChannelCLI:
	default:
		return ErrInvalidChannel
	}
	return nil
}

// MessageRequest is the body of POST /sessions/{id}/messages. State is opaque to the
// server and echoed back unchanged.
type MessageRequest struct {
	Message string          `json:"message"`
	State   json.RawMessage `json:"state,omitempty"`
}

// Validate performs validation on a MessageRequest.
func (r *MessageRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// TurnResponse is the result of one conversational turn.
type TurnResponse struct {
	SessionID string          `json:"session_id"`
	Reply     string          `json:"reply"`
	Phase     Phase           `json:"phase"`
	State     json.RawMessage `json:"state,omitempty"`
}

// SessionCreated is the result of POST /sessions.
type SessionCreated struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`
	Welcome   string `json:"welcome"`
}
