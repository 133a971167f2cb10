// Package genai provides the text generator the agent falls back to when no scripted
// reply applies, backed by the OpenAI chat completions API.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/BTreeMap/Simsar/internal/models"
)

// Default generation parameters.
const (
	DefaultModel               = string(openai.ChatModelGPT4oMini)
	DefaultTemperature         = 0.8
	DefaultTopP                = 0.95
	DefaultMaxCompletionTokens = 200
)

var (
	// ErrNoChoicesReturned is returned when the API answers without any choice.
	ErrNoChoicesReturned = errors.New("no choices returned")
	// ErrMissingAPIKey is returned by NewClient when no API key is configured.
	ErrMissingAPIKey = errors.New("OpenAI API key not set")
)

// Prompt is one generation request: a system prompt, recent conversation context and
// the user's text.
type Prompt struct {
	System  string
	History []models.Message
	User    string
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionsAdapter adapts openai.ChatCompletionService to chatService.
type completionsAdapter struct {
	svc openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	topP                float64
	maxCompletionTokens int64
	debugMode           bool
	stateDir            string
}

// Opts holds configuration for the client.
type Opts struct {
	APIKey              string
	BaseURL             string
	Model               string
	Temperature         float64
	TopP                float64
	MaxCompletionTokens int64
	DebugMode           bool
	StateDir            string
}

// Option configures a Client.
type Option func(*Opts)

// WithAPIKey sets the API key. Without it OPENAI_API_KEY is used.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// WithMaxCompletionTokens caps the length of generated replies.
func WithMaxCompletionTokens(n int64) Option {
	return func(o *Opts) { o.MaxCompletionTokens = n }
}

// WithDebugMode writes every request and response under <stateDir>/debug.
func WithDebugMode(debug bool) Option {
	return func(o *Opts) { o.DebugMode = debug }
}

// WithStateDir sets the directory for debug logs.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// NewClient creates a Client. It fails with ErrMissingAPIKey when no key is available.
func NewClient(opts ...Option) (*Client, error) {
	o := Opts{
		Model:               DefaultModel,
		Temperature:         DefaultTemperature,
		TopP:                DefaultTopP,
		MaxCompletionTokens: DefaultMaxCompletionTokens,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.APIKey == "" {
		o.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if o.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(o.APIKey)}
	if o.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)

	slog.Debug("GenAI client created", "model", o.Model, "temperature", o.Temperature, "debug", o.DebugMode)
	return &Client{
		chat:                completionsAdapter{svc: cli.Chat.Completions},
		model:               o.Model,
		temperature:         o.Temperature,
		topP:                o.TopP,
		maxCompletionTokens: o.MaxCompletionTokens,
		debugMode:           o.DebugMode,
		stateDir:            o.StateDir,
	}, nil
}

// GeneratePrompt generates a response for a system and user prompt.
func (c *Client) GeneratePrompt(systemPrompt, userPrompt string) (string, error) {
	return c.GeneratePromptWithContext(context.Background(), systemPrompt, userPrompt)
}

// GeneratePromptWithContext is GeneratePrompt with a caller-supplied context.
func (c *Client) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	}
	return c.complete(ctx, "GeneratePromptWithContext", messages)
}

// GenerateWithMessages generates a response for an explicit message list.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return c.complete(ctx, "GenerateWithMessages", messages)
}

// Generate implements Generator. History entries are replayed between the system prompt
// and the user text.
func (c *Client) Generate(ctx context.Context, p Prompt) (string, error) {
	return c.complete(ctx, "Generate", BuildMessages(p))
}

// BuildMessages converts a Prompt into chat messages.
func BuildMessages(p Prompt) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.History)+2)
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	for _, msg := range p.History {
		switch msg.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	return append(messages, openai.UserMessage(p.User))
}

func (c *Client) complete(ctx context.Context, method string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.topP > 0 {
		params.TopP = openai.Float(c.topP)
	}
	if c.maxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.maxCompletionTokens)
	}

	slog.Debug("GenAI request", "method", method, "model", c.model, "messages", len(messages))
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI request failed", "method", method, "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if c.debugMode {
		c.writeDebugLog(method, params, resp)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI response", "method", method, "length", len(content))
	return content, nil
}

// writeDebugLog stores one request/response pair as JSON under <stateDir>/debug.
func (c *Client) writeDebugLog(method string, params openai.ChatCompletionNewParams, resp openai.ChatCompletion) {
	dir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("Failed to create GenAI debug directory", "dir", dir, "error", err)
		return
	}
	now := time.Now()
	entry := map[string]interface{}{
		"timestamp": now.Format(time.RFC3339Nano),
		"method":    method,
		"model":     c.model,
		"params":    params,
		"response":  resp,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal GenAI debug log", "error", err)
		return
	}
	name := filepath.Join(dir, fmt.Sprintf("genai_%s_%d.json", method, now.UnixNano()))
	if err := os.WriteFile(name, data, 0o644); err != nil {
		slog.Warn("Failed to write GenAI debug log", "file", name, "error", err)
	}
}
