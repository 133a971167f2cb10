package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/Simsar/internal/models"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params []openai.ChatCompletionNewParams
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = append(m.params, params)
	return m.resp, m.err
}

func reply(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGeneratePrompt_Success(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: reply("أهلاً بيك")}, model: DefaultModel}
	out, err := client.GeneratePrompt("system prompt", "user prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "أهلاً بيك" {
		t.Errorf("expected 'أهلاً بيك', got '%s'", out)
	}
}

func TestGeneratePrompt_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.GeneratePrompt("sys", "usr")
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGeneratePrompt_NoChoices(t *testing.T) {
	mockResp := openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{}}
	client := &Client{chat: &mockChatService{resp: mockResp}}
	_, err := client.GeneratePrompt("sys", "usr")
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestGenerate_ReplaysHistory(t *testing.T) {
	chat := &mockChatService{resp: reply("تمام")}
	client := &Client{chat: chat, model: "test-model", temperature: 0.5, maxCompletionTokens: 50}

	_, err := client.Generate(context.Background(), Prompt{
		System: "أنت وكيل عقارات",
		History: []models.Message{
			{Role: models.RoleUser, Content: "مرحبا"},
			{Role: models.RoleAssistant, Content: "أهلاً"},
		},
		User: "عايز شقة",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chat.params) != 1 {
		t.Fatalf("expected one request, got %d", len(chat.params))
	}
	if got := len(chat.params[0].Messages); got != 4 {
		t.Errorf("expected 4 messages (system, 2 history, user), got %d", got)
	}
	if string(chat.params[0].Model) != "test-model" {
		t.Errorf("model = %q", chat.params[0].Model)
	}
}

func TestBuildMessages_SkipsEmptySystemAndUnknownRoles(t *testing.T) {
	msgs := BuildMessages(Prompt{
		History: []models.Message{{Role: "tool", Content: "x"}},
		User:    "hi",
	})
	if len(msgs) != 1 {
		t.Errorf("expected only the user message, got %d", len(msgs))
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-test"), WithTemperature(0.2))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Fatal("expected client instance, got nil")
	}
	if cli.model != "gpt-test" || cli.temperature != 0.2 {
		t.Errorf("options not applied: model=%q temperature=%v", cli.model, cli.temperature)
	}
}

func TestNewClient_KeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	if _, err := NewClient(); err != nil {
		t.Fatalf("expected env key to be used, got %v", err)
	}
}

func TestStaticGenerator(t *testing.T) {
	out, err := StaticGenerator{}.Generate(context.Background(), Prompt{User: "x"})
	if err != nil || out != DefaultStaticReply {
		t.Errorf("Generate() = %q, %v", out, err)
	}
	out, _ = StaticGenerator{Reply: "ثابت"}.Generate(context.Background(), Prompt{})
	if out != "ثابت" {
		t.Errorf("Generate() = %q", out)
	}
}

func TestMockGeneratorRecordsPrompts(t *testing.T) {
	m := &MockGenerator{Err: errors.New("down")}
	if _, err := m.Generate(context.Background(), Prompt{User: "a"}); err == nil {
		t.Error("expected configured error")
	}
	if len(m.Prompts) != 1 || m.Prompts[0].User != "a" {
		t.Errorf("Prompts = %+v", m.Prompts)
	}
}
