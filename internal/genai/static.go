package genai

import "context"

// StaticGenerator answers every prompt with the same text. It stands in for the model
// when no API key is configured.
type StaticGenerator struct {
	Reply string
}

// DefaultStaticReply is used by a StaticGenerator with an empty Reply.
const DefaultStaticReply = "ممكن توضحلي أكتر علشان أقدر أساعدك؟"

// Generate implements Generator.
func (s StaticGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if s.Reply == "" {
		return DefaultStaticReply, nil
	}
	return s.Reply, nil
}

// MockGenerator records prompts and returns a fixed reply or error.
type MockGenerator struct {
	Reply   string
	Err     error
	Prompts []Prompt
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	m.Prompts = append(m.Prompts, p)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
