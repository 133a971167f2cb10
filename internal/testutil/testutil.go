// Package testutil provides common test helpers for Simsar packages.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/BTreeMap/Simsar/internal/knowledge"
	"github.com/BTreeMap/Simsar/internal/models"
)

// NewRetriever returns a retriever over the built-in sample knowledge, with numeric
// budget matching as the binary configures it.
func NewRetriever(t testing.TB) *knowledge.Retriever {
	t.Helper()
	base, err := knowledge.Default(knowledge.WithBudgetMatching())
	if err != nil {
		t.Fatalf("failed to load sample knowledge: %v", err)
	}
	return knowledge.NewRetriever(base)
}

// Reporter is the part of testing.TB the assertions need.
type Reporter interface {
	Helper()
	Errorf(format string, args ...any)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t Reporter, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// Envelope is a decoded models.APIResponse whose result is still raw JSON.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// DecodeEnvelope decodes an API response body. When result is non-nil the envelope's
// result is decoded into it.
func DecodeEnvelope(t testing.TB, body []byte, result any) Envelope {
	t.Helper()
	var env Envelope
	MustUnmarshalJSON(t, body, &env)
	if env.Status != string(models.APIStatusOK) && env.Status != string(models.APIStatusError) {
		t.Errorf("unexpected envelope status %q in %s", env.Status, body)
	}
	if result != nil {
		if len(env.Result) == 0 {
			t.Fatalf("response has no result: %s", body)
		}
		MustUnmarshalJSON(t, env.Result, result)
	}
	return env
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t testing.TB, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t testing.TB, data []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON %q: %v", data, err)
	}
}
