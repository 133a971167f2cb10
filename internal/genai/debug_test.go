package genai

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BTreeMap/Simsar/internal/models"
)

func TestGenerateDebugLog(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantFiles int
	}{
		{"debug on writes one record per call", true, 1},
		{"debug off writes nothing", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stateDir := t.TempDir()
			c := &Client{
				chat:                &mockChatService{resp: reply("عندنا شقق حلوة في المعادي")},
				model:               "test-model",
				temperature:         DefaultTemperature,
				maxCompletionTokens: DefaultMaxCompletionTokens,
				debugMode:           tt.debug,
				stateDir:            stateDir,
			}
			p := Prompt{
				System:  "أنت وكيل عقارات",
				History: []models.Message{{Role: models.RoleUser, Content: "اهلا"}, {Role: models.RoleAssistant, Content: "اهلا بيك"}},
				User:    "عايز شقة",
			}
			if _, err := c.Generate(context.Background(), p); err != nil {
				t.Fatalf("Generate: %v", err)
			}

			files, err := os.ReadDir(filepath.Join(stateDir, "debug"))
			if tt.wantFiles == 0 {
				if !os.IsNotExist(err) {
					t.Errorf("debug dir exists with debug off (err=%v, files=%d)", err, len(files))
				}
				return
			}
			if err != nil || len(files) != tt.wantFiles {
				t.Fatalf("debug files = %d, err = %v", len(files), err)
			}
			if !strings.HasPrefix(files[0].Name(), "genai_Generate_") {
				t.Errorf("file name = %q", files[0].Name())
			}

			data, err := os.ReadFile(filepath.Join(stateDir, "debug", files[0].Name()))
			if err != nil {
				t.Fatalf("read debug log: %v", err)
			}
			var entry map[string]any
			if err := json.Unmarshal(data, &entry); err != nil {
				t.Fatalf("debug log is not JSON: %v", err)
			}
			for _, field := range []string{"timestamp", "params", "response"} {
				if _, ok := entry[field]; !ok {
					t.Errorf("debug log missing %q", field)
				}
			}
			if entry["method"] != "Generate" || entry["model"] != "test-model" {
				t.Errorf("method = %v model = %v", entry["method"], entry["model"])
			}
			if !strings.Contains(string(data), "اهلا بيك") {
				t.Error("debug log should include the replayed history")
			}
		})
	}
}
