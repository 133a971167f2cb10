package nlp

import (
	"testing"

	"github.com/BTreeMap/Simsar/internal/models"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		input string
		want  models.Intent
	}{
		{"هل في شقق فاضية؟", models.IntentInquiry},
		{"عايز شقة", models.IntentInterest},
		{"السعر غالي", models.IntentObjection},
		{"تمام", models.IntentReady},
		{"لا", models.IntentRejection},
		{"السلام عليكم", models.IntentGreeting},
		{"ابعتلي رقم", models.IntentClosing},
		{"هلال", models.IntentGeneral},
		{"", models.IntentGeneral},
	}
	for _, tt := range tests {
		if got := ClassifyIntent(tt.input); got != tt.want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestClassifyIntentOrder(t *testing.T) {
	// Inquiry is tested before interest.
	if got := ClassifyIntent("هل أنا مهتم"); got != models.IntentInquiry {
		t.Errorf("got %s, want inquiry", got)
	}
}

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		input string
		want  models.Sentiment
	}{
		{"مش كويس", models.SentimentNegative},
		{"كويس", models.SentimentPositive},
		{"ده رائع وجميل", models.SentimentPositive},
		{"غالي جدا", models.SentimentNegative},
		{"عادي", models.SentimentNeutral},
		{"جيد بس غالي", models.SentimentNeutral},
		{"", models.SentimentNeutral},
	}
	for _, tt := range tests {
		if got := ClassifySentiment(tt.input); got != tt.want {
			t.Errorf("ClassifySentiment(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
