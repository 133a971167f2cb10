package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{" ON ", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("SIMSAR_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("SIMSAR_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 5},
		{"12", 12},
		{" -3 ", -3},
		{"twelve", 5},
	}
	for _, tt := range tests {
		t.Setenv("SIMSAR_TEST_INT", tt.value)
		if got := ParseIntEnv("SIMSAR_TEST_INT", 5); got != tt.want {
			t.Errorf("ParseIntEnv(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Hour},
		{"90m", 90 * time.Minute},
		{"-1s", time.Hour},
		{"soon", time.Hour},
	}
	for _, tt := range tests {
		t.Setenv("SIMSAR_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("SIMSAR_TEST_DURATION", time.Hour); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestGetenvDefault(t *testing.T) {
	t.Setenv("SIMSAR_TEST_STR", "  ")
	if got := GetenvDefault("SIMSAR_TEST_STR", "x"); got != "x" {
		t.Errorf("blank value = %q, want default", got)
	}
	t.Setenv("SIMSAR_TEST_STR", " gpt-4o ")
	if got := GetenvDefault("SIMSAR_TEST_STR", "x"); got != "gpt-4o" {
		t.Errorf("got %q", got)
	}
}
