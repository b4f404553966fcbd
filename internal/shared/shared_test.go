package shared

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Run("returns non-empty ID", func(t *testing.T) {
		id := GenerateID()
		if id == "" {
			t.Error("expected non-empty ID")
		}
	})

	t.Run("returns unique IDs", func(t *testing.T) {
		first := GenerateID()
		second := GenerateID()
		if first == second {
			t.Errorf("expected unique IDs, got %s twice", first)
		}
	})
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "The Beatles", "the beatles"},
		{"trims whitespace", "  Radiohead  ", "radiohead"},
		{"collapses inner whitespace", "Pink   Floyd", "pink floyd"},
		{"mixed case and spacing", "  LED   Zeppelin ", "led zeppelin"},
		{"already normalized", "queen", "queen"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseReleaseYear(t *testing.T) {
	t.Run("parses catalog release date", func(t *testing.T) {
		year, ok := ParseReleaseYear("1969-09-26T07:00:00Z")
		if !ok {
			t.Fatal("expected release date to parse")
		}
		if year != 1969 {
			t.Errorf("expected year 1969, got %d", year)
		}
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		if _, ok := ParseReleaseYear("not-a-date"); ok {
			t.Error("expected malformed date to be rejected")
		}
	})

	t.Run("rejects empty date", func(t *testing.T) {
		if _, ok := ParseReleaseYear(""); ok {
			t.Error("expected empty date to be rejected")
		}
	})

	t.Run("rejects date-only format", func(t *testing.T) {
		if _, ok := ParseReleaseYear("1969-09-26"); ok {
			t.Error("expected date without time component to be rejected")
		}
	})
}

func TestMarshalJSON(t *testing.T) {
	payload := map[string]any{"name": "abbey road", "tracks": 17}

	t.Run("compact output", func(t *testing.T) {
		data, err := MarshalJSON(payload, false)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if strings.Contains(string(data), "\n") {
			t.Error("compact output should not contain newlines")
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
	})

	t.Run("pretty output is indented", func(t *testing.T) {
		data, err := MarshalJSON(payload, true)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}
		if !strings.Contains(string(data), "\n  ") {
			t.Error("pretty output should be indented")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("returns logger with nil writer", func(t *testing.T) {
		if logger := NewLogger(nil); logger == nil {
			t.Error("expected logger to be created")
		}
	})
}
