package util

import "testing"

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimQuotes(tt.input)
			if result != tt.expected {
				t.Errorf("TrimQuotes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"command", ":ARM: 3 120.5 -40 standard", []string{":ARM:", "3", "120.5", "-40", "standard"}},
		{"extra whitespace", "  a \t  b ", []string{"a", "b"}},
		{"quoted space", `:SAY: "hello world" x`, []string{":SAY:", "hello world", "x"}},
		{"escaped quote", `"he said ""hi"""`, []string{`he said "hi"`}},
		{"empty quoted", `a "" b`, []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := SplitArgs(tt.input)
			if err != nil {
				t.Fatalf("SplitArgs(%q) error: %v", tt.input, err)
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("SplitArgs(%q) = %q, want %q", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("SplitArgs(%q)[%d] = %q, want %q", tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestSplitArgs_Unterminated(t *testing.T) {
	if _, err := SplitArgs(`a "b`); err != ErrUnterminatedQuote {
		t.Errorf("expected ErrUnterminatedQuote, got %v", err)
	}
}

func TestParseFloats(t *testing.T) {
	got, err := ParseFloats([]string{"1", `"-2.5"`, "3e2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1, -2.5, 300}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseFloats[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := ParseFloats([]string{"1", "x"}); err == nil {
		t.Error("expected error for non-numeric argument")
	}
}
