package util

import (
	"errors"
	"testing"
)

func TestNewMatcher(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		useRegex bool
		host     string
		want     bool
	}{
		{"empty accepts all", "", false, "anything", true},
		{"glob star", "leaf*", false, "leaf1-nyc", true},
		{"glob star miss", "leaf*", false, "spine1", false},
		{"glob question", "sp?ne1", false, "spine1", true},
		{"glob class", "leaf[12]", false, "leaf2", true},
		{"glob class miss", "leaf[12]", false, "leaf3", false},
		{"glob is anchored", "leaf", false, "leaf1", false},
		{"glob negated class", "leaf[!1]", false, "leaf2", true},
		{"glob negated class miss", "leaf[!1]", false, "leaf1", false},
		{"glob negated class bang", "leaf[!1]", false, "leaf!", false},
		{"glob negated range", "leaf[!1-3]", false, "leaf4", true},
		{"glob caret is literal", "leaf[^1]", false, "leaf^", true},
		{"glob caret not negation", "leaf[^1]", false, "leaf2", false},
		{"glob bracket first in class", "leaf[]1]", false, "leaf]", true},
		{"glob dash last in class", "leaf[1-]", false, "leaf-", true},
		{"glob backslash literal", `dc\leaf`, false, `dc\leaf`, true},
		{"glob unclosed bracket literal", "leaf[", false, "leaf[", true},
		{"regex unanchored", "nyc", true, "leaf1-nyc-03", true},
		{"regex case insensitive", "^LEAF", true, "leaf1", true},
		{"regex miss", "^spine", true, "leaf1", false},
		{"regex alternation", "leaf(1|3)$", true, "leaf3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatcher("hostname", tt.pattern, tt.useRegex)
			if err != nil {
				t.Fatalf("NewMatcher(%q): %v", tt.pattern, err)
			}
			if got := m(tt.host); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestNewMatcherInvalid(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		useRegex bool
	}{
		{"bad regex", "leaf(", true},
		{"bad regex class", "leaf[", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMatcher("hostname", tt.pattern, tt.useRegex)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("error should unwrap to ErrInvalidPattern: %v", err)
			}
			var pe *PatternError
			if !errors.As(err, &pe) || pe.Option != "hostname" {
				t.Errorf("expected *PatternError for option hostname, got %v", err)
			}
		})
	}
}
