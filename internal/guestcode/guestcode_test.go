package guestcode

import (
	"strings"
	"testing"
)

func TestPrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "truncated to seven letters", input: "Ana García", want: "ANAGARC"},
		{name: "short name", input: "Ana Gil", want: "ANAGIL"},
		{name: "diacritics stripped", input: "Ștefan Țuțea", want: "STEFANT"},
		{name: "digits and punctuation skipped", input: "Ana-María 2nd", want: "ANAMARI"},
		{name: "no letters at all", input: "12345", want: "GUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Prefix(tt.input); got != tt.want {
				t.Errorf("Prefix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	code, err := Generate("Ana García")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(code, "ANAGARC-") {
		t.Errorf("Generate() = %q, want prefix %q", code, "ANAGARC-")
	}
	if !Valid(code) {
		t.Errorf("Generate() produced invalid code %q", code)
	}

	other, err := Generate("Ana García")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if code == other {
		t.Error("two generated codes for the same name are identical")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "generated shape", code: "ANAGARC-8H2K", want: true},
		{name: "short prefix", code: "ANA-8H2K", want: true},
		{name: "lowercase", code: "anagarc-8h2k", want: false},
		{name: "missing suffix", code: "ANAGARC-", want: false},
		{name: "no dash", code: "ANAGARC8H2K", want: false},
		{name: "empty", code: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.code); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  anagarc-8h2k "); got != "ANAGARC-8H2K" {
		t.Errorf("Normalize() = %q, want %q", got, "ANAGARC-8H2K")
	}
}
