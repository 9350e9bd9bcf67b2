package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/clubhouse/internal/app/system/htmlsanitize"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"formatting", "<p><strong>Bold</strong> move</p>", "Bold move"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"entity decoded", "Tom &amp; Jerry", "Tom & Jerry"},
		{"script removed", "Hi<script>alert('xss')</script>", "Hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.StripTags(tt.input); got != tt.want {
				t.Errorf("StripTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripTags_RemovesOnclick(t *testing.T) {
	got := htmlsanitize.StripTags(`<button onclick="alert('xss')">Click</button>`)
	if strings.Contains(got, "onclick") || got != "Click" {
		t.Errorf("expected tag and handler removed, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"Hello, World!", true},
		{"1 < 2", true},
		{"<p>Hello</p>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.input); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
