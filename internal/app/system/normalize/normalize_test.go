package normalize_test

import (
	"testing"

	"github.com/combinefoundation/portal/internal/app/system/normalize"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User@Example.COM", "user@example.com"},
		{"  user@example.com  ", "user@example.com"},
		{"", ""},
		{"already@lower.pk", "already@lower.pk"},
	}
	for _, tt := range tests {
		if got := normalize.Email(tt.in); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Ayesha   Khan ", "Ayesha Khan"},
		{"Bilal\tAhmed", "Bilal Ahmed"},
		{"Single", "Single"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := normalize.Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
