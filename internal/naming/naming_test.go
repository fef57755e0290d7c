package naming_test

import (
	"testing"

	"github.com/mickamy/ramster/internal/naming"
)

func TestSingular(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"users", "user"},
		{"userTypes", "userType"},
		{"categories", "category"},
		{"access_points", "access_point"},
		{"people", "person"},
		{"user", "user"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := naming.Singular(tt.input); got != tt.want {
				t.Errorf("Singular(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestForeignKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"users", "userId"},
		{"userType", "userTypeId"},
		{"UserType", "userTypeId"},
		{"accessPoints", "accessPointId"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := naming.ForeignKey(tt.input); got != tt.want {
				t.Errorf("ForeignKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"userType", true},
		{"user_type", true},
		{"", false},
		{"user.type", false},
		{"name?", false},
		{`na"me`, false},
	}

	for _, tt := range tests {
		if got := naming.ValidIdent(tt.input); got != tt.want {
			t.Errorf("ValidIdent(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
