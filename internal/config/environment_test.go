package config

import "testing"

func TestEnvironmentName(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"production", "https://replit.com", "production"},
		{"production with path", "https://replit.com/", "production"},
		{"staging", "https://staging.replit.com", "staging.replit.com"},
		{"localhost with port", "http://localhost:3000", "localhost-3000"},
		{"uppercase host", "https://Staging.Replit.com", "staging.replit.com"},
		{"unparseable", "://nope", "unknown"},
		{"empty", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnvironmentName(tt.baseURL); got != tt.want {
				t.Errorf("EnvironmentName(%q) = %q, want %q", tt.baseURL, got, tt.want)
			}
		})
	}
}

func TestSanitizeEnvironmentName(t *testing.T) {
	if got := sanitizeEnvironmentName("my host_name"); got != "my-host-name" {
		t.Errorf("sanitizeEnvironmentName = %q, want my-host-name", got)
	}
}
